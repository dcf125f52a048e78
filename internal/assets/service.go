// Package assets stores uploaded images in S3-compatible object
// storage and hands back public URLs for image blocks.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lectio/api/internal/util"
)

const maxUploadSize = 10 << 20 // 10 MiB

var ErrNotConfigured = errors.New("assets: object storage not configured")

var allowedContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/svg+xml": ".svg",
}

// Config holds object storage settings. An empty Endpoint disables the
// service; image blocks then only accept external URLs.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type Service struct {
	client *minio.Client
	config Config
}

// NewService connects to object storage and ensures the bucket exists.
func NewService(ctx context.Context, config Config) (*Service, error) {
	if config.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", config.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", config.Bucket, err)
		}
		log.Printf("assets: created bucket %s", config.Bucket)
	}

	return &Service{client: client, config: config}, nil
}

// MaxUploadSize is the upload limit enforced by the HTTP layer.
func (s *Service) MaxUploadSize() int64 {
	return maxUploadSize
}

// Upload stores an image and returns its public URL.
func (s *Service) Upload(ctx context.Context, name, contentType string, reader io.Reader, size int64) (string, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if size > maxUploadSize {
		return "", fmt.Errorf("upload exceeds %d bytes", int64(maxUploadSize))
	}

	objectName := buildObjectName(name, ext)
	_, err := s.client.PutObject(ctx, s.config.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.objectURL(objectName), nil
}

// Delete removes an uploaded object. Unknown objects are not an error.
func (s *Service) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.config.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PresignedGet returns a short-lived signed URL for a private bucket.
func (s *Service) PresignedGet(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.config.Bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func (s *Service) objectURL(objectName string) string {
	if s.config.PublicURL != "" {
		return strings.TrimRight(s.config.PublicURL, "/") + "/" + s.config.Bucket + "/" + objectName
	}
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.config.Bucket, objectName)
}

// buildObjectName keys objects by date and a random id so re-uploads of
// the same filename never collide.
func buildObjectName(name, ext string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	base = sanitize(base)
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s/%s-%s%s", time.Now().UTC().Format("2006/01"), base, util.NewID("img"), ext)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
