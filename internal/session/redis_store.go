// Package session provides Redis-backed storage for refresh tokens
// and per-worksheet editor state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lectio/api/internal/layout"
)

// TokenData holds the data stored for each refresh token.
type TokenData struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EditorState is the ephemeral editing state that survives a page
// reload: the latest measured heights and the selection machine
// position. It is never part of the persisted worksheet.
type EditorState struct {
	Selection       layout.SelectionState `json:"selection"`
	SelectedBlockID string                `json:"selectedBlockId,omitempty"`
	Heights         layout.HeightMap      `json:"heights,omitempty"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

var ErrNotFound = errors.New("session: not found")

// RedisStore implements refresh-token and editor-state storage.
type RedisStore struct {
	client        *redis.Client
	refreshPrefix string
	editorPrefix  string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:        client,
		refreshPrefix: "refresh:",
		editorPrefix:  "editor:",
	}
}

func (s *RedisStore) refreshKey(tokenHash string) string {
	return s.refreshPrefix + tokenHash
}

func (s *RedisStore) editorKey(worksheetID, userID string) string {
	return s.editorPrefix + worksheetID + ":" + userID
}

// SaveRefreshSession stores a refresh token hash with expiration.
func (s *RedisStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	data := TokenData{
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	if err := s.client.Set(ctx, s.refreshKey(tokenHash), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// LookupRefreshSession resolves a refresh token hash to its user id.
func (s *RedisStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	jsonData, err := s.client.Get(ctx, s.refreshKey(tokenHash)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return "", fmt.Errorf("unmarshal token data: %w", err)
	}
	return data.UserID, nil
}

// RevokeRefreshSession deletes a refresh token.
func (s *RedisStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.refreshKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// SaveEditorState stores a user's editing state for a worksheet with
// the editing-session TTL. Last write wins; gestures on different
// worksheets are independent.
func (s *RedisStore) SaveEditorState(ctx context.Context, worksheetID, userID string, state EditorState, ttl time.Duration) error {
	state.UpdatedAt = time.Now()
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal editor state: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.client.Set(ctx, s.editorKey(worksheetID, userID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save editor state: %w", err)
	}
	return nil
}

// GetEditorState loads a user's editing state for a worksheet.
func (s *RedisStore) GetEditorState(ctx context.Context, worksheetID, userID string) (EditorState, error) {
	jsonData, err := s.client.Get(ctx, s.editorKey(worksheetID, userID)).Result()
	if err == redis.Nil {
		return EditorState{}, ErrNotFound
	}
	if err != nil {
		return EditorState{}, fmt.Errorf("get editor state: %w", err)
	}

	var state EditorState
	if err := json.Unmarshal([]byte(jsonData), &state); err != nil {
		return EditorState{}, fmt.Errorf("unmarshal editor state: %w", err)
	}
	return state, nil
}

// DropEditorState removes the stored state, e.g. when the worksheet is
// deleted.
func (s *RedisStore) DropEditorState(ctx context.Context, worksheetID, userID string) error {
	if err := s.client.Del(ctx, s.editorKey(worksheetID, userID)).Err(); err != nil {
		return fmt.Errorf("drop editor state: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
