// Package block defines the worksheet block model: a typed, ordered
// content unit with per-block width, margin and an optional attached
// image. Array position in the worksheet is the sole ordering key.
package block

import (
	"encoding/json"
	"fmt"

	"lectio/api/internal/util"
)

type Type string

const (
	TypeHeading        Type = "heading"
	TypeParagraph      Type = "paragraph"
	TypeMultipleChoice Type = "multiple-choice"
	TypeFillBlank      Type = "fill-blank"
	TypeFreeAnswer     Type = "free-answer"
	TypeTable          Type = "table"
	TypeImage          Type = "image"
	TypeSpacer         Type = "spacer"
	TypeConnectPairs   Type = "connect-pairs"
	TypeImageHotspots  Type = "image-hotspots"
	TypeVideoQuiz      Type = "video-quiz"
	TypeQRCode         Type = "qr-code"
	TypeHeaderFooter   Type = "header-footer"
	TypeExamples       Type = "examples"
)

var knownTypes = map[Type]struct{}{
	TypeHeading:        {},
	TypeParagraph:      {},
	TypeMultipleChoice: {},
	TypeFillBlank:      {},
	TypeFreeAnswer:     {},
	TypeTable:          {},
	TypeImage:          {},
	TypeSpacer:         {},
	TypeConnectPairs:   {},
	TypeImageHotspots:  {},
	TypeVideoQuiz:      {},
	TypeQRCode:         {},
	TypeHeaderFooter:   {},
	TypeExamples:       {},
}

func KnownType(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

type Width string

const (
	WidthFull Width = "full"
	WidthHalf Width = "half"
)

// WidthPercent bounds for a paired half-width block. The complementary
// block's percent is always derived as 100-p and never stored.
const (
	MinWidthPercent = 20
	MaxWidthPercent = 80
)

type ImagePosition string

const (
	ImageBefore      ImagePosition = "before"
	ImageBesideLeft  ImagePosition = "beside-left"
	ImageBesideRight ImagePosition = "beside-right"
)

// ImageAttachment is an image rendered with a block, independent of the
// image block type.
type ImageAttachment struct {
	URL      string        `json:"url"`
	Position ImagePosition `json:"position"`
	Size     int           `json:"size"`
}

type Block struct {
	ID           string
	Type         Type
	Content      Content
	Width        Width
	WidthPercent int
	MarginBottom int
	Image        *ImageAttachment
}

// New creates a block of the given type with zero-value content, a
// fresh id and full width.
func New(t Type) Block {
	return Block{
		ID:      util.NewID("blk"),
		Type:    t,
		Content: zeroContent(t),
		Width:   WidthFull,
	}
}

// Duplicate returns a deep copy of b with a freshly minted id. Width,
// width percent, margin and the attached image are preserved.
func Duplicate(b Block) Block {
	copied := b
	copied.ID = util.NewID("blk")
	copied.Content = cloneContent(b.Content)
	if b.Image != nil {
		image := *b.Image
		copied.Image = &image
	}
	return copied
}

// blockEnvelope is the wire form: content is a tagged payload keyed by
// the block type.
type blockEnvelope struct {
	ID           string           `json:"id"`
	Type         Type             `json:"type"`
	Content      json.RawMessage  `json:"content,omitempty"`
	Width        Width            `json:"width"`
	WidthPercent int              `json:"widthPercent,omitempty"`
	MarginBottom int              `json:"marginBottom,omitempty"`
	Image        *ImageAttachment `json:"image,omitempty"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if b.Content != nil {
		encoded, err := json.Marshal(b.Content)
		if err != nil {
			return nil, fmt.Errorf("marshal %s content: %w", b.Type, err)
		}
		raw = encoded
	}
	return json.Marshal(blockEnvelope{
		ID:           b.ID,
		Type:         b.Type,
		Content:      raw,
		Width:        b.Width,
		WidthPercent: b.WidthPercent,
		MarginBottom: b.MarginBottom,
		Image:        b.Image,
	})
}

// UnmarshalJSON decodes the envelope. Malformed or partial content
// falls back to the type's zero payload so a damaged worksheet still
// loads and renders placeholders.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode block envelope: %w", err)
	}
	width := env.Width
	if width != WidthHalf {
		width = WidthFull
	}
	*b = Block{
		ID:           env.ID,
		Type:         env.Type,
		Content:      decodeContent(env.Type, env.Content),
		Width:        width,
		WidthPercent: env.WidthPercent,
		MarginBottom: env.MarginBottom,
		Image:        env.Image,
	}
	if b.MarginBottom < 0 {
		b.MarginBottom = 0
	}
	return nil
}
