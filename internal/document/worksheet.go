// Package document holds the worksheet model and the single reducer
// through which every block mutation flows.
package document

import (
	"encoding/json"
	"fmt"

	"lectio/api/internal/block"
)

// LayoutMode is declared on the worksheet, never inferred from block
// widths. Under ModeSingle and ModeDouble all blocks are full width
// and pairing is mechanical; ModeBlocks enables per-block half widths
// with explicit pairing.
type LayoutMode string

const (
	ModeSingle LayoutMode = "single"
	ModeDouble LayoutMode = "double"
	ModeBlocks LayoutMode = "blocks"
)

func NormalizeMode(m string) LayoutMode {
	switch LayoutMode(m) {
	case ModeSingle, ModeDouble, ModeBlocks:
		return LayoutMode(m)
	default:
		return ModeSingle
	}
}

type Worksheet struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Subject        string        `json:"subject,omitempty"`
	Grade          string        `json:"grade,omitempty"`
	GlobalFontSize int           `json:"globalFontSize,omitempty"`
	LayoutMode     LayoutMode    `json:"layoutMode"`
	Blocks         []block.Block `json:"blocks"`
}

// BlockIndex returns the array position of the block with the given
// id, or -1.
func (w *Worksheet) BlockIndex(id string) int {
	for i := range w.Blocks {
		if w.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// ValidateLayout reports blocks whose width contradicts the declared
// layout mode. Half widths are only legal under ModeBlocks.
func (w *Worksheet) ValidateLayout() []string {
	if w.LayoutMode == ModeBlocks {
		return nil
	}
	var offending []string
	for _, b := range w.Blocks {
		if b.Width == block.WidthHalf {
			offending = append(offending, b.ID)
		}
	}
	return offending
}

// DecodeBlocks parses a stored JSONB block array. Individual damaged
// blocks degrade to placeholder content; only a broken array shape is
// an error.
func DecodeBlocks(raw []byte) ([]block.Block, error) {
	if len(raw) == 0 {
		return []block.Block{}, nil
	}
	var blocks []block.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return blocks, nil
}

// EncodeBlocks serializes the block array for storage.
func EncodeBlocks(blocks []block.Block) ([]byte, error) {
	if blocks == nil {
		blocks = []block.Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	return data, nil
}
