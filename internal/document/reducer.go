package document

import (
	"encoding/json"
	"fmt"

	"lectio/api/internal/block"
	"lectio/api/internal/layout"
)

// Action is the tagged union of every block mutation. One reducer
// replaces the per-callback update paths of the original editor, so
// there is a single auditable way state changes.
type ActionType string

const (
	ActionAddBlock      ActionType = "add-block"
	ActionUpdateContent ActionType = "update-content"
	ActionUpdateWidth   ActionType = "update-width"
	ActionUpdateMargin  ActionType = "update-margin"
	ActionMoveUp        ActionType = "move-up"
	ActionMoveDown      ActionType = "move-down"
	ActionDuplicate     ActionType = "duplicate"
	ActionDelete        ActionType = "delete"
	ActionReorder       ActionType = "reorder"
)

type Action struct {
	Type    ActionType      `json:"type"`
	BlockID string          `json:"blockId,omitempty"`
	// AddBlock
	BlockType block.Type `json:"blockType,omitempty"`
	BeforeID  string     `json:"beforeId,omitempty"` // pending-insert flow; empty appends
	// UpdateContent
	Content json.RawMessage `json:"content,omitempty"`
	// UpdateWidth
	Width        block.Width `json:"width,omitempty"`
	WidthPercent int         `json:"widthPercent,omitempty"`
	// UpdateMargin
	MarginBottom int `json:"marginBottom,omitempty"`
	// Reorder: the full new ordering produced by drag-and-drop
	Order []string `json:"order,omitempty"`
}

// Result reports what Apply changed.
type Result struct {
	Changed bool
	// NewBlockID is set for add-block and duplicate.
	NewBlockID string
	// DeletedBlockID is set for delete so the caller can drop
	// selection and measurements.
	DeletedBlockID string
}

// Apply executes one action against the worksheet in place. Mutations
// are replace-by-id and idempotent where the spec allows: moves at the
// array boundary, deletes of unknown ids and no-op updates all return
// Changed=false without error. Only structurally invalid input (an
// unknown action, a bad reorder permutation) errors.
func Apply(w *Worksheet, action Action) (Result, error) {
	switch action.Type {
	case ActionAddBlock:
		return applyAdd(w, action)
	case ActionUpdateContent:
		return applyUpdateContent(w, action)
	case ActionUpdateWidth:
		return applyUpdateWidth(w, action)
	case ActionUpdateMargin:
		return applyUpdateMargin(w, action)
	case ActionMoveUp:
		return applyMove(w, action.BlockID, -1)
	case ActionMoveDown:
		return applyMove(w, action.BlockID, +1)
	case ActionDuplicate:
		return applyDuplicate(w, action)
	case ActionDelete:
		return applyDelete(w, action)
	case ActionReorder:
		return applyReorder(w, action)
	default:
		return Result{}, fmt.Errorf("unknown action type %q", action.Type)
	}
}

func applyAdd(w *Worksheet, action Action) (Result, error) {
	if !block.KnownType(action.BlockType) {
		return Result{}, fmt.Errorf("unknown block type %q", action.BlockType)
	}
	newBlock := block.New(action.BlockType)
	at := len(w.Blocks)
	if action.BeforeID != "" {
		if i := w.BlockIndex(action.BeforeID); i >= 0 {
			at = i
		}
	}
	w.Blocks = append(w.Blocks, block.Block{})
	copy(w.Blocks[at+1:], w.Blocks[at:])
	w.Blocks[at] = newBlock
	return Result{Changed: true, NewBlockID: newBlock.ID}, nil
}

func applyUpdateContent(w *Worksheet, action Action) (Result, error) {
	i := w.BlockIndex(action.BlockID)
	if i < 0 {
		return Result{}, nil
	}
	// Round-trip through the envelope so malformed payloads degrade to
	// the type's zero content instead of failing the dispatch.
	env := struct {
		Type    block.Type      `json:"type"`
		Content json.RawMessage `json:"content"`
	}{Type: w.Blocks[i].Type, Content: action.Content}
	raw, err := json.Marshal(env)
	if err != nil {
		return Result{}, fmt.Errorf("encode content update: %w", err)
	}
	var updated block.Block
	if err := json.Unmarshal(raw, &updated); err != nil {
		return Result{}, fmt.Errorf("decode content update: %w", err)
	}
	w.Blocks[i].Content = updated.Content
	return Result{Changed: true}, nil
}

func applyUpdateWidth(w *Worksheet, action Action) (Result, error) {
	i := w.BlockIndex(action.BlockID)
	if i < 0 {
		return Result{}, nil
	}
	switch action.Width {
	case block.WidthFull:
		w.Blocks[i].Width = block.WidthFull
		w.Blocks[i].WidthPercent = 0
	case block.WidthHalf:
		w.Blocks[i].Width = block.WidthHalf
		if action.WidthPercent != 0 {
			w.Blocks[i].WidthPercent = layout.SnapSplitPercent(action.WidthPercent)
		}
	default:
		return Result{}, fmt.Errorf("unknown width %q", action.Width)
	}
	return Result{Changed: true}, nil
}

func applyUpdateMargin(w *Worksheet, action Action) (Result, error) {
	i := w.BlockIndex(action.BlockID)
	if i < 0 {
		return Result{}, nil
	}
	w.Blocks[i].MarginBottom = layout.ClampMargin(action.MarginBottom, layout.DragBlockMargin)
	return Result{Changed: true}, nil
}

// applyMove swaps the block with its array neighbor. For a half-width
// row the host presents this as a left/right column move, but the
// underlying operation is still the same position swap. Boundary moves
// are no-ops.
func applyMove(w *Worksheet, blockID string, dir int) (Result, error) {
	i := w.BlockIndex(blockID)
	if i < 0 {
		return Result{}, nil
	}
	j := i + dir
	if j < 0 || j >= len(w.Blocks) {
		return Result{}, nil
	}
	w.Blocks[i], w.Blocks[j] = w.Blocks[j], w.Blocks[i]
	return Result{Changed: true}, nil
}

func applyDuplicate(w *Worksheet, action Action) (Result, error) {
	i := w.BlockIndex(action.BlockID)
	if i < 0 {
		return Result{}, nil
	}
	copied := block.Duplicate(w.Blocks[i])
	w.Blocks = append(w.Blocks, block.Block{})
	copy(w.Blocks[i+2:], w.Blocks[i+1:])
	w.Blocks[i+1] = copied
	return Result{Changed: true, NewBlockID: copied.ID}, nil
}

func applyDelete(w *Worksheet, action Action) (Result, error) {
	i := w.BlockIndex(action.BlockID)
	if i < 0 {
		return Result{}, nil
	}
	w.Blocks = append(w.Blocks[:i], w.Blocks[i+1:]...)
	return Result{Changed: true, DeletedBlockID: action.BlockID}, nil
}

// applyReorder accepts the wholesale ordering a drag-and-drop run
// produced. The new order must be a permutation of the current ids.
func applyReorder(w *Worksheet, action Action) (Result, error) {
	if len(action.Order) != len(w.Blocks) {
		return Result{}, fmt.Errorf("reorder expects %d ids, got %d", len(w.Blocks), len(action.Order))
	}
	byID := make(map[string]block.Block, len(w.Blocks))
	for _, b := range w.Blocks {
		byID[b.ID] = b
	}
	reordered := make([]block.Block, 0, len(action.Order))
	for _, id := range action.Order {
		b, ok := byID[id]
		if !ok {
			return Result{}, fmt.Errorf("reorder references unknown block %q", id)
		}
		delete(byID, id)
		reordered = append(reordered, b)
	}
	w.Blocks = reordered
	return Result{Changed: true}, nil
}
