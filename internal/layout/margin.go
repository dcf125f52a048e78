package layout

import "lectio/api/internal/block"

// DragKind selects the clamp range for a vertical drag: the margin
// beneath a block and the height of a spacer block share one
// interaction pattern with different bounds.
type DragKind int

const (
	DragBlockMargin DragKind = iota
	DragSpacerHeight
)

// Block bottom-margin bounds in pixels.
const (
	MinBlockMargin = 0
	MaxBlockMargin = 500
)

func (k DragKind) clamp(v int) int {
	min, max := MinBlockMargin, MaxBlockMargin
	if k == DragSpacerHeight {
		min, max = block.MinSpacerHeight, block.MaxSpacerHeight
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// MarginDrag is the drag controller for a block's bottom margin or a
// spacer's height. Only vertical movement counts; each update applies
// the pointer's cumulative vertical delta to the starting value. The
// committed value is whatever the clamped live value was at release,
// including pointer-cancel — there is no revert path.
type MarginDrag struct {
	active  bool
	blockID string
	kind    DragKind
	start   int
	value   int
}

// Begin starts a vertical drag from the block's current value.
func (m *MarginDrag) Begin(blockID string, startValue int, kind DragKind) {
	m.active = true
	m.blockID = blockID
	m.kind = kind
	m.start = kind.clamp(startValue)
	m.value = m.start
}

// Update applies the cumulative vertical delta since Begin. Horizontal
// movement is the caller's to discard; this controller only ever sees
// the y component.
func (m *MarginDrag) Update(deltaY int) int {
	if !m.active {
		return m.value
	}
	m.value = m.kind.clamp(m.start + deltaY)
	return m.value
}

// Live returns the current ephemeral value.
func (m *MarginDrag) Live() int {
	return m.value
}

// Commit ends the gesture and returns the block id and final value to
// persist.
func (m *MarginDrag) Commit() (blockID string, value int, err error) {
	if !m.active {
		return "", 0, ErrNoGesture
	}
	m.active = false
	return m.blockID, m.value, nil
}

// ClampMargin bounds a committed value for the given kind; used by
// callers that accept a final value straight from the host.
func ClampMargin(v int, kind DragKind) int {
	return kind.clamp(v)
}
