package layout

// Rect is an axis-aligned box in viewport coordinates.
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Point is a screen position for the floating toolbar.
type Point struct {
	Top  float64
	Left float64
}

const (
	toolbarGap    = 8
	toolbarWidth  = 320
	toolbarHeight = 40
)

// ToolbarPosition places the floating contextual toolbar relative to
// the selected block's bounding box. Pure: the host recomputes it on
// scroll, resize and selection change and passes fresh rects (REDESIGN:
// no ad-hoc rect math against the live DOM).
//
// The toolbar sits centered above the anchor; when that would leave
// the viewport it flips below, and the horizontal position is clamped
// to keep the toolbar fully visible.
func ToolbarPosition(anchor Rect, viewport Rect) Point {
	top := anchor.Top - toolbarHeight - toolbarGap
	if top < viewport.Top {
		top = anchor.Top + anchor.Height + toolbarGap
	}

	left := anchor.Left + anchor.Width/2 - toolbarWidth/2
	minLeft := viewport.Left
	maxLeft := viewport.Left + viewport.Width - toolbarWidth
	if maxLeft < minLeft {
		maxLeft = minLeft
	}
	if left < minLeft {
		left = minLeft
	}
	if left > maxLeft {
		left = maxLeft
	}
	return Point{Top: top, Left: left}
}
