// Package layout computes the printable-page partition of a worksheet
// and carries the drag-gesture controllers and selection state the
// editor surface is built on. Pagination is a pure function of the
// block list and the latest measured heights; everything else in the
// package is local, commit-on-release interaction state.
package layout

// PageSize describes one printable page in CSS pixels. Hosts targeting
// a different paper size pass their own values; nothing downstream
// hardcodes A4.
type PageSize struct {
	WidthPx   float64
	HeightPx  float64
	PaddingPx float64
	RowGapPx  float64
}

// A4 at 96dpi with the editor's fixed padding and inter-row gap.
var A4 = PageSize{
	WidthPx:   794,
	HeightPx:  1123,
	PaddingPx: 22,
	RowGapPx:  16,
}

// ContentHeight is the vertical space available to rows on one page.
func (p PageSize) ContentHeight() float64 {
	return p.HeightPx - 2*p.PaddingPx
}

// ContentWidth is the horizontal space available to a row.
func (p PageSize) ContentWidth() float64 {
	return p.WidthPx - 2*p.PaddingPx
}
