package layout

import "lectio/api/internal/block"

// DefaultBlockHeight stands in for any block that has not reported a
// measured height yet. Pagination is always defined before layout
// settles; accuracy converges as measurements arrive.
const DefaultBlockHeight = 100

// HeightMap holds the latest measured pixel height per block id.
type HeightMap map[string]float64

func (m HeightMap) heightOf(id string) float64 {
	if h, ok := m[id]; ok && h > 0 {
		return h
	}
	return DefaultBlockHeight
}

// Row is one horizontal band of a page: a single full-width block, or
// two consecutive half-width blocks side by side.
type Row struct {
	Blocks []block.Block
	Height float64
}

// Pair reports whether the row is a side-by-side half-width pair.
func (r Row) Pair() bool {
	return len(r.Blocks) == 2
}

// Page is a derived, contiguous slice of the block sequence that fits
// the content height. Pages are a projection; they are recomputed, not
// mutated.
type Page struct {
	Number int
	Rows   []Row
}

// Blocks flattens the page rows back into document order.
func (p Page) Blocks() []block.Block {
	out := make([]block.Block, 0, len(p.Rows))
	for _, row := range p.Rows {
		out = append(out, row.Blocks...)
	}
	return out
}

// ComputePages partitions blocks into fixed-height pages.
//
// Blocks are walked in order. Two blocks form a row pair iff both are
// half width and adjacent; pairing never looks ahead past one block. A
// pair's row height is the taller of the two. A row that would
// overflow a non-empty page flushes the page first; a row taller than
// the content height still gets a page of its own rather than forcing
// an empty one. The margin beneath a block counts toward its height,
// and the fixed row gap is added between rows.
func ComputePages(blocks []block.Block, heights HeightMap, size PageSize) []Page {
	contentHeight := size.ContentHeight()
	pages := make([]Page, 0, 1)
	var current []Row
	currentHeight := 0.0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pages = append(pages, Page{Number: len(pages) + 1, Rows: current})
		current = nil
		currentHeight = 0
	}

	i := 0
	for i < len(blocks) {
		row := Row{Blocks: []block.Block{blocks[i]}}
		rowHeight := heights.heightOf(blocks[i].ID) + float64(blocks[i].MarginBottom)
		if blocks[i].Width == block.WidthHalf && i+1 < len(blocks) && blocks[i+1].Width == block.WidthHalf {
			partner := blocks[i+1]
			row.Blocks = append(row.Blocks, partner)
			partnerHeight := heights.heightOf(partner.ID) + float64(partner.MarginBottom)
			if partnerHeight > rowHeight {
				rowHeight = partnerHeight
			}
			i += 2
		} else {
			i++
		}
		row.Height = rowHeight

		needed := rowHeight
		if len(current) > 0 {
			needed += size.RowGapPx
		}
		if len(current) > 0 && currentHeight+needed > contentHeight {
			flush()
			needed = rowHeight
		}
		current = append(current, row)
		currentHeight += needed
	}
	flush()
	return pages
}

// EffectiveSplit returns the committed split for a half-width pair:
// the first block's stored percent, clamped, and the complement for
// the second. A pair that never stored a percent splits evenly.
func EffectiveSplit(first block.Block) (left, right int) {
	p := first.WidthPercent
	if p == 0 {
		p = 50
	}
	p = clampPercent(p)
	return p, 100 - p
}

func clampPercent(p int) int {
	if p < block.MinWidthPercent {
		return block.MinWidthPercent
	}
	if p > block.MaxWidthPercent {
		return block.MaxWidthPercent
	}
	return p
}
