package layout

import (
	"testing"

	"lectio/api/internal/block"
)

// testSize keeps scenario arithmetic readable: content height 1000,
// gap 16.
var testSize = PageSize{WidthPx: 794, HeightPx: 1044, PaddingPx: 22, RowGapPx: 16}

func full(id string) block.Block {
	return block.Block{ID: id, Type: block.TypeParagraph, Width: block.WidthFull}
}

func half(id string, percent int) block.Block {
	return block.Block{ID: id, Type: block.TypeParagraph, Width: block.WidthHalf, WidthPercent: percent}
}

func pageIDs(p Page) []string {
	var ids []string
	for _, b := range p.Blocks() {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestOversizedFullPageScenario(t *testing.T) {
	// A(full, 800), B(half, 300), C(half, 500) with content height
	// 1000: row(B,C) is 500+gap after A's 800, so B and C move to page
	// 2 together.
	blocks := []block.Block{full("A"), half("B", 50), half("C", 0)}
	heights := HeightMap{"A": 800, "B": 300, "C": 500}

	pages := ComputePages(blocks, heights, testSize)

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if got := pageIDs(pages[0]); len(got) != 1 || got[0] != "A" {
		t.Errorf("page 1: expected [A], got %v", got)
	}
	if got := pageIDs(pages[1]); len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("page 2: expected [B C], got %v", got)
	}
	if !pages[1].Rows[0].Pair() {
		t.Error("B and C should share one row")
	}
	if pages[1].Rows[0].Height != 500 {
		t.Errorf("pair row height should be max(300,500)=500, got %v", pages[1].Rows[0].Height)
	}
}

func TestPaginationDeterminism(t *testing.T) {
	blocks := []block.Block{full("a"), half("b", 40), half("c", 0), full("d"), full("e")}
	heights := HeightMap{"a": 300, "b": 450, "c": 200, "d": 600, "e": 150}

	first := ComputePages(blocks, heights, testSize)
	for run := 0; run < 5; run++ {
		again := ComputePages(blocks, heights, testSize)
		if len(again) != len(first) {
			t.Fatalf("run %d: page count changed %d -> %d", run, len(first), len(again))
		}
		for p := range again {
			a, b := pageIDs(first[p]), pageIDs(again[p])
			if len(a) != len(b) {
				t.Fatalf("run %d page %d: partition changed", run, p)
			}
			for i := range a {
				if a[i] != b[i] {
					t.Fatalf("run %d page %d: partition changed at %d", run, p, i)
				}
			}
		}
	}
}

func TestPageCapacityInvariant(t *testing.T) {
	blocks := []block.Block{
		full("a"), full("b"), half("c", 50), half("d", 0),
		full("e"), full("f"), full("g"), half("h", 30), half("i", 0),
	}
	heights := HeightMap{
		"a": 240, "b": 380, "c": 120, "d": 415,
		"e": 700, "f": 90, "g": 333, "h": 50, "i": 60,
	}

	for _, p := range ComputePages(blocks, heights, testSize) {
		if len(p.Rows) == 1 {
			continue // single oversized rows are exempt
		}
		total := 0.0
		for i, row := range p.Rows {
			total += row.Height
			if i > 0 {
				total += testSize.RowGapPx
			}
		}
		if total > testSize.ContentHeight() {
			t.Errorf("page %d exceeds capacity: %v > %v", p.Number, total, testSize.ContentHeight())
		}
	}
}

func TestOversizedRowGetsOwnPage(t *testing.T) {
	blocks := []block.Block{full("a"), full("giant"), full("b")}
	heights := HeightMap{"a": 100, "giant": 5000, "b": 100}

	pages := ComputePages(blocks, heights, testSize)

	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if got := pageIDs(pages[1]); len(got) != 1 || got[0] != "giant" {
		t.Errorf("oversized row should get its own page, got %v", got)
	}
	for _, p := range pages {
		if len(p.Rows) == 0 {
			t.Errorf("page %d is empty", p.Number)
		}
	}
}

func TestUnmeasuredBlocksUseDefaultHeight(t *testing.T) {
	blocks := []block.Block{full("a"), full("b")}

	pages := ComputePages(blocks, HeightMap{}, testSize)

	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Rows[0].Height != DefaultBlockHeight {
		t.Errorf("expected placeholder height %d, got %v", DefaultBlockHeight, pages[0].Rows[0].Height)
	}
}

func TestHalfPairStaysTogether(t *testing.T) {
	// A half pair near the page boundary must never be split across
	// pages.
	blocks := []block.Block{full("a"), half("l", 50), half("r", 0)}
	heights := HeightMap{"a": 900, "l": 400, "r": 380}

	pages := ComputePages(blocks, heights, testSize)

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	row := pages[1].Rows[0]
	if !row.Pair() || row.Blocks[0].ID != "l" || row.Blocks[1].ID != "r" {
		t.Errorf("pair split across pages: %v", pageIDs(pages[1]))
	}
}

func TestLoneHalfBlockOwnsItsRow(t *testing.T) {
	// half, full, half: neither half block has an adjacent half
	// partner, so each occupies its own row.
	blocks := []block.Block{half("x", 40), full("m"), half("y", 0)}
	heights := HeightMap{"x": 100, "m": 100, "y": 100}

	pages := ComputePages(blocks, heights, testSize)

	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if len(pages[0].Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(pages[0].Rows))
	}
	for _, row := range pages[0].Rows {
		if row.Pair() {
			t.Errorf("unexpected pair row: %v", row.Blocks)
		}
	}
}

func TestPairingDoesNotLookPastOneBlock(t *testing.T) {
	// half, full, half, half: only the adjacent halves pair.
	blocks := []block.Block{half("a", 50), full("b"), half("c", 50), half("d", 0)}
	heights := HeightMap{"a": 50, "b": 50, "c": 50, "d": 50}

	pages := ComputePages(blocks, heights, testSize)
	rows := pages[0].Rows
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Pair() || rows[1].Pair() || !rows[2].Pair() {
		t.Errorf("unexpected pairing: %+v", rows)
	}
}

func TestMarginBottomCountsTowardRowHeight(t *testing.T) {
	a := full("a")
	a.MarginBottom = 300
	blocks := []block.Block{a, full("b")}
	heights := HeightMap{"a": 600, "b": 200}

	pages := ComputePages(blocks, heights, testSize)

	// 900 + gap + 200 > 1000, so b flows to page 2.
	if len(pages) != 2 {
		t.Fatalf("expected margin to push b to page 2, got %d pages", len(pages))
	}
}

func TestPageNumbersSequential(t *testing.T) {
	var blocks []block.Block
	heights := HeightMap{}
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		blocks = append(blocks, full(id))
		heights[id] = 400
	}

	for i, p := range ComputePages(blocks, heights, testSize) {
		if p.Number != i+1 {
			t.Errorf("page %d numbered %d", i, p.Number)
		}
	}
}

func TestEffectiveSplit(t *testing.T) {
	left, right := EffectiveSplit(half("l", 61))
	if left != 61 || right != 39 {
		t.Errorf("expected 61/39, got %d/%d", left, right)
	}
	left, right = EffectiveSplit(half("l", 0))
	if left != 50 || right != 50 {
		t.Errorf("unset percent should split evenly, got %d/%d", left, right)
	}
	left, right = EffectiveSplit(half("l", 95))
	if left != 80 || right != 20 {
		t.Errorf("stored percent should clamp, got %d/%d", left, right)
	}
}
