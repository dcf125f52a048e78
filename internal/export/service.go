package export

import (
	"context"
	"fmt"

	"lectio/api/internal/block"
	"lectio/api/internal/document"
	"lectio/api/internal/layout"
)

type Service struct {
	size layout.PageSize
}

func NewService() *Service {
	return &Service{size: layout.A4}
}

// Render paginates the worksheet with its measured heights and renders
// the full document HTML.
func (s *Service) Render(ws document.Worksheet, heights layout.HeightMap, showAnswers bool) (string, error) {
	numbers := block.AssignActivityNumbers(ws.Blocks)
	pages := layout.ComputePages(flowBlocks(ws.Blocks), heights, s.size)

	data := TemplateData{
		Title:     ws.Title,
		FontSize:  ws.GlobalFontSize,
		Pages:     make([]TemplatePage, 0, len(pages)),
		PageCount: len(pages),
	}
	if data.FontSize <= 0 {
		data.FontSize = 14
	}
	if hf, ok := headerFooter(ws.Blocks); ok {
		data.HeaderText = hf.HeaderText
		data.FooterText = hf.FooterText
		data.ShowPageNumbers = hf.ShowPageNumbers
	}

	for _, page := range pages {
		tp := TemplatePage{Number: page.Number, Rows: make([]TemplateRow, 0, len(page.Rows))}
		for _, row := range page.Rows {
			tr := TemplateRow{Pair: row.Pair()}
			for i, b := range row.Blocks {
				cell := TemplateCell{
					HTML:         BlockHTML(b, numbers[b.ID], showAnswers),
					MarginBottom: b.MarginBottom,
				}
				if tr.Pair {
					left, right := layout.EffectiveSplit(row.Blocks[0])
					if i == 0 {
						cell.WidthPercent = left
					} else {
						cell.WidthPercent = right
					}
				}
				tr.Cells = append(tr.Cells, cell)
			}
			tp.Rows = append(tp.Rows, tr)
		}
		data.Pages = append(data.Pages, tp)
	}

	return RenderWorksheetHTML(data)
}

// Export renders the worksheet in the requested format.
func (s *Service) Export(ctx context.Context, ws document.Worksheet, heights layout.HeightMap, req Request) (*Result, error) {
	html, err := s.Render(ws, heights, req.ShowAnswers)
	if err != nil {
		return nil, fmt.Errorf("render worksheet: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(ws.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, ws.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// flowBlocks drops page-chrome blocks from the paginated flow.
func flowBlocks(blocks []block.Block) []block.Block {
	out := make([]block.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == block.TypeHeaderFooter {
			continue
		}
		out = append(out, b)
	}
	return out
}

// headerFooter returns the first header-footer block's payload.
func headerFooter(blocks []block.Block) (block.HeaderFooterContent, bool) {
	for _, b := range blocks {
		if b.Type != block.TypeHeaderFooter {
			continue
		}
		if c, ok := b.Content.(block.HeaderFooterContent); ok {
			return c, true
		}
	}
	return block.HeaderFooterContent{}, false
}
