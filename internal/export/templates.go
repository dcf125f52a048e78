package export

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var worksheetTemplate *template.Template

func init() {
	content, err := templateFS.ReadFile("templates/worksheet.html")
	if err != nil {
		// Fallback to the built-in template if the file is missing.
		worksheetTemplate = template.Must(template.New("worksheet").Parse(fallbackTemplate))
		return
	}
	worksheetTemplate = template.Must(template.New("worksheet").Parse(string(content)))
}

// TemplateData holds everything the worksheet template needs: pages
// pre-computed by the layout engine, plus page chrome.
type TemplateData struct {
	Title           string
	FontSize        int
	HeaderText      string
	FooterText      string
	ShowPageNumbers bool
	Pages           []TemplatePage
	PageCount       int
}

type TemplatePage struct {
	Number int
	Rows   []TemplateRow
}

type TemplateRow struct {
	Pair  bool
	Cells []TemplateCell
}

type TemplateCell struct {
	HTML         template.HTML
	WidthPercent int // 0 for a full-width cell
	MarginBottom int
}

// RenderWorksheetHTML renders the full paginated document.
func RenderWorksheetHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := worksheetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; font-size: {{.FontSize}}px; margin: 0; }
    .page { width: 794px; height: 1123px; padding: 22px; box-sizing: border-box; page-break-after: always; position: relative; }
    .page:last-child { page-break-after: auto; }
    .row { display: flex; gap: 12px; }
    .row + .row { margin-top: 16px; }
    .cell { min-width: 0; }
  </style>
</head>
<body>
{{range .Pages}}<div class="page">
{{range .Rows}}<div class="row">
{{range .Cells}}<div class="cell"{{if .WidthPercent}} style="width:{{.WidthPercent}}%"{{end}}>{{.HTML}}</div>
{{end}}</div>
{{end}}</div>
{{end}}</body>
</html>`
