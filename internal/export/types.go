// Package export renders worksheets to print-ready HTML and PDF. Pages
// are laid out server-side with the same pagination the editor uses, so
// the export matches what the teacher saw on screen.
package export

import "errors"

// Format represents the export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Request contains parameters for an export operation.
type Request struct {
	Format Format
	// ShowAnswers renders the answer key variant: correct choices
	// marked, blanks filled, video answers printed.
	ShowAnswers bool
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates the headless browser used for PDF
	// rendering is not installed.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
