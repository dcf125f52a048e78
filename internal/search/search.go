// Package search provides full-text search over worksheets, backed by
// Meilisearch with a PostgreSQL fallback.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Subject string `json:"subject,omitempty"`
	Grade   string `json:"grade,omitempty"`
	OwnerID string `json:"ownerId"`
}

// Query describes a search request.
type Query struct {
	Text          string
	FilterOwnerID string
	FilterSubject string
	FilterGrade   string
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// WorksheetRecord is the data we index for a worksheet.
type WorksheetRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Grade   string `json:"grade"`
	OwnerID string `json:"ownerId"`
}
