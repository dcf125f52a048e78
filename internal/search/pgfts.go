package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// The expression here must stay in sync with the idx_worksheets_fts
// index so Postgres can use it.
const worksheetTSVector = `to_tsvector('simple', title || ' ' || COALESCE(subject, '') || ' ' || COALESCE(grade, ''))`

// PgFTS implements Searcher using PostgreSQL full-text search as a
// fallback when Meilisearch is not configured.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a ranked tsquery over the worksheets table.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('simple', $1)"
	args := []any{q.Text}
	argN := 2

	where := worksheetTSVector + " @@ " + tsQuery
	if q.FilterOwnerID != "" {
		where += fmt.Sprintf(" AND owner_id = $%d", argN)
		args = append(args, q.FilterOwnerID)
		argN++
	}
	if q.FilterSubject != "" {
		where += fmt.Sprintf(" AND subject = $%d", argN)
		args = append(args, q.FilterSubject)
		argN++
	}
	if q.FilterGrade != "" {
		where += fmt.Sprintf(" AND grade = $%d", argN)
		args = append(args, q.FilterGrade)
		argN++
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM worksheets WHERE %s", where)

	dataSQL := fmt.Sprintf(`
		SELECT id, title,
			ts_headline('simple', title || ' ' || COALESCE(subject, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			COALESCE(subject, ''), COALESCE(grade, ''), owner_id
		FROM worksheets
		WHERE %s
		ORDER BY ts_rank(%s, %s) DESC
		LIMIT %d OFFSET %d`,
		tsQuery, where, worksheetTSVector, tsQuery, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Subject, &r.Grade, &r.OwnerID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all worksheet records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]WorksheetRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(subject, ''), COALESCE(grade, ''), owner_id
		FROM worksheets
	`)
	if err != nil {
		return nil, fmt.Errorf("load worksheets: %w", err)
	}
	defer rows.Close()

	records := make([]WorksheetRecord, 0)
	for rows.Next() {
		var r WorksheetRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Subject, &r.Grade, &r.OwnerID); err != nil {
			return nil, fmt.Errorf("scan worksheet: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worksheets: %w", err)
	}
	return records, nil
}
