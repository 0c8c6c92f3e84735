package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SubstringMatch is one row matched by the LIKE fallback path. Field names
// the column whose text contained the query; Text carries the full column
// value so the caller can cut its own excerpt window.
type SubstringMatch struct {
	ID    string
	Field string
	Text  string
}

// SearchHistoryEntry is an append-only record of one executed search.
type SearchHistoryEntry struct {
	Query       string    `json:"query"`
	Scope       string    `json:"scope"`
	ResultCount int       `json:"result_count"`
	SearchedAt  time.Time `json:"searched_at"`
}

// substringTables whitelists the table and text columns each kind exposes
// to the LIKE matcher. Field names arriving from outside are validated
// against this table before being spliced into SQL.
var substringTables = map[Kind]struct {
	table string
	cols  map[string]bool
}{
	KindPaper:   {"papers", map[string]bool{"title": true, "authors": true, "content": true}},
	KindMemo:    {"memos", map[string]bool{"content": true}},
	KindChapter: {"chapters", map[string]bool{"title": true, "content": true}},
	KindFigure:  {"figures", map[string]bool{"caption": true}},
}

func substringTarget(kind Kind, fields []string) (string, error) {
	t, ok := substringTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown document kind %q", kind)
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("no fields requested for %s substring search", kind)
	}
	for _, f := range fields {
		if !t.cols[f] {
			return "", fmt.Errorf("field %q not searchable on %s", f, kind)
		}
	}
	return t.table, nil
}

// SubstringMatches runs the case-insensitive containment search used for
// queries the text index cannot tokenize. Results come back in document
// creation order; there is no relevance ranking on this path.
func (s *Store) SubstringMatches(ctx context.Context, kind Kind, fields []string, query string, limit int) ([]SubstringMatch, error) {
	table, err := substringTarget(kind, fields)
	if err != nil {
		return nil, err
	}
	conds := make([]string, len(fields))
	for i, f := range fields {
		conds[i] = fmt.Sprintf("lower(%s) LIKE '%%' || lower($1) || '%%'", f)
	}
	q := fmt.Sprintf(`SELECT id, %s FROM %s WHERE %s ORDER BY created_at LIMIT $2`,
		strings.Join(fields, ", "), table, strings.Join(conds, " OR "))
	rows, err := s.DB.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("substring search %s: %w", kind, err)
	}
	defer rows.Close()

	lowered := strings.ToLower(query)
	var out []SubstringMatch
	for rows.Next() {
		var id string
		texts := make([]string, len(fields))
		dest := make([]interface{}, 0, len(fields)+1)
		dest = append(dest, &id)
		for i := range texts {
			dest = append(dest, &texts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m := SubstringMatch{ID: id, Field: fields[0], Text: texts[0]}
		for i, txt := range texts {
			if strings.Contains(strings.ToLower(txt), lowered) {
				m.Field = fields[i]
				m.Text = txt
				break
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SubstringCount is the count-only variant of SubstringMatches, used for
// facet computation.
func (s *Store) SubstringCount(ctx context.Context, kind Kind, fields []string, query string) (int, error) {
	table, err := substringTarget(kind, fields)
	if err != nil {
		return 0, err
	}
	conds := make([]string, len(fields))
	for i, f := range fields {
		conds[i] = fmt.Sprintf("lower(%s) LIKE '%%' || lower($1) || '%%'", f)
	}
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table, strings.Join(conds, " OR "))
	var n int
	if err := s.DB.QueryRowContext(ctx, q, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("substring count %s: %w", kind, err)
	}
	return n, nil
}

func (s *Store) SaveSearchHistory(ctx context.Context, query, scope string, resultCount int) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO search_history (query, scope, result_count) VALUES ($1,$2,$3)
`, query, scope, resultCount)
	if err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	return nil
}

func (s *Store) SearchHistory(ctx context.Context, limit int) ([]SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT query, scope, result_count, searched_at
FROM search_history
ORDER BY searched_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SearchHistoryEntry
	for rows.Next() {
		var e SearchHistoryEntry
		if err := rows.Scan(&e.Query, &e.Scope, &e.ResultCount, &e.SearchedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ClearSearchHistory(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM search_history`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
