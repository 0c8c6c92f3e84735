package store

import (
	"context"
	"fmt"
	"time"
)

// RelatedMemo is one edge of the memo similarity graph joined with the
// related memo's display fields.
type RelatedMemo struct {
	RelatedMemoID string    `json:"related_memo_id"`
	PaperID       string    `json:"paper_id"`
	PaperTitle    string    `json:"paper_title"`
	Content       string    `json:"content"`
	CommonTerms   string    `json:"common_terms"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// UpsertRelation writes one directed edge. The (memo_id, related_memo_id)
// pair is unique; a conflicting insert updates the existing row instead of
// failing.
func (s *Store) UpsertRelation(ctx context.Context, memoID, relatedMemoID, commonTerms string, score int) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO memo_relations (memo_id, related_memo_id, common_terms, score)
VALUES ($1,$2,$3,$4)
ON CONFLICT (memo_id, related_memo_id)
DO UPDATE SET common_terms = EXCLUDED.common_terms, score = EXCLUDED.score, created_at = NOW()
`, memoID, relatedMemoID, commonTerms, score)
	if err != nil {
		return fmt.Errorf("upsert relation %s -> %s: %w", memoID, relatedMemoID, err)
	}
	return nil
}

// DeleteOutgoingRelations clears the edges originating at a memo. The
// relation builder calls this before recomputing them.
func (s *Store) DeleteOutgoingRelations(ctx context.Context, memoID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM memo_relations WHERE memo_id=$1`, memoID)
	if err != nil {
		return fmt.Errorf("delete outgoing relations for %s: %w", memoID, err)
	}
	return nil
}

// DeleteMemoRelations removes every edge touching a memo, in both
// directions. Used when the memo itself is deleted.
func (s *Store) DeleteMemoRelations(ctx context.Context, memoID string) error {
	_, err := s.DB.ExecContext(ctx, `
DELETE FROM memo_relations WHERE memo_id=$1 OR related_memo_id=$1
`, memoID)
	if err != nil {
		return fmt.Errorf("delete relations for %s: %w", memoID, err)
	}
	return nil
}

// GetRelated returns a memo's outgoing edges ordered by score, ties broken
// by most recently computed first.
func (s *Store) GetRelated(ctx context.Context, memoID string, limit int) ([]RelatedMemo, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT mr.related_memo_id, m.paper_id, p.title, m.content, mr.common_terms, mr.score, mr.created_at
FROM memo_relations mr
INNER JOIN memos m ON mr.related_memo_id = m.id
INNER JOIN papers p ON m.paper_id = p.id
WHERE mr.memo_id=$1
ORDER BY mr.score DESC, mr.created_at DESC
LIMIT $2
`, memoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RelatedMemo
	for rows.Next() {
		var r RelatedMemo
		if err := rows.Scan(&r.RelatedMemoID, &r.PaperID, &r.PaperTitle, &r.Content, &r.CommonTerms, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
