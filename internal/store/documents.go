package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CreatePaper inserts a paper and returns it with id and timestamps filled.
func (s *Store) CreatePaper(ctx context.Context, p Paper) (Paper, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO papers (id, title, authors, year, content, file_path)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING created_at, updated_at
`, p.ID, p.Title, p.Authors, p.Year, p.Content, p.FilePath).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Paper{}, fmt.Errorf("insert paper: %w", err)
	}
	return p, nil
}

func (s *Store) GetPaper(ctx context.Context, id string) (Paper, bool, error) {
	var p Paper
	err := s.DB.QueryRowContext(ctx, `
SELECT id, title, authors, year, content, file_path, created_at, updated_at
FROM papers WHERE id=$1
`, id).Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.Content, &p.FilePath, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return Paper{}, false, nil
	}
	if err != nil {
		return Paper{}, false, err
	}
	return p, true, nil
}

// ListPapers returns papers without their body content, newest first.
func (s *Store) ListPapers(ctx context.Context) ([]Paper, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, authors, year, file_path, created_at, updated_at
FROM papers ORDER BY updated_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Paper
	for rows.Next() {
		var p Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.FilePath, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePaper(ctx context.Context, p Paper) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE papers SET title=$2, authors=$3, year=$4, content=$5, file_path=$6, updated_at=NOW()
WHERE id=$1
`, p.ID, p.Title, p.Authors, p.Year, p.Content, p.FilePath)
	if err != nil {
		return fmt.Errorf("update paper: %w", err)
	}
	return requireRow(res, "paper", p.ID)
}

func (s *Store) DeletePaper(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM papers WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	return requireRow(res, "paper", id)
}

// ChildDocumentIDs returns the memo, chapter and figure ids belonging to a
// paper, so the caller can drop their index entries before the row cascade
// removes them.
func (s *Store) ChildDocumentIDs(ctx context.Context, paperID string) (memos, chapters, figures []string, err error) {
	collect := func(query string) ([]string, error) {
		rows, err := s.DB.QueryContext(ctx, query, paperID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}
	if memos, err = collect(`SELECT id FROM memos WHERE paper_id=$1`); err != nil {
		return nil, nil, nil, err
	}
	if chapters, err = collect(`SELECT id FROM chapters WHERE paper_id=$1`); err != nil {
		return nil, nil, nil, err
	}
	if figures, err = collect(`SELECT id FROM figures WHERE paper_id=$1`); err != nil {
		return nil, nil, nil, err
	}
	return memos, chapters, figures, nil
}

func (s *Store) CreateMemo(ctx context.Context, m Memo) (Memo, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO memos (id, paper_id, content, page_number, page_range)
VALUES ($1,$2,$3,$4,$5)
RETURNING created_at, updated_at
`, m.ID, m.PaperID, m.Content, m.PageNumber, m.PageRange).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Memo{}, fmt.Errorf("insert memo: %w", err)
	}
	return m, nil
}

func (s *Store) GetMemo(ctx context.Context, id string) (Memo, bool, error) {
	var m Memo
	err := s.DB.QueryRowContext(ctx, `
SELECT m.id, m.paper_id, m.content, m.page_number, m.page_range, m.created_at, m.updated_at, p.title
FROM memos m
INNER JOIN papers p ON m.paper_id = p.id
WHERE m.id=$1
`, id).Scan(&m.ID, &m.PaperID, &m.Content, &m.PageNumber, &m.PageRange, &m.CreatedAt, &m.UpdatedAt, &m.PaperTitle)
	if err == sql.ErrNoRows {
		return Memo{}, false, nil
	}
	if err != nil {
		return Memo{}, false, err
	}
	tags, err := s.MemoTags(ctx, id)
	if err != nil {
		return Memo{}, false, err
	}
	m.Tags = tags
	return m, true, nil
}

func (s *Store) ListMemosByPaper(ctx context.Context, paperID string) ([]Memo, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT m.id, m.paper_id, m.content, m.page_number, m.page_range, m.created_at, m.updated_at, p.title
FROM memos m
INNER JOIN papers p ON m.paper_id = p.id
WHERE m.paper_id=$1
ORDER BY m.created_at DESC
`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Memo
	for rows.Next() {
		var m Memo
		if err := rows.Scan(&m.ID, &m.PaperID, &m.Content, &m.PageNumber, &m.PageRange, &m.CreatedAt, &m.UpdatedAt, &m.PaperTitle); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemoTexts returns id and content for every memo; this is the full-sweep
// projection the relation builder scans.
func (s *Store) MemoTexts(ctx context.Context) ([]MemoText, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, content FROM memos ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemoText
	for rows.Next() {
		var m MemoText
		if err := rows.Scan(&m.ID, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMemo(ctx context.Context, id, content string, pageNumber int, pageRange string) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE memos SET content=$2, page_number=$3, page_range=$4, updated_at=NOW()
WHERE id=$1
`, id, content, pageNumber, pageRange)
	if err != nil {
		return fmt.Errorf("update memo: %w", err)
	}
	return requireRow(res, "memo", id)
}

func (s *Store) DeleteMemo(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM memos WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}
	return requireRow(res, "memo", id)
}

func (s *Store) MemoTags(ctx context.Context, memoID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT tag FROM memo_tags WHERE memo_id=$1 ORDER BY tag`, memoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) AddMemoTag(ctx context.Context, memoID, tag string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO memo_tags (memo_id, tag) VALUES ($1,$2)
ON CONFLICT (memo_id, tag) DO NOTHING
`, memoID, tag)
	return err
}

func (s *Store) RemoveMemoTag(ctx context.Context, memoID, tag string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM memo_tags WHERE memo_id=$1 AND tag=$2`, memoID, tag)
	return err
}

func (s *Store) CreateChapter(ctx context.Context, c Chapter) (Chapter, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO chapters (id, paper_id, chapter_number, title, content, page_start, page_end)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at
`, c.ID, c.PaperID, c.ChapterNumber, c.Title, c.Content, c.PageStart, c.PageEnd).Scan(&c.CreatedAt)
	if err != nil {
		return Chapter{}, fmt.Errorf("insert chapter: %w", err)
	}
	return c, nil
}

func (s *Store) ListChaptersByPaper(ctx context.Context, paperID string) ([]Chapter, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.paper_id, c.chapter_number, c.title, c.page_start, c.page_end, c.created_at, p.title
FROM chapters c
INNER JOIN papers p ON c.paper_id = p.id
WHERE c.paper_id=$1
ORDER BY c.chapter_number
`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.PaperID, &c.ChapterNumber, &c.Title, &c.PageStart, &c.PageEnd, &c.CreatedAt, &c.PaperTitle); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteChapter(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM chapters WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return requireRow(res, "chapter", id)
}

func (s *Store) CreateFigure(ctx context.Context, f Figure) (Figure, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO figures (id, paper_id, figure_number, caption, page_number)
VALUES ($1,$2,$3,$4,$5)
RETURNING created_at
`, f.ID, f.PaperID, f.FigureNumber, f.Caption, f.PageNumber).Scan(&f.CreatedAt)
	if err != nil {
		return Figure{}, fmt.Errorf("insert figure: %w", err)
	}
	return f, nil
}

func (s *Store) ListFiguresByPaper(ctx context.Context, paperID string) ([]Figure, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT f.id, f.paper_id, f.figure_number, f.caption, f.page_number, f.created_at, p.title
FROM figures f
INNER JOIN papers p ON f.paper_id = p.id
WHERE f.paper_id=$1
ORDER BY f.figure_number
`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Figure
	for rows.Next() {
		var f Figure
		if err := rows.Scan(&f.ID, &f.PaperID, &f.FigureNumber, &f.Caption, &f.PageNumber, &f.CreatedAt, &f.PaperTitle); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFigure(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM figures WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete figure: %w", err)
	}
	return requireRow(res, "figure", id)
}

// PaperProjections fetches the display and snippet fields for the given
// paper ids. Row order is unspecified; callers reorder by rank.
func (s *Store) PaperProjections(ctx context.Context, ids []string) ([]Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, authors, year, content
FROM papers WHERE id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Paper
	for rows.Next() {
		var p Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.Content); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MemoProjections(ctx context.Context, ids []string) ([]Memo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT m.id, m.paper_id, m.content, m.page_number, p.title
FROM memos m
INNER JOIN papers p ON m.paper_id = p.id
WHERE m.id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Memo
	for rows.Next() {
		var m Memo
		if err := rows.Scan(&m.ID, &m.PaperID, &m.Content, &m.PageNumber, &m.PaperTitle); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ChapterProjections(ctx context.Context, ids []string) ([]Chapter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.paper_id, c.title, c.content, c.page_start, p.title
FROM chapters c
INNER JOIN papers p ON c.paper_id = p.id
WHERE c.id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.PaperID, &c.Title, &c.Content, &c.PageStart, &c.PaperTitle); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) FigureProjections(ctx context.Context, ids []string) ([]Figure, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT f.id, f.paper_id, f.figure_number, f.caption, f.page_number, p.title
FROM figures f
INNER JOIN papers p ON f.paper_id = p.id
WHERE f.id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Figure
	for rows.Next() {
		var f Figure
		if err := rows.Scan(&f.ID, &f.PaperID, &f.FigureNumber, &f.Caption, &f.PageNumber, &f.PaperTitle); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AllPapers returns every paper including content, for index rebuilds.
func (s *Store) AllPapers(ctx context.Context) ([]Paper, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, title, authors, year, content FROM papers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Paper
	for rows.Next() {
		var p Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.Content); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AllMemos(ctx context.Context) ([]Memo, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, paper_id, content FROM memos ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Memo
	for rows.Next() {
		var m Memo
		if err := rows.Scan(&m.ID, &m.PaperID, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) AllChapters(ctx context.Context) ([]Chapter, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, paper_id, title, content FROM chapters ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.PaperID, &c.Title, &c.Content); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AllFigures(ctx context.Context) ([]Figure, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, paper_id, figure_number, caption FROM figures ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Figure
	for rows.Next() {
		var f Figure
		if err := rows.Scan(&f.ID, &f.PaperID, &f.FigureNumber, &f.Caption); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}
