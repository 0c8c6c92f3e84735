package textindex

import (
	"context"
	"fmt"
	"log"

	"github.com/paperdesk/paperdesk/internal/store"
)

// DocSource supplies the full document set for a rebuild of the index.
type DocSource interface {
	AllPapers(ctx context.Context) ([]store.Paper, error)
	AllMemos(ctx context.Context) ([]store.Memo, error)
	AllChapters(ctx context.Context) ([]store.Chapter, error)
	AllFigures(ctx context.Context) ([]store.Figure, error)
}

// ReindexAll re-indexes every document from src and returns the number of
// documents written. Existing entries are overwritten in place; entries for
// documents that no longer exist are not cleaned up, so a from-scratch
// rebuild should start with a fresh index directory.
func (ix *Index) ReindexAll(ctx context.Context, src DocSource, logger *log.Logger) (int, error) {
	n := 0
	papers, err := src.AllPapers(ctx)
	if err != nil {
		return n, fmt.Errorf("load papers: %w", err)
	}
	for _, p := range papers {
		if err := ix.IndexPaper(p); err != nil {
			return n, err
		}
		n++
	}
	memos, err := src.AllMemos(ctx)
	if err != nil {
		return n, fmt.Errorf("load memos: %w", err)
	}
	for _, m := range memos {
		if err := ix.IndexMemo(m); err != nil {
			return n, err
		}
		n++
	}
	chapters, err := src.AllChapters(ctx)
	if err != nil {
		return n, fmt.Errorf("load chapters: %w", err)
	}
	for _, c := range chapters {
		if err := ix.IndexChapter(c); err != nil {
			return n, err
		}
		n++
	}
	figures, err := src.AllFigures(ctx)
	if err != nil {
		return n, fmt.Errorf("load figures: %w", err)
	}
	for _, f := range figures {
		if err := ix.IndexFigure(f); err != nil {
			return n, err
		}
		n++
	}
	if logger != nil {
		logger.Printf("reindexed %d documents (%d papers, %d memos, %d chapters, %d figures)",
			n, len(papers), len(memos), len(chapters), len(figures))
	}
	return n, nil
}
