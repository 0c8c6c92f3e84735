package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paperdesk/paperdesk/internal/store"
	"github.com/paperdesk/paperdesk/internal/textindex"
)

type stubIndex struct {
	hits    map[store.Kind][]textindex.Hit
	counts  map[store.Kind]int
	err     map[store.Kind]error
	queried []store.Kind
}

func (s *stubIndex) Match(_ context.Context, kind store.Kind, _ string, _ int) ([]textindex.Hit, error) {
	s.queried = append(s.queried, kind)
	if err := s.err[kind]; err != nil {
		return nil, err
	}
	return s.hits[kind], nil
}

func (s *stubIndex) Count(_ context.Context, kind store.Kind, _ string) (int, error) {
	if err := s.err[kind]; err != nil {
		return 0, err
	}
	return s.counts[kind], nil
}

type historyRecord struct {
	query string
	scope string
	count int
}

type stubStore struct {
	papers     []store.Paper
	memos      []store.Memo
	chapters   []store.Chapter
	figures    []store.Figure
	substring  map[store.Kind][]store.SubstringMatch
	subCounts  map[store.Kind]int
	subQueried []store.Kind
	history    []historyRecord
}

func (s *stubStore) PaperProjections(context.Context, []string) ([]store.Paper, error) {
	return s.papers, nil
}
func (s *stubStore) MemoProjections(context.Context, []string) ([]store.Memo, error) {
	return s.memos, nil
}
func (s *stubStore) ChapterProjections(context.Context, []string) ([]store.Chapter, error) {
	return s.chapters, nil
}
func (s *stubStore) FigureProjections(context.Context, []string) ([]store.Figure, error) {
	return s.figures, nil
}
func (s *stubStore) SubstringMatches(_ context.Context, kind store.Kind, _ []string, _ string, _ int) ([]store.SubstringMatch, error) {
	s.subQueried = append(s.subQueried, kind)
	return s.substring[kind], nil
}
func (s *stubStore) SubstringCount(_ context.Context, kind store.Kind, _ []string, _ string) (int, error) {
	return s.subCounts[kind], nil
}
func (s *stubStore) SaveSearchHistory(_ context.Context, query, scope string, resultCount int) error {
	s.history = append(s.history, historyRecord{query: query, scope: scope, count: resultCount})
	return nil
}

func TestSearch_LatinQueryUsesIndex(t *testing.T) {
	ix := &stubIndex{
		hits: map[store.Kind][]textindex.Hit{
			store.KindMemo: {{ID: "m1", Score: 1.5, Rank: 1, Locations: map[string][]textindex.Span{
				"content": {{Start: 0, End: 9}},
			}}},
		},
	}
	st := &stubStore{
		memos: []store.Memo{{ID: "m1", PaperID: "p1", PaperTitle: "Attention Is All You Need", Content: "attention heads specialize"}},
	}
	s := NewSearcher(ix, st, Limits{}, nil)

	res, err := s.Search(context.Background(), "attention", ScopeMemo)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(st.subQueried) != 0 {
		t.Fatalf("latin query must not touch the substring path, got %v", st.subQueried)
	}
	if len(res.Memos) != 1 || res.Total != 1 {
		t.Fatalf("expected 1 memo hit, got %+v", res)
	}
	if res.Memos[0].Rank != 1 {
		t.Fatalf("expected rank 1, got %d", res.Memos[0].Rank)
	}
	want := "<mark>attention</mark> heads specialize"
	if res.Memos[0].Snippet != want {
		t.Fatalf("expected snippet %q, got %q", want, res.Memos[0].Snippet)
	}
}

func TestSearch_NonLatinQueryUsesSubstring(t *testing.T) {
	ix := &stubIndex{}
	st := &stubStore{
		substring: map[store.Kind][]store.SubstringMatch{
			store.KindMemo: {{ID: "m1", Field: "content", Text: "深層学習に関するメモ"}},
		},
		memos: []store.Memo{{ID: "m1", PaperID: "p1", Content: "深層学習に関するメモ"}},
	}
	s := NewSearcher(ix, st, Limits{}, nil)

	res, err := s.Search(context.Background(), "深層学習", ScopeMemo)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ix.queried) != 0 {
		t.Fatalf("non-latin query must not touch the index, got %v", ix.queried)
	}
	if len(res.Memos) != 1 {
		t.Fatalf("expected 1 memo hit, got %+v", res)
	}
	if res.Memos[0].Rank != 0 {
		t.Fatalf("substring hits carry no rank, got %d", res.Memos[0].Rank)
	}
	if res.Memos[0].Snippet != "深層学習に関するメモ" {
		t.Fatalf("unexpected snippet %q", res.Memos[0].Snippet)
	}
}

func TestSearch_AllScopeFansOutToEveryKind(t *testing.T) {
	ix := &stubIndex{}
	st := &stubStore{}
	s := NewSearcher(ix, st, Limits{}, nil)

	if _, err := s.Search(context.Background(), "anything", ScopeAll); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ix.queried) != 4 {
		t.Fatalf("expected 4 kinds queried, got %v", ix.queried)
	}
}

func TestSearch_BadQuerySyntaxSkipsKindOnly(t *testing.T) {
	qe := &textindex.QueryError{Query: `"unterminated`, Err: errors.New("parse error")}
	ix := &stubIndex{
		err: map[store.Kind]error{store.KindPaper: qe},
		hits: map[store.Kind][]textindex.Hit{
			store.KindMemo: {{ID: "m1", Rank: 1}},
		},
	}
	st := &stubStore{memos: []store.Memo{{ID: "m1", Content: "still here"}}}
	s := NewSearcher(ix, st, Limits{}, nil)

	res, err := s.Search(context.Background(), `"unterminated`, ScopeAll)
	if err != nil {
		t.Fatalf("bad syntax must not fail the search: %v", err)
	}
	if len(res.Papers) != 0 {
		t.Fatalf("expected no paper hits, got %+v", res.Papers)
	}
	if len(res.Memos) != 1 {
		t.Fatalf("expected memo hits to survive, got %+v", res.Memos)
	}
}

func TestSearch_IndexIOErrorFailsSearch(t *testing.T) {
	ix := &stubIndex{err: map[store.Kind]error{store.KindMemo: errors.New("disk gone")}}
	s := NewSearcher(ix, &stubStore{}, Limits{}, nil)
	if _, err := s.Search(context.Background(), "query", ScopeMemo); err == nil {
		t.Fatal("expected error for index failure")
	}
}

func TestSearch_SavesHistoryOncePerSearch(t *testing.T) {
	st := &stubStore{}
	s := NewSearcher(&stubIndex{}, st, Limits{}, nil)

	if _, err := s.Search(context.Background(), "  trimmed  ", ScopeAll); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(st.history) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(st.history))
	}
	h := st.history[0]
	if h.query != "trimmed" || h.scope != "all" || h.count != 0 {
		t.Fatalf("unexpected history record %+v", h)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	s := NewSearcher(&stubIndex{}, &stubStore{}, Limits{}, nil)
	if _, err := s.Search(context.Background(), "   ", ScopeAll); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestFacets_SumsPerKindCounts(t *testing.T) {
	ix := &stubIndex{counts: map[store.Kind]int{
		store.KindPaper:   3,
		store.KindMemo:    2,
		store.KindChapter: 1,
	}}
	s := NewSearcher(ix, &stubStore{}, Limits{}, nil)

	fc, err := s.Facets(context.Background(), "attention")
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	if fc.Papers != 3 || fc.Memos != 2 || fc.Chapters != 1 || fc.Figures != 0 {
		t.Fatalf("unexpected counts %+v", fc)
	}
	if fc.Total != 6 {
		t.Fatalf("expected total 6, got %d", fc.Total)
	}
}

func TestFacets_NonLatinCountsViaSubstring(t *testing.T) {
	st := &stubStore{subCounts: map[store.Kind]int{store.KindMemo: 4}}
	s := NewSearcher(&stubIndex{}, st, Limits{}, nil)

	fc, err := s.Facets(context.Background(), "深層学習")
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	if fc.Memos != 4 || fc.Total != 4 {
		t.Fatalf("unexpected counts %+v", fc)
	}
}

func TestFacets_DoesNotTouchHistory(t *testing.T) {
	st := &stubStore{}
	s := NewSearcher(&stubIndex{}, st, Limits{}, nil)
	if _, err := s.Facets(context.Background(), "attention"); err != nil {
		t.Fatalf("facets: %v", err)
	}
	if len(st.history) != 0 {
		t.Fatalf("facets must not record history, got %+v", st.history)
	}
}

func TestParseScope(t *testing.T) {
	for raw, want := range map[string]Scope{
		"":             ScopeAll,
		"all":          ScopeAll,
		"title_author": ScopeTitleAuthor,
		"memo":         ScopeMemo,
		"content":      ScopeContent,
		"figure":       ScopeFigure,
	} {
		got, err := ParseScope(raw)
		if err != nil || got != want {
			t.Fatalf("ParseScope(%q): expected %q, got %q (%v)", raw, want, got, err)
		}
	}
	if _, err := ParseScope("bogus"); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}

func TestSnippetFor_FallsBackToMatchedField(t *testing.T) {
	// A paper matched only in its body must still get a marked snippet even
	// though the unscoped plan prefers the title field.
	h := textindex.Hit{ID: "p1", Rank: 1, Locations: map[string][]textindex.Span{
		"content": {{Start: 0, End: 6}},
	}}
	plan := kindPlan{Kind: store.KindPaper, SnippetField: "title"}
	got := snippetFor(h, plan, func(f string) string {
		if f == "title" {
			return "Some Title"
		}
		return "neural networks generalize"
	})
	if !strings.HasPrefix(got, "<mark>neural</mark>") {
		t.Fatalf("expected body snippet with marker, got %q", got)
	}
}
