package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/paperdesk/paperdesk/internal/store"
	"github.com/paperdesk/paperdesk/internal/textindex"
)

// Scope names the subset of document kinds and fields a search targets.
type Scope string

const (
	ScopeAll         Scope = "all"
	ScopeTitleAuthor Scope = "title_author"
	ScopeMemo        Scope = "memo"
	ScopeContent     Scope = "content"
	ScopeFigure      Scope = "figure"
)

// ParseScope maps the wire value to a Scope; empty means ScopeAll.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeTitleAuthor, ScopeMemo, ScopeContent, ScopeFigure:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("unknown search scope %q", s)
	}
}

// kindPlan is one row of the scope dispatch table: which kind to search,
// which columns the substring matcher probes, and which field the snippet
// prefers.
type kindPlan struct {
	Kind            store.Kind
	SubstringFields []string
	SnippetField    string
	Limit           int
}

// Limits caps the number of hits returned per kind. Deployment-tunable,
// defaulting to 50 for fan-out searches and 100 for single-scope ones.
type Limits struct {
	PerKind int
	Scoped  int
}

func (l Limits) orDefaults() Limits {
	if l.PerKind <= 0 {
		l.PerKind = 50
	}
	if l.Scoped <= 0 {
		l.Scoped = 100
	}
	return l
}

// scopePlans drives all scope dispatch. Limit is filled per deployment in
// plansFor.
var scopePlans = map[Scope][]kindPlan{
	ScopeAll: {
		{Kind: store.KindPaper, SubstringFields: []string{"content"}, SnippetField: "title"},
		{Kind: store.KindMemo, SubstringFields: []string{"content"}, SnippetField: "content"},
		{Kind: store.KindChapter, SubstringFields: []string{"content"}, SnippetField: "content"},
		{Kind: store.KindFigure, SubstringFields: []string{"caption"}, SnippetField: "caption"},
	},
	ScopeTitleAuthor: {
		{Kind: store.KindPaper, SubstringFields: []string{"title", "authors"}, SnippetField: "title"},
	},
	ScopeMemo: {
		{Kind: store.KindMemo, SubstringFields: []string{"content"}, SnippetField: "content"},
	},
	ScopeContent: {
		{Kind: store.KindPaper, SubstringFields: []string{"content"}, SnippetField: "content"},
	},
	ScopeFigure: {
		{Kind: store.KindFigure, SubstringFields: []string{"caption"}, SnippetField: "caption"},
	},
}

// Index is the slice of the text index the orchestrator needs.
type Index interface {
	Match(ctx context.Context, kind store.Kind, query string, limit int) ([]textindex.Hit, error)
	Count(ctx context.Context, kind store.Kind, query string) (int, error)
}

// Store is the slice of the document store the orchestrator needs: display
// projections, the substring matcher and the history sink.
type Store interface {
	PaperProjections(ctx context.Context, ids []string) ([]store.Paper, error)
	MemoProjections(ctx context.Context, ids []string) ([]store.Memo, error)
	ChapterProjections(ctx context.Context, ids []string) ([]store.Chapter, error)
	FigureProjections(ctx context.Context, ids []string) ([]store.Figure, error)
	SubstringMatches(ctx context.Context, kind store.Kind, fields []string, query string, limit int) ([]store.SubstringMatch, error)
	SubstringCount(ctx context.Context, kind store.Kind, fields []string, query string) (int, error)
	SaveSearchHistory(ctx context.Context, query, scope string, resultCount int) error
}

type PaperHit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Year    int    `json:"year,omitempty"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank,omitempty"`
}

type MemoHit struct {
	ID         string `json:"id"`
	PaperID    string `json:"paper_id"`
	PaperTitle string `json:"paper_title"`
	PageNumber int    `json:"page_number,omitempty"`
	Snippet    string `json:"snippet"`
	Rank       int    `json:"rank,omitempty"`
}

type ChapterHit struct {
	ID         string `json:"id"`
	PaperID    string `json:"paper_id"`
	Title      string `json:"title"`
	PaperTitle string `json:"paper_title"`
	PageStart  int    `json:"page_start,omitempty"`
	Snippet    string `json:"snippet"`
	Rank       int    `json:"rank,omitempty"`
}

type FigureHit struct {
	ID           string `json:"id"`
	PaperID      string `json:"paper_id"`
	FigureNumber int    `json:"figure_number"`
	PaperTitle   string `json:"paper_title"`
	PageNumber   int    `json:"page_number,omitempty"`
	Snippet      string `json:"snippet"`
	Rank         int    `json:"rank,omitempty"`
}

// Result is the merged outcome of one search across all requested kinds.
type Result struct {
	Query    string       `json:"query"`
	Scope    Scope        `json:"scope"`
	Papers   []PaperHit   `json:"papers"`
	Memos    []MemoHit    `json:"memos"`
	Chapters []ChapterHit `json:"chapters"`
	Figures  []FigureHit  `json:"figures"`
	Total    int          `json:"total"`
}

// FacetCounts holds per-kind match counts for a query. Ephemeral, never
// persisted.
type FacetCounts struct {
	Papers   int `json:"papers"`
	Memos    int `json:"memos"`
	Chapters int `json:"chapters"`
	Figures  int `json:"figures"`
	Total    int `json:"total"`
}

// Searcher dispatches queries to the indexed or substring matcher per
// kind, merges the results and reports each executed search to history.
type Searcher struct {
	index  Index
	store  Store
	limits Limits
	logger *log.Logger
}

func NewSearcher(ix Index, st Store, limits Limits, logger *log.Logger) *Searcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Searcher{index: ix, store: st, limits: limits.orDefaults(), logger: logger}
}

func (s *Searcher) plansFor(scope Scope) ([]kindPlan, error) {
	template, ok := scopePlans[scope]
	if !ok {
		return nil, fmt.Errorf("unknown search scope %q", scope)
	}
	limit := s.limits.Scoped
	if scope == ScopeAll {
		limit = s.limits.PerKind
	}
	plans := make([]kindPlan, len(template))
	for i, p := range template {
		p.Limit = limit
		plans[i] = p
	}
	return plans, nil
}

// Search runs query against every kind the scope selects and returns the
// merged, labelled result set. The executed search is reported once to the
// history table with its total count.
func (s *Searcher) Search(ctx context.Context, query string, scope Scope) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	plans, err := s.plansFor(scope)
	if err != nil {
		return nil, err
	}
	res := &Result{Query: query, Scope: scope}
	latin := HasLatin(query)
	for _, plan := range plans {
		if latin {
			err = s.searchIndexed(ctx, plan, query, res)
		} else {
			err = s.searchSubstring(ctx, plan, query, res)
		}
		if err != nil {
			return nil, err
		}
	}
	res.Total = len(res.Papers) + len(res.Memos) + len(res.Chapters) + len(res.Figures)
	if err := s.store.SaveSearchHistory(ctx, query, string(scope), res.Total); err != nil {
		return nil, err
	}
	return res, nil
}

// Facets returns per-kind match counts for query across all kinds, using
// the same matcher selection as a full search but without fetching rows.
func (s *Searcher) Facets(ctx context.Context, query string) (FacetCounts, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return FacetCounts{}, errors.New("empty query")
	}
	var fc FacetCounts
	latin := HasLatin(query)
	for _, plan := range scopePlans[ScopeAll] {
		var n int
		var err error
		if latin {
			n, err = s.index.Count(ctx, plan.Kind, query)
			var qe *textindex.QueryError
			if errors.As(err, &qe) {
				s.logger.Printf("facets: %v", qe)
				n, err = 0, nil
			}
		} else {
			n, err = s.store.SubstringCount(ctx, plan.Kind, plan.SubstringFields, query)
		}
		if err != nil {
			return FacetCounts{}, err
		}
		switch plan.Kind {
		case store.KindPaper:
			fc.Papers = n
		case store.KindMemo:
			fc.Memos = n
		case store.KindChapter:
			fc.Chapters = n
		case store.KindFigure:
			fc.Figures = n
		}
	}
	fc.Total = fc.Papers + fc.Memos + fc.Chapters + fc.Figures
	return fc, nil
}

func (s *Searcher) searchIndexed(ctx context.Context, plan kindPlan, query string, res *Result) error {
	hits, err := s.index.Match(ctx, plan.Kind, query, plan.Limit)
	if err != nil {
		var qe *textindex.QueryError
		if errors.As(err, &qe) {
			// Bad query syntax disables this kind only; the rest of the
			// multi-kind search proceeds.
			s.logger.Printf("%s: %v", plan.Kind, qe)
			return nil
		}
		return err
	}
	if len(hits) == 0 {
		return nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	switch plan.Kind {
	case store.KindPaper:
		papers, err := s.store.PaperProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Paper, len(papers))
		for _, p := range papers {
			byID[p.ID] = p
		}
		for _, h := range hits {
			p, ok := byID[h.ID]
			if !ok {
				continue // deleted between index hit and hydration
			}
			snippet := snippetFor(h, plan, func(f string) string {
				switch f {
				case "title":
					return p.Title
				case "authors":
					return p.Authors
				default:
					return p.Content
				}
			})
			res.Papers = append(res.Papers, PaperHit{
				ID: p.ID, Title: p.Title, Authors: p.Authors, Year: p.Year,
				Snippet: snippet, Rank: h.Rank,
			})
		}
	case store.KindMemo:
		memos, err := s.store.MemoProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Memo, len(memos))
		for _, m := range memos {
			byID[m.ID] = m
		}
		for _, h := range hits {
			m, ok := byID[h.ID]
			if !ok {
				continue
			}
			snippet := snippetFor(h, plan, func(string) string { return m.Content })
			res.Memos = append(res.Memos, MemoHit{
				ID: m.ID, PaperID: m.PaperID, PaperTitle: m.PaperTitle,
				PageNumber: m.PageNumber, Snippet: snippet, Rank: h.Rank,
			})
		}
	case store.KindChapter:
		chapters, err := s.store.ChapterProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Chapter, len(chapters))
		for _, c := range chapters {
			byID[c.ID] = c
		}
		for _, h := range hits {
			c, ok := byID[h.ID]
			if !ok {
				continue
			}
			snippet := snippetFor(h, plan, func(f string) string {
				if f == "title" {
					return c.Title
				}
				return c.Content
			})
			res.Chapters = append(res.Chapters, ChapterHit{
				ID: c.ID, PaperID: c.PaperID, Title: c.Title, PaperTitle: c.PaperTitle,
				PageStart: c.PageStart, Snippet: snippet, Rank: h.Rank,
			})
		}
	case store.KindFigure:
		figures, err := s.store.FigureProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Figure, len(figures))
		for _, f := range figures {
			byID[f.ID] = f
		}
		for _, h := range hits {
			f, ok := byID[h.ID]
			if !ok {
				continue
			}
			snippet := snippetFor(h, plan, func(string) string { return f.Caption })
			res.Figures = append(res.Figures, FigureHit{
				ID: f.ID, PaperID: f.PaperID, FigureNumber: f.FigureNumber,
				PaperTitle: f.PaperTitle, PageNumber: f.PageNumber,
				Snippet: snippet, Rank: h.Rank,
			})
		}
	}
	return nil
}

// snippetFor prefers the plan's snippet field but falls back to the first
// indexed field that actually matched, so a hit found only in the body
// still shows a highlighted excerpt.
func snippetFor(h textindex.Hit, plan kindPlan, textOf func(field string) string) string {
	if spans := h.Locations[plan.SnippetField]; len(spans) > 0 {
		return HighlightSnippet(textOf(plan.SnippetField), spans)
	}
	for _, f := range textindex.Fields(plan.Kind) {
		if spans := h.Locations[f]; len(spans) > 0 {
			return HighlightSnippet(textOf(f), spans)
		}
	}
	return HighlightSnippet(textOf(plan.SnippetField), nil)
}

func (s *Searcher) searchSubstring(ctx context.Context, plan kindPlan, query string, res *Result) error {
	matches, err := s.store.SubstringMatches(ctx, plan.Kind, plan.SubstringFields, query, plan.Limit)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}
	ids := make([]string, len(matches))
	snippets := make(map[string]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		snippets[m.ID] = WindowSnippet(m.Text, query)
	}
	// Substring hits carry no relevance rank; Rank stays zero and order is
	// the store's iteration order.
	switch plan.Kind {
	case store.KindPaper:
		papers, err := s.store.PaperProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Paper, len(papers))
		for _, p := range papers {
			byID[p.ID] = p
		}
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				res.Papers = append(res.Papers, PaperHit{
					ID: p.ID, Title: p.Title, Authors: p.Authors, Year: p.Year,
					Snippet: snippets[id],
				})
			}
		}
	case store.KindMemo:
		memos, err := s.store.MemoProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Memo, len(memos))
		for _, m := range memos {
			byID[m.ID] = m
		}
		for _, id := range ids {
			if m, ok := byID[id]; ok {
				res.Memos = append(res.Memos, MemoHit{
					ID: m.ID, PaperID: m.PaperID, PaperTitle: m.PaperTitle,
					PageNumber: m.PageNumber, Snippet: snippets[id],
				})
			}
		}
	case store.KindChapter:
		chapters, err := s.store.ChapterProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Chapter, len(chapters))
		for _, c := range chapters {
			byID[c.ID] = c
		}
		for _, id := range ids {
			if c, ok := byID[id]; ok {
				res.Chapters = append(res.Chapters, ChapterHit{
					ID: c.ID, PaperID: c.PaperID, Title: c.Title,
					PaperTitle: c.PaperTitle, PageStart: c.PageStart,
					Snippet: snippets[id],
				})
			}
		}
	case store.KindFigure:
		figures, err := s.store.FigureProjections(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]store.Figure, len(figures))
		for _, f := range figures {
			byID[f.ID] = f
		}
		for _, id := range ids {
			if f, ok := byID[id]; ok {
				res.Figures = append(res.Figures, FigureHit{
					ID: f.ID, PaperID: f.PaperID, FigureNumber: f.FigureNumber,
					PaperTitle: f.PaperTitle, PageNumber: f.PageNumber,
					Snippet: snippets[id],
				})
			}
		}
	}
	return nil
}
