package textindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/mapping"

	"github.com/paperdesk/paperdesk/internal/store"
)

// kindFields lists the indexed text fields per document kind. The order is
// the snippet fallback order when the preferred field has no match.
var kindFields = map[store.Kind][]string{
	store.KindPaper:   {"title", "authors", "content"},
	store.KindMemo:    {"content"},
	store.KindChapter: {"title", "content"},
	store.KindFigure:  {"caption"},
}

// Fields returns the indexed field names for a kind, in fallback order.
func Fields(kind store.Kind) []string { return kindFields[kind] }

// QueryError wraps a query string the index could not parse. Callers treat
// it as zero results for the affected kind rather than failing the search.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid index query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Span is a half-open byte range of one matched term within a field.
type Span struct {
	Start int
	End   int
}

// Hit is one indexed match. Rank is 1-based in the index's native
// relevance order; ties keep index order, which is not deterministic
// across rebuilds.
type Hit struct {
	ID        string
	Score     float64
	Rank      int
	Locations map[string][]Span
}

// Index maintains one bleve index per document kind.
type Index struct {
	indexes map[store.Kind]bleve.Index
}

func mappingFor(kind store.Kind) mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	for _, f := range kindFields[kind] {
		fm := bleve.NewTextFieldMapping()
		fm.Store = false
		fm.IncludeTermVectors = true
		doc.AddFieldMappingsAt(f, fm)
	}
	m.DefaultMapping = doc
	return m
}

// Open loads the per-kind indexes under dir, creating any that do not
// exist yet.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	ix := &Index{indexes: make(map[store.Kind]bleve.Index, len(kindFields))}
	for _, kind := range store.Kinds() {
		path := filepath.Join(dir, string(kind)+".bleve")
		idx, err := bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mappingFor(kind))
		}
		if err != nil {
			ix.Close()
			return nil, fmt.Errorf("open %s index: %w", kind, err)
		}
		ix.indexes[kind] = idx
	}
	return ix, nil
}

// OpenMem builds in-memory indexes, used by tests and throwaway tooling.
func OpenMem() (*Index, error) {
	ix := &Index{indexes: make(map[store.Kind]bleve.Index, len(kindFields))}
	for _, kind := range store.Kinds() {
		idx, err := bleve.NewMemOnly(mappingFor(kind))
		if err != nil {
			ix.Close()
			return nil, fmt.Errorf("open %s index: %w", kind, err)
		}
		ix.indexes[kind] = idx
	}
	return ix, nil
}

func (ix *Index) Close() {
	for _, idx := range ix.indexes {
		_ = idx.Close()
	}
}

func (ix *Index) kind(kind store.Kind) (bleve.Index, error) {
	idx, ok := ix.indexes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	return idx, nil
}

// Match runs query against the kind's index and returns up to limit hits
// in native rank order with per-field term locations.
func (ix *Index) Match(ctx context.Context, kind store.Kind, query string, limit int) ([]Hit, error) {
	idx, err := ix.kind(kind)
	if err != nil {
		return nil, err
	}
	q := bleve.NewQueryStringQuery(query)
	if _, err := q.Parse(); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.IncludeLocations = true
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s index: %w", kind, err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for i, dm := range res.Hits {
		h := Hit{ID: dm.ID, Score: dm.Score, Rank: i + 1}
		if len(dm.Locations) > 0 {
			h.Locations = make(map[string][]Span, len(dm.Locations))
			for field, terms := range dm.Locations {
				var spans []Span
				for _, locs := range terms {
					for _, loc := range locs {
						spans = append(spans, Span{Start: int(loc.Start), End: int(loc.End)})
					}
				}
				sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
				h.Locations[field] = spans
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Count returns the number of documents of the kind matching query,
// without fetching any of them.
func (ix *Index) Count(ctx context.Context, kind store.Kind, query string) (int, error) {
	idx, err := ix.kind(kind)
	if err != nil {
		return 0, err
	}
	q := bleve.NewQueryStringQuery(query)
	if _, err := q.Parse(); err != nil {
		return 0, &QueryError{Query: query, Err: err}
	}
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count %s index: %w", kind, err)
	}
	return int(res.Total), nil
}

func (ix *Index) index(kind store.Kind, id string, fields map[string]string) error {
	idx, err := ix.kind(kind)
	if err != nil {
		return err
	}
	if err := idx.Index(id, fields); err != nil {
		return fmt.Errorf("index %s %s: %w", kind, id, err)
	}
	return nil
}

// Delete removes a document of the kind from the index. Deleting an id
// that was never indexed is a no-op.
func (ix *Index) Delete(kind store.Kind, id string) error {
	idx, err := ix.kind(kind)
	if err != nil {
		return err
	}
	if err := idx.Delete(id); err != nil {
		return fmt.Errorf("unindex %s %s: %w", kind, id, err)
	}
	return nil
}

func (ix *Index) IndexPaper(p store.Paper) error {
	return ix.index(store.KindPaper, p.ID, map[string]string{
		"title":   p.Title,
		"authors": p.Authors,
		"content": p.Content,
	})
}

func (ix *Index) IndexMemo(m store.Memo) error {
	return ix.index(store.KindMemo, m.ID, map[string]string{"content": m.Content})
}

func (ix *Index) IndexChapter(c store.Chapter) error {
	return ix.index(store.KindChapter, c.ID, map[string]string{
		"title":   c.Title,
		"content": c.Content,
	})
}

func (ix *Index) IndexFigure(f store.Figure) error {
	return ix.index(store.KindFigure, f.ID, map[string]string{"caption": f.Caption})
}
