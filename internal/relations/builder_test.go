package relations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/paperdesk/paperdesk/internal/store"
)

type edge struct {
	memoID      string
	relatedID   string
	commonTerms string
	score       int
}

type fakeStore struct {
	memos     []store.MemoText
	edges     []edge
	cleared   []string
	upsertErr error
}

func (f *fakeStore) GetMemo(_ context.Context, id string) (store.Memo, bool, error) {
	for _, m := range f.memos {
		if m.ID == id {
			return store.Memo{ID: m.ID, Content: m.Content}, true, nil
		}
	}
	return store.Memo{}, false, nil
}

func (f *fakeStore) MemoTexts(context.Context) ([]store.MemoText, error) {
	return f.memos, nil
}

func (f *fakeStore) DeleteOutgoingRelations(_ context.Context, memoID string) error {
	f.cleared = append(f.cleared, memoID)
	var kept []edge
	for _, e := range f.edges {
		if e.memoID != memoID {
			kept = append(kept, e)
		}
	}
	f.edges = kept
	return nil
}

func (f *fakeStore) UpsertRelation(_ context.Context, memoID, relatedMemoID, commonTerms string, score int) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.edges = append(f.edges, edge{memoID: memoID, relatedID: relatedMemoID, commonTerms: commonTerms, score: score})
	return nil
}

func TestRebuild_ScoresByTokenOverlap(t *testing.T) {
	st := &fakeStore{memos: []store.MemoText{
		{ID: "m1", Content: "transformer attention scaling"},
		{ID: "m2", Content: "attention scaling laws"},
		{ID: "m3", Content: "protein folding"},
	}}
	b := NewBuilder(st, 0, nil)

	n, err := b.Rebuild(context.Background(), "m1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 edge, got %d", n)
	}
	e := st.edges[0]
	if e.memoID != "m1" || e.relatedID != "m2" {
		t.Fatalf("unexpected edge %+v", e)
	}
	if e.score != 2 {
		t.Fatalf("expected score 2, got %d", e.score)
	}
	if e.commonTerms != "attention, scaling" {
		t.Fatalf("expected sorted joined terms, got %q", e.commonTerms)
	}
}

func TestRebuild_IdenticalMemosScoreFullOverlap(t *testing.T) {
	content := "variational autoencoder posterior collapse"
	st := &fakeStore{memos: []store.MemoText{
		{ID: "m1", Content: content},
		{ID: "m2", Content: content},
	}}
	b := NewBuilder(st, 0, nil)

	if _, err := b.Rebuild(context.Background(), "m1"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if len(st.edges) != 1 || st.edges[0].score != 4 {
		t.Fatalf("expected one edge with score 4, got %+v", st.edges)
	}
}

func TestRebuild_CapsAtTopN(t *testing.T) {
	memos := []store.MemoText{{ID: "target", Content: "shared keyword cluster"}}
	for i := 0; i < 30; i++ {
		memos = append(memos, store.MemoText{
			ID:      fmt.Sprintf("m%02d", i),
			Content: "shared keyword cluster",
		})
	}
	st := &fakeStore{memos: memos}
	b := NewBuilder(st, 0, nil)

	n, err := b.Rebuild(context.Background(), "target")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != DefaultTopN {
		t.Fatalf("expected cap at %d edges, got %d", DefaultTopN, n)
	}
}

func TestRebuild_EqualScoresOrderedByID(t *testing.T) {
	st := &fakeStore{memos: []store.MemoText{
		{ID: "target", Content: "alpha beta gamma"},
		{ID: "zz", Content: "alpha beta gamma"},
		{ID: "aa", Content: "alpha beta gamma"},
	}}
	b := NewBuilder(st, 1, nil)

	if _, err := b.Rebuild(context.Background(), "target"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if len(st.edges) != 1 || st.edges[0].relatedID != "aa" {
		t.Fatalf("expected deterministic tie-break on id, got %+v", st.edges)
	}
}

func TestRebuild_MissingMemoIsNoop(t *testing.T) {
	st := &fakeStore{}
	b := NewBuilder(st, 0, nil)

	n, err := b.Rebuild(context.Background(), "gone")
	if err != nil {
		t.Fatalf("missing memo must not error: %v", err)
	}
	if n != 0 || len(st.cleared) != 0 {
		t.Fatalf("expected pure no-op, got n=%d cleared=%v", n, st.cleared)
	}
}

func TestRebuild_TokenlessMemoKeepsExistingEdges(t *testing.T) {
	st := &fakeStore{
		memos: []store.MemoText{{ID: "m1", Content: "の は を"}},
		edges: []edge{{memoID: "m1", relatedID: "m2", score: 3}},
	}
	b := NewBuilder(st, 0, nil)

	n, err := b.Rebuild(context.Background(), "m1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no new edges, got %d", n)
	}
	if len(st.cleared) != 0 {
		t.Fatalf("tokenless memo must terminate before clearing, cleared=%v", st.cleared)
	}
	if len(st.edges) != 1 || st.edges[0].relatedID != "m2" {
		t.Fatalf("existing edges must survive, got %+v", st.edges)
	}
}

func TestRebuild_ReplacesExistingEdges(t *testing.T) {
	st := &fakeStore{
		memos: []store.MemoText{
			{ID: "m1", Content: "diffusion models"},
			{ID: "m2", Content: "diffusion sampling"},
		},
		edges: []edge{{memoID: "m1", relatedID: "stale", score: 9}},
	}
	b := NewBuilder(st, 0, nil)

	if _, err := b.Rebuild(context.Background(), "m1"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	for _, e := range st.edges {
		if e.relatedID == "stale" {
			t.Fatalf("stale edge survived: %+v", st.edges)
		}
	}
}

func TestRebuild_UpsertFailureSurfaces(t *testing.T) {
	st := &fakeStore{
		memos: []store.MemoText{
			{ID: "m1", Content: "graph neural networks"},
			{ID: "m2", Content: "graph embeddings"},
		},
		upsertErr: errors.New("connection reset"),
	}
	b := NewBuilder(st, 0, nil)
	if _, err := b.Rebuild(context.Background(), "m1"); err == nil {
		t.Fatal("expected upsert failure to surface")
	}
}

func TestRebuildAll_SweepsEveryMemo(t *testing.T) {
	st := &fakeStore{memos: []store.MemoText{
		{ID: "m1", Content: "topic modeling"},
		{ID: "m2", Content: "topic drift"},
		{ID: "m3", Content: "topic coherence"},
	}}
	b := NewBuilder(st, 0, nil)

	n, err := b.RebuildAll(context.Background())
	if err != nil {
		t.Fatalf("rebuild all: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 memos swept, got %d", n)
	}
	if len(st.cleared) != 3 {
		t.Fatalf("every memo's edges must be recomputed, cleared=%v", st.cleared)
	}
}
