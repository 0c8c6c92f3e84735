package relations

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/paperdesk/paperdesk/internal/search"
	"github.com/paperdesk/paperdesk/internal/store"
)

// DefaultTopN caps how many outgoing edges one memo keeps.
const DefaultTopN = 20

// Store is the slice of the document store the builder needs.
type Store interface {
	GetMemo(ctx context.Context, id string) (store.Memo, bool, error)
	MemoTexts(ctx context.Context) ([]store.MemoText, error)
	DeleteOutgoingRelations(ctx context.Context, memoID string) error
	UpsertRelation(ctx context.Context, memoID, relatedMemoID, commonTerms string, score int) error
}

// Builder recomputes the memo similarity graph. Each rebuild replaces one
// memo's outgoing edges with the top-N token-overlap candidates. Rebuilds
// for the same memo id are serialized; rebuilds for different memos may
// run concurrently.
type Builder struct {
	store  Store
	topN   int
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBuilder(st Store, topN int, logger *log.Logger) *Builder {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RELATE] ", log.LstdFlags)
	}
	return &Builder{store: st, topN: topN, logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (b *Builder) lockFor(memoID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[memoID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[memoID] = l
	}
	return l
}

type candidate struct {
	id    string
	terms []string
	score int
}

// Rebuild recomputes the outgoing edges for one memo and returns how many
// were written. A missing memo is a no-op: it may have been deleted while
// the rebuild was queued. A memo whose content yields no tokens is also a
// no-op; its existing edges are left in place.
func (b *Builder) Rebuild(ctx context.Context, memoID string) (int, error) {
	l := b.lockFor(memoID)
	l.Lock()
	defer l.Unlock()

	target, ok, err := b.store.GetMemo(ctx, memoID)
	if err != nil {
		return 0, fmt.Errorf("load memo %s: %w", memoID, err)
	}
	if !ok {
		b.logger.Printf("memo %s not found, skipping relation rebuild", memoID)
		return 0, nil
	}

	targetTokens := search.Tokenize(target.Content)
	if len(targetTokens) == 0 {
		b.logger.Printf("memo %s has no tokens, skipping relation rebuild", memoID)
		return 0, nil
	}

	if err := b.store.DeleteOutgoingRelations(ctx, memoID); err != nil {
		return 0, err
	}

	memos, err := b.store.MemoTexts(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan memos: %w", err)
	}

	var candidates []candidate
	for _, other := range memos {
		if other.ID == memoID {
			continue
		}
		tokens := search.Tokenize(other.Content)
		if len(tokens) == 0 {
			continue
		}
		common := targetTokens.Intersect(tokens)
		if len(common) == 0 {
			continue
		}
		candidates = append(candidates, candidate{id: other.ID, terms: common, score: len(common)})
	}

	// Highest overlap first; equal scores ordered by id so repeated
	// rebuilds over unchanged data write the same edge set.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > b.topN {
		candidates = candidates[:b.topN]
	}

	for i, c := range candidates {
		if err := b.store.UpsertRelation(ctx, memoID, c.id, strings.Join(c.terms, ", "), c.score); err != nil {
			return i, err
		}
	}
	b.logger.Printf("built %d relations for memo %s", len(candidates), memoID)
	return len(candidates), nil
}

// RebuildAll sweeps every memo sequentially, logging progress every ten.
// The first failure aborts the sweep: memos already processed keep their
// fresh edges, the rest are untouched.
func (b *Builder) RebuildAll(ctx context.Context) (int, error) {
	memos, err := b.store.MemoTexts(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan memos: %w", err)
	}
	b.logger.Printf("rebuilding relations for %d memos", len(memos))
	for i, m := range memos {
		if _, err := b.Rebuild(ctx, m.ID); err != nil {
			return i, fmt.Errorf("rebuild memo %s: %w", m.ID, err)
		}
		if (i+1)%10 == 0 {
			b.logger.Printf("progress: %d/%d", i+1, len(memos))
		}
	}
	b.logger.Printf("all memo relations rebuilt")
	return len(memos), nil
}
