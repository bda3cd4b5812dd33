package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/pkg/metrics"
)

const defaultMaxEntries = 30

// MemoryStore is an in-memory Store. Writers build a fresh snapshot under
// the write lock and publish it atomically; readers never block.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	version    uint64

	snapshot atomic.Pointer[Snapshot]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{maxEntries: defaultMaxEntries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace publishes recs as the new recommendation list. Duplicate names
// keep their first position.
func (s *MemoryStore) Replace(ctx context.Context, recs []model.Candidate) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, min(len(recs), s.maxEntries))
	rankByName := make(map[string]int, len(recs))
	for _, c := range recs {
		if len(entries) == s.maxEntries {
			break
		}
		if _, dup := rankByName[c.ID()]; dup {
			continue
		}
		rank := len(entries) + 1
		rankByName[c.ID()] = rank
		entries = append(entries, Entry{
			Rank:       rank,
			Name:       c.ID(),
			Categories: c.SortedCategories(),
		})
	}

	s.version++
	snap := &Snapshot{
		Version:     s.version,
		RefreshedAt: time.Now(),
		Entries:     entries,
		rankByName:  rankByName,
	}
	s.snapshot.Store(snap)
	metrics.UpdateRecommendations(len(entries))
	return *snap, nil
}

// Latest returns the last published snapshot.
func (s *MemoryStore) Latest(ctx context.Context) (Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return *snap, nil
}

// Rank looks a candidate up in the latest snapshot.
func (s *MemoryStore) Rank(ctx context.Context, name string) (Entry, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return Entry{}, ErrNotFound
	}
	rank, ok := snap.rankByName[name]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return snap.Entries[rank-1], nil
}

// TopN returns up to n entries of the latest snapshot.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	snap := s.snapshot.Load()
	if snap == nil {
		return []Entry{}, nil
	}
	n = min(n, len(snap.Entries))
	out := make([]Entry, n)
	copy(out, snap.Entries[:n])
	return out, nil
}

// Count returns the size of the latest snapshot.
func (s *MemoryStore) Count(ctx context.Context) int {
	snap := s.snapshot.Load()
	if snap == nil {
		return 0
	}
	return len(snap.Entries)
}
