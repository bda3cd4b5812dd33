// Package repository keeps the recommendation list returned by the last
// successful refresh. The list stays stale until the next refresh succeeds.
package repository

import (
	"context"
	"time"

	"github.com/okian/swipe/internal/domain/model"
)

// Entry is one ranked recommendation.
type Entry struct {
	Rank       int              `json:"rank"`
	Name       string           `json:"name"`
	Categories []model.Category `json:"categories"`
}

// Snapshot is an immutable view of one refresh.
type Snapshot struct {
	Version     uint64    `json:"version"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Entries     []Entry   `json:"entries"`

	rankByName map[string]int
}

// Store provides read/write access to the recommendation list.
type Store interface {
	// Replace publishes a new list in backend order and returns its snapshot.
	Replace(ctx context.Context, recs []model.Candidate) (Snapshot, error)

	// Latest returns the last published snapshot.
	// Returns ErrNoSnapshot before the first successful refresh.
	Latest(ctx context.Context) (Snapshot, error)

	// Rank returns the entry for a candidate name.
	// Returns ErrNotFound if the candidate is not recommended.
	Rank(ctx context.Context, name string) (Entry, error)

	// TopN returns up to n entries in rank order.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of entries in the latest snapshot.
	Count(ctx context.Context) int
}
