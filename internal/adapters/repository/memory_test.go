package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/swipe/internal/domain/model"
)

func recs(names ...string) []model.Candidate {
	out := make([]model.Candidate, len(names))
	for i, n := range names {
		out[i] = model.Candidate{Name: n, Categories: []model.Category{
			{Category: "Food", Value: 4},
			{Category: "Nightlife", Value: 9},
		}}
	}
	return out
}

func TestMemoryStore_Empty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Latest(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	entries, err := store.TopN(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
	if _, err := store.Rank(ctx, "Lisbon"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Replace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap, err := store.Replace(ctx, recs("Lisbon", "Rome", "Lisbon", "Oslo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("expected version 1, got %d", snap.Version)
	}
	if len(snap.Entries) != 3 {
		t.Fatalf("expected duplicates collapsed to 3 entries, got %d", len(snap.Entries))
	}
	if snap.Entries[0].Categories[0].Category != "Nightlife" {
		t.Errorf("expected categories sorted by value, got %v", snap.Entries[0].Categories)
	}

	entry, err := store.Rank(ctx, "Oslo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 3 {
		t.Errorf("expected Oslo at rank 3, got %d", entry.Rank)
	}

	top, err := store.TopN(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 || top[0].Name != "Lisbon" || top[1].Name != "Rome" {
		t.Errorf("unexpected top entries: %+v", top)
	}

	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestMemoryStore_StaleUntilRefreshed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMaxEntries(2))

	if _, err := store.Replace(ctx, recs("A", "B", "C")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count := store.Count(ctx); count != 2 {
		t.Errorf("expected cap of 2 entries, got %d", count)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Replace(cancelled, recs("Z")); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	snap, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version != 1 || snap.Entries[0].Name != "A" {
		t.Errorf("failed refresh must keep the previous snapshot, got %+v", snap)
	}

	if _, err := store.Replace(ctx, recs("Z")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Rank(ctx, "A"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected A gone after refresh, got %v", err)
	}
}
