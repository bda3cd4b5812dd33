// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// Category is one rated feature of a candidate, e.g. "Nightlife" 8/10.
type Category struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Descr    string  `json:"descr"`
}

// Candidate is one item offered for like/dislike evaluation.
// Name is the stable identity; candidates are never mutated after fetch.
type Candidate struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// ID returns the candidate's stable identity.
func (c Candidate) ID() string { return c.Name }

// SortedCategories returns a copy of the categories ordered by value desc.
// Ties keep their original order.
func (c Candidate) SortedCategories() []Category {
	out := make([]Category, len(c.Categories))
	copy(out, c.Categories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// TopCategories returns at most n of the highest rated categories.
func (c Candidate) TopCategories(n int) []Category {
	sorted := c.SortedCategories()
	if n < 0 {
		n = 0
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Outcome is the user's verdict on a candidate.
type Outcome int

const (
	// Cancel means no decision: the card snaps back and nothing is submitted.
	Cancel Outcome = iota
	Accept
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "cancel"
	}
}

// VoteValue maps an outcome to the backend wire value (1 like, 0 dislike).
func (o Outcome) VoteValue() int {
	if o == Accept {
		return 1
	}
	return 0
}

// IsCommit reports whether the outcome finalizes a decision.
func (o Outcome) IsCommit() bool { return o == Accept || o == Reject }

// Decision is a finalized verdict sent once per candidate.
type Decision struct {
	ID          string // idempotency key
	CandidateID string
	Outcome     Outcome
	SubmittedAt time.Time
}
