// Package dedupe remembers which candidates a session has already taken in,
// so a refill batch never re-introduces one.
package dedupe

import (
	"sync"

	"github.com/okian/swipe/internal/domain/model"
)

const defaultMaxSize = 10000

// Set records seen candidate ids. The session filters on the event loop
// while the service reports Size from the stats handler, off the loop.
type Set struct {
	mu      sync.RWMutex
	seen    map[string]struct{}
	order   []string // insertion order, used as a ring when bounded
	next    int
	maxSize int
}

// New creates an empty Set.
func New(opts ...Option) *Set {
	s := &Set{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(s)
	}
	s.seen = make(map[string]struct{})
	return s
}

// Filter returns the candidates of batch not seen before, in order, and
// records them. Duplicates inside the batch are dropped too.
func (s *Set) Filter(batch []model.Candidate) (fresh []model.Candidate, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh = make([]model.Candidate, 0, len(batch))
	for _, c := range batch {
		if _, ok := s.seen[c.ID()]; ok {
			dropped++
			continue
		}
		s.record(c.ID())
		fresh = append(fresh, c)
	}
	return fresh, dropped
}

// Reset forgets every id.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
	s.order = nil
	s.next = 0
}

// Size returns the number of remembered ids.
func (s *Set) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// record must be called with s.mu held.
func (s *Set) record(id string) {
	if s.maxSize <= 0 {
		s.seen[id] = struct{}{}
		return
	}
	if len(s.order) < s.maxSize {
		s.order = append(s.order, id)
	} else {
		delete(s.seen, s.order[s.next])
		s.order[s.next] = id
		s.next = (s.next + 1) % s.maxSize
	}
	s.seen[id] = struct{}{}
}
