package backend

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/swipe/internal/domain/model"
)

const (
	learningRate      = 0.1
	defaultImportance = 5.0
	minImportance     = 1.0
	maxImportance     = 10.0
)

// MemoryOption applies a configuration option to the Memory backend.
type MemoryOption func(*Memory)

// WithLatency delays every call by d to mimic a remote backend.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d >= 0 {
			m.latency = d
		}
	}
}

// WithSeed makes the candidate order deterministic.
func WithSeed(seed int64) MemoryOption {
	return func(m *Memory) {
		m.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // ordering, not security
	}
}

// Memory is an in-process backend over a fixed catalog. It learns category
// importance from votes and ranks recommendations by cosine similarity.
type Memory struct {
	mu         sync.Mutex
	catalog    []model.Candidate
	byName     map[string]model.Candidate
	categories []string
	votes      map[string]int
	importance map[string]float64
	latency    time.Duration
	rng        *rand.Rand
	voteKeys   map[string]struct{}
}

// NewMemory creates a backend over catalog.
func NewMemory(catalog []model.Candidate, opts ...MemoryOption) *Memory {
	m := &Memory{
		byName:     make(map[string]model.Candidate, len(catalog)),
		votes:      make(map[string]int),
		importance: make(map[string]float64),
		voteKeys:   make(map[string]struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // ordering, not security
	}
	seen := map[string]bool{}
	for _, c := range catalog {
		if c.Name == "" {
			continue
		}
		if _, dup := m.byName[c.Name]; dup {
			continue
		}
		m.catalog = append(m.catalog, c)
		m.byName[c.Name] = c
		for _, cat := range c.Categories {
			if !seen[cat.Category] {
				seen[cat.Category] = true
				m.categories = append(m.categories, cat.Category)
			}
		}
	}
	sort.Strings(m.categories)
	for _, opt := range opts {
		opt(m)
	}
	// Shuffled once; every batch walks the same order.
	m.rng.Shuffle(len(m.catalog), func(i, j int) { m.catalog[i], m.catalog[j] = m.catalog[j], m.catalog[i] })
	return m
}

func (m *Memory) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	}
}

// FetchCandidates returns the next candidates not voted on yet.
func (m *Memory) FetchCandidates(ctx context.Context, limit int) ([]model.Candidate, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := clamp(limit, 1, MaxEvaluationLimit)
	out := make([]model.Candidate, 0, n)
	for _, c := range m.catalog {
		if len(out) == n {
			break
		}
		if _, voted := m.votes[c.Name]; !voted {
			out = append(out, c)
		}
	}
	return out, nil
}

// SubmitVote records a vote and nudges category importance toward (like)
// or away from (dislike) the candidate's ratings. A repeated idempotency
// key is acknowledged without being applied again.
func (m *Memory) SubmitVote(ctx context.Context, d model.Decision) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byName[d.CandidateID]
	if !ok {
		return fmt.Errorf("%w: status 404: city not found", ErrValidation)
	}
	if !d.Outcome.IsCommit() {
		return fmt.Errorf("%w: outcome %s", ErrValidation, d.Outcome)
	}
	if d.ID != "" {
		if _, dup := m.voteKeys[d.ID]; dup {
			return nil
		}
		m.voteKeys[d.ID] = struct{}{}
	}

	value := d.Outcome.VoteValue()
	m.votes[c.Name] = value
	for _, cat := range c.Categories {
		cur, ok := m.importance[cat.Category]
		if !ok {
			cur = defaultImportance
		}
		diff := cat.Value - cur
		if value == 1 {
			cur += learningRate * diff
		} else {
			cur -= learningRate * diff
		}
		m.importance[cat.Category] = math.Max(minImportance, math.Min(maxImportance, cur))
	}
	return nil
}

// FetchRecommendations ranks the candidates not voted on by similarity to
// the learned importance. Each candidate's categories are ordered by how
// much they matter to the voter.
func (m *Memory) FetchRecommendations(ctx context.Context, limit int) ([]model.Candidate, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.vector(func(cat string) (float64, bool) {
		v, ok := m.importance[cat]
		return v, ok
	})

	type scored struct {
		c     model.Candidate
		score float64
	}
	ranked := make([]scored, 0, len(m.catalog))
	for _, c := range m.catalog {
		if _, voted := m.votes[c.Name]; voted {
			continue
		}
		values := make(map[string]float64, len(c.Categories))
		for _, cat := range c.Categories {
			values[cat.Category] = cat.Value
		}
		city := m.vector(func(cat string) (float64, bool) {
			v, ok := values[cat]
			return v, ok
		})
		ranked = append(ranked, scored{c: c, score: cosine(user, city)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := min(clamp(limit, 1, MaxRecommendationLimit), len(ranked))
	out := make([]model.Candidate, n)
	for i := 0; i < n; i++ {
		c := ranked[i].c
		cats := make([]model.Category, len(c.Categories))
		copy(cats, c.Categories)
		sort.SliceStable(cats, func(a, b int) bool {
			return m.importance[cats[a].Category] > m.importance[cats[b].Category]
		})
		out[i] = model.Candidate{Name: c.Name, Categories: cats}
	}
	return out, nil
}

// Importance returns a copy of the learned category importance.
func (m *Memory) Importance() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.importance))
	for k, v := range m.importance {
		out[k] = v
	}
	return out
}

// Votes returns how many distinct candidates were voted on.
func (m *Memory) Votes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.votes)
}

func (m *Memory) vector(lookup func(string) (float64, bool)) []float64 {
	v := make([]float64, len(m.categories))
	for i, cat := range m.categories {
		if x, ok := lookup(cat); ok {
			v[i] = x
		} else {
			v[i] = defaultImportance
		}
	}
	return v
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
