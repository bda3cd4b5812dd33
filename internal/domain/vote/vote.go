// Package vote submits committed decisions to the backend without holding
// up the session, and keeps the recommendation list fresh after each vote.
//
// Like the session, a Coordinator lives on the event loop: its methods and
// every completion it posts run there.
package vote

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/pkg/logger"
	"github.com/okian/swipe/pkg/metrics"
)

const (
	defaultRecommendationLimit = 10
	defaultTimeout             = 10 * time.Second
	maxDeliveryBackoff         = 50 * time.Millisecond
)

// Submitter sends one vote to the backend.
type Submitter interface {
	SubmitVote(ctx context.Context, d model.Decision) error
}

// Recommender fetches the current recommendation list. Best effort.
type Recommender interface {
	FetchRecommendations(ctx context.Context, limit int) ([]model.Candidate, error)
}

// Scheduler moves work on and off the event loop.
type Scheduler interface {
	Go(fn func())
	Post(fn func()) bool
}

// Banner is a non-blocking notice about a failed vote.
type Banner struct {
	Message   string    `json:"message"`
	Candidate string    `json:"candidate"`
	Retryable bool      `json:"retryable"`
	At        time.Time `json:"at"`
}

// Stats summarizes vote traffic since the last reset.
type Stats struct {
	Submitted     int `json:"submitted"`
	Acknowledged  int `json:"acknowledged"`
	Failed        int `json:"failed"`
	InFlight      int `json:"in_flight"`
	AwaitingRetry int `json:"awaiting_retry"`
	Refreshes     int `json:"refreshes"`
}

// Coordinator fires votes and recommendation refreshes.
type Coordinator struct {
	ctx         context.Context
	submitter   Submitter
	recommender Recommender
	sched       Scheduler
	logger      logger.Logger
	sink        func(ctx context.Context, recs []model.Candidate) error
	retryable   func(error) bool
	recLimit    int
	timeout     time.Duration

	gen        uint64
	banner     *Banner
	failed     []model.Decision // kept for one explicit retry
	refreshing bool
	refreshDue bool
	stats      Stats
}

// New creates a coordinator.
func New(ctx context.Context, submitter Submitter, recommender Recommender, sched Scheduler, opts ...Option) *Coordinator {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Coordinator{
		ctx:         ctx,
		submitter:   submitter,
		recommender: recommender,
		sched:       sched,
		recLimit:    defaultRecommendationLimit,
		timeout:     defaultTimeout,
		retryable:   func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("vote")
	}
	return c
}

// Submit fires the vote for d and returns immediately.
func (c *Coordinator) Submit(d model.Decision) {
	if !d.Outcome.IsCommit() {
		return
	}
	metrics.RecordDecision(d.Outcome.String())
	c.send(d, false)
}

func (c *Coordinator) send(d model.Decision, retry bool) {
	gen := c.gen
	c.stats.Submitted++
	c.stats.InFlight++
	metrics.RecordVoteSubmitted()
	started := time.Now()

	c.sched.Go(func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		err := c.submitter.SubmitVote(ctx, d)
		cancel()
		if !deliver(c.ctx, c.sched, func() { c.onVote(gen, d, retry, err, started) }) {
			c.logger.Warn(c.ctx, "dropping vote completion",
				logger.String("decision", d.ID),
				logger.Error(err),
			)
		}
	})
}

func (c *Coordinator) onVote(gen uint64, d model.Decision, retry bool, err error, started time.Time) {
	metrics.RecordVoteLatency(float64(time.Since(started).Milliseconds()))
	if gen != c.gen {
		metrics.RecordStaleCompletion()
		return
	}
	c.stats.InFlight--

	if err == nil {
		c.stats.Acknowledged++
		c.logger.Debug(c.ctx, "vote acknowledged",
			logger.String("decision", d.ID),
			logger.String("candidate", d.CandidateID),
			logger.String("outcome", d.Outcome.String()),
		)
		if c.banner != nil && c.banner.Candidate == d.CandidateID {
			c.banner = nil
		}
		c.Refresh()
		return
	}

	c.stats.Failed++
	canRetry := c.retryable(err) && !retry
	if retry && c.retryable(err) {
		err = fmt.Errorf("%w: %w", ErrRetryExhausted, err)
	}

	fields := []logger.Field{
		logger.String("decision", d.ID),
		logger.String("candidate", d.CandidateID),
		logger.String("outcome", d.Outcome.String()),
		logger.Bool("retry", retry),
		logger.Error(err),
	}
	if c.retryable(err) {
		metrics.RecordVoteFailed("network")
		c.logger.Warn(c.ctx, "vote submission failed", fields...)
	} else {
		metrics.RecordVoteFailed("validation")
		c.logger.Error(c.ctx, "vote rejected", fields...)
	}

	if canRetry {
		c.failed = append(c.failed, d)
	}
	c.banner = &Banner{
		Message:   fmt.Sprintf("Your vote on %s was not saved", d.CandidateID),
		Candidate: d.CandidateID,
		Retryable: canRetry,
		At:        time.Now(),
	}
}

// RetryFailed resubmits every vote that failed with a retryable error.
// A resubmitted vote that fails again is not kept, so each vote is retried
// at most once. Returns how many were resubmitted.
func (c *Coordinator) RetryFailed() int {
	pending := c.failed
	c.failed = nil
	n := 0
	for _, d := range pending {
		c.send(d, true)
		n++
	}
	if n > 0 {
		c.banner = nil
		c.logger.Info(c.ctx, "retrying failed votes", logger.Int("count", n))
	}
	return n
}

// Refresh asks for a new recommendation list. A refresh requested while
// one is running is folded into a single follow-up.
func (c *Coordinator) Refresh() {
	if c.recommender == nil {
		return
	}
	if c.refreshing {
		c.refreshDue = true
		return
	}
	c.refreshing = true
	gen := c.gen
	limit := c.recLimit

	c.sched.Go(func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		recs, err := c.recommender.FetchRecommendations(ctx, limit)
		cancel()
		if !deliver(c.ctx, c.sched, func() { c.onRecommendations(gen, recs, err) }) {
			c.logger.Warn(c.ctx, "dropping recommendation refresh", logger.Error(err))
		}
	})
}

func (c *Coordinator) onRecommendations(gen uint64, recs []model.Candidate, err error) {
	if gen != c.gen {
		metrics.RecordStaleCompletion()
		return
	}
	c.refreshing = false
	if err != nil {
		metrics.RecordRefreshFailure()
		c.logger.Warn(c.ctx, "recommendation refresh failed", logger.Error(err))
	} else if c.sink != nil {
		if serr := c.sink(c.ctx, recs); serr != nil {
			metrics.RecordRefreshFailure()
			c.logger.Warn(c.ctx, "storing recommendations failed", logger.Error(serr))
		} else {
			c.stats.Refreshes++
		}
	}
	if c.refreshDue {
		c.refreshDue = false
		c.Refresh()
	}
}

// Banner returns the current failure notice, if any.
func (c *Coordinator) Banner() (Banner, bool) {
	if c.banner == nil {
		return Banner{}, false
	}
	return *c.banner, true
}

// DismissBanner clears the failure notice.
func (c *Coordinator) DismissBanner() { c.banner = nil }

// AwaitingRetry returns the decisions kept for an explicit retry.
func (c *Coordinator) AwaitingRetry() []model.Decision {
	out := make([]model.Decision, len(c.failed))
	copy(out, c.failed)
	return out
}

// Stats returns counters since the last reset.
func (c *Coordinator) Stats() Stats {
	s := c.stats
	s.AwaitingRetry = len(c.failed)
	return s
}

// Reset forgets banners and failed votes. Votes already sent still reach
// the backend; their completions are ignored.
func (c *Coordinator) Reset() {
	c.gen++
	c.banner = nil
	c.failed = nil
	c.refreshing = false
	c.refreshDue = false
	c.stats = Stats{}
}

// deliver posts fn to the loop, backing off while the loop refuses it. It
// gives up only once ctx is done.
func deliver(ctx context.Context, sched Scheduler, fn func()) bool {
	backoff := time.Millisecond
	for !sched.Post(fn) {
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		backoff = min(2*backoff, maxDeliveryBackoff)
	}
	return true
}
