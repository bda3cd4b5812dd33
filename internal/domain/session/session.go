// Package session implements the evaluation session: the state machine that
// owns the current candidate, the queue behind it and the refill policy.
//
// A Session lives on the event loop. Every method must be called from the
// loop; network calls run off-loop through the Scheduler and their
// completions are posted back, tagged with the generation that issued them.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/swipe/internal/domain/dedupe"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/pkg/logger"
	"github.com/okian/swipe/pkg/metrics"
)

const (
	defaultBatchSize   = 5
	defaultWatermark   = 2
	defaultWatchdog    = 10 * time.Second
	maxAutoRetries     = 1
	maxDeliveryBackoff = 50 * time.Millisecond
	// Consecutive fetches that bring nothing new before the stream is
	// considered exhausted even though the backend keeps answering.
	maxDryFetches = 2
)

// Fetcher retrieves the next batch of candidates. An empty batch signals
// exhaustion and is not an error.
type Fetcher interface {
	FetchCandidates(ctx context.Context, limit int) ([]model.Candidate, error)
}

// Scheduler moves work on and off the event loop.
type Scheduler interface {
	// Go runs fn off the loop.
	Go(fn func())
	// Post queues fn to run on the loop; false if the loop refused it.
	Post(fn func()) bool
}

// Session is the evaluation state machine.
type Session struct {
	ctx     context.Context
	fetcher Fetcher
	sched   Scheduler
	seen    *dedupe.Set
	logger  logger.Logger

	batchSize   int
	watermark   int
	watchdog    time.Duration
	autoRetries int

	gen     uint64
	state   model.SessionState
	current *model.Candidate
	pending []model.Candidate
	outcome model.Outcome // outcome being committed while Submitting
	decided int

	fetchInFlight bool
	exhausted     bool // backend returned an empty batch
	dryFetches    int
	failures      int // consecutive failed fetches
	refillErr     error
	err           error
}

// New creates an idle session.
func New(ctx context.Context, fetcher Fetcher, sched Scheduler, opts ...Option) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Session{
		ctx:         ctx,
		fetcher:     fetcher,
		sched:       sched,
		batchSize:   defaultBatchSize,
		watermark:   defaultWatermark,
		watchdog:    defaultWatchdog,
		autoRetries: maxAutoRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seen == nil {
		s.seen = dedupe.New(dedupe.WithMaxSize(0))
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	return s
}

// State returns the current state.
func (s *Session) State() model.SessionState { return s.state }

// Current returns the candidate being presented, if any.
func (s *Session) Current() (model.Candidate, bool) {
	if s.current == nil {
		return model.Candidate{}, false
	}
	return *s.current, true
}

// Pending returns how many candidates wait behind the current one.
func (s *Session) Pending() int { return len(s.pending) }

// PendingIDs returns the ids of the waiting candidates in order.
func (s *Session) PendingIDs() []string {
	ids := make([]string, len(s.pending))
	for i, c := range s.pending {
		ids[i] = c.ID()
	}
	return ids
}

// Generation returns the session token used to discard stale completions.
func (s *Session) Generation() uint64 { return s.gen }

// Decided returns how many decisions were committed and advanced past.
func (s *Session) Decided() int { return s.decided }

// FetchInFlight reports whether a candidate fetch is outstanding.
func (s *Session) FetchInFlight() bool { return s.fetchInFlight }

// Err returns the error that put the session in the Error state.
func (s *Session) Err() error { return s.err }

// RefillErr returns the last background refill failure, if the session is
// still presenting despite it.
func (s *Session) RefillErr() error { return s.refillErr }

// Request starts the session: Idle -> Loading. It is a no-op otherwise.
func (s *Session) Request() bool {
	if s.state != model.Idle {
		return false
	}
	s.transition(model.Loading)
	s.fetch()
	return true
}

// BeginDecision marks the current candidate as being decided on.
// Presenting -> Deciding; a no-op in any other state.
func (s *Session) BeginDecision() bool {
	if s.state != model.Presenting {
		return false
	}
	s.transition(model.Deciding)
	return true
}

// Cancel returns a cancelled gesture to presentation: Deciding -> Presenting.
// The current candidate is unchanged.
func (s *Session) Cancel() bool {
	if s.state != model.Deciding {
		return false
	}
	s.transition(model.Presenting)
	return true
}

// Commit finalizes the decision on the current candidate:
// Deciding -> Submitting. A refill is issued right away if the queue is now
// under the watermark, so it overlaps the exit animation.
func (s *Session) Commit(outcome model.Outcome) (model.Candidate, bool) {
	if s.state != model.Deciding || !outcome.IsCommit() || s.current == nil {
		return model.Candidate{}, false
	}
	s.outcome = outcome
	s.transition(model.Submitting)
	s.maybeRefill()
	return *s.current, true
}

// Advance moves past the committed candidate once its exit has settled:
// Submitting -> Presenting, Loading, Exhausted or Error. It returns the
// candidate and outcome that were committed.
func (s *Session) Advance() (model.Candidate, model.Outcome, bool) {
	if s.state != model.Submitting || s.current == nil {
		return model.Candidate{}, model.Cancel, false
	}
	done, outcome := *s.current, s.outcome
	s.current = nil
	s.outcome = model.Cancel
	s.decided++
	s.presentNext()
	return done, outcome, true
}

// Retry recovers from Error by re-entering Loading. It is the only way out
// of Error; the session never recovers on its own.
func (s *Session) Retry() bool {
	if s.state != model.Errored {
		return false
	}
	s.err = nil
	s.refillErr = nil
	s.failures = 0
	s.dryFetches = 0
	s.transition(model.Loading)
	if !s.fetchInFlight {
		s.fetch()
	}
	return true
}

// Reset discards everything and returns to Idle. In-flight completions
// from before the reset are ignored when they arrive.
func (s *Session) Reset() {
	s.gen++
	s.current = nil
	s.pending = nil
	s.outcome = model.Cancel
	s.decided = 0
	s.fetchInFlight = false
	s.exhausted = false
	s.dryFetches = 0
	s.failures = 0
	s.refillErr = nil
	s.err = nil
	s.seen.Reset()
	s.transition(model.Idle)
	metrics.UpdateQueueLength(0)
}

// remaining counts candidates still to be decided on.
func (s *Session) remaining() int {
	n := len(s.pending)
	if s.current != nil && (s.state == model.Presenting || s.state == model.Deciding) {
		n++
	}
	return n
}

func (s *Session) maybeRefill() {
	if s.fetchInFlight || s.exhausted || s.dryFetches >= maxDryFetches {
		return
	}
	if s.failures > s.autoRetries {
		return
	}
	if s.remaining() < s.watermark {
		s.fetch()
	}
}

// presentNext pops the next candidate or decides what to show without one.
func (s *Session) presentNext() {
	metrics.UpdateQueueLength(len(s.pending))
	if len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.current = &next
		s.transition(model.Presenting)
		s.logger.Debug(s.ctx, "presenting candidate",
			logger.String("candidate", next.ID()),
			logger.Int("pending", len(s.pending)),
		)
		metrics.UpdateQueueLength(len(s.pending))
		s.maybeRefill()
		return
	}

	s.current = nil
	switch {
	case s.fetchInFlight:
		s.transition(model.Loading)
	case s.exhausted || s.dryFetches >= maxDryFetches:
		s.transition(model.Exhausted)
	case s.refillErr != nil:
		s.fail(s.refillErr)
	default:
		s.transition(model.Loading)
		s.fetch()
	}
}

func (s *Session) fetch() {
	gen := s.gen
	limit := s.batchSize
	watchdog := s.watchdog
	s.fetchInFlight = true
	started := time.Now()

	s.sched.Go(func() {
		batch, err := s.fetchWithWatchdog(limit, watchdog)
		if !deliver(s.ctx, s.sched, func() { s.onBatch(gen, batch, err, started) }) {
			s.logger.Warn(s.ctx, "dropping candidate batch", logger.Error(ErrLoopClosed))
		}
	})
}

// fetchWithWatchdog runs off-loop. The fetcher gets a deadline, and the
// watchdog also fires if the fetcher ignores it.
func (s *Session) fetchWithWatchdog(limit int, watchdog time.Duration) ([]model.Candidate, error) {
	ctx, cancel := context.WithTimeout(s.ctx, watchdog)
	defer cancel()

	type result struct {
		batch []model.Candidate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		batch, err := s.fetcher.FetchCandidates(ctx, limit)
		done <- result{batch: batch, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s: %w", ErrWatchdog, watchdog, r.err)
		}
		return r.batch, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s: %w", ErrWatchdog, watchdog, ctx.Err())
	}
}

func (s *Session) onBatch(gen uint64, batch []model.Candidate, err error, started time.Time) {
	if gen != s.gen {
		metrics.RecordStaleCompletion()
		s.logger.Debug(s.ctx, "discarding stale candidate batch",
			logger.Uint64("batch_generation", gen),
			logger.Uint64("generation", s.gen),
		)
		return
	}
	s.fetchInFlight = false
	metrics.RecordFetchLatency(float64(time.Since(started).Milliseconds()))

	if err != nil {
		metrics.RecordFetch("error")
		s.failures++
		s.logger.Warn(s.ctx, "candidate fetch failed",
			logger.Int("failures", s.failures),
			logger.String("state", s.state.String()),
			logger.Error(err),
		)
		if s.state == model.Loading {
			s.fail(err)
			return
		}
		// A candidate is still on screen: keep presenting and let the
		// queue drain before surfacing the failure.
		s.refillErr = err
		return
	}

	s.failures = 0
	s.refillErr = nil
	if len(batch) == 0 {
		metrics.RecordFetch("empty")
		s.exhausted = true
	} else {
		metrics.RecordFetch("ok")
	}

	fresh, dropped := s.seen.Filter(batch)
	if dropped > 0 {
		metrics.RecordDuplicatesDropped(dropped)
	}
	if len(batch) > 0 && len(fresh) == 0 {
		s.dryFetches++
	} else {
		s.dryFetches = 0
	}
	s.pending = append(s.pending, fresh...)
	metrics.UpdateQueueLength(len(s.pending))
	s.logger.Debug(s.ctx, "candidate batch arrived",
		logger.Int("received", len(batch)),
		logger.Int("fresh", len(fresh)),
		logger.Int("pending", len(s.pending)),
	)

	if s.state == model.Loading {
		s.presentNext()
	}
}

func (s *Session) fail(err error) {
	s.err = err
	s.transition(model.Errored)
}

func (s *Session) transition(to model.SessionState) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	metrics.UpdateSessionState(int(to))
	s.logger.Debug(s.ctx, "session transition",
		logger.String("from", from.String()),
		logger.String("to", to.String()),
	)
}

// deliver posts fn to the loop, backing off while the loop refuses it. A
// dropped batch would leave the fetch in flight forever, so it gives up
// only once ctx is done.
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
