package vote_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/vote"
	"github.com/okian/swipe/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type manualScheduler struct {
	mu     sync.Mutex
	posted []func()
}

func (m *manualScheduler) Go(fn func()) { fn() }

func (m *manualScheduler) Post(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, fn)
	return true
}

// refusingScheduler turns away the first refusals posts, as a full loop
// queue does, then queues like manualScheduler.
type refusingScheduler struct {
	manualScheduler
	refusals int
	refused  int
}

func (r *refusingScheduler) Post(fn func()) bool {
	r.mu.Lock()
	if r.refused < r.refusals {
		r.refused++
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()
	return r.manualScheduler.Post(fn)
}

func (m *manualScheduler) drain() {
	for {
		m.mu.Lock()
		if len(m.posted) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.posted[0]
		m.posted = m.posted[1:]
		m.mu.Unlock()
		fn()
	}
}

var (
	errNetwork    = errors.New("network")
	errValidation = errors.New("validation")
)

type fakeBackend struct {
	mu       sync.Mutex
	votes    []model.Decision
	failWith map[string][]error // candidate -> errors for successive calls
	recCalls int
	recErr   error
}

func (f *fakeBackend) SubmitVote(_ context.Context, d model.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, d)
	if errs := f.failWith[d.CandidateID]; len(errs) > 0 {
		f.failWith[d.CandidateID] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *fakeBackend) FetchRecommendations(_ context.Context, limit int) ([]model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recCalls++
	if f.recErr != nil {
		return nil, f.recErr
	}
	return []model.Candidate{{Name: "Lisbon"}, {Name: "Porto"}}[:min(limit, 2)], nil
}

func retryable(err error) bool { return errors.Is(err, errNetwork) }

func decision(id, candidate string, outcome model.Outcome) model.Decision {
	return model.Decision{ID: id, CandidateID: candidate, Outcome: outcome, SubmittedAt: time.Now()}
}

func TestCoordinatorSubmit(t *testing.T) {
	Convey("Given a coordinator over a healthy backend", t, func() {
		sched := &manualScheduler{}
		backend := &fakeBackend{failWith: map[string][]error{}}
		var stored [][]model.Candidate
		sink := func(_ context.Context, recs []model.Candidate) error {
			stored = append(stored, recs)
			return nil
		}
		c := vote.New(context.Background(), backend, backend, sched,
			vote.WithRetryable(retryable),
			vote.WithRecommendationSink(sink),
		)

		Convey("Submitting does not wait for the backend", func() {
			c.Submit(decision("d1", "Lisbon", model.Accept))
			So(len(backend.votes), ShouldEqual, 1)
			So(c.Stats().InFlight, ShouldEqual, 1)

			sched.drain()
			So(c.Stats().Acknowledged, ShouldEqual, 1)
			So(c.Stats().InFlight, ShouldEqual, 0)

			Convey("And an acknowledged vote refreshes recommendations", func() {
				So(backend.recCalls, ShouldEqual, 1)
				So(len(stored), ShouldEqual, 1)
				So(stored[0][0].Name, ShouldEqual, "Lisbon")
			})
		})

		Convey("Cancel outcomes are never sent", func() {
			c.Submit(decision("d0", "Rome", model.Cancel))
			So(len(backend.votes), ShouldEqual, 0)
		})

		Convey("N decisions produce N votes with distinct candidates", func() {
			names := []string{"A", "B", "C", "D"}
			for i, n := range names {
				c.Submit(decision(string(rune('a'+i)), n, model.Reject))
			}
			sched.drain()
			seen := map[string]bool{}
			for _, v := range backend.votes {
				seen[v.CandidateID] = true
			}
			So(len(backend.votes), ShouldEqual, 4)
			So(len(seen), ShouldEqual, 4)
		})

		Convey("Refreshes requested while one runs collapse into one follow-up", func() {
			c.Refresh()
			c.Refresh()
			c.Refresh()
			So(backend.recCalls, ShouldEqual, 1)
			sched.drain()
			So(backend.recCalls, ShouldEqual, 2)
			So(c.Stats().Refreshes, ShouldEqual, 2)
		})
	})
}

func TestCoordinatorFailures(t *testing.T) {
	Convey("Given a vote that fails with a network error", t, func() {
		sched := &manualScheduler{}
		backend := &fakeBackend{failWith: map[string][]error{"X": {errNetwork, errNetwork}}}
		c := vote.New(context.Background(), backend, backend, sched, vote.WithRetryable(retryable))

		c.Submit(decision("dx", "X", model.Accept))
		sched.drain()

		Convey("A retryable banner is shown and no refresh happens", func() {
			banner, ok := c.Banner()
			So(ok, ShouldBeTrue)
			So(banner.Candidate, ShouldEqual, "X")
			So(banner.Retryable, ShouldBeTrue)
			So(backend.recCalls, ShouldEqual, 0)
			So(len(c.AwaitingRetry()), ShouldEqual, 1)
		})

		Convey("An explicit retry resubmits the same decision once", func() {
			So(c.RetryFailed(), ShouldEqual, 1)
			_, ok := c.Banner()
			So(ok, ShouldBeFalse)
			sched.drain()

			So(len(backend.votes), ShouldEqual, 2)
			So(backend.votes[1].ID, ShouldEqual, "dx")

			banner, ok := c.Banner()
			So(ok, ShouldBeTrue)
			So(banner.Retryable, ShouldBeFalse)
			So(c.RetryFailed(), ShouldEqual, 0)
		})

		Convey("A retry that fails again with a network error is not kept", func() {
			So(c.RetryFailed(), ShouldEqual, 1)
			sched.drain()

			So(c.AwaitingRetry(), ShouldBeEmpty)
			So(c.Stats().AwaitingRetry, ShouldEqual, 0)
			So(c.Stats().Failed, ShouldEqual, 2)
			So(c.RetryFailed(), ShouldEqual, 0)
			So(len(backend.votes), ShouldEqual, 2)

			banner, ok := c.Banner()
			So(ok, ShouldBeTrue)
			So(banner.Retryable, ShouldBeFalse)
		})

		Convey("A later acknowledged retry clears the banner", func() {
			backend.failWith["X"] = nil
			c.RetryFailed()
			sched.drain()
			_, ok := c.Banner()
			So(ok, ShouldBeFalse)
			So(c.Stats().Acknowledged, ShouldEqual, 1)
		})
	})

	Convey("Given a vote rejected as invalid", t, func() {
		sched := &manualScheduler{}
		backend := &fakeBackend{failWith: map[string][]error{"Atlantis": {errValidation}}}
		c := vote.New(context.Background(), backend, backend, sched, vote.WithRetryable(retryable))

		c.Submit(decision("dv", "Atlantis", model.Reject))
		sched.drain()

		Convey("The failure is terminal", func() {
			banner, ok := c.Banner()
			So(ok, ShouldBeTrue)
			So(banner.Retryable, ShouldBeFalse)
			So(c.RetryFailed(), ShouldEqual, 0)
			So(c.Stats().Failed, ShouldEqual, 1)
		})
	})

	Convey("Given a failing recommendation backend", t, func() {
		sched := &manualScheduler{}
		backend := &fakeBackend{failWith: map[string][]error{}, recErr: errNetwork}
		c := vote.New(context.Background(), backend, backend, sched)

		c.Submit(decision("d1", "Lisbon", model.Accept))
		sched.drain()

		Convey("The failure is swallowed", func() {
			_, ok := c.Banner()
			So(ok, ShouldBeFalse)
			So(c.Stats().Acknowledged, ShouldEqual, 1)
			So(c.Stats().Refreshes, ShouldEqual, 0)
		})
	})

	Convey("Given a reset while a vote is in flight", t, func() {
		sched := &manualScheduler{}
		backend := &fakeBackend{failWith: map[string][]error{"Y": {errNetwork}}}
		c := vote.New(context.Background(), backend, backend, sched, vote.WithRetryable(retryable))

		c.Submit(decision("dy", "Y", model.Accept))
		c.Reset()
		sched.drain()

		Convey("The late failure leaves no banner", func() {
			_, ok := c.Banner()
			So(ok, ShouldBeFalse)
			So(c.Stats(), ShouldResemble, vote.Stats{})
		})
	})
}

func TestCoordinatorDelivery(t *testing.T) {
	Convey("Given a loop that turns completions away at first", t, func() {
		sched := &refusingScheduler{refusals: 3}
		backend := &fakeBackend{failWith: map[string][]error{}}
		c := vote.New(context.Background(), backend, backend, sched)

		Convey("A vote completion still lands once the loop takes it", func() {
			c.Submit(decision("d1", "Lisbon", model.Accept))
			So(sched.refused, ShouldEqual, 3)
			sched.drain()
			So(c.Stats().Acknowledged, ShouldEqual, 1)
			So(c.Stats().InFlight, ShouldEqual, 0)
		})

		Convey("A refused refresh does not block later refreshes", func() {
			c.Refresh()
			sched.drain()
			So(c.Stats().Refreshes, ShouldEqual, 1)
			c.Refresh()
			sched.drain()
			So(backend.recCalls, ShouldEqual, 2)
			So(c.Stats().Refreshes, ShouldEqual, 2)
		})
	})

	Convey("Given a loop that never takes completions", t, func() {
		sched := &refusingScheduler{refusals: 1 << 30}
		backend := &fakeBackend{failWith: map[string][]error{}}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		c := vote.New(ctx, backend, backend, sched)

		Convey("Delivery gives up when the coordinator's context ends", func() {
			c.Submit(decision("d1", "Lisbon", model.Accept))
			So(ctx.Err(), ShouldNotBeNil)
			So(c.Stats().InFlight, ShouldEqual, 1)
		})
	})
}
