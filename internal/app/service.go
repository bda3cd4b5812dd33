// Package service assembles the swipe evaluation engine from its parts:
// the event loop, the collaborator backend, the recommendation store and
// the HTTP rendering boundary.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/swipe/internal/adapters/backend"
	"github.com/okian/swipe/internal/adapters/http/api"
	eventqueue "github.com/okian/swipe/internal/adapters/mq/queue"
	"github.com/okian/swipe/internal/adapters/mq/worker"
	"github.com/okian/swipe/internal/adapters/repository"
	"github.com/okian/swipe/internal/domain/decision"
	"github.com/okian/swipe/internal/domain/dedupe"
	"github.com/okian/swipe/internal/domain/gesture"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/session"
	"github.com/okian/swipe/internal/domain/spring"
	"github.com/okian/swipe/internal/domain/swipe"
	"github.com/okian/swipe/internal/domain/vote"
	"github.com/okian/swipe/pkg/logger"
	"github.com/okian/swipe/pkg/metrics"
)

const (
	stopTimeout  = 5 * time.Second
	statsTimeout = time.Second
)

// ErrNotStarted is returned by calls that need a running service.
var ErrNotStarted = errors.New("service not started")

// Backend is everything the engine needs from its collaborators.
type Backend interface {
	session.Fetcher
	vote.Submitter
	vote.Recommender
}

// Service owns one engine and the loop it runs on.
type Service struct {
	mu sync.RWMutex

	// Configuration
	backendURL          string
	backendToken        string
	backendTimeout      time.Duration
	backendRPS          float64
	backendLatency      time.Duration
	catalog             []model.Candidate
	batchSize           int
	watermark           int
	watchdog            time.Duration
	recommendationLimit int
	voteTimeout         time.Duration
	minEvaluations      int
	frameRate           int
	viewportWidth       float64
	leanThreshold       float64
	commitThreshold     float64
	clickSlop           float64
	flingVelocity       float64
	springs             swipe.Springs
	settleMax           time.Duration
	taskQueueSize       int

	// Core components
	backend     Backend
	ownsBackend bool
	queue       *eventqueue.InMemoryQueue
	loop        *worker.Loop
	recs        *repository.MemoryStore
	seen        *dedupe.Set
	engine      *swipe.Engine
	api         *api.Server

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backendTimeout:      10 * time.Second,
		catalog:             backend.DefaultCatalog(),
		batchSize:           5,
		watermark:           2,
		watchdog:            10 * time.Second,
		recommendationLimit: 10,
		voteTimeout:         10 * time.Second,
		minEvaluations:      5,
		frameRate:           60,
		viewportWidth:       500,
		leanThreshold:       50,
		commitThreshold:     decision.DefaultCommitThreshold,
		clickSlop:           10,
		springs:             swipe.DefaultSprings(),
		settleMax:           2 * time.Second,
		taskQueueSize:       1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine, runs its loop and requests the first batch.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting swipe service...")

	if s.backend == nil || s.ownsBackend {
		b, err := s.buildBackend()
		if err != nil {
			return fmt.Errorf("build backend: %w", err)
		}
		s.backend = b
		s.ownsBackend = true
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.taskQueueSize))
	s.loop = worker.NewLoop(s.queue,
		worker.WithName("engine-loop"),
		worker.WithFrameRate(s.frameRate),
	)
	s.recs = repository.NewMemoryStore()
	s.seen = dedupe.New(dedupe.WithMaxSize(0))

	sess := session.New(runCtx, s.backend, s.loop,
		session.WithSeenSet(s.seen),
		session.WithBatchSize(s.batchSize),
		session.WithWatermark(s.watermark),
		session.WithWatchdog(s.watchdog),
	)
	recs := s.recs
	votes := vote.New(runCtx, s.backend, s.backend, s.loop,
		vote.WithRecommendationLimit(s.recommendationLimit),
		vote.WithTimeout(s.voteTimeout),
		vote.WithRetryable(backend.IsRetryable),
		vote.WithRecommendationSink(func(ctx context.Context, list []model.Candidate) error {
			_, err := recs.Replace(ctx, list)
			return err
		}),
	)
	s.engine = swipe.New(runCtx, sess, votes, s.loop,
		swipe.WithThresholds(decision.Thresholds{CommitPx: s.commitThreshold, FlingVelocity: s.flingVelocity}),
		swipe.WithClickSlop(s.clickSlop),
		swipe.WithViewportWidth(s.viewportWidth),
		swipe.WithSprings(s.springs),
		swipe.WithMinEvaluations(s.minEvaluations),
		swipe.WithAnimatorOptions(spring.WithMaxDuration(s.settleMax)),
		swipe.WithGestureOptions(gesture.WithLeanThreshold(s.leanThreshold)),
	)
	s.api = api.NewServer(s.engine, s.loop, s.recs, s)

	go s.loop.Run(runCtx)
	if err := s.loop.Do(ctx, s.engine.Start); err != nil {
		cancel()
		return fmt.Errorf("start engine: %w", err)
	}

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "swipe service started",
		logger.String("backend", s.backendName()),
		logger.Int("batchSize", s.batchSize),
		logger.Int("frameRate", s.frameRate),
	)
	return nil
}

func (s *Service) buildBackend() (Backend, error) {
	if s.backendURL == "" {
		return backend.NewMemory(s.catalog, backend.WithLatency(s.backendLatency)), nil
	}
	return backend.NewClient(s.backendURL,
		backend.WithToken(s.backendToken),
		backend.WithTimeout(s.backendTimeout),
		backend.WithRateLimit(s.backendRPS, max(1, int(s.backendRPS))),
	)
}

func (s *Service) backendName() string {
	if s.backendURL == "" {
		return "memory"
	}
	return s.backendURL
}

// Stop closes the engine and shuts the loop down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping swipe service...")

	if err := s.loop.Do(ctx, s.engine.Close); err != nil {
		s.logger.Warn(ctx, "engine close failed", logger.Error(err))
	}
	if err := s.loop.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "loop shutdown failed", logger.Error(err))
	}
	_ = s.queue.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "swipe service stopped")
}

// Handler returns the HTTP routes of the running engine.
func (s *Service) Handler() (http.Handler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.api.Routes(), nil
}

// Snapshot returns the engine's current frame.
func (s *Service) Snapshot(ctx context.Context) (swipe.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return swipe.Snapshot{}, ErrNotStarted
	}
	var snap swipe.Snapshot
	if err := s.loop.Do(ctx, func() { snap = s.engine.Snapshot() }); err != nil {
		return swipe.Snapshot{}, err
	}
	return snap, nil
}

// Recommendations returns the store the vote coordinator refreshes.
func (s *Service) Recommendations() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recs
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"backend":       s.backendName(),
		"batchSize":     s.batchSize,
		"frameRate":     s.frameRate,
		"taskQueueSize": s.taskQueueSize,
	}
	if !s.started {
		return stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()
	stats["loopBacklog"] = s.queue.Len(ctx)
	stats["loopTasks"] = s.loop.TasksRun()
	stats["recommendations"] = s.recs.Count(ctx)
	stats["seenCandidates"] = s.seen.Size()

	var snap swipe.Snapshot
	if err := s.loop.Do(ctx, func() { snap = s.engine.Snapshot() }); err != nil {
		s.logger.Debug(ctx, "stats snapshot unavailable", logger.Error(err))
		return stats
	}
	stats["state"] = snap.State
	stats["pending"] = snap.Pending
	stats["decided"] = snap.Progress.Decided
	stats["votesSubmitted"] = snap.Votes.Submitted
	stats["votesAcknowledged"] = snap.Votes.Acknowledged
	stats["votesFailed"] = snap.Votes.Failed
	stats["votesInFlight"] = snap.Votes.InFlight
	stats["votesAwaitingRetry"] = snap.Votes.AwaitingRetry
	stats["recommendationRefreshes"] = snap.Votes.Refreshes

	metrics.UpdateLoopBacklog(s.queue.Len(ctx))
	return stats
}
