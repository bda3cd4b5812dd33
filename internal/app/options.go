package service

import (
	"time"

	"github.com/okian/swipe/internal/config"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/spring"
	"github.com/okian/swipe/internal/domain/swipe"
	"github.com/okian/swipe/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackend replaces the collaborator the service would build itself.
func WithBackend(b Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithBackendURL points the service at a remote collaborator. Empty keeps
// the in-memory catalog.
func WithBackendURL(url, token string) Option {
	return func(s *Service) {
		s.backendURL = url
		s.backendToken = token
	}
}

// WithBackendTimeout bounds each collaborator call.
func WithBackendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.backendTimeout = d
		}
	}
}

// WithBackendRateLimit caps outbound collaborator calls per second.
func WithBackendRateLimit(rps float64) Option {
	return func(s *Service) {
		if rps >= 0 {
			s.backendRPS = rps
		}
	}
}

// WithCatalog sets the candidates served by the in-memory backend.
func WithCatalog(catalog []model.Candidate) Option {
	return func(s *Service) {
		if len(catalog) > 0 {
			s.catalog = catalog
		}
	}
}

// WithBackendLatency delays every in-memory backend call.
func WithBackendLatency(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.backendLatency = d
		}
	}
}

// WithBatchSize sets the number of candidates requested per fetch.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRefillWatermark sets the remaining-candidate count that triggers a
// background fetch.
func WithRefillWatermark(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.watermark = n
		}
	}
}

// WithWatchdog sets how long a fetch may run before the session fails it.
func WithWatchdog(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.watchdog = d
		}
	}
}

// WithRecommendationLimit sets the size of each recommendation refresh.
func WithRecommendationLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recommendationLimit = n
		}
	}
}

// WithVoteTimeout bounds each vote submission.
func WithVoteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.voteTimeout = d
		}
	}
}

// WithMinEvaluations sets the decision count that completes a round.
func WithMinEvaluations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minEvaluations = n
		}
	}
}

// WithFrameRate sets the animation frame rate.
func WithFrameRate(fps int) Option {
	return func(s *Service) {
		if fps > 0 {
			s.frameRate = fps
		}
	}
}

// WithViewportWidth sets the width used to size the fly-off.
func WithViewportWidth(px float64) Option {
	return func(s *Service) {
		if px > 0 {
			s.viewportWidth = px
		}
	}
}

// WithThresholds sets the gesture thresholds in px and the fling velocity
// in px/ms.
func WithThresholds(lean, commit, clickSlop, fling float64) Option {
	return func(s *Service) {
		if lean > 0 {
			s.leanThreshold = lean
		}
		if commit > 0 {
			s.commitThreshold = commit
		}
		if clickSlop >= 0 {
			s.clickSlop = clickSlop
		}
		if fling >= 0 {
			s.flingVelocity = fling
		}
	}
}

// WithSprings sets the card's spring configurations.
func WithSprings(sp swipe.Springs) Option {
	return func(s *Service) {
		s.springs = sp
	}
}

// WithSettleMax force-settles animations that run longer than d.
func WithSettleMax(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.settleMax = d
		}
	}
}

// WithTaskQueueSize bounds the event loop's task queue.
func WithTaskQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.taskQueueSize = n
		}
	}
}

// FromConfig translates a loaded Config into service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithBackendURL(cfg.BackendURL, cfg.BackendToken),
		WithBackendTimeout(cfg.BackendTimeout()),
		WithBackendRateLimit(cfg.BackendRPS),
		WithBackendLatency(cfg.BackendLatency()),
		WithBatchSize(cfg.BatchSize),
		WithRefillWatermark(cfg.RefillWatermark),
		WithWatchdog(cfg.Watchdog()),
		WithRecommendationLimit(cfg.RecommendationLimit),
		WithVoteTimeout(cfg.VoteTimeout()),
		WithMinEvaluations(cfg.MinEvaluations),
		WithFrameRate(cfg.FrameRate),
		WithViewportWidth(cfg.ViewportWidth),
		WithThresholds(cfg.LeanThresholdPx, cfg.CommitThresholdPx, cfg.ClickSlopPx, cfg.FlingVelocity),
		WithSprings(swipe.Springs{
			Tracking: spring.Config{Stiffness: cfg.TrackingStiffness, Damping: cfg.TrackingDamping},
			Commit:   spring.Config{Stiffness: cfg.CommitStiffness, Damping: cfg.CommitDamping},
			SnapBack: spring.Config{Stiffness: cfg.SnapBackStiffness, Damping: cfg.SnapBackDamping},
		}),
		WithSettleMax(cfg.SettleMax()),
		WithTaskQueueSize(cfg.TaskQueueSize),
	}
}
