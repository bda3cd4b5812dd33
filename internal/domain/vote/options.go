package vote

import (
	"context"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithRecommendationLimit sets how many recommendations each refresh asks for.
func WithRecommendationLimit(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.recLimit = n
		}
	}
}

// WithTimeout bounds each vote and refresh call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryable sets the classifier deciding which vote failures may be
// retried explicitly. By default every failure is retryable.
func WithRetryable(fn func(error) bool) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

// WithRecommendationSink receives each successful recommendation refresh.
func WithRecommendationSink(fn func(ctx context.Context, recs []model.Candidate) error) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.sink = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}
