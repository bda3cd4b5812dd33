package swipe

import (
	"time"

	"github.com/okian/swipe/internal/domain/decision"
	"github.com/okian/swipe/internal/domain/gesture"
	"github.com/okian/swipe/internal/domain/spring"
	"github.com/okian/swipe/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithThresholds sets the decision policy thresholds.
func WithThresholds(t decision.Thresholds) Option {
	return func(e *Engine) {
		if t.CommitPx > 0 {
			e.thresholds = t
		}
	}
}

// WithClickSlop sets the largest travel in px a release may have and still
// count as a click.
func WithClickSlop(px float64) Option {
	return func(e *Engine) {
		if px >= 0 {
			e.clickSlop = px
		}
	}
}

// WithViewportWidth sets the width used to size the fly-off target.
func WithViewportWidth(px float64) Option {
	return func(e *Engine) {
		if px > 0 {
			e.viewportWidth = px
		}
	}
}

// WithSprings sets the tracking, commit and snap-back spring configs.
func WithSprings(s Springs) Option {
	return func(e *Engine) {
		e.springs = s
	}
}

// WithAnimatorOptions configures the card animator.
func WithAnimatorOptions(opts ...spring.Option) Option {
	return func(e *Engine) {
		e.animOpts = append(e.animOpts, opts...)
	}
}

// WithGestureOptions configures the gesture interpreter.
func WithGestureOptions(opts ...gesture.Option) Option {
	return func(e *Engine) {
		e.gestureOpts = append(e.gestureOpts, opts...)
	}
}

// WithMinEvaluations sets how many decisions complete an evaluation round.
func WithMinEvaluations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minEvaluations = n
		}
	}
}

// WithIDGenerator sets the decision id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock sets the clock used to stamp decisions.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
