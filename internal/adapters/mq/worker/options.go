// Package worker runs the single event loop the engine lives on.
package worker

import (
	"time"

	"github.com/okian/swipe/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName sets the loop name for identification and logging.
func WithName(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithFrameRate sets how many frame ticks the loop delivers per second.
func WithFrameRate(fps int) Option {
	return func(l *Loop) {
		if fps > 0 {
			l.frameInterval = time.Second / time.Duration(fps)
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(logger logger.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}
