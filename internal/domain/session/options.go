package session

import (
	"time"

	"github.com/okian/swipe/internal/domain/dedupe"
	"github.com/okian/swipe/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithBatchSize sets how many candidates each fetch asks for.
func WithBatchSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithWatermark sets the remaining-candidate count below which a refill
// fetch is issued in the background.
func WithWatermark(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.watermark = n
		}
	}
}

// WithWatchdog bounds how long a fetch may take before it fails.
func WithWatchdog(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.watchdog = d
		}
	}
}

// WithAutoRetries sets how many failed background refills are retried
// silently before the session waits for an explicit retry. Capped at one.
func WithAutoRetries(n int) Option {
	return func(s *Session) {
		if n >= 0 && n <= maxAutoRetries {
			s.autoRetries = n
		}
	}
}

// WithSeenSet shares a seen-candidate set with the session. The set should
// be unbounded: an evicted id can be presented again.
func WithSeenSet(set *dedupe.Set) Option {
	return func(s *Session) {
		if set != nil {
			s.seen = set
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
