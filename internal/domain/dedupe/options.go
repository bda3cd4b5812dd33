package dedupe

// Option applies a configuration option to the Set.
type Option func(*Set)

// WithMaxSize bounds how many ids are remembered.
// maxSize > 0: oldest ids are evicted first once full.
// maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(s *Set) {
		s.maxSize = maxSize
	}
}
