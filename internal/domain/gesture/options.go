package gesture

// Option applies a configuration option to the Interpreter.
type Option func(*Interpreter)

// WithLeanThreshold sets the |dx| in px past which the gesture leans.
func WithLeanThreshold(px float64) Option {
	return func(i *Interpreter) {
		if px > 0 {
			i.leanThreshold = px
		}
	}
}

// WithSink sets where live poses are pushed on every move.
func WithSink(s Sink) Option {
	return func(i *Interpreter) {
		if s != nil {
			i.sink = s
		}
	}
}

// WithPoseMapping overrides how displacement maps to rotation, lift and
// shrink. Zero values keep the defaults.
func WithPoseMapping(rotationDivisor, liftDivisor, scaleDivisor float64) Option {
	return func(i *Interpreter) {
		if rotationDivisor > 0 {
			i.rotationDivisor = rotationDivisor
		}
		if liftDivisor > 0 {
			i.liftDivisor = liftDivisor
		}
		if scaleDivisor > 0 {
			i.scaleDivisor = scaleDivisor
		}
	}
}
