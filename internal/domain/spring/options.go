package spring

import "time"

// Option applies a configuration option to the Animator.
type Option func(*Animator)

// WithMaxDuration bounds how long an animation may run before it is forced
// onto its target and reported settled.
func WithMaxDuration(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.maxDuration = d
		}
	}
}

// WithTimestep sets the fixed integration step.
func WithTimestep(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.timestep = d
		}
	}
}

// WithInitial sets the starting pose.
func WithInitial(s State) Option {
	return func(a *Animator) {
		a.pos = sanitize(toVector(s))
		a.target = a.pos
	}
}
