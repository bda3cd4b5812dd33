// Package spring animates the card pose toward a target with a damped
// harmonic oscillator per channel. A new target always supersedes the
// running one; position stays continuous and velocity is reset to zero.
package spring

import (
	"math"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/pkg/metrics"
)

// State is the animated pose.
type State = model.AnimationState

// Config is a spring's physical parameters, per unit mass.
type Config struct {
	Stiffness float64 `koanf:"stiffness"`
	Damping   float64 `koanf:"damping"`
}

// Default configurations. Tracking follows the finger closely during a
// drag; commit is slower and is used for fling-off; snap-back returns a
// cancelled card to rest.
var (
	Tracking = Config{Stiffness: 400, Damping: 30}
	Commit   = Config{Stiffness: 200, Damping: 30}
	SnapBack = Config{Stiffness: 400, Damping: 30}
)

const (
	channels = 4

	defaultMaxDuration = 2 * time.Second
	defaultTimestep    = time.Millisecond
	// Frames longer than this are treated as this long so a stalled loop
	// does not integrate a huge step on resume.
	maxFrameDelta = 100 * time.Millisecond
)

// Per channel settle tolerances: x, y in px; rotation in degrees; scale unitless.
var (
	positionEpsilon = [channels]float64{0.5, 0.5, 0.1, 0.001}
	velocityEpsilon = [channels]float64{5, 5, 1, 0.01}
)

type vector [channels]float64

// Animator owns the pose of one card. It is driven by Step once per frame
// and is not safe for concurrent use.
type Animator struct {
	maxDuration time.Duration
	timestep    time.Duration

	pos    vector
	vel    vector
	target vector
	config Config

	active    bool
	elapsed   time.Duration
	carry     time.Duration
	onSettled func()
}

// New creates an Animator resting at the neutral pose.
func New(opts ...Option) *Animator {
	a := &Animator{
		maxDuration: defaultMaxDuration,
		timestep:    defaultTimestep,
		pos:         toVector(model.Neutral),
		target:      toVector(model.Neutral),
		config:      Tracking,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetTarget starts animating toward s. Any running animation is superseded
// and its onSettled callback is dropped. onSettled, if non-nil, fires exactly
// once from Step when the pose settles or the max duration elapses.
func (a *Animator) SetTarget(s State, cfg Config, onSettled func()) {
	a.target = sanitize(toVector(s))
	a.config = sanitizeConfig(cfg)
	a.vel = vector{}
	a.elapsed = 0
	a.carry = 0
	a.onSettled = onSettled
	a.active = true
}

// Jump places the pose at s with no animation and drops any callback.
func (a *Animator) Jump(s State) {
	a.pos = sanitize(toVector(s))
	a.target = a.pos
	a.vel = vector{}
	a.Cancel()
}

// Cancel stops the running animation where it is without firing its
// callback. Used when the card view is torn down.
func (a *Animator) Cancel() {
	a.active = false
	a.onSettled = nil
	a.elapsed = 0
	a.carry = 0
}

// Active reports whether an animation is running.
func (a *Animator) Active() bool { return a.active }

// State returns the current pose.
func (a *Animator) State() State { return fromVector(a.pos) }

// Target returns the pose being animated toward.
func (a *Animator) Target() State { return fromVector(a.target) }

// Step advances the animation by dt. It never blocks and is a no-op when
// idle or when dt is not positive.
func (a *Animator) Step(dt time.Duration) {
	if !a.active || dt <= 0 {
		return
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}

	a.carry += dt
	h := a.timestep.Seconds()
	for a.carry >= a.timestep {
		a.carry -= a.timestep
		a.integrate(h)
	}
	a.elapsed += dt

	switch {
	case a.settled():
		metrics.RecordSettle(float64(a.elapsed.Milliseconds()))
		a.finish()
	case a.elapsed >= a.maxDuration:
		metrics.RecordSettleTimeout()
		a.finish()
	}
}

func (a *Animator) integrate(h float64) {
	k, c := a.config.Stiffness, a.config.Damping
	for i := 0; i < channels; i++ {
		acc := -k*(a.pos[i]-a.target[i]) - c*a.vel[i]
		// Semi-implicit Euler: update velocity first, then position.
		a.vel[i] += acc * h
		a.pos[i] += a.vel[i] * h
		if math.IsNaN(a.pos[i]) || math.IsInf(a.pos[i], 0) {
			a.pos[i] = a.target[i]
			a.vel[i] = 0
		}
	}
}

func (a *Animator) settled() bool {
	for i := 0; i < channels; i++ {
		if math.Abs(a.pos[i]-a.target[i]) > positionEpsilon[i] {
			return false
		}
		if math.Abs(a.vel[i]) > velocityEpsilon[i] {
			return false
		}
	}
	return true
}

// finish snaps onto the target and fires the callback. The callback is
// cleared first so it may call SetTarget again.
func (a *Animator) finish() {
	a.pos = a.target
	a.vel = vector{}
	a.active = false
	cb := a.onSettled
	a.onSettled = nil
	if cb != nil {
		cb()
	}
}

func toVector(s State) vector {
	return vector{s.OffsetX, s.OffsetY, s.RotationDeg, s.Scale}
}

func fromVector(v vector) State {
	return State{OffsetX: v[0], OffsetY: v[1], RotationDeg: v[2], Scale: v[3]}
}

func sanitize(v vector) vector {
	for i := range v {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			v[i] = 0
		}
	}
	return v
}

func sanitizeConfig(c Config) Config {
	if !(c.Stiffness > 0) || math.IsInf(c.Stiffness, 0) {
		c.Stiffness = Tracking.Stiffness
	}
	if !(c.Damping >= 0) || math.IsInf(c.Damping, 0) {
		c.Damping = Tracking.Damping
	}
	return c
}
