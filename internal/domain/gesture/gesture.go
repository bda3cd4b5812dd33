// Package gesture turns raw pointer events into relative displacement and
// velocity samples and classifies the live lean of a drag.
package gesture

import (
	"math"

	"github.com/okian/swipe/internal/domain/model"
)

const (
	defaultLeanThreshold   = 50.0
	defaultRotationDivisor = 15.0
	defaultLiftDivisor     = 20.0
	defaultScaleDivisor    = 1000.0
	minTrackingScale       = 0.5
)

// Sink receives the live pose for each move event.
type Sink interface {
	Track(pose model.AnimationState)
}

// Interpreter tracks a single pointer gesture at a time. It is not safe for
// concurrent use; it lives on the event loop.
type Interpreter struct {
	leanThreshold   float64
	rotationDivisor float64
	liftDivisor     float64
	scaleDivisor    float64
	sink            Sink

	active bool
	start  model.Point
	last   model.GestureSample
	travel float64
	lean   model.Lean
}

// New creates an Interpreter.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		leanThreshold:   defaultLeanThreshold,
		rotationDivisor: defaultRotationDivisor,
		liftDivisor:     defaultLiftDivisor,
		scaleDivisor:    defaultScaleDivisor,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start begins a gesture at p, discarding any previous one.
func (i *Interpreter) Start(p model.Point) {
	i.active = true
	i.start = sanitizePoint(p)
	i.last = model.GestureSample{TimestampMs: i.start.TimestampMs}
	i.travel = 0
	i.lean = model.LeanNeutral
}

// Move records a pointer move and returns the sample relative to the start.
// A move without a preceding Start is treated as the start of a gesture.
func (i *Interpreter) Move(p model.Point) model.GestureSample {
	if !i.active {
		i.Start(p)
		return i.last
	}
	s := i.sample(sanitizePoint(p))
	i.last = s
	i.lean = i.classify(s.DX)
	if i.sink != nil {
		i.sink.Track(i.Pose(s.DX))
	}
	return s
}

// End closes the gesture at p and returns its summary.
func (i *Interpreter) End(p model.Point) model.FinalGesture {
	if !i.active {
		return model.FinalGesture{}
	}
	s := i.sample(sanitizePoint(p))
	i.active = false
	i.lean = model.LeanNeutral
	return model.FinalGesture{
		TotalDX:   s.DX,
		TotalDY:   s.DY,
		VelocityX: s.VelocityX,
		Travel:    i.travel,
	}
}

// Abort drops the active gesture without producing a result.
func (i *Interpreter) Abort() {
	i.active = false
	i.lean = model.LeanNeutral
}

// Active reports whether a gesture is in progress.
func (i *Interpreter) Active() bool { return i.active }

// Lean returns the advisory lean of the active gesture.
func (i *Interpreter) Lean() model.Lean { return i.lean }

// Travel returns the largest distance from the start seen so far.
func (i *Interpreter) Travel() float64 { return i.travel }

// Pose maps a horizontal displacement to the tracking pose: 1:1 x, tilt
// proportional to dx, a slight lift and shrink proportional to |dx|.
func (i *Interpreter) Pose(dx float64) model.AnimationState {
	abs := math.Abs(dx)
	scale := 1 - abs/i.scaleDivisor
	if scale < minTrackingScale {
		scale = minTrackingScale
	}
	return model.AnimationState{
		OffsetX:     dx,
		OffsetY:     -abs / i.liftDivisor,
		RotationDeg: dx / i.rotationDivisor,
		Scale:       scale,
	}
}

func (i *Interpreter) sample(p model.Point) model.GestureSample {
	dx := p.X - i.start.X
	dy := p.Y - i.start.Y
	if d := math.Hypot(dx, dy); d > i.travel {
		i.travel = d
	}

	var velocity float64
	if dt := p.TimestampMs - i.last.TimestampMs; dt > 0 {
		velocity = (dx - i.last.DX) / float64(dt)
	}
	if math.IsNaN(velocity) || math.IsInf(velocity, 0) {
		velocity = 0
	}
	return model.GestureSample{DX: dx, DY: dy, VelocityX: velocity, TimestampMs: p.TimestampMs}
}

func (i *Interpreter) classify(dx float64) model.Lean {
	switch {
	case dx > i.leanThreshold:
		return model.LeanPositive
	case dx < -i.leanThreshold:
		return model.LeanNegative
	default:
		return model.LeanNeutral
	}
}

func sanitizePoint(p model.Point) model.Point {
	return model.Point{X: finite(p.X), Y: finite(p.Y), TimestampMs: p.TimestampMs}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
