package spring_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/spring"
	. "github.com/smartystreets/goconvey/convey"
)

const frame = 16 * time.Millisecond

// run steps the animator frame by frame until it goes idle.
func run(a *spring.Animator) int {
	frames := 0
	for a.Active() && frames < 1000 {
		a.Step(frame)
		frames++
	}
	return frames
}

var flyOff = model.AnimationState{OffsetX: 600, OffsetY: -100, RotationDeg: 45, Scale: 0.8}

func TestAnimatorSettles(t *testing.T) {
	Convey("Given an animator at rest", t, func() {
		a := spring.New()
		So(a.State(), ShouldResemble, model.Neutral)
		So(a.Active(), ShouldBeFalse)

		Convey("When a commit target is set", func() {
			fired := 0
			a.SetTarget(flyOff, spring.Commit, func() { fired++ })

			Convey("Then the pose does not jump on the first call", func() {
				So(a.State(), ShouldResemble, model.Neutral)
				So(a.Active(), ShouldBeTrue)
			})

			Convey("Then it settles on target and fires exactly once", func() {
				frames := run(a)
				So(frames, ShouldBeLessThan, 125) // under the 2s fallback
				So(a.State(), ShouldResemble, flyOff)
				So(fired, ShouldEqual, 1)

				a.Step(frame)
				So(fired, ShouldEqual, 1)
			})

			Convey("Then intermediate frames move monotonically toward the target at first", func() {
				a.Step(frame)
				x1 := a.State().OffsetX
				a.Step(frame)
				x2 := a.State().OffsetX
				So(x1, ShouldBeGreaterThan, 0)
				So(x2, ShouldBeGreaterThan, x1)
			})
		})
	})
}

func TestAnimatorInterruption(t *testing.T) {
	Convey("Given an animation in flight", t, func() {
		a := spring.New()
		first := 0
		a.SetTarget(flyOff, spring.Commit, func() { first++ })
		for i := 0; i < 5; i++ {
			a.Step(frame)
		}
		mid := a.State()

		Convey("When a new target supersedes it", func() {
			second := 0
			a.SetTarget(model.Neutral, spring.SnapBack, func() { second++ })

			Convey("Then position is continuous", func() {
				So(a.State(), ShouldResemble, mid)
			})

			Convey("Then only the new callback fires", func() {
				run(a)
				So(first, ShouldEqual, 0)
				So(second, ShouldEqual, 1)
				So(a.State(), ShouldResemble, model.Neutral)
			})
		})

		Convey("When it is cancelled", func() {
			a.Cancel()
			a.Step(frame)

			Convey("Then it stays put and never fires", func() {
				So(a.Active(), ShouldBeFalse)
				So(a.State(), ShouldResemble, mid)
				So(first, ShouldEqual, 0)
			})
		})

		Convey("When it jumps", func() {
			a.Jump(model.Neutral)
			So(a.State(), ShouldResemble, model.Neutral)
			So(a.Active(), ShouldBeFalse)
			So(first, ShouldEqual, 0)
		})
	})
}

func TestAnimatorIdempotentTarget(t *testing.T) {
	Convey("Given two animators from the same pose", t, func() {
		once := spring.New()
		twice := spring.New()
		onceFired, twiceFired := 0, 0

		Convey("When one receives the target once and the other twice in a row", func() {
			once.SetTarget(flyOff, spring.Commit, func() { onceFired++ })
			twice.SetTarget(flyOff, spring.Commit, func() { twiceFired++ })
			twice.SetTarget(flyOff, spring.Commit, func() { twiceFired++ })
			run(once)
			run(twice)

			Convey("Then both settle identically with one callback each", func() {
				So(twice.State(), ShouldResemble, once.State())
				So(onceFired, ShouldEqual, 1)
				So(twiceFired, ShouldEqual, 1)
			})
		})
	})
}

func TestAnimatorEdgeCases(t *testing.T) {
	Convey("Given an animator with a short max duration", t, func() {
		a := spring.New(spring.WithMaxDuration(50 * time.Millisecond))
		fired := 0
		a.SetTarget(flyOff, spring.Commit, func() { fired++ })

		Convey("When frames exceed the bound", func() {
			for i := 0; i < 4; i++ {
				a.Step(frame)
			}

			Convey("Then the fallback snaps onto the target and fires once", func() {
				So(a.Active(), ShouldBeFalse)
				So(a.State(), ShouldResemble, flyOff)
				So(fired, ShouldEqual, 1)
			})
		})
	})

	Convey("Given malformed numeric input", t, func() {
		a := spring.New()
		fired := false
		a.SetTarget(model.AnimationState{
			OffsetX:     math.NaN(),
			OffsetY:     math.Inf(-1),
			RotationDeg: 10,
			Scale:       1,
		}, spring.Config{Stiffness: math.NaN(), Damping: -1}, func() { fired = true })

		Convey("Then NaN and Inf are clamped to zero and defaults are used", func() {
			So(a.Target().OffsetX, ShouldEqual, 0)
			So(a.Target().OffsetY, ShouldEqual, 0)
			run(a)
			So(fired, ShouldBeTrue)
			s := a.State()
			So(math.IsNaN(s.OffsetX), ShouldBeFalse)
			So(s.RotationDeg, ShouldEqual, 10)
		})
	})

	Convey("Given non-positive frame deltas", t, func() {
		a := spring.New()
		a.SetTarget(flyOff, spring.Tracking, nil)
		a.Step(0)
		a.Step(-time.Second)
		So(a.State(), ShouldResemble, model.Neutral)
		So(a.Active(), ShouldBeTrue)
	})

	Convey("Given a callback that sets a new target", t, func() {
		a := spring.New()
		back := 0
		a.SetTarget(flyOff, spring.Commit, func() {
			a.SetTarget(model.Neutral, spring.SnapBack, func() { back++ })
		})
		run(a)

		Convey("Then the chained animation runs to completion", func() {
			So(back, ShouldEqual, 1)
			So(a.State(), ShouldResemble, model.Neutral)
		})
	})

	Convey("Given a custom initial pose and timestep", t, func() {
		start := model.AnimationState{OffsetX: 10, Scale: 1}
		a := spring.New(spring.WithInitial(start), spring.WithTimestep(2*time.Millisecond))
		So(a.State(), ShouldResemble, start)
		a.SetTarget(model.Neutral, spring.Tracking, nil)
		run(a)
		So(a.State(), ShouldResemble, model.Neutral)
	})
}
