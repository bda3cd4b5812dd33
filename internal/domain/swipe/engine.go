// Package swipe composes the gesture interpreter, spring animator, decision
// policy, evaluation session and vote coordinator behind the inputs a
// renderer sends and the per-frame snapshot it draws.
//
// An Engine is not safe for concurrent use. All inputs, frame ticks and
// network completions must arrive on the same event loop.
package swipe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/swipe/internal/domain/decision"
	"github.com/okian/swipe/internal/domain/gesture"
	"github.com/okian/swipe/internal/domain/model"
	"github.com/okian/swipe/internal/domain/session"
	"github.com/okian/swipe/internal/domain/spring"
	"github.com/okian/swipe/internal/domain/vote"
	"github.com/okian/swipe/pkg/logger"
	"github.com/okian/swipe/pkg/metrics"
)

const (
	defaultClickSlop      = 10.0
	defaultViewportWidth  = 500.0
	defaultMinEvaluations = 5
	cardCategories        = 3

	flyOffFactor   = 1.2
	flyOffLift     = -100.0
	flyOffRotation = 45.0
	flyOffScale    = 0.8
)

// FrameSource calls subscribers once per rendered frame with the elapsed
// time since the previous frame.
type FrameSource interface {
	Subscribe(fn func(dt time.Duration)) (unsubscribe func())
}

// Springs groups the three spring configurations the card uses.
type Springs struct {
	Tracking spring.Config
	Commit   spring.Config
	SnapBack spring.Config
}

// DefaultSprings returns the stock configurations.
func DefaultSprings() Springs {
	return Springs{Tracking: spring.Tracking, Commit: spring.Commit, SnapBack: spring.SnapBack}
}

// Engine is the swipe evaluation engine.
type Engine struct {
	ctx    context.Context
	sess   *session.Session
	votes  *vote.Coordinator
	frames FrameSource
	logger logger.Logger

	anim        *spring.Animator
	gest        *gesture.Interpreter
	animOpts    []spring.Option
	gestureOpts []gesture.Option

	thresholds     decision.Thresholds
	springs        Springs
	clickSlop      float64
	viewportWidth  float64
	minEvaluations int
	newID          func() string
	now            func() time.Time

	unsubscribe func()
	detail      *model.Candidate
	frame       uint64
}

// New creates an engine over a session and vote coordinator that share the
// engine's event loop.
func New(ctx context.Context, sess *session.Session, votes *vote.Coordinator, frames FrameSource, opts ...Option) *Engine {
	if ctx == nil {
		ctx = context.Background()
	}
	e := &Engine{
		ctx:            ctx,
		sess:           sess,
		votes:          votes,
		frames:         frames,
		thresholds:     decision.Default(),
		springs:        DefaultSprings(),
		clickSlop:      defaultClickSlop,
		viewportWidth:  defaultViewportWidth,
		minEvaluations: defaultMinEvaluations,
		newID:          uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	e.anim = spring.New(e.animOpts...)
	e.gest = gesture.New(append(e.gestureOpts, gesture.WithSink(trackSink{e}))...)
	return e
}

// trackSink feeds live drag poses to the animator with the tracking spring.
type trackSink struct{ e *Engine }

func (t trackSink) Track(pose model.AnimationState) {
	t.e.anim.SetTarget(pose, t.e.springs.Tracking, nil)
	t.e.syncFrames()
}

// Start requests the first batch of candidates.
func (e *Engine) Start() {
	if e.sess.Request() {
		e.logger.Info(e.ctx, "evaluation started")
	}
}

// StartGesture begins a drag on the current card. A drag that starts while
// the previous card is still flying off completes that exit at once and
// grabs the next card.
func (e *Engine) StartGesture(p model.Point) bool {
	if e.detail != nil {
		return false
	}
	e.fastForward()
	if !e.sess.BeginDecision() {
		return false
	}
	e.gest.Start(p)
	return true
}

// UpdateGesture moves the active drag.
func (e *Engine) UpdateGesture(p model.Point) bool {
	if !e.gest.Active() || e.sess.State() != model.Deciding {
		return false
	}
	e.gest.Move(p)
	return true
}

// EndGesture releases the active drag and returns the resulting outcome.
// A release that barely moved opens the detail view instead.
func (e *Engine) EndGesture(p model.Point) model.Outcome {
	if !e.gest.Active() || e.sess.State() != model.Deciding {
		return model.Cancel
	}
	g := e.gest.End(p)
	if g.Travel <= e.clickSlop {
		e.sess.Cancel()
		e.openDetail()
		e.snapBack()
		return model.Cancel
	}
	return e.resolve(g)
}

// LikeButton commits Accept on the current card.
func (e *Engine) LikeButton() bool { return e.press(model.Accept) }

// DislikeButton commits Reject on the current card.
func (e *Engine) DislikeButton() bool { return e.press(model.Reject) }

func (e *Engine) press(outcome model.Outcome) bool {
	if e.detail != nil {
		e.detail = nil
	}
	e.fastForward()
	switch e.sess.State() {
	case model.Deciding:
		e.gest.Abort()
	case model.Presenting:
		e.sess.BeginDecision()
	default:
		return false
	}
	return e.resolve(decision.Button(outcome, e.thresholds)) == outcome
}

func (e *Engine) resolve(g model.FinalGesture) model.Outcome {
	outcome := decision.Classify(g, e.thresholds)
	if outcome == model.Cancel {
		e.sess.Cancel()
		metrics.RecordCancel()
		e.snapBack()
		return model.Cancel
	}

	cand, ok := e.sess.Commit(outcome)
	if !ok {
		return model.Cancel
	}
	gen := e.sess.Generation()
	e.anim.SetTarget(e.flyOff(outcome), e.springs.Commit, func() { e.onExitSettled(gen, cand.ID()) })
	e.syncFrames()
	e.logger.Debug(e.ctx, "decision committed",
		logger.String("candidate", cand.ID()),
		logger.String("outcome", outcome.String()),
	)
	return outcome
}

func (e *Engine) onExitSettled(gen uint64, candidate string) {
	if gen != e.sess.Generation() {
		return
	}
	if cur, ok := e.sess.Current(); !ok || cur.ID() != candidate {
		return
	}
	e.advance()
}

// advance moves the session past the committed card and hands the vote to
// the coordinator without waiting for it.
func (e *Engine) advance() {
	done, outcome, ok := e.sess.Advance()
	if !ok {
		return
	}
	e.anim.Jump(model.Neutral)
	e.votes.Submit(model.Decision{
		ID:          e.newID(),
		CandidateID: done.ID(),
		Outcome:     outcome,
		SubmittedAt: e.now(),
	})
	e.syncFrames()
}

// fastForward finishes a pending exit immediately. The animator's settle
// callback is dropped so the advance happens exactly once.
func (e *Engine) fastForward() {
	if e.sess.State() != model.Submitting {
		return
	}
	e.anim.Cancel()
	e.advance()
}

func (e *Engine) snapBack() {
	e.anim.SetTarget(model.Neutral, e.springs.SnapBack, nil)
	e.syncFrames()
}

func (e *Engine) flyOff(outcome model.Outcome) model.AnimationState {
	sign := 1.0
	if outcome == model.Reject {
		sign = -1
	}
	return model.AnimationState{
		OffsetX:     sign * flyOffFactor * e.viewportWidth,
		OffsetY:     flyOffLift,
		RotationDeg: sign * flyOffRotation,
		Scale:       flyOffScale,
	}
}

func (e *Engine) openDetail() {
	cur, ok := e.sess.Current()
	if !ok {
		return
	}
	e.detail = &cur
	metrics.RecordClick()
}

// CloseDetail dismisses the detail view.
func (e *Engine) CloseDetail() bool {
	if e.detail == nil {
		return false
	}
	e.detail = nil
	return true
}

// Retry leaves the Error state, or resubmits failed votes when the session
// itself is healthy. Returns false when there was nothing to retry.
func (e *Engine) Retry() bool {
	if e.sess.Retry() {
		e.votes.DismissBanner()
		return true
	}
	return e.votes.RetryFailed() > 0
}

// Reset abandons the current run and starts a new one. Late completions
// from the abandoned run are ignored.
func (e *Engine) Reset() {
	e.gest.Abort()
	e.anim.Jump(model.Neutral)
	e.detail = nil
	e.sess.Reset()
	e.votes.Reset()
	e.syncFrames()
	e.logger.Info(e.ctx, "evaluation reset", logger.Uint64("generation", e.sess.Generation()))
	e.Start()
}

// Step advances the card animation by one frame.
func (e *Engine) Step(dt time.Duration) {
	e.frame++
	e.anim.Step(dt)
	e.syncFrames()
}

// syncFrames keeps the frame subscription alive only while a card is on
// screen or still moving.
func (e *Engine) syncFrames() {
	if e.frames == nil {
		return
	}
	live := e.sess.State().HasCurrent() || e.anim.Active()
	switch {
	case live && e.unsubscribe == nil:
		e.unsubscribe = e.frames.Subscribe(e.Step)
	case !live && e.unsubscribe != nil:
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Subscribed reports whether the engine currently receives frame ticks.
func (e *Engine) Subscribed() bool { return e.unsubscribe != nil }

// Close tears the card view down.
func (e *Engine) Close() {
	e.anim.Cancel()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}
