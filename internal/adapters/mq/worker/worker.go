package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/swipe/internal/adapters/mq/queue"
	"github.com/okian/swipe/pkg/logger"
	"github.com/okian/swipe/pkg/metrics"
)

const defaultFrameInterval = time.Second / 60

// Queue defines how the loop receives tasks.
type Queue interface {
	Enqueue(ctx context.Context, t queue.Task) error
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Loop runs posted tasks and frame ticks one at a time on a single
// goroutine. Everything that touches engine state goes through it.
type Loop struct {
	queue         Queue
	name          string
	frameInterval time.Duration
	logger        logger.Logger

	// Only touched on the loop goroutine.
	subs      map[uint64]func(time.Duration)
	nextSub   uint64
	lastFrame time.Time
	frames    uint64

	running  atomic.Bool
	tasks    atomic.Uint64
	shutdown chan struct{}
	done     chan struct{}
}

// NewLoop creates a loop reading tasks from q.
func NewLoop(q Queue, opts ...Option) *Loop {
	l := &Loop{
		queue:         q,
		name:          "loop",
		frameInterval: defaultFrameInterval,
		subs:          make(map[uint64]func(time.Duration)),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named(l.name)
	}
	return l
}

// Run processes tasks and frame ticks until ctx is cancelled, Shutdown is
// called or the queue is closed.
func (l *Loop) Run(ctx context.Context) {
	l.running.Store(true)
	defer func() {
		l.running.Store(false)
		close(l.done)
	}()

	ticker := time.NewTicker(l.frameInterval)
	defer ticker.Stop()
	l.lastFrame = time.Now()
	tasks := l.queue.Dequeue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			l.runTask(ctx, task)
		case now := <-ticker.C:
			l.tick(ctx, now)
		}
	}
}

func (l *Loop) runTask(ctx context.Context, task queue.Task) {
	metrics.RecordLoopTaskLatency(float64(time.Since(task.EnqueuedAt).Milliseconds()))
	l.tasks.Add(1)
	l.safely(ctx, "task", task.Run)
}

func (l *Loop) tick(ctx context.Context, now time.Time) {
	dt := now.Sub(l.lastFrame)
	l.lastFrame = now
	l.frames++
	for id, fn := range l.subs {
		// A subscriber may unsubscribe others during the tick.
		if _, ok := l.subs[id]; !ok {
			continue
		}
		l.safely(ctx, "frame", func() { fn(dt) })
	}
}

// safely runs fn and keeps the loop alive if it panics.
func (l *Loop) safely(ctx context.Context, kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error(ctx, "loop callback panicked",
				logger.String("kind", kind),
				logger.Any("panic", r),
			)
		}
	}()
	fn()
}

// Post queues fn to run on the loop. It never blocks.
func (l *Loop) Post(fn func()) bool {
	if err := l.queue.Enqueue(context.Background(), queue.Task{Run: fn, EnqueuedAt: time.Now()}); err != nil {
		l.logger.Warn(context.Background(), "loop refused task", logger.Error(err))
		return false
	}
	return true
}

// Go runs fn on its own goroutine, off the loop.
func (l *Loop) Go(fn func()) {
	go l.safely(context.Background(), "background", fn)
}

// Do runs fn on the loop and waits for it to finish. A task queued before
// Run starts waits for it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := queue.Task{Run: func() {
		defer close(done)
		fn()
	}, EnqueuedAt: time.Now()}
	if err := l.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Subscribe registers fn to run on every frame tick with the time since
// the previous tick. It and the returned unsubscribe func must be called
// on the loop.
func (l *Loop) Subscribe(fn func(time.Duration)) func() {
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() { delete(l.subs, id) }
}

// Subscribers returns the number of frame subscribers. Call on the loop.
func (l *Loop) Subscribers() int { return len(l.subs) }

// Frames returns the number of ticks delivered. Call on the loop.
func (l *Loop) Frames() uint64 { return l.frames }

// TasksRun returns the number of tasks executed so far.
func (l *Loop) TasksRun() uint64 { return l.tasks.Load() }

// Running reports whether Run is active.
func (l *Loop) Running() bool { return l.running.Load() }

// Shutdown stops the loop and waits for the current task to finish.
func (l *Loop) Shutdown(ctx context.Context) error {
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
