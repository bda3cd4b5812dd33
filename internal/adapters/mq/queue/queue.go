// Package queue holds the tasks waiting to run on the event loop.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/swipe/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Task is one unit of work for the event loop.
type Task struct {
	Run        func()
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task. It never blocks; a full or closed queue
	// refuses the task with ErrFull or ErrClosed.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue returns the channel tasks are delivered on. It is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the number of waiting tasks.
	Len(ctx context.Context) int

	// Close stops accepting tasks.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	metrics.UpdateLoopBacklog(0)
	return q
}

// Enqueue adds a task to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	// The read lock keeps Close from closing the channel under a send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordLoopDropped()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordLoopDropped()
		return err
	}
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}

	select {
	case q.tasks <- t:
		metrics.UpdateLoopBacklog(len(q.tasks))
		return nil
	default:
		metrics.RecordLoopDropped()
		return ErrFull
	}
}

// Dequeue returns the task channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	return q.tasks
}

// Len returns the number of waiting tasks.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	n := len(q.tasks)
	metrics.UpdateLoopBacklog(n)
	return n
}

// Close stops accepting tasks. Tasks already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
