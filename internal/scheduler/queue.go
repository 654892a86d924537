package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQueueClosed is returned by Submit once the queue has been closed.
var ErrQueueClosed = errors.New("queue is closed")

type job struct {
	fn   func() error
	done chan error
}

// Queue runs submitted functions one at a time on the goroutine serving Run.
type Queue struct {
	jobs      chan job
	closed    chan struct{}
	closeOnce sync.Once
}

// NewQueue creates an open queue. Nothing runs until Run is called.
func NewQueue() *Queue {
	return &Queue{
		jobs:   make(chan job),
		closed: make(chan struct{}),
	}
}

// Run serves submitted work on the calling goroutine until ctx is done or
// the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.closed:
			return nil
		case j := <-q.jobs:
			j.done <- runJob(j.fn)
		}
	}
}

func runJob(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queued work panicked: %v", r)
		}
	}()
	return fn()
}

// Submit hands fn to the serving goroutine and waits for its result.
func (q *Queue) Submit(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closed:
		return ErrQueueClosed
	case q.jobs <- j:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-j.done:
		return err
	}
}

// Close stops Run. Pending submitters receive ErrQueueClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
