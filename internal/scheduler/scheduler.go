package scheduler

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
)

type pending struct {
	due    int
	seq    int
	resume func() error
}

// Ticker is a logical clock with continuations waiting on it. It is safe for
// concurrent use; continuations may schedule further continuations.
type Ticker struct {
	mu      sync.Mutex
	now     int
	seq     int
	waiting []pending
}

// NewTicker creates a ticker at tick zero.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Schedule registers resume to run on the ticks-th following Tick. Zero and
// negative counts mean the next Tick.
func (t *Ticker) Schedule(ticks int, resume func() error) {
	if ticks < 1 {
		ticks = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.waiting = append(t.waiting, pending{due: t.now + ticks, seq: t.seq, resume: resume})
}

// Now returns the number of ticks so far.
func (t *Ticker) Now() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// Pending returns how many continuations are waiting.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiting)
}

// Tick advances the clock by one and runs the continuations that became due,
// in the order they were scheduled. Errors are joined; one failing
// continuation does not stop the others. Cancellation is checked between
// continuations; the ones not yet run stay waiting and run on the next Tick.
func (t *Ticker) Tick(ctx context.Context) error {
	t.mu.Lock()
	t.now++
	var due, rest []pending
	for _, p := range t.waiting {
		if p.due <= t.now {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	t.waiting = rest
	now := t.now
	t.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].seq < due[j].seq })
	if len(due) > 0 {
		ctxlog.FromContext(ctx).Debug("Running due continuations.", "tick", now, "count", len(due))
	}

	var errs []error
	for i, p := range due {
		if err := ctx.Err(); err != nil {
			t.requeue(due[i:])
			return errors.Join(append(errs, err)...)
		}
		if err := p.resume(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// requeue puts continuations back, ahead of the ones scheduled meanwhile.
func (t *Ticker) requeue(ps []pending) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waiting = append(slices.Clone(ps), t.waiting...)
}

// Drain ticks until no continuation is waiting or max ticks have passed.
// It returns the number of ticks taken.
func (t *Ticker) Drain(ctx context.Context, max int) (int, error) {
	var errs []error
	n := 0
	for ; n < max && t.Pending() > 0; n++ {
		if err := t.Tick(ctx); err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return n, errors.Join(errs...)
}
