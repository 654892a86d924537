package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicker_RunsInDueOrder(t *testing.T) {
	ctx := context.Background()
	tk := NewTicker()
	var got []string
	tk.Schedule(2, func() error { got = append(got, "b"); return nil })
	tk.Schedule(1, func() error { got = append(got, "a"); return nil })
	tk.Schedule(0, func() error { got = append(got, "zero"); return nil })
	tk.Schedule(2, func() error { got = append(got, "c"); return nil })

	require.NoError(t, tk.Tick(ctx))
	assert.Equal(t, []string{"a", "zero"}, got)
	require.NoError(t, tk.Tick(ctx))
	assert.Equal(t, []string{"a", "zero", "b", "c"}, got)
	assert.Equal(t, 0, tk.Pending())
	assert.Equal(t, 2, tk.Now())
}

func TestTicker_NestedScheduleAndErrors(t *testing.T) {
	ctx := context.Background()
	tk := NewTicker()
	boom := errors.New("boom")
	ran := 0
	tk.Schedule(1, func() error {
		tk.Schedule(1, func() error { ran++; return nil })
		return boom
	})
	tk.Schedule(1, func() error { ran++; return nil })

	err := tk.Tick(ctx)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ran, "a failing continuation must not stop the others")

	n, err := tk.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, ran)
}

func TestTicker_CancelKeepsUnrunContinuations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tk := NewTicker()
	var got []string
	tk.Schedule(1, func() error { got = append(got, "a"); cancel(); return nil })
	tk.Schedule(1, func() error { got = append(got, "b"); return nil })
	tk.Schedule(1, func() error { got = append(got, "c"); return nil })
	tk.Schedule(3, func() error { got = append(got, "later"); return nil })

	err := tk.Tick(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 3, tk.Pending(), "continuations not run yet stay waiting")

	require.NoError(t, tk.Tick(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 1, tk.Pending())
}

func TestQueue_SerializesWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue()
	served := make(chan error, 1)
	go func() { served <- q.Run(ctx) }()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// No lock: the queue runs one job at a time.
			assert.NoError(t, q.Submit(ctx, func() error { counter++; return nil }))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	err := q.Submit(ctx, func() error { panic("bad") })
	require.ErrorContains(t, err, "panicked")

	q.Close()
	require.NoError(t, <-served)
	require.ErrorIs(t, q.Submit(ctx, func() error { return nil }), ErrQueueClosed)
}
