// Package scheduler runs a unit of work repeatedly with a fixed delay
// measured from the end of each run.
//
// The next run is armed only after the current one returns, so there is
// never more than one run in flight no matter how slow a run is. A run that
// returns an error stops the task.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Work is one unit of repeated work.
type Work func(ctx context.Context) error

// Handle controls a running task.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	err  error
	runs uint64
}

// Start runs work immediately, then again delay after each successful run.
// The task stops when work fails, ctx ends, or Cancel is called.
func Start(ctx context.Context, delay time.Duration, work Work) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop(ctx, delay, work)
	return h
}

func (h *Handle) loop(ctx context.Context, delay time.Duration, work Work) {
	defer close(h.done)
	defer h.cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.finish(ctx.Err())
			return
		case <-timer.C:
		}

		err := work(ctx)

		h.mu.Lock()
		h.runs++
		h.mu.Unlock()

		if err != nil {
			h.finish(err)
			return
		}

		timer.Reset(delay)
	}
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// Cancel stops the task. The run in progress, if any, sees its context
// cancelled. Safe to call more than once.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed when the task has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task stops and returns Err.
func (h *Handle) Wait() error {
	<-h.done
	return h.Err()
}

// Err returns why the task stopped: the work error, or the context error
// after cancellation. It is nil while running.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Runs returns how many times work has completed.
func (h *Handle) Runs() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs
}

// Cancelled reports whether err means the task was stopped rather than
// failed.
func Cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
