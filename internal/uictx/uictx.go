// Package uictx provides the single synchronization context onto which every
// furni index mutation is marshaled, whatever goroutine delivered the event.
package uictx

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Invoke once the dispatcher has stopped.
var ErrStopped = errors.New("uictx: dispatcher stopped")

// Context serializes work onto one logical thread.
type Context interface {
	// Post schedules fn and returns immediately. Safe to call from the context itself.
	Post(fn func())
	// Invoke schedules fn and waits for it to complete.
	//
	// Precondition: must not be called from work already running on the context.
	Invoke(ctx context.Context, fn func()) error
}

// Inline runs work immediately on the calling goroutine. It provides the
// single-writer guarantee only when all callers share one goroutine, as in
// tests and single-threaded tools.
type Inline struct{}

// Post runs fn immediately.
func (Inline) Post(fn func()) { fn() }

// Invoke runs fn immediately.
func (Inline) Invoke(_ context.Context, fn func()) error {
	fn()
	return nil
}

// Dispatcher drains an unbounded FIFO of work items on a single goroutine.
// All methods are safe for concurrent use.
type Dispatcher struct {
	logger *zap.Logger

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher. Work is not executed until Run is called.
//
// Precondition: logger must be non-nil.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post enqueues fn. Work posted after Stop is dropped.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.logger.Debug("dropping work posted after stop")
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Invoke enqueues fn and blocks until it has run, ctx is done, or the
// dispatcher stops.
//
// Postcondition: Returns nil iff fn ran to completion.
func (d *Dispatcher) Invoke(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.queue = append(d.queue, func() {
		defer close(ran)
		fn()
	})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}

	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

// Run executes queued work in FIFO order until ctx is cancelled or Stop is called.
// A panicking work item is logged and does not stop the loop.
//
// Precondition: Run must be called at most once.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	for {
		for {
			fn, ok := d.next()
			if !ok {
				break
			}
			d.exec(fn)
		}

		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			return nil
		}

		select {
		case <-ctx.Done():
			d.Stop()
			return ctx.Err()
		case <-d.wake:
		}
	}
}

// Stop prevents new work from being queued. Work already queued still runs.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) next() (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil, false
	}
	fn := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return fn, true
}

func (d *Dispatcher) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatched work panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
