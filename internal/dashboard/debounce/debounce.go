// Package debounce delays a callback until its input has been quiet for a period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer calls fn with the last value passed to Trigger once no further
// Trigger has happened for the configured delay.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu         sync.Mutex
	timer      *time.Timer
	pending    T
	hasPending bool
	// seq identifies the latest Trigger so a superseded timer that already
	// fired cannot deliver a stale value.
	seq     uint64
	stopped bool
}

func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v and restarts the quiet period.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending = v
	d.hasPending = true
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush delivers the pending value immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	d.fn(v)
}

// Stop discards any pending value. Later Triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.take()
}

// Pending reports whether a value is waiting for the quiet period to end.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || !d.hasPending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	d.fn(v)
}

// take clears the pending value and timer. Must be called with mu held.
func (d *Debouncer[T]) take() T {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.pending
	var zero T
	d.pending = zero
	d.hasPending = false
	d.seq++
	return v
}
