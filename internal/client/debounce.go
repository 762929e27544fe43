package client

import (
	"sync"
	"time"
)

// DefaultDebounce is the delay between the last keystroke and a search.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs only the most recent of a burst of triggers, once the
// delay has passed without a newer one.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	running sync.WaitGroup
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, cancelling any call still pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()

	d.running.Add(1)
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.running.Done()
		fn()
	})
}

// Flush runs a pending call immediately instead of waiting for the delay,
// then waits for any call already in progress.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	var fn func()
	if d.timer != nil && d.timer.Stop() {
		fn = d.pending
	}
	d.timer, d.pending = nil, nil
	d.mu.Unlock()

	if fn != nil {
		fn()
		d.running.Done()
	}
	d.running.Wait()
}

// Stop cancels a pending call. It does not wait for one already running.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.running.Done()
	}
	d.timer, d.pending = nil, nil
}
