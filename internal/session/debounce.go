package session

import (
	"sync"
	"time"
)

// debouncer coalesces rapid edit notifications into a single checkpoint after
// a quiet period. A new call resets the timer rather than queuing another
// checkpoint. The callback never runs concurrently with itself.
type debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	timer     *time.Timer
	pending   bool
	suspended bool
	seq       uint64 // invalidates stale timer callbacks
	callback  func()
}

func newDebouncer(delay time.Duration, callback func()) *debouncer {
	return &debouncer{delay: delay, callback: callback}
}

// Call schedules the callback after the debounce delay, resetting any
// previously scheduled run. Calls while suspended are remembered and fire
// after Resume.
func (d *debouncer) Call() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	if d.suspended {
		return
	}
	d.scheduleLocked()
}

func (d *debouncer) scheduleLocked() {
	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if !d.pending || d.seq != currentSeq || d.suspended {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.mu.Unlock()
		d.callback()
	})
}

// Flush runs the callback immediately if a call is pending, canceling any
// scheduled run.
func (d *debouncer) Flush() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++

	if d.pending && !d.suspended {
		d.pending = false
		d.mu.Unlock()
		d.callback()
		return
	}
	d.mu.Unlock()
}

// Suspend stops the callback from firing until Resume. A pending call is
// retained, not dropped.
func (d *debouncer) Suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.suspended = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Resume re-enables the debouncer, rescheduling any call that arrived while
// suspended.
func (d *debouncer) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.suspended {
		return
	}
	d.suspended = false
	if d.pending {
		d.scheduleLocked()
	}
}

// Cancel drops any pending call.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}
