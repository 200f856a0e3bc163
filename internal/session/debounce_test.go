package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalesces(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(20*time.Millisecond, func() { fired.Add(1) })

	for i := 0; i < 5; i++ {
		d.Call()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(time.Hour, func() { fired.Add(1) })

	d.Call()
	d.Flush()
	if got := fired.Load(); got != 1 {
		t.Errorf("flush fired %d times, want 1", got)
	}

	// Flush without a pending call is a no-op.
	d.Flush()
	if got := fired.Load(); got != 1 {
		t.Errorf("idle flush fired, count %d", got)
	}
}

func TestDebouncerSuspendResume(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(10*time.Millisecond, func() { fired.Add(1) })

	d.Suspend()
	d.Call()
	time.Sleep(40 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("suspended debouncer fired")
	}

	d.Resume()
	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("resumed debouncer fired %d times, want 1", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(10*time.Millisecond, func() { fired.Add(1) })

	d.Call()
	d.Cancel()
	time.Sleep(40 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled debouncer fired")
	}
}
