// Package watch rewrites the metadata of binaries as a build writes them.
package watch

import (
	"slices"
	"sync"
	"time"
)

// MaxPending bounds the number of binaries waiting for a flush. Reaching it
// flushes immediately.
const MaxPending = 1000

// Debouncer collects changed binaries and hands them over in one batch once
// no change has arrived for a whole window. A linker writes its output in
// many small steps; only the final state is worth processing.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer. onFlush receives the sorted pending
// paths; it may run on the timer's goroutine.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change to path and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[path] = struct{}{}

	if len(d.pending) >= MaxPending {
		d.stopTimerLocked()
		paths := d.takeLocked()
		d.mu.Unlock()
		d.deliver(paths)
		return
	}

	// A timer that already fired finds an empty set and does nothing.
	d.stopTimerLocked()
	d.timer = time.AfterFunc(d.window, d.Flush)
	d.mu.Unlock()
}

// Flush hands over whatever is pending without waiting for the window.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.stopTimerLocked()
	var paths []string
	if !d.stopped {
		paths = d.takeLocked()
	}
	d.mu.Unlock()
	d.deliver(paths)
}

// Stop flushes what is pending and ignores later changes.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopTimerLocked()
	paths := d.takeLocked()
	d.stopped = true
	d.mu.Unlock()
	d.deliver(paths)
}

// Pending returns the number of paths waiting to be flushed.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// takeLocked empties the pending set. Caller must hold d.mu.
func (d *Debouncer) takeLocked() []string {
	if len(d.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	slices.Sort(paths)
	return paths
}

// deliver calls onFlush outside the lock.
func (d *Debouncer) deliver(paths []string) {
	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}
