// Package watch re-runs synchronization whenever the canonical file or
// a locale resource file changes on disk.
package watch

import (
	"sort"
	"sync"
	"time"
)

// debouncer coalesces rapid filesystem events into one batch. Each Add
// restarts the quiet window; once it expires with no further adds,
// flush receives the distinct paths seen, sorted.
type debouncer struct {
	window time.Duration
	flush  func(paths []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

func newDebouncer(window time.Duration, flush func(paths []string)) *debouncer {
	return &debouncer{
		window:  window,
		flush:   flush,
		pending: make(map[string]struct{}),
	}
}

// Add records a changed path and restarts the quiet window.
// Duplicate paths within one window are coalesced.
func (d *debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}

	// Stop may miss a timer that already fired; fire checks pending and
	// exits when a concurrent Add already drained it.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	d.mu.Unlock()

	sort.Strings(paths)
	d.flush(paths)
}

// Stop cancels any armed timer and discards pending paths.
// Adds after Stop are ignored.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
