package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/minios-linux/strsync/config"
	"github.com/minios-linux/strsync/lockfile"
	"github.com/minios-linux/strsync/syncer"
)

// DefaultDebounce is the quiet window applied to event bursts.
const DefaultDebounce = 500 * time.Millisecond

// Options control a watch session.
type Options struct {
	Config config.Config

	// Langs restricts watching and syncing to these locales.
	Langs []string

	// Lock, when set, is maintained across the triggered sync passes.
	Lock *lockfile.LockFile

	// Debounce is the quiet window for event bursts; DefaultDebounce
	// when zero.
	Debounce time.Duration

	Logf  func(format string, args ...any)
	Warnf func(format string, args ...any)
}

// Watcher re-runs synchronization when watched resource files change.
// All sync passes run on the event loop goroutine, strictly one at a
// time.
type Watcher struct {
	opts Options
	fsw  *fsnotify.Watcher

	// hashes snapshots file content after each sync pass so that
	// events caused by our own writes are filtered out. Touched only
	// from the event loop goroutine.
	hashes map[string]uint64
}

// New creates a watcher over the canonical file's directory, the
// resource root and every matching locale directory.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		opts:   opts,
		fsw:    fsw,
		hashes: make(map[string]uint64),
	}
	if err := w.addWatches(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addWatches() error {
	cfg := w.opts.Config

	canonicalDir := filepath.Dir(cfg.AbsCanonicalPath())
	if err := w.fsw.Add(canonicalDir); err != nil {
		return fmt.Errorf("watching %s: %w", canonicalDir, err)
	}

	// The resource root itself is watched so that newly created locale
	// directories are picked up.
	root := cfg.AbsResourceRoot()
	if err := w.fsw.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	dirs, err := syncer.ListTargets(cfg, w.opts.Langs)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		path := filepath.Join(root, dir)
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}
	return nil
}

// Run performs an initial sync pass and then blocks, re-running
// synchronization on changes, until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	changes := make(chan []string, 1)
	deb := newDebouncer(w.opts.Debounce, func(paths []string) {
		select {
		case changes <- paths:
		default:
			// A pass is already queued; it reads current disk state, so
			// this batch is covered by it.
		}
	})
	defer deb.Stop()

	w.sync()
	w.opts.Logf("Watching %s for changes (Ctrl+C to stop)", w.opts.Config.AbsResourceRoot())

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev, deb)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Warnf("%v", err)

		case paths := <-changes:
			for _, p := range paths {
				if rel, err := filepath.Rel(w.opts.Config.Root, p); err == nil {
					p = rel
				}
				w.opts.Logf("Change detected: %s", p)
			}
			w.sync()
		}
	}
}

// handleEvent decides whether a filesystem event warrants a sync pass
// and feeds the debouncer if so.
func (w *Watcher) handleEvent(ev fsnotify.Event, deb *debouncer) {
	cfg := w.opts.Config

	// A new locale directory under the resource root starts being
	// watched and triggers a pass so its resource file gets filled.
	if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == cfg.AbsResourceRoot() {
		name := filepath.Base(ev.Name)
		if !strings.HasPrefix(name, cfg.LocalePrefix) ||
			!syncer.MatchLocale(cfg.LocalePrefix, name, w.opts.Langs) {
			return
		}
		if info, err := os.Stat(ev.Name); err != nil || !info.IsDir() {
			return
		}
		if err := w.fsw.Add(ev.Name); err != nil {
			w.opts.Warnf("watching %s: %v", ev.Name, err)
			return
		}
		w.opts.Logf("Watching new locale directory: %s", name)
		deb.Add(ev.Name)
		return
	}

	if ev.Has(fsnotify.Chmod) {
		return
	}
	if filepath.Base(ev.Name) != cfg.ResourceFileName() {
		return
	}
	if !w.contentChanged(ev.Name) {
		return
	}
	deb.Add(ev.Name)
}

// contentChanged reports whether the file's content differs from the
// snapshot taken after the last sync pass, updating the snapshot.
// Editor chmod bursts, double writes and our own already-snapshotted
// writes all come out false here.
func (w *Watcher) contentChanged(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if _, known := w.hashes[path]; known {
			delete(w.hashes, path)
			return true
		}
		return false
	}
	sum := xxhash.Sum64(data)
	if old, ok := w.hashes[path]; ok && old == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

// sync runs one synchronization pass and refreshes the content
// snapshots so the pass's own writes do not trigger another one.
func (w *Watcher) sync() {
	sum, err := syncer.Run(syncer.Options{
		Config: w.opts.Config,
		Langs:  w.opts.Langs,
		Lock:   w.opts.Lock,
		Logf:   w.opts.Logf,
		Warnf:  w.opts.Warnf,
	})
	if err != nil {
		w.opts.Warnf("%v", err)
	} else {
		for _, t := range sum.Targets {
			if t.Err != nil {
				w.opts.Warnf("%v", t.Err)
			}
		}
	}
	w.refreshHashes()
}

func (w *Watcher) refreshHashes() {
	hashes := make(map[string]uint64)
	snapshot := func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		hashes[path] = xxhash.Sum64(data)
	}
	snapshot(w.opts.Config.AbsCanonicalPath())
	if dirs, err := syncer.ListTargets(w.opts.Config, w.opts.Langs); err == nil {
		for _, dir := range dirs {
			snapshot(w.opts.Config.TargetPath(dir))
		}
	}
	w.hashes = hashes
}
