package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/minios-linux/strsync/config"
)

const canonicalDoc = `<resources>
    <string name="app_name">Strsync Demo</string>
    <string name="greeting">Hello, %s!</string>
</resources>
`

const emptyDoc = `<resources>
</resources>
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newProject(t *testing.T, locales ...string) config.Config {
	t.Helper()
	cfg := config.Default(t.TempDir())
	writeFile(t, cfg.AbsCanonicalPath(), canonicalDoc)
	for _, dir := range locales {
		writeFile(t, cfg.TargetPath(dir), emptyDoc)
	}
	return cfg
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestNewRequiresResourceRoot(t *testing.T) {
	cfg := config.Default(t.TempDir())

	if _, err := New(Options{Config: cfg}); err == nil {
		t.Fatal("New succeeded without a resource root on disk")
	}
}

func TestContentChanged(t *testing.T) {
	cfg := newProject(t, "values-de")
	w, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	target := cfg.TargetPath("values-de")
	if !w.contentChanged(target) {
		t.Error("first sight of a file must count as changed")
	}
	if w.contentChanged(target) {
		t.Error("unchanged content reported as changed")
	}

	writeFile(t, target, "<resources>\n    <string name=\"x\">y</string>\n</resources>\n")
	if !w.contentChanged(target) {
		t.Error("modified content not reported as changed")
	}

	w.refreshHashes()
	if w.contentChanged(target) {
		t.Error("content reported as changed right after a snapshot refresh")
	}

	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}
	if !w.contentChanged(target) {
		t.Error("deleting a known file must count as changed")
	}
	if w.contentChanged(target) {
		t.Error("an unknown missing file must not count as changed")
	}
}

func TestHandleEventFiltering(t *testing.T) {
	cfg := newProject(t, "values-de")
	w, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.refreshHashes()

	var (
		mu      sync.Mutex
		batches [][]string
	)
	deb := newDebouncer(30*time.Millisecond, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})
	defer deb.Stop()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(batches)
	}
	target := cfg.TargetPath("values-de")

	// Chmod bursts, foreign file names and unchanged content are all
	// filtered before the debouncer.
	w.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Chmod}, deb)
	w.handleEvent(fsnotify.Event{
		Name: filepath.Join(cfg.AbsResourceRoot(), "values-de", "colors.xml"),
		Op:   fsnotify.Write,
	}, deb)
	w.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Write}, deb)
	time.Sleep(100 * time.Millisecond)
	if got := count(); got != 0 {
		t.Fatalf("got %d batches from irrelevant events, want 0", got)
	}

	writeFile(t, target, "<resources>\n    <string name=\"greeting\">Hallo!</string>\n</resources>\n")
	w.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Write}, deb)
	if !waitFor(t, time.Second, func() bool { return count() == 1 }) {
		t.Fatal("changed resource file did not reach the debouncer")
	}
}

func TestHandleEventNewLocaleDir(t *testing.T) {
	cfg := newProject(t, "values-de")
	w, err := New(Options{Config: cfg, Langs: []string{"de"}})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	var (
		mu      sync.Mutex
		batches [][]string
	)
	deb := newDebouncer(30*time.Millisecond, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})
	defer deb.Stop()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(batches)
	}

	// Filtered out by --lang.
	frDir := filepath.Join(cfg.AbsResourceRoot(), "values-fr")
	if err := os.Mkdir(frDir, 0755); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: frDir, Op: fsnotify.Create}, deb)
	time.Sleep(100 * time.Millisecond)
	if got := count(); got != 0 {
		t.Fatalf("filtered locale directory triggered %d batches, want 0", got)
	}

	// Not a locale directory at all.
	drawable := filepath.Join(cfg.AbsResourceRoot(), "drawable")
	if err := os.Mkdir(drawable, 0755); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: drawable, Op: fsnotify.Create}, deb)
	time.Sleep(100 * time.Millisecond)
	if got := count(); got != 0 {
		t.Fatalf("non-locale directory triggered %d batches, want 0", got)
	}

	// A matching new locale directory triggers a pass.
	w2, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	defer w2.Close()
	w2.handleEvent(fsnotify.Event{Name: frDir, Op: fsnotify.Create}, deb)
	if !waitFor(t, time.Second, func() bool { return count() == 1 }) {
		t.Fatal("new locale directory did not reach the debouncer")
	}
}

func TestRunSyncsOnChanges(t *testing.T) {
	cfg := newProject(t, "values-de")
	w, err := New(Options{Config: cfg, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	target := cfg.TargetPath("values-de")
	contains := func(sub string) func() bool {
		return func() bool {
			data, err := os.ReadFile(target)
			return err == nil && strings.Contains(string(data), sub)
		}
	}

	// Initial pass fills the empty target.
	if !waitFor(t, 5*time.Second, contains("TODO: Strsync Demo")) {
		t.Fatal("initial pass did not fill the target")
	}

	// A canonical edit propagates.
	writeFile(t, cfg.AbsCanonicalPath(), strings.Replace(canonicalDoc,
		"</resources>", "    <string name=\"farewell\">Goodbye</string>\n</resources>", 1))
	if !waitFor(t, 5*time.Second, contains("TODO: Goodbye")) {
		t.Fatal("canonical edit did not propagate to the target")
	}

	// A translation edit survives the next pass untouched.
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, target, strings.Replace(string(data),
		"TODO: Hello, %s!", "Hallo, %s!", 1))
	if !waitFor(t, 5*time.Second, contains("Hallo, %s!")) {
		t.Fatal("translation edit lost")
	}
	time.Sleep(300 * time.Millisecond)
	if !contains("Hallo, %s!")() {
		t.Fatal("translation edit reverted by a later pass")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestRunConverges(t *testing.T) {
	cfg := newProject(t, "values-de", "values-fr")

	var (
		mu    sync.Mutex
		syncs int
	)
	w, err := New(Options{
		Config:   cfg,
		Debounce: 50 * time.Millisecond,
		Logf: func(format string, args ...any) {
			if strings.HasPrefix(format, "Syncing ") {
				mu.Lock()
				syncs++
				mu.Unlock()
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return syncs
	}

	// Initial pass touches both locales.
	if !waitFor(t, 5*time.Second, func() bool { return count() >= 2 }) {
		t.Fatal("initial pass did not run")
	}

	// Our own writes must not feed back into further passes.
	settled := count()
	time.Sleep(500 * time.Millisecond)
	if got := count(); got != settled {
		t.Fatalf("watch kept syncing after convergence: %d -> %d", settled, got)
	}

	cancel()
	<-done
}
