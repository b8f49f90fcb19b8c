// Package syncer drives synchronization of every locale directory under
// a resource root against the canonical resource file.
//
// Directories are processed strictly sequentially. A failure in one
// directory is recorded in the summary and does not stop the others;
// the only fatal conditions are an unreadable canonical file and an
// unreadable resource root.
package syncer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/minios-linux/strsync/config"
	"github.com/minios-linux/strsync/langmeta"
	"github.com/minios-linux/strsync/lockfile"
	"github.com/minios-linux/strsync/merge"
	"github.com/minios-linux/strsync/resfile"
)

// Options control a synchronization run.
type Options struct {
	Config config.Config

	// Extractor overrides the default pattern extractor.
	Extractor resfile.Extractor

	// Langs restricts the run to these locales. Standard (pt-BR),
	// underscore (pt_BR) and directory (pt-rBR) forms are accepted.
	Langs []string

	// DryRun computes and reports without writing anything.
	DryRun bool

	// Lock, when set, records content checksums per translated key and
	// flags stale translations. It never changes what sync writes.
	Lock *lockfile.LockFile

	// Logf and Warnf receive progress and diagnostic messages.
	// Nil callbacks are dropped.
	Logf  func(format string, args ...any)
	Warnf func(format string, args ...any)
}

// DirResult describes the outcome for one locale directory.
type DirResult struct {
	Dir     string // directory name, e.g. "values-de"
	Locale  string // standard code, e.g. "de"
	Path    string // target resource file
	Done    int    // entries that kept an existing translation
	Pending int    // entries written with marker-prefixed fallback
	Stale   []string
	Written bool
	Err     error
}

// Summary aggregates one synchronization run.
type Summary struct {
	CanonicalPath string
	Targets       []DirResult
	Skipped       []string // locale dirs without a resource file
	MultiLine     []string // canonical keys whose entries span lines
	Failed        int
}

// ListTargets returns the locale directories under the resource root
// that a run with these languages would consider, sorted by name.
func ListTargets(cfg config.Config, langs []string) ([]string, error) {
	entries, err := os.ReadDir(cfg.AbsResourceRoot())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.AbsResourceRoot(), err)
	}
	var dirs []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, cfg.LocalePrefix) {
			continue
		}
		if !MatchLocale(cfg.LocalePrefix, name, langs) {
			continue
		}
		dirs = append(dirs, name)
	}
	return dirs, nil
}

// Run synchronizes every matching locale directory. The returned error
// is fatal; per-directory failures are reported in the summary and
// counted in Failed.
func Run(opts Options) (*Summary, error) {
	cfg := opts.Config
	ext := opts.Extractor
	if ext == nil {
		ext = resfile.PatternExtractor{}
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	warnf := opts.Warnf
	if warnf == nil {
		warnf = func(string, ...any) {}
	}

	canonicalPath := cfg.AbsCanonicalPath()
	data, err := os.ReadFile(canonicalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("canonical file not found: %s", canonicalPath)
		}
		return nil, fmt.Errorf("reading %s: %w", canonicalPath, err)
	}

	lines := resfile.SplitLines(data)
	canonicalTable := ext.Extract(data)

	sum := &Summary{CanonicalPath: canonicalPath}

	// Entries the line rewriter cannot reach are diagnosed up front;
	// their lines pass through unchanged in every target.
	lineKeys := resfile.LineKeys(lines)
	for key := range canonicalTable {
		if !lineKeys[key] {
			sum.MultiLine = append(sum.MultiLine, key)
		}
	}
	sort.Strings(sum.MultiLine)
	for _, key := range sum.MultiLine {
		warnf("entry %q spans multiple lines; its lines pass through unchanged", key)
	}

	entries, err := os.ReadDir(cfg.AbsResourceRoot())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.AbsResourceRoot(), err)
	}

	seenLockTargets := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, cfg.LocalePrefix) {
			continue
		}
		if !MatchLocale(cfg.LocalePrefix, name, opts.Langs) {
			continue
		}

		target := cfg.TargetPath(name)
		targetData, err := os.ReadFile(target)
		if err != nil {
			if os.IsNotExist(err) {
				sum.Skipped = append(sum.Skipped, name)
				continue
			}
			sum.Targets = append(sum.Targets, DirResult{
				Dir:  name,
				Path: target,
				Err:  fmt.Errorf("reading %s: %w", target, err),
			})
			sum.Failed++
			continue
		}

		logf("Syncing %s...", name)

		locale, _ := resfile.DirLocale(cfg.LocalePrefix, name)
		targetTable := ext.Extract(targetData)
		res := merge.Reconcile(lines, targetTable, cfg.PendingMarker)
		// Entries that exist only in this locale survive the rewrite.
		out := merge.CarryOrphans(res.Lines, resfile.SplitLines(targetData), canonicalTable)

		dr := DirResult{
			Dir:     name,
			Locale:  locale,
			Path:    target,
			Done:    len(res.Done),
			Pending: len(res.Pending),
		}

		if opts.Lock != nil {
			lockTarget := lockfile.TargetKey(cfg.TargetKeyPath(name))
			seenLockTargets[lockTarget] = true
			// Marker-prefixed values are placeholders, not translations;
			// they are never recorded and fall out of the lock via Clean.
			translated := make([]string, 0, len(res.Done))
			for _, key := range res.Done {
				if strings.HasPrefix(targetTable[key], cfg.PendingMarker) {
					continue
				}
				translated = append(translated, key)
				if opts.Lock.Observe(lockTarget, key, canonicalTable[key], targetTable[key]) {
					dr.Stale = append(dr.Stale, key)
				}
			}
			opts.Lock.Clean(lockTarget, translated)
			for _, key := range dr.Stale {
				warnf("%s: translation of %q predates the current canonical text", name, key)
			}
		}

		output := strings.Join(out, "")
		switch {
		case output == string(targetData):
			logf("%s: up to date", name)
		case opts.DryRun:
			logf("%s: would update (%d translated, %d pending)", name, dr.Done, dr.Pending)
		default:
			if err := os.WriteFile(target, []byte(output), 0644); err != nil {
				dr.Err = fmt.Errorf("writing %s: %w", target, err)
				sum.Failed++
				sum.Targets = append(sum.Targets, dr)
				continue
			}
			dr.Written = true
		}

		sum.Targets = append(sum.Targets, dr)
	}

	if opts.Lock != nil && !opts.DryRun {
		// Lock targets for directories that no longer exist are pruned,
		// but only on unfiltered runs; a --lang run must not drop the
		// records of excluded locales.
		if len(opts.Langs) == 0 {
			for _, t := range opts.Lock.Targets() {
				if !seenLockTargets[t] {
					opts.Lock.RemoveTarget(t)
				}
			}
		}
		if err := opts.Lock.Save(); err != nil {
			warnf("%v", err)
		}
	}

	return sum, nil
}

// MatchLocale reports whether the locale directory name matches one of
// the requested locales. Standard (pt-BR), underscore (pt_BR), directory
// suffix (pt-rBR) and full directory (values-pt-rBR) forms are accepted.
// An empty request matches everything.
func MatchLocale(prefix, dir string, langs []string) bool {
	if len(langs) == 0 {
		return true
	}
	locale, _ := resfile.DirLocale(prefix, dir)
	for _, l := range langs {
		switch {
		case l == dir:
			return true
		case prefix+l == dir:
			return true
		case locale != "" && langmeta.Canonical(l) == locale:
			return true
		}
	}
	return false
}
