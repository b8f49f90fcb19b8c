// strsync — Android string resource synchronizer: keeps values-*/strings.xml
// files in step with the canonical strings.xml.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/minios-linux/strsync/config"
	"github.com/minios-linux/strsync/i18n"
	"github.com/minios-linux/strsync/langmeta"
	"github.com/minios-linux/strsync/lockfile"
	"github.com/minios-linux/strsync/resfile"
	"github.com/minios-linux/strsync/syncer"
	"github.com/minios-linux/strsync/watch"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// osExit is indirected so command tests can observe fatal exits.
var osExit = os.Exit

// translateLogf adapts a log helper into a callback that localizes the
// format string before printing.
func translateLogf(log func(string, ...any)) func(string, ...any) {
	return func(format string, args ...any) {
		log(i18n.T(format), args...)
	}
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "strsync",
		Short: i18n.T("Keep Android string resources in sync across locales"),
		Long: `strsync — Android string resource synchronizer.

Keeps every values-*/strings.xml under a resource root aligned with the
canonical values/strings.xml: existing translations are preserved, new
keys are filled with the canonical text behind a pending marker, and
keys that exist only in a locale file are kept and reported, never
removed.

Commands:
  status      Show project info and translation statistics
  sync        Synchronize locale resource files with the canonical file
  watch       Re-run synchronization when resource files change`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))

	root.AddCommand(
		newStatusCmd(),
		newSyncCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		osExit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Shared configuration resolution
// ---------------------------------------------------------------------------

// configOverrides carries the command-line values layered on top of
// detection and .strsync.yaml.
type configOverrides struct {
	canonical string
	resRoot   string
	prefix    string
	marker    string
}

func addOverrideFlags(cmd *cobra.Command, o *configOverrides) {
	cmd.Flags().StringVar(&o.canonical, "canonical", "", i18n.T("Canonical resource file path, relative to the project root"))
	cmd.Flags().StringVar(&o.resRoot, "res-root", "", i18n.T("Resource root directory scanned for locale directories"))
	cmd.Flags().StringVar(&o.prefix, "prefix", "", i18n.T("Locale directory prefix"))
	cmd.Flags().StringVar(&o.marker, "marker", "", i18n.T("Marker prefixed to untranslated entries"))
}

// resolveConfig layers defaults, layout detection, .strsync.yaml and
// command-line overrides. The returned locales come from .strsync.yaml
// and are overridden by --lang at the call sites.
func resolveConfig(o configOverrides) (config.Config, []string) {
	cfg := config.Detect(rootDir)

	var langs []string
	sf, err := config.LoadSyncFile(cfg.Root)
	if err != nil {
		logWarning("%v", err)
	} else if sf != nil {
		cfg.Apply(sf)
		langs = sf.Languages
	}

	if o.canonical != "" {
		cfg.CanonicalPath = o.canonical
	}
	if o.resRoot != "" {
		cfg.ResourceRoot = o.resRoot
	}
	if o.prefix != "" {
		cfg.LocalePrefix = o.prefix
	}
	if o.marker != "" {
		cfg.PendingMarker = o.marker
	}
	return cfg, langs
}

// loadLock reads strsync.lock; read problems degrade to a warning and
// an unlocked run.
func loadLock(root string) *lockfile.LockFile {
	lock, err := lockfile.Load(root)
	if err != nil {
		logWarning("%v", err)
		return nil
	}
	return lock
}

// ---------------------------------------------------------------------------
// sync (align locale resource files with the canonical file)
// ---------------------------------------------------------------------------

type syncArgs struct {
	overrides configOverrides
	langs     string
	dryRun    bool
}

func newSyncCmd() *cobra.Command {
	var a syncArgs

	cmd := &cobra.Command{
		Use:   "sync",
		Short: i18n.T("Synchronize locale resource files with the canonical file"),
		Long: `Synchronize every locale resource file with the canonical file.

Non-entry lines (headers, comments, blank lines) are copied from the
canonical file as is. Entry lines keep the translation already present
in the locale file; keys without one get the canonical text prefixed
with the pending marker. Keys present only in a locale file are carried
over unchanged and listed by status as orphaned.

Examples:
  # Synchronize all locale directories
  strsync sync

  # Restrict to two locales
  strsync sync --lang de,pt-BR

  # Show what would change
  strsync sync --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			runSync(a)
		},
	}

	addOverrideFlags(cmd, &a.overrides)
	cmd.Flags().StringVar(&a.langs, "lang", "", i18n.T("Locales to process (comma-separated)"))
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, i18n.T("Show what would change without writing files"))

	return cmd
}

func runSync(a syncArgs) {
	cfg, langs := resolveConfig(a.overrides)
	if a.langs != "" {
		langs = strings.Split(a.langs, ",")
	}

	logInfo(i18n.T("Source: %s"), cfg.AbsCanonicalPath())
	if !fileExists(cfg.AbsCanonicalPath()) {
		logError(i18n.T("canonical file not found: %s"), cfg.AbsCanonicalPath())
		osExit(1)
	}

	dirs, err := syncer.ListTargets(cfg, langs)
	if err != nil {
		logError("%v", err)
		osExit(1)
	}
	if len(dirs) == 0 {
		logWarning(i18n.T("No target directories found under %s"), cfg.AbsResourceRoot())
		return
	}
	logInfo(i18n.N("Found %d target directory: %s", "Found %d target directories: %s", len(dirs)),
		len(dirs), strings.Join(dirs, ", "))

	sum, err := syncer.Run(syncer.Options{
		Config: cfg,
		Langs:  langs,
		DryRun: a.dryRun,
		Lock:   loadLock(cfg.Root),
		Logf:   translateLogf(logInfo),
		Warnf:  translateLogf(logWarning),
	})
	if err != nil {
		logError("%v", err)
		osExit(1)
	}

	for _, t := range sum.Targets {
		if t.Err != nil {
			logError("%v", t.Err)
		}
	}
	if sum.Failed > 0 {
		logError(i18n.T("%d of %d directories failed"), sum.Failed, len(sum.Targets))
		osExit(1)
	}

	if a.dryRun {
		logInfo(i18n.T("Dry run: no files were written."))
	} else {
		logSuccess(i18n.T("Synchronization complete."))
	}
}

// ---------------------------------------------------------------------------
// status (read-only: project info + translation stats)
// ---------------------------------------------------------------------------

type statusArgs struct {
	overrides configOverrides
	langs     string
}

func newStatusCmd() *cobra.Command {
	var a statusArgs

	cmd := &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show project info and translation statistics"),
		Long: `Show the resolved project layout and per-locale translation statistics.

Counts translated, pending (marker-prefixed) and missing entries per
locale, lists keys kept although they are gone from the canonical file,
and flags translations whose canonical text changed since they were
last touched. Does not modify any files.`,
		Run: func(cmd *cobra.Command, args []string) {
			runStatus(a)
		},
	}

	addOverrideFlags(cmd, &a.overrides)
	cmd.Flags().StringVar(&a.langs, "lang", "", i18n.T("Locales to process (comma-separated)"))

	return cmd
}

func runStatus(a statusArgs) {
	cfg, langs := resolveConfig(a.overrides)
	if a.langs != "" {
		langs = strings.Split(a.langs, ",")
	}

	absRoot, _ := filepath.Abs(cfg.Root)

	// Project info header
	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	fmt.Fprintf(os.Stderr, "  Root:       %s\n", absRoot)
	fmt.Fprintf(os.Stderr, "  Canonical:  %s\n", cfg.CanonicalPath)
	fmt.Fprintf(os.Stderr, "  Res root:   %s\n", cfg.ResourceRoot)
	fmt.Fprintf(os.Stderr, "  Prefix:     %s\n", cfg.LocalePrefix)
	fmt.Fprintf(os.Stderr, "  Marker:     %q\n", cfg.PendingMarker)

	syncFile := "none"
	if fileExists(filepath.Join(cfg.Root, config.SyncFileName)) {
		syncFile = config.SyncFileName
	}
	fmt.Fprintf(os.Stderr, "  Config:     %s\n", syncFile)

	lock := loadLock(cfg.Root)
	lockDesc := "none"
	if lock != nil && fileExists(lock.Path()) {
		files, keys := lock.Stats()
		lockDesc = fmt.Sprintf("%s (%d files, %d keys)", lockfile.LockFileName, files, keys)
	}
	fmt.Fprintf(os.Stderr, "  Lock:       %s\n", lockDesc)
	fmt.Fprintln(os.Stderr)

	canonicalPath := cfg.AbsCanonicalPath()
	if !fileExists(canonicalPath) {
		logInfo(i18n.T("No canonical resource file found at %s"), canonicalPath)
		return
	}
	data, err := os.ReadFile(canonicalPath)
	if err != nil {
		logError("%v", err)
		osExit(1)
	}

	canonicalTable := resfile.PatternExtractor{}.Extract(data)
	lineKeys := resfile.LineKeys(resfile.SplitLines(data))
	syncKeys := make([]string, 0, len(lineKeys))
	for key := range lineKeys {
		syncKeys = append(syncKeys, key)
	}
	sort.Strings(syncKeys)

	dirs, err := syncer.ListTargets(cfg, langs)
	if err != nil {
		logError("%v", err)
		osExit(1)
	}

	// Locales
	fmt.Fprintf(os.Stderr, "%sLocales%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "  none detected")
	}
	for _, dir := range dirs {
		locale, _ := resfile.DirLocale(cfg.LocalePrefix, dir)
		meta := langmeta.Resolve(locale)
		display := strings.TrimSpace(meta.Flag + " " + meta.Name)
		fmt.Fprintf(os.Stderr, "  %-16s %-8s %s\n", dir, locale, display)
	}
	fmt.Fprintln(os.Stderr)

	showStatsTable(cfg, canonicalTable, syncKeys, lock, dirs)
}

// localeStats holds per-locale counters for the status table.
type localeStats struct {
	dir    string
	locale string

	fileMissing bool

	translated int
	pending    int
	missing    int

	pendingKeys []string
	missingKeys []string
	orphans     []string
	stale       []string
}

// collectLocaleStats classifies every synchronizable canonical key for
// one locale directory, and picks up orphaned keys on the side. The
// lock is only consulted in memory; status never writes it back.
func collectLocaleStats(cfg config.Config, canonical resfile.Table, syncKeys []string, lock *lockfile.LockFile, dir string) localeStats {
	st := localeStats{dir: dir}
	st.locale, _ = resfile.DirLocale(cfg.LocalePrefix, dir)

	data, err := os.ReadFile(cfg.TargetPath(dir))
	if err != nil {
		st.fileMissing = true
		return st
	}
	table := resfile.PatternExtractor{}.Extract(data)

	target := lockfile.TargetKey(cfg.TargetKeyPath(dir))
	for _, key := range syncKeys {
		value, ok := table[key]
		switch {
		case !ok:
			st.missing++
			st.missingKeys = append(st.missingKeys, key)
		case strings.HasPrefix(value, cfg.PendingMarker):
			st.pending++
			st.pendingKeys = append(st.pendingKeys, key)
		default:
			st.translated++
			if lock != nil && lock.Observe(target, key, canonical[key], value) {
				st.stale = append(st.stale, key)
			}
		}
	}

	for key := range table {
		if _, ok := canonical[key]; !ok {
			st.orphans = append(st.orphans, key)
		}
	}
	sort.Strings(st.orphans)

	return st
}

func showStatsTable(cfg config.Config, canonical resfile.Table, syncKeys []string, lock *lockfile.LockFile, dirs []string) {
	total := len(syncKeys)

	fmt.Fprintf(os.Stderr, "%sTranslation Statistics%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "\n%-10s %-12s %-10s %-10s %-10s %-8s\n",
		"Locale", "Translated", "Pending", "Missing", "Orphans", "Percent")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 64))

	var all []localeStats
	for _, dir := range dirs {
		st := collectLocaleStats(cfg, canonical, syncKeys, lock, dir)
		if st.fileMissing {
			fmt.Fprintf(os.Stderr, "%-10s %-12s %-10s %-10s %-10s %-8s\n",
				st.locale, "missing", "-", "-", "-", "-")
			continue
		}

		percent := 0
		if total > 0 {
			percent = st.translated * 100 / total
		}
		fmt.Fprintf(os.Stderr, "%-10s %-12d %-10d %-10d %-10d %d%%\n",
			st.locale, st.translated, st.pending, st.missing, len(st.orphans), percent)
		all = append(all, st)
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 64))
	fmt.Fprintf(os.Stderr, "Total keys: %d\n", total)

	var gaps, stale, orphaned []localeStats
	for _, st := range all {
		if st.pending > 0 || st.missing > 0 {
			gaps = append(gaps, st)
		}
		if len(st.stale) > 0 {
			stale = append(stale, st)
		}
		if len(st.orphans) > 0 {
			orphaned = append(orphaned, st)
		}
	}

	if len(gaps) > 0 {
		fmt.Fprintln(os.Stderr)
		logInfo(i18n.T("Translation gaps:"))
		for _, st := range gaps {
			var parts []string
			if st.pending > 0 {
				parts = append(parts, fmt.Sprintf("%d pending", st.pending))
			}
			if st.missing > 0 {
				parts = append(parts, fmt.Sprintf("%d missing", st.missing))
			}
			fmt.Fprintf(os.Stderr, "  %s: %s\n", st.locale, strings.Join(parts, ", "))
		}
	}

	if len(stale) > 0 {
		fmt.Fprintln(os.Stderr)
		logWarning(i18n.T("Stale translations:"))
		for _, st := range stale {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", st.locale, strings.Join(st.stale, ", "))
		}
	}

	if len(orphaned) > 0 {
		fmt.Fprintln(os.Stderr)
		logInfo(i18n.T("Orphaned keys (kept, not in canonical):"))
		for _, st := range orphaned {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", st.locale, strings.Join(st.orphans, ", "))
		}
	}

	fmt.Fprintln(os.Stderr)
	printSuggestedCommands(len(gaps) > 0)
}

func printSuggestedCommands(pendingWork bool) {
	fmt.Fprintf(os.Stderr, "%sSuggested Commands%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	if pendingWork {
		fmt.Fprintf(os.Stderr, "  # Fill gaps with marker-prefixed canonical text\n")
		fmt.Fprintf(os.Stderr, "  strsync sync\n\n")
		fmt.Fprintf(os.Stderr, "  # Keep locale files aligned while translating\n")
		fmt.Fprintf(os.Stderr, "  strsync watch\n\n")
	} else {
		fmt.Fprintf(os.Stderr, "  # Re-check after editing the canonical file\n")
		fmt.Fprintf(os.Stderr, "  strsync status\n\n")
		fmt.Fprintf(os.Stderr, "  # Keep locale files aligned automatically\n")
		fmt.Fprintf(os.Stderr, "  strsync watch\n\n")
	}
}

// ---------------------------------------------------------------------------
// watch (re-sync on filesystem changes)
// ---------------------------------------------------------------------------

type watchArgs struct {
	overrides configOverrides
	langs     string
	debounce  time.Duration
}

func newWatchCmd() *cobra.Command {
	var a watchArgs

	cmd := &cobra.Command{
		Use:   "watch",
		Short: i18n.T("Re-run synchronization when resource files change"),
		Long: `Watch the canonical file and every locale resource file and re-run
synchronization when they change.

Event bursts are coalesced with a debounce window, and content hashing
keeps the tool's own writes from triggering further passes. Locale
directories created while watching are picked up automatically.

Examples:
  # Watch with the default 500ms debounce
  strsync watch

  # Watch a single locale with a longer debounce
  strsync watch --lang de --debounce 2s`,
		Run: func(cmd *cobra.Command, args []string) {
			runWatch(a)
		},
	}

	addOverrideFlags(cmd, &a.overrides)
	cmd.Flags().StringVar(&a.langs, "lang", "", i18n.T("Locales to process (comma-separated)"))
	cmd.Flags().DurationVar(&a.debounce, "debounce", watch.DefaultDebounce, i18n.T("Debounce window for filesystem events"))

	return cmd
}

func runWatch(a watchArgs) {
	cfg, langs := resolveConfig(a.overrides)
	if a.langs != "" {
		langs = strings.Split(a.langs, ",")
	}

	logInfo(i18n.T("Source: %s"), cfg.AbsCanonicalPath())

	w, err := watch.New(watch.Options{
		Config:   cfg,
		Langs:    langs,
		Lock:     loadLock(cfg.Root),
		Debounce: a.debounce,
		Logf:     translateLogf(logInfo),
		Warnf:    translateLogf(logWarning),
	})
	if err != nil {
		logError("%v", err)
		osExit(1)
	}
	defer w.Close()

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logWarning(i18n.T("Interrupted, stopping..."))
		cancel()
	}()

	if err := w.Run(ctx); err != nil {
		logError("%v", err)
		osExit(1)
	}
	logSuccess(i18n.T("Stopped."))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
