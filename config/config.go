// Package config resolves the resource layout strsync operates on:
// where the canonical strings.xml lives, which directory is scanned for
// locale directories, and how untranslated entries are marked.
//
// Precedence, lowest to highest: built-in defaults, layout detection,
// .strsync.yaml, command-line flags.
package config

import (
	"os"
	"path/filepath"
)

// Defaults matching the stock Android application template.
const (
	DefaultCanonicalPath = "app/src/main/res/values/strings.xml"
	DefaultResourceRoot  = "app/src/main/res"
	DefaultLocalePrefix  = "values-"
	DefaultPendingMarker = "TODO: "
)

// Config describes one resource tree to synchronize. Relative paths
// resolve against Root.
type Config struct {
	// Root is the project root directory.
	Root string
	// CanonicalPath is the source-of-truth resource file.
	CanonicalPath string
	// ResourceRoot is the directory scanned for locale directories.
	ResourceRoot string
	// LocalePrefix filters resource-root subdirectories to locale
	// directories ("values-").
	LocalePrefix string
	// PendingMarker is prepended to canonical content written for keys
	// without an existing translation.
	PendingMarker string
}

// Default returns the configuration for root with stock template paths.
func Default(root string) Config {
	return Config{
		Root:          root,
		CanonicalPath: DefaultCanonicalPath,
		ResourceRoot:  DefaultResourceRoot,
		LocalePrefix:  DefaultLocalePrefix,
		PendingMarker: DefaultPendingMarker,
	}
}

// Detect returns the configuration for root, checking known Android
// layouts for a canonical values/strings.xml. When none matches, the
// defaults stand, so zero-configuration behavior is unchanged.
func Detect(root string) Config {
	cfg := Default(root)
	for _, res := range []string{"app/src/main/res", "src/main/res", "res"} {
		canonical := filepath.Join(res, "values", "strings.xml")
		if fileExists(filepath.Join(root, canonical)) {
			cfg.ResourceRoot = res
			cfg.CanonicalPath = canonical
			break
		}
	}
	return cfg
}

// AbsCanonicalPath returns the canonical file path resolved against Root.
func (c Config) AbsCanonicalPath() string {
	return filepath.Join(c.Root, c.CanonicalPath)
}

// AbsResourceRoot returns the resource root resolved against Root.
func (c Config) AbsResourceRoot() string {
	return filepath.Join(c.Root, c.ResourceRoot)
}

// ResourceFileName returns the per-locale resource file name, derived
// from the canonical path (target files are same-named).
func (c Config) ResourceFileName() string {
	return filepath.Base(c.CanonicalPath)
}

// TargetPath returns the resource file path inside one locale directory.
func (c Config) TargetPath(dir string) string {
	return filepath.Join(c.AbsResourceRoot(), dir, c.ResourceFileName())
}

// TargetKeyPath returns the slash-form Root-relative path of a locale
// directory's resource file, used as the lock file target key.
func (c Config) TargetKeyPath(dir string) string {
	return filepath.ToSlash(filepath.Join(c.ResourceRoot, dir, c.ResourceFileName()))
}

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
