// Package config: .strsync.yaml configuration file support.
//
// When a .strsync.yaml exists in the project root its values override
// layout detection; command-line flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SyncFile is the top-level .strsync.yaml structure.
type SyncFile struct {
	// Canonical is the source-of-truth resource file, relative to the
	// project root.
	Canonical string `yaml:"canonical,omitempty"`
	// ResourceRoot is the directory scanned for locale directories.
	ResourceRoot string `yaml:"resource_root,omitempty"`
	// LocalePrefix filters resource-root subdirectories (default "values-").
	LocalePrefix string `yaml:"locale_prefix,omitempty"`
	// PendingMarker is prepended to untranslated fallback content.
	PendingMarker string `yaml:"pending_marker,omitempty"`
	// Languages restricts sync and status to these locales when set.
	Languages []string `yaml:"languages,omitempty"`
}

// SyncFileName is the config file name looked up in the project root.
const SyncFileName = ".strsync.yaml"

// LoadSyncFile loads .strsync.yaml from the given directory.
// Returns nil if no .strsync.yaml exists.
func LoadSyncFile(rootDir string) (*SyncFile, error) {
	path := filepath.Join(rootDir, SyncFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var sf SyncFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &sf, nil
}

// Apply overlays non-empty file values onto c.
func (c *Config) Apply(sf *SyncFile) {
	if sf == nil {
		return
	}
	if sf.Canonical != "" {
		c.CanonicalPath = sf.Canonical
	}
	if sf.ResourceRoot != "" {
		c.ResourceRoot = sf.ResourceRoot
	}
	if sf.LocalePrefix != "" {
		c.LocalePrefix = sf.LocalePrefix
	}
	if sf.PendingMarker != "" {
		c.PendingMarker = sf.PendingMarker
	}
}
