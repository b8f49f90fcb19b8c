// Package lockfile implements strsync.lock — a lock file that tracks
// MD5 checksums of canonical and translated content per target resource
// file. It lets sync and status flag translations whose canonical text
// changed after the translation was last touched.
//
// The lock file is advisory: it never changes what sync writes.
// It is stored in the project root as strsync.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "strsync.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Record pairs the canonical-content hash with the translation-content
// hash captured the last time the translation changed.
type Record struct {
	Source      string `yaml:"source"`
	Translation string `yaml:"translation"`
}

// LockFile represents the strsync.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]Record `yaml:"checksums"` // target -> key -> record

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]Record),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]Record)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// TargetKey builds a unique key for a target resource file,
// e.g. "app/src/main/res/values-ru/strings.xml".
func TargetKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// Observe reconciles the lock with one translated entry and reports
// whether the translation is stale: the canonical content changed while
// the translation stayed the same. New and freshly edited translations
// are recorded as current. Stale records are left as they are so the
// entry keeps being reported until the translation is updated.
func (lf *LockFile) Observe(target, key, canonical, translation string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	srcHash := Hash(canonical)
	trHash := Hash(translation)

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]Record)
	}
	rec, ok := lf.Checksums[target][key]
	if !ok || rec.Translation != trHash {
		lf.Checksums[target][key] = Record{Source: srcHash, Translation: trHash}
		return false
	}
	return rec.Source != srcHash
}

// Clean removes entries for keys that are no longer translated in the
// target. This keeps pending and deleted keys from accumulating.
func (lf *LockFile) Clean(target string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveTarget removes all checksums for a target.
func (lf *LockFile) RemoveTarget(target string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, target)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns sorted list of target keys.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}
