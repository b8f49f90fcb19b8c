// Package resfile reads and rewrites Android string resource files
// (strings.xml and its per-locale siblings) at the line level.
//
// Unlike a DOM parser, resfile never re-renders markup: a file is an
// ordered sequence of physical lines, and synchronization replaces only
// the inner content span of matched entry lines. Indentation, attribute
// text, comments and line terminators round-trip byte for byte.
package resfile

import (
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Entry patterns
// ---------------------------------------------------------------------------

// entryPattern matches <string name="..."> entries anywhere in raw file
// text, content spanning lines if needed. Content matching is lazy: it
// stops at the first closing tag, so a literal "</string>" inside a
// value truncates the captured content there.
var entryPattern = regexp.MustCompile(`(?s)<string\s+[^>]*name="([^"]+)"[^>]*>(.*?)</string>`)

// linePattern is entryPattern confined to a single physical line.
// Only lines matched by it are ever rewritten.
var linePattern = regexp.MustCompile(`<string\s+[^>]*name="([^"]+)"[^>]*>(.*?)</string>`)

// ---------------------------------------------------------------------------
// Translation tables
// ---------------------------------------------------------------------------

// Table maps resource entry names to their raw inner content.
type Table map[string]string

// Extractor produces a translation table from raw resource file text.
// PatternExtractor is the default implementation; a stricter parser can
// be substituted without touching the rewrite path.
type Extractor interface {
	Extract(data []byte) Table
}

// PatternExtractor extracts every entry the lazy pattern can find.
// Later occurrences of a name overwrite earlier ones.
type PatternExtractor struct{}

// Extract implements Extractor.
func (PatternExtractor) Extract(data []byte) Table {
	table := make(Table)
	for _, m := range entryPattern.FindAllSubmatch(data, -1) {
		table[string(m[1])] = string(m[2])
	}
	return table
}

// ---------------------------------------------------------------------------
// Line-level access
// ---------------------------------------------------------------------------

// Span locates the first entry on a physical line.
type Span struct {
	Key     string
	Content string

	// ContentStart and ContentEnd delimit the inner content within the
	// line; text outside the span is preserved verbatim on rewrite.
	ContentStart int
	ContentEnd   int
}

// FindEntry matches line against the single-line entry pattern. Lines
// that merely resemble an entry do not match and pass through rewrites
// untouched.
func FindEntry(line string) (Span, bool) {
	m := linePattern.FindStringSubmatchIndex(line)
	if m == nil {
		return Span{}, false
	}
	return Span{
		Key:          line[m[2]:m[3]],
		Content:      line[m[4]:m[5]],
		ContentStart: m[4],
		ContentEnd:   m[5],
	}, true
}

// Rewrite returns line with the span's inner content replaced.
func (s Span) Rewrite(line, content string) string {
	return line[:s.ContentStart] + content + line[s.ContentEnd:]
}

// SplitLines splits raw file bytes into physical lines, keeping
// terminators, so that strings.Join(lines, "") reproduces the input
// byte for byte. CRLF endings and a missing final newline both survive.
func SplitLines(data []byte) []string {
	s := string(data)
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// LineKeys returns the set of entry keys reachable by the single-line
// pattern. Canonical keys outside this set (multi-line entries) cannot
// be rewritten.
func LineKeys(lines []string) map[string]bool {
	keys := make(map[string]bool)
	for _, line := range lines {
		if span, ok := FindEntry(line); ok {
			keys[span.Key] = true
		}
	}
	return keys
}

// ---------------------------------------------------------------------------
// Locale directories
// ---------------------------------------------------------------------------

// LocaleDirName converts a standard language code to a locale directory
// name under prefix (e.g. "pt-BR" -> "values-pt-rBR", "ru" -> "values-ru").
func LocaleDirName(prefix, lang string) string {
	parts := strings.SplitN(lang, "-", 2)
	if len(parts) == 2 && parts[1] != "" {
		return prefix + parts[0] + "-r" + parts[1]
	}
	return prefix + lang
}

// DirLocale converts a locale directory name back to a standard
// language code (e.g. "values-pt-rBR" -> "pt-BR"). Returns false when
// name does not carry the prefix or has nothing after it.
func DirLocale(prefix, name string) (string, bool) {
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	suffix := strings.TrimPrefix(name, prefix)
	if suffix == "" {
		return "", false
	}
	if idx := strings.Index(suffix, "-r"); idx >= 0 {
		return suffix[:idx] + "-" + suffix[idx+2:], true
	}
	return suffix, true
}
