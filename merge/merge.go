// Package merge implements the reconciliation step of synchronization:
// rewriting the canonical resource lines for one target locale.
package merge

import (
	"strings"

	"github.com/minios-linux/strsync/resfile"
)

// Result describes the outcome of reconciling one target locale.
type Result struct {
	// Lines is the rewritten file content; joining it yields the target
	// file bytes.
	Lines []string

	// Done lists keys that kept an existing translation, in order of
	// first appearance.
	Done []string

	// Pending lists keys written with marker-prefixed canonical
	// content, in order of first appearance.
	Pending []string

	// Keys is the set of entry keys seen on canonical lines.
	Keys map[string]bool
}

// Reconcile rewrites the canonical lines against one target locale's
// translation table.
// - Non-entry lines are copied unchanged (comments, blanks, other tags).
// - Entry lines keep their key and tag syntax byte for byte; only the
//   inner content changes.
// - Content becomes the table value when the key is present (existing
//   translations always win, even empty ones), otherwise the canonical
//   content with marker prepended.
func Reconcile(canonical []string, translations resfile.Table, marker string) *Result {
	result := &Result{
		Lines: make([]string, 0, len(canonical)),
		Keys:  make(map[string]bool),
	}

	for _, line := range canonical {
		span, ok := resfile.FindEntry(line)
		if !ok {
			result.Lines = append(result.Lines, line)
			continue
		}

		content, translated := translations[span.Key]
		if !translated {
			content = marker + span.Content
		}

		if !result.Keys[span.Key] {
			if translated {
				result.Done = append(result.Done, span.Key)
			} else {
				result.Pending = append(result.Pending, span.Key)
			}
		}
		result.Keys[span.Key] = true

		result.Lines = append(result.Lines, span.Rewrite(line, content))
	}

	return result
}

// CarryOrphans returns lines extended with the target's entry lines
// whose keys the canonical table does not contain, so translations for
// keys removed from the canonical file survive the rewrite. Target
// lines are classified by their first entry and kept verbatim, in
// target order; they are inserted before the closing </resources> line
// (appended at the end when there is none). A carried line missing its
// terminator gains one so it cannot fuse with the line that follows.
func CarryOrphans(lines, target []string, canonical resfile.Table) []string {
	var orphans []string
	for _, line := range target {
		span, ok := resfile.FindEntry(line)
		if !ok {
			continue
		}
		if _, known := canonical[span.Key]; known {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		orphans = append(orphans, line)
	}
	if len(orphans) == 0 {
		return lines
	}

	insert := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "</resources>" {
			insert = i
			break
		}
	}

	out := make([]string, 0, len(lines)+len(orphans))
	out = append(out, lines[:insert]...)
	if insert == len(lines) && len(out) > 0 {
		if last := out[len(out)-1]; !strings.HasSuffix(last, "\n") {
			out[len(out)-1] = last + "\n"
		}
	}
	out = append(out, orphans...)
	out = append(out, lines[insert:]...)
	return out
}
