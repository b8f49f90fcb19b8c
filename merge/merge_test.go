package merge

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minios-linux/strsync/resfile"
)

const canonicalDoc = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <!-- Greetings -->
    <string name="greeting">Hello</string>
    <string name="farewell">Goodbye</string>

    <item name="not_a_string">ignored</item>
</resources>
`

func reconcileDoc(t *testing.T, doc string, translations resfile.Table) *Result {
	t.Helper()
	return Reconcile(resfile.SplitLines([]byte(doc)), translations, "TODO: ")
}

func TestReconcileEmptyTarget(t *testing.T) {
	res := reconcileDoc(t, canonicalDoc, resfile.Table{})

	want := `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <!-- Greetings -->
    <string name="greeting">TODO: Hello</string>
    <string name="farewell">TODO: Goodbye</string>

    <item name="not_a_string">ignored</item>
</resources>
`
	if got := strings.Join(res.Lines, ""); got != want {
		t.Errorf("reconciled output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if diff := cmp.Diff([]string{"greeting", "farewell"}, res.Pending); diff != "" {
		t.Errorf("Pending mismatch (-want +got):\n%s", diff)
	}
	if len(res.Done) != 0 {
		t.Errorf("Done = %v, want empty", res.Done)
	}
}

func TestReconcileExistingTranslationWins(t *testing.T) {
	res := reconcileDoc(t, canonicalDoc, resfile.Table{"greeting": "Bonjour"})

	joined := strings.Join(res.Lines, "")
	if !strings.Contains(joined, `<string name="greeting">Bonjour</string>`) {
		t.Errorf("translation not preserved:\n%s", joined)
	}
	if !strings.Contains(joined, `<string name="farewell">TODO: Goodbye</string>`) {
		t.Errorf("missing key not marked pending:\n%s", joined)
	}
	if diff := cmp.Diff([]string{"greeting"}, res.Done); diff != "" {
		t.Errorf("Done mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	// A second pass fed with the table extracted from the first pass's
	// output must reproduce it byte for byte.
	lines := resfile.SplitLines([]byte(canonicalDoc))
	first := Reconcile(lines, resfile.Table{"greeting": "Bonjour"}, "TODO: ")

	firstOut := strings.Join(first.Lines, "")
	table := resfile.PatternExtractor{}.Extract([]byte(firstOut))
	second := Reconcile(lines, table, "TODO: ")

	if got := strings.Join(second.Lines, ""); got != firstOut {
		t.Errorf("second pass not byte-identical:\ngot:\n%s\nwant:\n%s", got, firstOut)
	}
}

func TestReconcileEmptyTranslationWins(t *testing.T) {
	res := reconcileDoc(t, `<string name="greeting">Hello</string>`, resfile.Table{"greeting": ""})

	if got := strings.Join(res.Lines, ""); got != `<string name="greeting"></string>` {
		t.Errorf("empty translation not preserved: %q", got)
	}
}

func TestReconcilePreservesAttributesAndWhitespace(t *testing.T) {
	doc := "\t<string msgid=\"3\" name=\"x\" formatted=\"false\">Hi</string>  \r\n"

	res := reconcileDoc(t, doc, resfile.Table{"x": "Salut"})
	want := "\t<string msgid=\"3\" name=\"x\" formatted=\"false\">Salut</string>  \r\n"
	if got := strings.Join(res.Lines, ""); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReconcileTruncatedEntryLine(t *testing.T) {
	// Content containing a literal closing tag: the rewrite stops at the
	// first closing tag and everything after it survives verbatim.
	doc := `<string name="nested">before</string>after</string>` + "\n"

	res := reconcileDoc(t, doc, resfile.Table{})
	want := `<string name="nested">TODO: before</string>after</string>` + "\n"
	if got := strings.Join(res.Lines, ""); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReconcileMarkerInCanonical(t *testing.T) {
	// No special handling when canonical content already carries the
	// marker; it simply gets prefixed again.
	doc := `<string name="wip">TODO: draft</string>` + "\n"

	res := reconcileDoc(t, doc, resfile.Table{})
	want := `<string name="wip">TODO: TODO: draft</string>` + "\n"
	if got := strings.Join(res.Lines, ""); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReconcileMultiLineEntryPassesThrough(t *testing.T) {
	doc := "<resources>\n<string name=\"legal\">line one\nline two</string>\n</resources>\n"

	res := reconcileDoc(t, doc, resfile.Table{"legal": "ignored"})
	if got := strings.Join(res.Lines, ""); got != doc {
		t.Errorf("multi-line entry was modified:\ngot:\n%s\nwant:\n%s", got, doc)
	}
	if res.Keys["legal"] {
		t.Error("multi-line key reported as seen on a line")
	}
}

func TestCarryOrphansInsertsBeforeClosingTag(t *testing.T) {
	reconciled := resfile.SplitLines([]byte(`<resources>
    <string name="greeting">Hallo</string>
</resources>
`))
	target := resfile.SplitLines([]byte(`<resources>
    <string name="greeting">Hallo</string>
    <string name="legacy">Alt</string>
</resources>
`))

	got := strings.Join(CarryOrphans(reconciled, target, resfile.Table{"greeting": "Hello"}), "")
	want := `<resources>
    <string name="greeting">Hallo</string>
    <string name="legacy">Alt</string>
</resources>
`
	if got != want {
		t.Errorf("carried output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestCarryOrphansNoOrphans(t *testing.T) {
	reconciled := resfile.SplitLines([]byte(`<resources>
    <string name="greeting">Hallo</string>
</resources>
`))
	target := resfile.SplitLines([]byte(`<resources>
    <string name="greeting">Hallo</string>
</resources>
`))

	got := CarryOrphans(reconciled, target, resfile.Table{"greeting": "Hello"})
	if diff := cmp.Diff(reconciled, got); diff != "" {
		t.Errorf("lines changed with no orphans present (-want +got):\n%s", diff)
	}
}

func TestCarryOrphansAppendsWithoutClosingTag(t *testing.T) {
	// No </resources> line anywhere, and neither final line carries a
	// terminator; both gain one so the appended entry stays a line.
	reconciled := resfile.SplitLines([]byte(`<string name="greeting">Hallo</string>`))
	target := resfile.SplitLines([]byte(`<string name="legacy">Alt</string>`))

	got := strings.Join(CarryOrphans(reconciled, target, resfile.Table{"greeting": "Hello"}), "")
	want := "<string name=\"greeting\">Hallo</string>\n<string name=\"legacy\">Alt</string>\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCarryOrphansSkipsMultiLineCanonicalKeys(t *testing.T) {
	// "legal" spans lines on the canonical side: no single line matches
	// it as an entry, but the whole-file extraction has it, so the
	// target's single-line form must not be carried in as an orphan.
	reconciled := resfile.SplitLines([]byte("<resources>\n<string name=\"legal\">line one\nline two</string>\n</resources>\n"))
	target := resfile.SplitLines([]byte("<resources>\n<string name=\"legal\">Alt</string>\n</resources>\n"))
	canonical := resfile.Table{"legal": "line one\nline two"}

	got := strings.Join(CarryOrphans(reconciled, target, canonical), "")
	if got != strings.Join(reconciled, "") {
		t.Errorf("known key carried as orphan:\n%s", got)
	}
}

func TestReconcileDuplicateCanonicalKeys(t *testing.T) {
	doc := `<string name="dup">one</string>
<string name="dup">two</string>
`

	res := reconcileDoc(t, doc, resfile.Table{"dup": "X"})
	want := `<string name="dup">X</string>
<string name="dup">X</string>
`
	if got := strings.Join(res.Lines, ""); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"dup"}, res.Done); diff != "" {
		t.Errorf("Done not deduplicated (-want +got):\n%s", diff)
	}
}
