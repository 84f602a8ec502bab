package edit

import (
	"fmt"
	"strings"
	"testing"
)

func ref(line int, content string) LineRef {
	return LineRef{Line: line, Hash: LineHash(content)}
}

func TestLineHashShape(t *testing.T) {
	h := LineHash("alpha")
	if len(h) != 3 {
		t.Fatalf("hash = %q, want 3 chars", h)
	}
	for _, c := range h {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", c) {
			t.Errorf("hash %q contains non-base36 char %q", h, c)
		}
	}
}

func TestLineHashWhitespaceInvariant(t *testing.T) {
	inputs := []string{"x := 1", "  x := 1", "\tx :=  1  ", "x:=1"}
	want := LineHash(strings.ReplaceAll("x := 1", " ", ""))
	for _, in := range inputs {
		if got := LineHash(in); got != want {
			t.Errorf("LineHash(%q) = %q, want %q (whitespace must not matter)", in, got, want)
		}
	}
}

func TestLineHashDropsCR(t *testing.T) {
	if LineHash("alpha\r") != LineHash("alpha") {
		t.Error("\\r must be dropped before hashing")
	}
}

func TestFormatLinesShape(t *testing.T) {
	out := FormatLines("alpha\nbeta\n")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	want := fmt.Sprintf("1:%s| alpha", LineHash("alpha"))
	if lines[0] != want {
		t.Errorf("line 1 = %q, want %q (single pipe+space separator)", lines[0], want)
	}
}

func TestParseLineRef(t *testing.T) {
	r, err := ParseLineRef("12:a3f")
	if err != nil {
		t.Fatalf("ParseLineRef: %v", err)
	}
	if r.Line != 12 || r.Hash != "a3f" {
		t.Errorf("ref = %+v", r)
	}

	// Display-format copies are tolerated
	r, err = ParseLineRef("7:0ab| some copied content")
	if err != nil {
		t.Fatalf("display format: %v", err)
	}
	if r.Line != 7 || r.Hash != "0ab" {
		t.Errorf("ref = %+v", r)
	}

	for _, bad := range []string{"", "abc", "12", "0:abc", "x:abc", "12:toolong"} {
		if _, err := ParseLineRef(bad); err == nil {
			t.Errorf("ParseLineRef(%q) succeeded, want error", bad)
		}
	}
}

func mustHashline(t *testing.T, content string, edits []HashlineEdit) (string, []string) {
	t.Helper()
	got, warnings, err := applyHashline("test.txt", content, edits)
	if err != nil {
		t.Fatalf("applyHashline: %v", err)
	}
	return got, warnings
}

func TestHashlineReplaceLine(t *testing.T) {
	got, _ := mustHashline(t, "alpha\nbeta\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "beta"), Content: "BETA"},
	})
	if got != "alpha\nBETA\n" {
		t.Errorf("got %q", got)
	}
}

func TestHashlineDeleteLine(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\nc\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "b"), Content: ""},
	})
	if got != "a\nc\n" {
		t.Errorf("got %q", got)
	}
}

func TestHashlineReplaceRange(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\nc\nd\n", []HashlineEdit{
		{Kind: HashlineReplaceLines, Start: ref(2, "b"), End: ref(3, "c"), Content: "X\nY"},
	})
	if got != "a\nX\nY\nd\n" {
		t.Errorf("got %q", got)
	}
}

func TestHashlineInsertAfter(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\n", []HashlineEdit{
		{Kind: HashlineInsertAfter, Start: ref(1, "a"), Content: "inserted"},
	})
	if got != "a\ninserted\nb\n" {
		t.Errorf("got %q", got)
	}
}

func TestHashlineInsertAfterEmptyContent(t *testing.T) {
	_, _, err := applyHashline("test.txt", "a\n", []HashlineEdit{
		{Kind: HashlineInsertAfter, Start: ref(1, "a"), Content: ""},
	})
	if !IsKind(err, KindParseError) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func TestHashlineStaleHashFailsAtomically(t *testing.T) {
	content := "alpha\nbeta\n"
	_, _, err := applyHashline("test.txt", content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: LineRef{Line: 2, Hash: "xyz"}, Content: "BETA"},
	})
	if !IsKind(err, KindHashlineMismatch) {
		t.Fatalf("err = %v, want HashlineMismatch", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "2:"+LineHash("beta")) {
		t.Errorf("message should show the correct hash: %v", msg)
	}
	if !strings.Contains(msg, ">>>") {
		t.Errorf("message should mark the stale line: %v", msg)
	}
	if !strings.Contains(msg, "2:xyz → 2:"+LineHash("beta")) {
		t.Errorf("message should carry the quick-fix remap: %v", msg)
	}
}

func TestHashlineAllRefsValidatedBeforeAnyMutation(t *testing.T) {
	content := "a\nb\nc\n"
	_, _, err := applyHashline("test.txt", content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(1, "a"), Content: "A"},
		{Kind: HashlineReplaceLine, Start: LineRef{Line: 3, Hash: "zzz"}, Content: "C"},
	})
	if !IsKind(err, KindHashlineMismatch) {
		t.Fatalf("err = %v, want HashlineMismatch despite one valid edit", err)
	}
}

func TestHashlineRelocation(t *testing.T) {
	// Reference says line 1 but carries beta's hash; beta's hash is
	// unique, so the edit relocates silently.
	got, _ := mustHashline(t, "alpha\nbeta\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: LineRef{Line: 1, Hash: LineHash("beta")}, Content: "BETA"},
	})
	if got != "alpha\nBETA\n" {
		t.Errorf("got %q, want relocation to line 2", got)
	}
}

func TestHashlineNoRelocationForDuplicateHash(t *testing.T) {
	// "dup" appears twice: its hash is not unique, so a stale line
	// number cannot relocate and must fail.
	content := "dup\nmiddle\ndup\n"
	_, _, err := applyHashline("test.txt", content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: LineRef{Line: 2, Hash: LineHash("dup")}, Content: "X"},
	})
	if !IsKind(err, KindHashlineMismatch) {
		t.Errorf("err = %v, want HashlineMismatch (duplicate hash must not relocate)", err)
	}
}

func TestHashlineBottomUpOrdering(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\nc\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(1, "a"), Content: "A1\nA2"},
		{Kind: HashlineReplaceLine, Start: ref(3, "c"), Content: "C"},
	})
	if got != "A1\nA2\nb\nC\n" {
		t.Errorf("got %q", got)
	}
}

func TestHashlineDecorationStripDisplayFormat(t *testing.T) {
	content := "a\nb\n"
	newContent := fmt.Sprintf("2:%s| replaced", LineHash("b"))
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "b"), Content: newContent},
	})
	if got != "a\nreplaced\n" {
		t.Errorf("got %q, want display prefix stripped", got)
	}
}

func TestHashlineDecorationStripPlusMarkers(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "b"), Content: "+x\n+y"},
	})
	if got != "a\nx\ny\n" {
		t.Errorf("got %q, want + markers stripped", got)
	}
}

func TestHashlinePlusPlusNotStripped(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "b"), Content: "++counter\n++other"},
	})
	if got != "a\n++counter\n++other\n" {
		t.Errorf("got %q, want ++ left alone", got)
	}
}

func TestHashlineMergeExpansionForward(t *testing.T) {
	// Line 2 edited; the new line absorbs line 3's content, so both
	// source lines collapse into the merged one.
	content := "a\nresult := compute(\n    x, y)\nz\n"
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "result := compute("), Content: "result := compute(x, y)"},
	})
	if got != "a\nresult := compute(x, y)\nz\n" {
		t.Errorf("got %q, want two-line merge", got)
	}
}

func TestHashlineMergeExpansionBackward(t *testing.T) {
	content := "a\nresult := compute(\n    x, y)\nz\n"
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(3, "    x, y)"), Content: "result := compute(x, y)"},
	})
	if got != "a\nresult := compute(x, y)\nz\n" {
		t.Errorf("got %q, want merge with preceding line", got)
	}
}

func TestHashlineMergeSkipsTouchedNeighbor(t *testing.T) {
	// Both lines are explicitly edited: no cross-merge allowed
	content := "first(\nsecond)\n"
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(1, "first("), Content: "first(second)"},
		{Kind: HashlineReplaceLine, Start: ref(2, "second)"), Content: "tail"},
	})
	if got != "first(second)\ntail\n" {
		t.Errorf("got %q, want no merge across touched lines", got)
	}
}

func TestHashlineBoundaryEchoStripped(t *testing.T) {
	content := "before\nmid\nafter\n"
	// Replacement echoes both boundary lines; the block grew, so they
	// get stripped.
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLines, Start: ref(2, "mid"), End: ref(2, "mid"),
			Content: "before\nMID1\nMID2\nafter"},
	})
	if got != "before\nMID1\nMID2\nafter\n" {
		t.Errorf("got %q", got)
	}
}

func TestHashlineInsertAnchorEchoDropped(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\n", []HashlineEdit{
		{Kind: HashlineInsertAfter, Start: ref(1, "a"), Content: "a\ninserted"},
	})
	if got != "a\ninserted\nb\n" {
		t.Errorf("got %q, want anchor echo dropped", got)
	}
}

func TestHashlineWhitespaceOnlyLinesPreserved(t *testing.T) {
	content := "\tkeep := 1\n\tchange := 2\n"
	// N-to-N replacement where line 1 differs only in whitespace: the
	// original bytes win.
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLines, Start: ref(1, "\tkeep := 1"), End: ref(2, "\tchange := 2"),
			Content: "    keep := 1\n\tchange := 3"},
	})
	if got != "\tkeep := 1\n\tchange := 3\n" {
		t.Errorf("got %q, want original whitespace kept on unchanged line", got)
	}
}

func TestHashlineConfusableHyphenNormalized(t *testing.T) {
	content := "a — b\n"
	got, _ := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(1, "a — b"), Content: "a — b"},
	})
	if got != "a - b\n" {
		t.Errorf("got %q, want em dash folded to ASCII", got)
	}
}

func TestHashlineBlastRadiusWarning(t *testing.T) {
	content := "a\nb\n"
	big := strings.Repeat("new line\n", 10)
	_, warnings := mustHashline(t, content, []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "b"), Content: strings.TrimSuffix(big, "\n")},
	})
	if len(warnings) == 0 {
		t.Error("expected a change-size warning")
	}
}

func TestHashlineIdenticalResult(t *testing.T) {
	_, _, err := applyHashline("test.txt", "a\nb\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(2, "b"), Content: "b"},
	})
	if !IsKind(err, KindIdenticalResult) {
		t.Fatalf("err = %v, want IdenticalResult", err)
	}
	if !strings.Contains(err.Error(), "b") {
		t.Errorf("message should preview the targeted line: %v", err)
	}
}

func TestHashlineCRLFRefsTolerated(t *testing.T) {
	// \r is dropped before hashing, so refs computed against CRLF
	// content still validate after LF normalization.
	if LineHash("beta\r") != LineHash("beta") {
		t.Fatal("hash should ignore \\r")
	}
}

func TestHashlineInsertAndReplaceSameLine(t *testing.T) {
	got, _ := mustHashline(t, "a\nb\n", []HashlineEdit{
		{Kind: HashlineReplaceLine, Start: ref(1, "a"), Content: "A"},
		{Kind: HashlineInsertAfter, Start: ref(1, "a"), Content: "after-a"},
	})
	if got != "A\nafter-a\nb\n" {
		t.Errorf("got %q, want insertion after the replaced line", got)
	}
}
