package edit

import (
	"strings"
	"testing"
)

var testMatchCfg = matchConfig{Threshold: 0.95, FuzzyEnabled: true}

func TestReplaceExactUnique(t *testing.T) {
	got, n, _, err := applyReplace("f.txt", "a\nb\nc\n", "b", "B", false, testMatchCfg)
	if err != nil {
		t.Fatalf("applyReplace: %v", err)
	}
	if got != "a\nB\nc\n" {
		t.Errorf("got %q", got)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
}

func TestReplaceAmbiguous(t *testing.T) {
	_, _, _, err := applyReplace("f.txt", "x\nx\n", "x", "y", false, testMatchCfg)
	if !IsKind(err, KindAmbiguousMatch) {
		t.Fatalf("err = %v, want AmbiguousMatch", err)
	}
	ee := err.(*EditError)
	previews, _ := ee.Details["previews"].([]string)
	if len(previews) != 2 {
		t.Fatalf("previews = %d, want 2", len(previews))
	}
	for _, p := range previews {
		if !strings.Contains(p, "│") {
			t.Errorf("preview not line-numbered: %q", p)
		}
	}
}

func TestReplaceAll(t *testing.T) {
	got, n, _, err := applyReplace("f.txt", "x\nx\n", "x", "y", true, testMatchCfg)
	if err != nil {
		t.Fatalf("applyReplace: %v", err)
	}
	if got != "y\ny\n" {
		t.Errorf("got %q", got)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
}

func TestReplaceAllSingleOccurrence(t *testing.T) {
	got, n, _, err := applyReplace("f.txt", "a\nb\n", "b", "B", true, testMatchCfg)
	if err != nil {
		t.Fatalf("applyReplace: %v", err)
	}
	if got != "a\nB\n" || n != 1 {
		t.Errorf("got %q, n = %d", got, n)
	}
}

func TestReplaceEmptyOldText(t *testing.T) {
	_, _, _, err := applyReplace("f.txt", "a\n", "", "x", false, testMatchCfg)
	if !IsKind(err, KindParseError) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func TestReplaceIdenticalTexts(t *testing.T) {
	_, _, _, err := applyReplace("f.txt", "a\n", "a", "a", false, testMatchCfg)
	if !IsKind(err, KindIdenticalResult) {
		t.Errorf("err = %v, want IdenticalResult", err)
	}
}

func TestReplaceFuzzyFallback(t *testing.T) {
	content := "func run() {\n\tdoWork(ctx, args)\n}\n"
	oldText := "func run() {\n\tdoWork(ctx,args)\n}" // missing space
	got, _, warnings, err := applyReplace("f.go", content, oldText, "func run() {\n\tdoNothing()\n}", false, testMatchCfg)
	if err != nil {
		t.Fatalf("applyReplace: %v", err)
	}
	if !strings.Contains(got, "doNothing()") {
		t.Errorf("got %q", got)
	}
	if len(warnings) == 0 || !strings.Contains(warnings[0], "fuzzy match") {
		t.Errorf("warnings = %v, want fuzzy note", warnings)
	}
}

func TestReplaceNotFoundDiagnostic(t *testing.T) {
	content := "alpha := compute(x)\nother\n"
	_, _, _, err := applyReplace("f.go", content, "entirely unrelated content", "x", false, testMatchCfg)
	if !IsKind(err, KindMatchNotFound) {
		t.Fatalf("err = %v, want MatchNotFound", err)
	}
	if !strings.Contains(err.Error(), "f.go") {
		t.Errorf("message should name the file: %v", err)
	}
}

func TestReplaceNotFoundWithClosest(t *testing.T) {
	content := "result := process(items, flags)\n"
	_, _, _, err := applyReplace("f.go", content, "result := process(stuff)", "x", false,
		matchConfig{Threshold: 0.95, FuzzyEnabled: true})
	if !IsKind(err, KindMatchNotFound) {
		t.Fatalf("err = %v, want MatchNotFound", err)
	}
	if !strings.Contains(err.Error(), "%") {
		t.Errorf("message should carry a similarity percent: %v", err)
	}
}

func TestReplaceFuzzyDisabled(t *testing.T) {
	_, _, _, err := applyReplace("f.txt", "alpha\n", "alpho", "x", false,
		matchConfig{Threshold: 0.95, FuzzyEnabled: false})
	if !IsKind(err, KindMatchNotFound) {
		t.Errorf("err = %v, want MatchNotFound with fuzzy off", err)
	}
}
