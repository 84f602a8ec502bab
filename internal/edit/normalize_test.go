package edit

import (
	"strings"
	"testing"
)

func TestStripBOM(t *testing.T) {
	bom, rest := StripBOM("\uFEFFhello")
	if bom != "\uFEFF" {
		t.Errorf("bom = %q, want BOM", bom)
	}
	if rest != "hello" {
		t.Errorf("rest = %q, want 'hello'", rest)
	}

	bom, rest = StripBOM("hello")
	if bom != "" || rest != "hello" {
		t.Errorf("StripBOM without BOM = (%q, %q)", bom, rest)
	}
}

func TestDetectLineEnding(t *testing.T) {
	tests := []struct {
		name string
		text string
		want LineEnding
	}{
		{"lf", "a\nb\n", LineEndingLF},
		{"crlf", "a\r\nb\r\n", LineEndingCRLF},
		{"cr", "a\rb\r", LineEndingCR},
		{"no newline defaults lf", "single line", LineEndingLF},
		{"empty defaults lf", "", LineEndingLF},
		{"first occurrence wins", "a\nb\r\n", LineEndingLF},
		{"crlf before lf", "a\r\nb\n", LineEndingCRLF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLineEnding(tt.text); got != tt.want {
				t.Errorf("DetectLineEnding(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestLineEndingRoundTrip(t *testing.T) {
	inputs := []string{
		"a\nb\nc\n",
		"a\r\nb\r\nc\r\n",
		"a\rb\rc\r",
		"no newline",
		"",
	}
	for _, input := range inputs {
		ending := DetectLineEnding(input)
		got := RestoreLineEndings(NormalizeToLF(input), ending)
		if got != input {
			t.Errorf("round trip %q = %q", input, got)
		}
	}
}

func TestNormalizeToLF(t *testing.T) {
	if got := NormalizeToLF("a\r\nb\rc\n"); got != "a\nb\nc\n" {
		t.Errorf("NormalizeToLF = %q", got)
	}
}

func TestNormalizeForFuzzyIdempotent(t *testing.T) {
	inputs := []string{
		"  foo   bar  ",
		"\tx := 1",
		"a – b",      // en dash
		"say “hi”",   // curly quotes
		"plain text",
	}
	for _, input := range inputs {
		once := NormalizeForFuzzy(input)
		twice := NormalizeForFuzzy(once)
		if once != twice {
			t.Errorf("NormalizeForFuzzy not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizeForFuzzyFoldsConfusables(t *testing.T) {
	if got := NormalizeForFuzzy("a – b"); got != "a - b" {
		t.Errorf("en dash not folded: %q", got)
	}
	if got := NormalizeForFuzzy("“quoted”"); got != `"quoted"` {
		t.Errorf("curly quotes not folded: %q", got)
	}
	if got := NormalizeForFuzzy("a b"); got != "a b" {
		t.Errorf("nbsp not folded: %q", got)
	}
}

func TestNormalizeUnicodeKeepsWhitespace(t *testing.T) {
	if got := NormalizeUnicode("  a – b  "); got != "  a - b  " {
		t.Errorf("NormalizeUnicode = %q, want whitespace kept", got)
	}
}

func TestCountLeadingWhitespace(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"    x", 4},
		{"\t\tx", 2},
		{"x", 0},
		{"   ", 3},
		{"", 0},
	}
	for _, tt := range tests {
		if got := CountLeadingWhitespace(tt.line); got != tt.want {
			t.Errorf("CountLeadingWhitespace(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestConvertLeadingTabsToSpaces(t *testing.T) {
	in := "\tfoo\n\t\tbar\nno tabs\nmid\ttab"
	want := "    foo\n        bar\nno tabs\nmid\ttab"
	if got := ConvertLeadingTabsToSpaces(in, 4); got != want {
		t.Errorf("ConvertLeadingTabsToSpaces = %q, want %q", got, want)
	}
}

func TestStripCommentPrefix(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"// comment", "comment"},
		{"  # note", "note"},
		{"-- sql", "sql"},
		{"; ini", "ini"},
		{"code()", "code()"},
	}
	for _, tt := range tests {
		if got := StripCommentPrefix(tt.line); got != tt.want {
			t.Errorf("StripCommentPrefix(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFoldHyphens(t *testing.T) {
	if got := FoldHyphens("a—b–c"); got != "a-b-c" {
		t.Errorf("FoldHyphens = %q", got)
	}
	if !ContainsConfusableHyphen("a—b") {
		t.Error("ContainsConfusableHyphen should detect em dash")
	}
	if ContainsConfusableHyphen("a-b") {
		t.Error("ASCII hyphen is not confusable")
	}
}

func TestNormalizeForFuzzyCollapsesRuns(t *testing.T) {
	if got := NormalizeForFuzzy("a   b\t\tc"); got != "a b c" {
		t.Errorf("whitespace runs not collapsed: %q", got)
	}
	if !strings.Contains(NormalizeForFuzzy("x := 1  // note"), "// note") {
		t.Error("content after whitespace should survive")
	}
}
