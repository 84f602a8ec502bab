package edit

import (
	"strings"
	"testing"
)

func TestPostEditContext(t *testing.T) {
	content := "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9\nl10\nl11\nl12\nl13\nl14\nl15\n"
	out := PostEditContext(content, 8, 8)

	if !strings.Contains(out, "> 8│l8") {
		t.Errorf("edited line not marked:\n%s", out)
	}
	if !strings.Contains(out, "  1│l1") {
		t.Errorf("first line missing:\n%s", out)
	}
	if !strings.Contains(out, " 15│l15") {
		t.Errorf("last line missing:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("gap not collapsed:\n%s", out)
	}
	// Context lines are unmarked
	if !strings.Contains(out, "  5│l5") || !strings.Contains(out, " 11│l11") {
		t.Errorf("context lines missing:\n%s", out)
	}
}

func TestPostEditContextSmallFile(t *testing.T) {
	out := PostEditContext("a\nb\n", 2, 2)
	if strings.Contains(out, "...") {
		t.Errorf("no gaps expected:\n%s", out)
	}
	if !strings.Contains(out, ">2│b") {
		t.Errorf("edited line not marked:\n%s", out)
	}
}

func TestPostEditContextEmpty(t *testing.T) {
	if PostEditContext("", 1, 1) != "" {
		t.Error("empty content should render empty")
	}
}

func TestPostEditContextSingleLineGap(t *testing.T) {
	// A one-line gap prints the line instead of "..."
	content := "l1\nl2\nl3\nl4\nl5\nl6\n"
	out := PostEditContext(content, 6, 6)
	if strings.Contains(out, "...") {
		t.Errorf("single-line gap should print in full:\n%s", out)
	}
	if !strings.Contains(out, " 2│l2") {
		t.Errorf("gap line missing:\n%s", out)
	}
}
