package edit

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff renders a display diff between old and new content
func unifiedDiff(oldContent, newContent, path string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// firstChangedLine returns the 1-based number of the first line that
// differs between old and new, or 1 when the contents are equal.
func firstChangedLine(oldContent, newContent string) int {
	oldLines := strings.Split(oldContent, "\n")
	newLines := strings.Split(newContent, "\n")
	n := min(len(oldLines), len(newLines))
	for i := 0; i < n; i++ {
		if oldLines[i] != newLines[i] {
			return i + 1
		}
	}
	if len(oldLines) != len(newLines) {
		return n + 1
	}
	return 1
}

// diffLineCount is the coarse change-size estimate: the number of
// inserted plus deleted lines between the two blocks.
func diffLineCount(oldBlock, newBlock []string) int {
	matcher := difflib.NewMatcher(oldBlock, newBlock)
	count := 0
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			count += (op.I2 - op.I1) + (op.J2 - op.J1)
		case 'd':
			count += op.I2 - op.I1
		case 'i':
			count += op.J2 - op.J1
		}
	}
	return count
}
