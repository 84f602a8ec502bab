package edit

import (
	"fmt"
	"strings"
)

// postEditContextLines is the number of surrounding lines shown around
// an edited region in the post-edit view.
const postEditContextLines = 3

// PostEditContext renders the file content after an edit, marking the
// edited lines and showing a few lines of context. The first and last
// lines of the file are always shown so the model keeps its bearings;
// gaps collapse to "..." except single-line gaps, which print in full.
// editStartLine and editEndLine are 1-based in the new content.
func PostEditContext(newContent string, editStartLine, editEndLine int) string {
	if newContent == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(newContent, "\n"), "\n")
	totalLines := len(lines)

	contextStart := editStartLine - postEditContextLines
	if contextStart < 1 {
		contextStart = 1
	}
	contextEnd := editEndLine + postEditContextLines
	if contextEnd > totalLines {
		contextEnd = totalLines
	}

	lineNumWidth := len(fmt.Sprintf("%d", totalLines))
	var b strings.Builder

	formatLine := func(lineNum int, isEdited bool) {
		marker := " "
		if isEdited {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s%*d│%s\n", marker, lineNumWidth, lineNum, lines[lineNum-1])
	}

	if contextStart > 1 {
		formatLine(1, false)
		if contextStart == 3 {
			formatLine(2, false)
		} else if contextStart > 3 {
			b.WriteString("...\n")
		}
	}

	for i := contextStart; i <= contextEnd; i++ {
		formatLine(i, i >= editStartLine && i <= editEndLine)
	}

	if contextEnd < totalLines {
		if contextEnd == totalLines-2 {
			formatLine(totalLines-1, false)
		} else if contextEnd < totalLines-2 {
			b.WriteString("...\n")
		}
		formatLine(totalLines, false)
	}

	return strings.TrimSuffix(b.String(), "\n")
}
