package edit

import (
	"regexp"
	"strings"
)

// canonicalLine is the whitespace-stripped form used by the hashline
// heuristics - the same canonicalization the line hash runs on.
func canonicalLine(line string) string {
	return whitespaceRe.ReplaceAllString(strings.ReplaceAll(line, "\r", ""), "")
}

// displayPrefixRe matches the "LINE:HASH| " decoration models copy back
// out of the display format.
var displayPrefixRe = regexp.MustCompile(`^\s*\d+:[0-9a-z]{3}\|\s?`)

// prepareContentLines splits replacement content and strips per-line
// decoration: display-format prefixes when at least half the non-empty
// lines carry them, else diff-style '+' markers by the same rule.
func prepareContentLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	nonEmpty, displayCount, plusCount := 0, 0, 0
	for _, line := range lines {
		if line == "" {
			continue
		}
		nonEmpty++
		if displayPrefixRe.MatchString(line) {
			displayCount++
		}
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "++") {
			plusCount++
		}
	}
	if nonEmpty == 0 {
		return lines
	}

	if displayCount*2 >= nonEmpty {
		for i, line := range lines {
			lines[i] = displayPrefixRe.ReplaceAllString(line, "")
		}
	} else if plusCount*2 >= nonEmpty {
		for i, line := range lines {
			if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "++") {
				lines[i] = line[1:]
			}
		}
	}
	return lines
}

// applyOneHashlineEdit splices a single edit into result. Edits arrive
// bottom-up, so splices never shift the targets of edits still to come.
func applyOneHashlineEdit(result []string, e HashlineEdit, touched map[int]bool, changed int) ([]string, int, error) {
	newLines := prepareContentLines(e.Content)

	if e.Kind == HashlineInsertAfter {
		anchorIdx := e.Start.Line - 1
		if anchorIdx >= len(result) {
			anchorIdx = len(result) - 1
		}
		// Models echo the anchor line as the first inserted line
		if len(newLines) > 0 && anchorIdx >= 0 &&
			canonicalLine(newLines[0]) == canonicalLine(result[anchorIdx]) {
			newLines = newLines[1:]
		}
		if len(newLines) == 0 {
			return result, changed, nil
		}
		at := e.Start.Line
		if at > len(result) {
			at = len(result)
		}
		spliced := make([]string, 0, len(result)+len(newLines))
		spliced = append(spliced, result[:at]...)
		spliced = append(spliced, newLines...)
		spliced = append(spliced, result[at:]...)
		return spliced, changed + len(newLines), nil
	}

	start := e.Start.Line - 1
	end := start
	if e.Kind == HashlineReplaceLines {
		end = e.End.Line - 1
	}
	if end >= len(result) {
		end = len(result) - 1
	}

	start, end = expandMerge(result, e, newLines, touched, start, end)

	if e.Kind == HashlineReplaceLines && len(newLines) > end-start+1 {
		newLines = stripBoundaryEchoes(result, newLines, start, end)
	}

	oldBlock := result[start : end+1]
	newLines = preserveWhitespaceOnlyLines(oldBlock, newLines)
	newLines = normalizeConfusableHyphens(oldBlock, newLines)

	changed += diffLineCount(oldBlock, newLines)

	spliced := make([]string, 0, len(result)-(end-start+1)+len(newLines))
	spliced = append(spliced, result[:start]...)
	spliced = append(spliced, newLines...)
	spliced = append(spliced, result[end+1:]...)
	return spliced, changed, nil
}

// expandMerge widens a single-line replacement into a two-line merge
// when the new line visibly absorbs a neighboring untouched line: the
// canonical new content contains the neighbor's canonical form adjacent
// to the edited line's. Handles models that joined a broken expression
// back into one line.
func expandMerge(result []string, e HashlineEdit, newLines []string, touched map[int]bool, start, end int) (int, int) {
	if start != end || len(newLines) != 1 {
		return start, end
	}
	canonNew := canonicalLine(newLines[0])
	canonOld := canonicalLine(result[start])
	if canonNew == "" || canonOld == "" {
		return start, end
	}

	if start > 0 && !touched[start] { // touched is 1-based; start is the previous line's number
		canonPrev := canonicalLine(result[start-1])
		if canonPrev != "" && strings.Contains(canonNew, canonPrev+canonOld) {
			return start - 1, end
		}
	}
	if end+1 < len(result) && !touched[end+2] {
		canonNext := canonicalLine(result[end+1])
		if canonNext != "" && strings.Contains(canonNew, canonOld+canonNext) {
			return start, end + 1
		}
	}
	return start, end
}

// stripBoundaryEchoes drops replacement lines that duplicate the lines
// immediately outside the replaced range. Only runs when the new block
// grew, which is the shape a copied boundary produces.
func stripBoundaryEchoes(result []string, newLines []string, start, end int) []string {
	if len(newLines) > 0 && start > 0 && linesEchoEqual(newLines[0], result[start-1]) {
		newLines = newLines[1:]
	}
	if len(newLines) > 0 && end+1 < len(result) && linesEchoEqual(newLines[len(newLines)-1], result[end+1]) {
		newLines = newLines[:len(newLines)-1]
	}
	return newLines
}

func linesEchoEqual(a, b string) bool {
	return a == b || canonicalLine(a) == canonicalLine(b)
}

// preserveWhitespaceOnlyLines keeps the original bytes of lines whose
// replacement differs only in whitespace. Applies to N-to-N
// replacements, where such differences are reflow noise, not intent.
func preserveWhitespaceOnlyLines(oldBlock, newLines []string) []string {
	if len(oldBlock) != len(newLines) {
		return newLines
	}
	out := make([]string, len(newLines))
	copy(out, newLines)
	for i := range out {
		if out[i] != oldBlock[i] && canonicalLine(out[i]) == canonicalLine(oldBlock[i]) {
			out[i] = oldBlock[i]
		}
	}
	return out
}

// normalizeConfusableHyphens rewrites unicode hyphens to ASCII in the
// replacement when that is the whole point of the edit: the blocks are
// canonical-equal once hyphens fold, and the original carries confusable
// hyphens.
func normalizeConfusableHyphens(oldBlock, newLines []string) []string {
	if len(oldBlock) != len(newLines) {
		return newLines
	}
	hasConfusable := false
	for i := range oldBlock {
		if canonicalLine(FoldHyphens(oldBlock[i])) != canonicalLine(FoldHyphens(newLines[i])) {
			return newLines
		}
		if ContainsConfusableHyphen(oldBlock[i]) {
			hasConfusable = true
		}
	}
	if !hasConfusable {
		return newLines
	}
	out := make([]string, len(newLines))
	for i := range newLines {
		out[i] = FoldHyphens(newLines[i])
	}
	return out
}
