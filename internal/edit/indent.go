package edit

import "strings"

// ReconcileIndentation adjusts replacement lines when a hunk's pattern
// matched at a position whose indentation differs from the pattern's.
// pattern is what the hunk expected, actual is what the file holds at the
// match, newLines is the replacement. Rules run in order; the first that
// applies wins, except context snapping which always runs last.
func ReconcileIndentation(pattern, actual, newLines []string) []string {
	if len(pattern) != len(actual) || len(pattern) == 0 {
		return newLines
	}

	if linesEqual(pattern, actual) {
		return newLines
	}

	// A pure indent rewrite: the model is deliberately re-indenting, so
	// its replacement indentation is the point of the edit.
	if trimmedEqual(pattern, newLines) {
		return newLines
	}

	adjusted := newLines

	if ratio, ok := tabToSpaceRatio(pattern, actual); ok {
		adjusted = convertLines(adjusted, ratio)
	} else if delta, ok := uniformIndentDelta(pattern, actual); ok && delta != 0 {
		adjusted = applyIndentDelta(adjusted, delta, minNonBlankIndent(pattern))
	}

	return snapContextLines(adjusted, actual)
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func trimmedEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

// tabToSpaceRatio detects a pattern indented with tabs only matched
// against a file indented with spaces only, at a consistent integer
// ratio across the non-blank lines.
func tabToSpaceRatio(pattern, actual []string) (int, bool) {
	ratio := 0
	seen := false
	for i := range pattern {
		if IsBlank(pattern[i]) || IsBlank(actual[i]) {
			continue
		}
		pIndent := GetLeadingWhitespace(pattern[i])
		aIndent := GetLeadingWhitespace(actual[i])
		if pIndent == "" && aIndent == "" {
			continue
		}
		if strings.Trim(pIndent, "\t") != "" || strings.Trim(aIndent, " ") != "" {
			return 0, false
		}
		tabs := len(pIndent)
		spaces := len(aIndent)
		if tabs == 0 {
			if spaces == 0 {
				continue
			}
			return 0, false
		}
		if spaces%tabs != 0 {
			return 0, false
		}
		r := spaces / tabs
		if seen && r != ratio {
			return 0, false
		}
		ratio = r
		seen = true
	}
	return ratio, seen && ratio > 0
}

func convertLines(lines []string, ratio int) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = convertLineLeadingTabs(line, ratio)
	}
	return out
}

// uniformIndentDelta returns the per-line indentation difference between
// actual and pattern when every non-blank line agrees on it.
func uniformIndentDelta(pattern, actual []string) (int, bool) {
	delta := 0
	seen := false
	for i := range pattern {
		if IsBlank(pattern[i]) || IsBlank(actual[i]) {
			continue
		}
		d := CountLeadingWhitespace(actual[i]) - CountLeadingWhitespace(pattern[i])
		if seen && d != delta {
			return 0, false
		}
		delta = d
		seen = true
	}
	return delta, seen
}

// applyIndentDelta shifts inserted lines whose indent sits at the
// pattern's baseline. Deeper lines are left for context snapping.
func applyIndentDelta(lines []string, delta, baseline int) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if IsBlank(line) || CountLeadingWhitespace(line) != baseline {
			out[i] = line
			continue
		}
		if delta > 0 {
			out[i] = strings.Repeat(" ", delta) + line
		} else {
			strip := -delta
			if strip > CountLeadingWhitespace(line) {
				strip = CountLeadingWhitespace(line)
			}
			out[i] = line[strip:]
		}
	}
	return out
}

// snapContextLines rewrites replacement lines that carry the same
// trimmed content as a matched file line to that exact file line, so
// unchanged context picks up the real indentation. A used-counter keeps
// duplicated lines from all snapping to the same occurrence.
func snapContextLines(newLines, actual []string) []string {
	used := make(map[string]int)
	byContent := make(map[string][]string)
	for _, a := range actual {
		key := strings.TrimSpace(a)
		if key == "" {
			continue
		}
		byContent[key] = append(byContent[key], a)
	}

	out := make([]string, len(newLines))
	for i, line := range newLines {
		key := strings.TrimSpace(line)
		candidates := byContent[key]
		if key == "" || len(candidates) == 0 || used[key] >= len(candidates) {
			out[i] = line
			continue
		}
		out[i] = candidates[used[key]]
		used[key]++
	}
	return out
}
