package edit

import (
	"regexp"
	"strconv"
	"strings"
)

// DiffHunk is an ordered unit of change parsed from patch-mode input
type DiffHunk struct {
	OldLines        []string // context + removals, in file order
	NewLines        []string // context + additions, in file order
	OldStartLine    int      // optional 1-based hint, 0 = unset
	NewStartLine    int
	ChangeContext   string // optional @@ anchor, possibly hierarchical
	HasContextLines bool
	IsEndOfFile     bool
}

// isChange reports whether the hunk actually changes anything
func (h *DiffHunk) isChange() bool {
	return len(h.OldLines) > 0 || len(h.NewLines) > 0
}

// Models drop or double the spaces around "line" hints; accept
// "@@ line 12", "@@line:12", "@@ ... :line 12" and friends.
var (
	bareLineHintRe   = regexp.MustCompile(`^line\s*:?\s*(\d+)$`)
	suffixLineHintRe = regexp.MustCompile(`\s*:?\s*\bline\s*:?\s*(\d+)\s*$`)
)

// envelope markers some models wrap the diff in; skipped, not errors
var envelopePrefixes = []string{
	"*** Begin Patch",
	"*** End Patch",
	"*** Update File:",
	"*** Add File:",
}

func isEndOfFileMarker(line string) bool {
	t := strings.TrimSpace(line)
	return strings.EqualFold(t, "*** End of File") || strings.EqualFold(t, "*** EOF")
}

// ParseHunks parses patch-mode input into ordered hunks. A hunk begins
// at an optional "@@ changeContext" line (an immediately following
// "@@ line N" attaches a hint to it); body lines are classified by first
// character. A bare hunk with neither anchor nor context lines is legal.
func ParseHunks(diff string) ([]DiffHunk, error) {
	if strings.TrimSpace(diff) == "" {
		return nil, Errf(KindParseError, "empty diff: nothing to apply")
	}

	lines := strings.Split(diff, "\n")
	var hunks []DiffHunk
	current := &DiffHunk{}

	flush := func() {
		if current.isChange() || current.ChangeContext != "" {
			hunks = append(hunks, *current)
		}
		current = &DiffHunk{}
	}

	for i, line := range lines {
		if isEndOfFileMarker(line) {
			current.IsEndOfFile = true
			continue
		}
		if isEnvelopeLine(line) {
			continue
		}

		if anchor, ok := parseAnchorLine(line); ok {
			if hint, isHint := parseBareLineHint(anchor); isHint {
				// "@@ line N" refines the current hunk rather than
				// starting a new one
				if current.OldStartLine == 0 {
					current.OldStartLine = hint
					current.NewStartLine = hint
				}
				continue
			}
			flush()
			anchor, hint := splitSuffixLineHint(anchor)
			current.ChangeContext = anchor
			current.OldStartLine = hint
			current.NewStartLine = hint
			continue
		}

		if len(line) == 0 {
			// blank body line counts as empty context
			if current.isChange() {
				current.OldLines = append(current.OldLines, "")
				current.NewLines = append(current.NewLines, "")
				current.HasContextLines = true
			}
			continue
		}

		switch line[0] {
		case ' ':
			content := line[1:]
			current.OldLines = append(current.OldLines, content)
			current.NewLines = append(current.NewLines, content)
			current.HasContextLines = true
		case '-':
			current.OldLines = append(current.OldLines, line[1:])
		case '+':
			current.NewLines = append(current.NewLines, line[1:])
		case '\\':
			// "\ No newline at end of file"
			continue
		default:
			return nil, Errf(KindParseError,
				"line %d: unexpected line prefix (must be ' ', '-', '+', '\\' or '@@'): %q", i+1, line)
		}
	}
	flush()

	if len(hunks) == 0 {
		return nil, Errf(KindParseError, "empty diff: no hunks found")
	}

	dropDuplicatedAnchors(hunks)
	return hunks, nil
}

func isEnvelopeLine(line string) bool {
	for _, p := range envelopePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// parseAnchorLine recognizes "@@ ctx" and the spacing mistakes around it
func parseAnchorLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "@@") {
		return "", false
	}
	rest := strings.TrimPrefix(line, "@@")
	rest = strings.TrimSuffix(rest, "@@") // unified-diff style "@@ ... @@"
	return strings.TrimSpace(rest), true
}

func parseBareLineHint(anchor string) (int, bool) {
	m := bareLineHintRe.FindStringSubmatch(anchor)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// splitSuffixLineHint strips a trailing ":line N" from an anchor
func splitSuffixLineHint(anchor string) (string, int) {
	m := suffixLineHintRe.FindStringSubmatch(anchor)
	if m == nil {
		return anchor, 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return anchor, 0
	}
	stripped := strings.TrimSpace(suffixLineHintRe.ReplaceAllString(anchor, ""))
	if stripped == "" {
		return anchor, 0
	}
	return stripped, n
}

// dropDuplicatedAnchors handles models that repeat the @@ anchor text as
// context twice: when the first two context lines both trim-equal the
// innermost anchor, the first one is dropped. A single leading copy is
// kept.
func dropDuplicatedAnchors(hunks []DiffHunk) {
	for i := range hunks {
		h := &hunks[i]
		if h.ChangeContext == "" || len(h.OldLines) < 2 || len(h.NewLines) < 2 {
			continue
		}
		innermost := innermostAnchor(h.ChangeContext)
		if strings.TrimSpace(h.OldLines[0]) != strings.TrimSpace(innermost) {
			continue
		}
		if h.OldLines[0] != h.NewLines[0] {
			continue
		}
		if strings.TrimSpace(h.OldLines[1]) == strings.TrimSpace(innermost) {
			h.OldLines = h.OldLines[1:]
			h.NewLines = h.NewLines[1:]
		}
	}
}

// innermostAnchor returns the last line of a hierarchical anchor
func innermostAnchor(changeContext string) string {
	if idx := strings.LastIndex(changeContext, "\n"); idx >= 0 {
		return changeContext[idx+1:]
	}
	return changeContext
}

// StripAddPrefixes removes a leading '+' from every line when the whole
// block carries them - a common model mistake when supplying create-mode
// content.
func StripAddPrefixes(content string) string {
	lines := strings.Split(content, "\n")
	nonEmpty := 0
	prefixed := 0
	for _, line := range lines {
		if line == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "++") {
			prefixed++
		}
	}
	if nonEmpty == 0 || prefixed != nonEmpty {
		return content
	}
	for i, line := range lines {
		if strings.HasPrefix(line, "+") {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}
