package edit

import (
	"fmt"
	"sort"
	"strings"
)

// Replacement is a computed, non-overlapping line-range substitution
type Replacement struct {
	StartIndex int // 0-based line index
	OldLen     int
	NewLines   []string
}

// hintSearchRadius bounds how far a match may land from a line hint
// before the hint is considered stale and ignored.
const hintSearchRadius = 50

type matchConfig struct {
	Threshold    float64
	FuzzyEnabled bool
}

// applyPatch places every hunk, computes non-overlapping replacements,
// and applies them in reverse order so indices stay valid. The whole
// patch applies or none of it does.
func applyPatch(path, content string, hunks []DiffHunk, cfg matchConfig) (string, []string, error) {
	lines := strings.Split(content, "\n")
	endsWithNewline := strings.HasSuffix(content, "\n")

	var replacements []Replacement
	lineIndex := 0

	for hi := range hunks {
		hunk := &hunks[hi]
		repl, next, err := placeHunk(path, lines, hunk, lineIndex, cfg)
		if err != nil {
			return "", nil, err
		}
		replacements = append(replacements, repl)
		lineIndex = next
	}

	sort.Slice(replacements, func(i, j int) bool {
		return replacements[i].StartIndex < replacements[j].StartIndex
	})
	for i := 1; i < len(replacements); i++ {
		prev := replacements[i-1]
		if replacements[i].StartIndex < prev.StartIndex+prev.OldLen {
			return "", nil, Errf(KindParseError,
				"hunks %d and %d overlap in %s: consolidate them into one hunk", i, i+1, path)
		}
	}

	for i := len(replacements) - 1; i >= 0; i-- {
		r := replacements[i]
		spliced := make([]string, 0, len(lines)-r.OldLen+len(r.NewLines))
		spliced = append(spliced, lines[:r.StartIndex]...)
		spliced = append(spliced, r.NewLines...)
		spliced = append(spliced, lines[r.StartIndex+r.OldLen:]...)
		lines = spliced
	}

	newContent := strings.Join(lines, "\n")
	if endsWithNewline {
		if !strings.HasSuffix(newContent, "\n") {
			newContent += "\n"
		}
	} else {
		newContent = strings.TrimRight(newContent, "\n")
	}

	return newContent, nil, nil
}

// placeHunk resolves one hunk to a Replacement. Returns the replacement
// and the line cursor for the next hunk.
func placeHunk(path string, lines []string, hunk *DiffHunk, lineIndex int, cfg matchConfig) (Replacement, int, error) {
	ctxIdx := -1
	searchFrom := lineIndex

	if hunk.ChangeContext != "" {
		res := ResolveContext(lines, hunk.ChangeContext, hunk.OldStartLine)
		switch {
		case res.Found && res.MatchCount > 1:
			// Ambiguous anchor: the hunk's own lines may still pin it down
			if len(hunk.OldLines) > 0 {
				seq := SeekSequence(lines, hunk.OldLines, 0, hunk.IsEndOfFile, cfg.FuzzyEnabled, cfg.Threshold)
				if seq.Found && seq.MatchCount == 1 {
					return buildReplacement(lines, hunk, hunk.OldLines, hunk.NewLines, seq.Index), seq.Index + len(hunk.OldLines), nil
				}
			}
			return Replacement{}, 0, ErrWithDetails(KindAmbiguousMatch,
				fmt.Sprintf("Found %d matches for context %q in %s. Add more surrounding context or additional @@ anchors to disambiguate.",
					res.MatchCount, hunk.ChangeContext, path),
				map[string]any{"count": res.MatchCount, "context": hunk.ChangeContext})
		case res.Found:
			ctxIdx = res.Index
		case len(hunk.OldLines) == 0:
			return Replacement{}, 0, Errf(KindMatchNotFound,
				"context %q not found in %s: check the anchor against the current file content", hunk.ChangeContext, path)
		}
	}

	if ctxIdx >= 0 {
		if len(hunk.OldLines) > 0 && strings.TrimSpace(hunk.OldLines[0]) == strings.TrimSpace(lines[ctxIdx]) {
			searchFrom = ctxIdx
		} else {
			searchFrom = ctxIdx + 1
		}
	}

	if len(hunk.OldLines) == 0 {
		at := insertionIndex(lines, hunk, ctxIdx, searchFrom)
		return Replacement{StartIndex: at, OldLen: 0, NewLines: hunk.NewLines}, at, nil
	}

	pattern, newLines, res := seekWithVariants(lines, hunk, searchFrom, cfg)
	if !res.Found {
		return Replacement{}, 0, notFoundError(path, lines, hunk, cfg)
	}

	idx := res.Index
	if res.MatchCount > 1 {
		resolved, err := resolveAmbiguity(path, lines, hunk, pattern, newLines, res, ctxIdx)
		if err != nil {
			return Replacement{}, 0, err
		}
		idx = resolved
	}

	return buildReplacement(lines, hunk, pattern, newLines, idx), idx + len(pattern), nil
}

func buildReplacement(lines []string, hunk *DiffHunk, pattern, newLines []string, idx int) Replacement {
	actual := lines[idx : idx+len(pattern)]
	adjusted := ReconcileIndentation(pattern, actual, newLines)
	return Replacement{StartIndex: idx, OldLen: len(pattern), NewLines: adjusted}
}

// insertionIndex picks where a pure insertion lands: the resolved
// context position, else the line hint, else end-of-file (before the
// trailing empty element a final newline leaves behind).
func insertionIndex(lines []string, hunk *DiffHunk, ctxIdx, searchFrom int) int {
	if ctxIdx >= 0 {
		return searchFrom
	}
	if hunk.OldStartLine > 0 {
		at := hunk.OldStartLine - 1
		if at > len(lines) {
			at = len(lines)
		}
		return at
	}
	at := len(lines)
	if at > 0 && lines[at-1] == "" {
		at--
	}
	return at
}

// seekWithVariants runs the seek ladder over the hunk's pattern, then
// over progressively reduced fallback variants generated from it.
func seekWithVariants(lines []string, hunk *DiffHunk, searchFrom int, cfg matchConfig) ([]string, []string, SeekResult) {
	try := func(old, new []string) ([]string, []string, SeekResult) {
		if len(old) == 0 {
			return old, new, SeekResult{}
		}
		res := seekBiased(lines, old, searchFrom, hunk, cfg)
		return old, new, res
	}

	if old, new, res := try(hunk.OldLines, hunk.NewLines); res.Found {
		return old, new, res
	}

	// Retry without a trailing blank pattern line: models pad hunks with
	// the empty line that follows the block in their copy of the file.
	if n := len(hunk.OldLines); n > 1 && IsBlank(hunk.OldLines[n-1]) {
		old := hunk.OldLines[:n-1]
		new := hunk.NewLines
		if m := len(new); m > 0 && IsBlank(new[m-1]) {
			new = new[:m-1]
		}
		if old, new, res := try(old, new); res.Found {
			return old, new, res
		}
	}

	for _, v := range fallbackVariants(hunk.OldLines, hunk.NewLines) {
		if old, new, res := try(v.old, v.new); res.Found {
			return old, new, res
		}
	}

	return hunk.OldLines, hunk.NewLines, SeekResult{}
}

// seekBiased honors the hunk's line hint: a search window around the
// hint runs first, and its result is kept only if it lands near the
// hint. Content always wins over a stale hint.
func seekBiased(lines, pattern []string, from int, hunk *DiffHunk, cfg matchConfig) SeekResult {
	if hunk.OldStartLine > 0 {
		hintFrom := hunk.OldStartLine - 1 - hintSearchRadius
		if hintFrom < 0 {
			hintFrom = 0
		}
		res := SeekSequence(lines, pattern, hintFrom, false, cfg.FuzzyEnabled, cfg.Threshold)
		if res.Found && res.Index <= hunk.OldStartLine-1+hintSearchRadius {
			return res
		}
	}
	return SeekSequence(lines, pattern, from, hunk.IsEndOfFile, cfg.FuzzyEnabled, cfg.Threshold)
}

type hunkVariant struct {
	old []string
	new []string
}

// fallbackVariants generates reduced pattern/replacement pairs for hunks
// whose literal lines never matched: shared edges trimmed, duplicated
// shared lines collapsed, repeated shared blocks collapsed, and the
// single-line-change reduction.
func fallbackVariants(oldLines, newLines []string) []hunkVariant {
	var variants []hunkVariant

	if old, new, ok := trimCommonEdges(oldLines, newLines); ok {
		variants = append(variants, hunkVariant{old, new})
	}
	if old, new, ok := collapseConsecutiveShared(oldLines, newLines); ok {
		variants = append(variants, hunkVariant{old, new})
	}
	if old, new, ok := collapseRepeatedBlocks(oldLines, newLines); ok {
		variants = append(variants, hunkVariant{old, new})
	}
	if old, new, ok := singleLineChange(oldLines, newLines); ok {
		variants = append(variants, hunkVariant{old, new})
	}

	return variants
}

// trimCommonEdges drops the shared prefix and suffix of old/new, leaving
// the differing core. At least one line of the core is kept.
func trimCommonEdges(oldLines, newLines []string) ([]string, []string, bool) {
	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}
	if prefix == 0 && suffix == 0 {
		return nil, nil, false
	}
	old := oldLines[prefix : len(oldLines)-suffix]
	new := newLines[prefix : len(newLines)-suffix]
	if len(old) == 0 {
		return nil, nil, false
	}
	return old, new, true
}

// collapseConsecutiveShared collapses runs of identical consecutive
// lines that appear in both sequences; models double context lines when
// reconstructing a hunk from a read they scrolled through twice.
func collapseConsecutiveShared(oldLines, newLines []string) ([]string, []string, bool) {
	shared := make(map[string]bool)
	for _, l := range newLines {
		shared[l] = true
	}
	old, changedOld := collapseRuns(oldLines, shared)

	sharedOld := make(map[string]bool)
	for _, l := range oldLines {
		sharedOld[l] = true
	}
	new, changedNew := collapseRuns(newLines, sharedOld)

	if !changedOld && !changedNew {
		return nil, nil, false
	}
	return old, new, true
}

func collapseRuns(lines []string, shared map[string]bool) ([]string, bool) {
	var out []string
	changed := false
	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if !shared[lines[i]] || IsBlank(lines[i]) {
			continue
		}
		for i+1 < len(lines) && lines[i+1] == lines[i] {
			i++
			changed = true
		}
	}
	return out, changed
}

// collapseRepeatedBlocks removes the first immediate repetition of a 2-4
// line block from each sequence independently. Whether the block also
// appears in the other sequence is not checked.
func collapseRepeatedBlocks(oldLines, newLines []string) ([]string, []string, bool) {
	old, changedOld := collapseBlockRepeat(oldLines)
	new, changedNew := collapseBlockRepeat(newLines)
	if !changedOld && !changedNew {
		return nil, nil, false
	}
	return old, new, true
}

func collapseBlockRepeat(lines []string) ([]string, bool) {
	for size := 2; size <= 4 && size*2 <= len(lines); size++ {
		for i := 0; i+size*2 <= len(lines); i++ {
			if linesEqual(lines[i:i+size], lines[i+size:i+size*2]) {
				out := append([]string{}, lines[:i+size]...)
				out = append(out, lines[i+size*2:]...)
				return out, true
			}
		}
	}
	return lines, false
}

// singleLineChange reduces a same-length hunk where exactly one line
// pair differs down to that pair.
func singleLineChange(oldLines, newLines []string) ([]string, []string, bool) {
	if len(oldLines) != len(newLines) || len(oldLines) < 2 {
		return nil, nil, false
	}
	diffAt := -1
	for i := range oldLines {
		if oldLines[i] != newLines[i] {
			if diffAt >= 0 {
				return nil, nil, false
			}
			diffAt = i
		}
	}
	if diffAt < 0 {
		return nil, nil, false
	}
	return []string{oldLines[diffAt]}, []string{newLines[diffAt]}, true
}

// resolveAmbiguity decides what to do with a multi-match placement
func resolveAmbiguity(path string, lines []string, hunk *DiffHunk, pattern, newLines []string, res SeekResult, ctxIdx int) (int, error) {
	// A single repeated line next to a resolved anchor: take the
	// occurrence adjacent to the anchor, forward first.
	if len(pattern) == 1 && ctxIdx >= 0 {
		return pickAdjacentMatch(lines, pattern[0], newLines, ctxIdx), nil
	}

	// A bare hunk has nothing to disambiguate with; refuse rather than
	// silently picking one.
	if hunk.ChangeContext == "" && !hunk.HasContextLines && !hunk.IsEndOfFile && hunk.OldStartLine == 0 {
		positions := matchPositions(lines, pattern, res)
		return 0, ErrWithDetails(KindAmbiguousMatch,
			fmt.Sprintf("Found %d matches for the change in %s. Add more context lines to disambiguate.",
				res.MatchCount, path),
			map[string]any{
				"count":    res.MatchCount,
				"previews": previewLineRanges(lines, positions, len(pattern)),
			})
	}

	return res.Index, nil
}

// pickAdjacentMatch chooses the occurrence of line nearest the anchor:
// forward first, then backward. When the change deletes a line whose
// trimmed content reappears in the replacement, the second forward match
// is the one the model meant.
func pickAdjacentMatch(lines []string, line string, newLines []string, ctxIdx int) int {
	trimmed := strings.TrimSpace(line)
	var forward, backward []int
	for i := range lines {
		if strings.TrimSpace(lines[i]) != trimmed {
			continue
		}
		if i >= ctxIdx {
			forward = append(forward, i)
		} else {
			backward = append(backward, i)
		}
	}

	deletesReappearing := len(newLines) > 0 && trimmedContains(newLines, trimmed)
	if deletesReappearing && len(forward) >= 2 {
		return forward[1]
	}
	if len(forward) > 0 {
		return forward[0]
	}
	if len(backward) > 0 {
		return backward[len(backward)-1]
	}
	return ctxIdx
}

func trimmedContains(lines []string, trimmed string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == trimmed {
			return true
		}
	}
	return false
}

// matchPositions recovers every location of the pattern for preview
// rendering; falls back to re-scanning with trim equality.
func matchPositions(lines []string, pattern []string, res SeekResult) []int {
	if len(res.Matches) > 0 {
		return res.Matches
	}
	var positions []int
	for i := 0; i+len(pattern) <= len(lines); i++ {
		if windowMatches(lines[i:i+len(pattern)], pattern, func(f, p string) bool {
			return strings.TrimSpace(f) == strings.TrimSpace(p)
		}) {
			positions = append(positions, i)
		}
	}
	return positions
}

// previewLineRanges renders framed, line-numbered previews around each
// candidate placement.
func previewLineRanges(lines []string, positions []int, patternLen int) []string {
	shown := len(positions)
	if shown > previewLimit {
		shown = previewLimit
	}
	previews := make([]string, 0, shown)
	for _, pos := range positions[:shown] {
		from := max(0, pos-previewContextLines)
		to := min(len(lines)-1, pos+patternLen-1+previewContextLines)
		var b strings.Builder
		for i := from; i <= to; i++ {
			text := lines[i]
			if len(text) > previewLineWidth {
				text = text[:previewLineWidth]
			}
			fmt.Fprintf(&b, "%4d│%s\n", i+1, text)
		}
		previews = append(previews, strings.TrimSuffix(b.String(), "\n"))
	}
	return previews
}

// notFoundError builds the match-not-found diagnostic, including the
// closest candidate when one scores well enough to mention.
func notFoundError(path string, lines []string, hunk *DiffHunk, cfg matchConfig) error {
	details := map[string]any{}
	msg := fmt.Sprintf("Could not find the lines to change in %s.", path)

	matcher := NewFuzzyMatcher(cfg.Threshold)
	outcome := matcher.FindMatch(strings.Join(lines, "\n"), strings.Join(hunk.OldLines, "\n"))
	if outcome.Kind == MatchClosest && outcome.Confidence > 0.4 {
		details["closest_line"] = outcome.Line
		details["similarity"] = fmt.Sprintf("%.0f%%", outcome.Confidence*100)
		msg += fmt.Sprintf(" Closest match is at line %d (%.0f%% similar). Re-read the file and use its current content.",
			outcome.Line, outcome.Confidence*100)
	} else {
		msg += " Re-read the file and copy the lines exactly, including indentation."
	}
	return ErrWithDetails(KindMatchNotFound, msg, details)
}
