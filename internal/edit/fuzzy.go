package edit

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFuzzyThreshold is the minimum mean per-line similarity for a
// fuzzy match to be accepted when no configuration is supplied.
const DefaultFuzzyThreshold = 0.95

// relaxedThresholdCap bounds the second-chance acceptance pass. A
// deliberate second chance, not a fallthrough: high thresholds get one
// retry at 0.92, low thresholds get none beyond their own value.
const relaxedThresholdCap = 0.92

// depthRetryFloor is the best-score floor below which the matcher does
// not bother retrying without the indent-depth prefix.
const depthRetryFloor = 0.80

// MatchKind discriminates the outcomes of a fuzzy search
type MatchKind int

const (
	// MatchNone - nothing found at all
	MatchNone MatchKind = iota
	// MatchFound - a single acceptable placement
	MatchFound
	// MatchAmbiguous - found, but not unique; previews included
	MatchAmbiguous
	// MatchClosest - best candidate below threshold, reported for diagnostics
	MatchClosest
)

// MatchOutcome is the result of a character-window search. Not found and
// found-but-not-unique are distinct because the diagnostics differ.
type MatchOutcome struct {
	Kind       MatchKind
	Start      int // byte offset of the match
	End        int // byte offset past the match
	Line       int // 1-based first line of the match
	Confidence float64
	Count      int      // occurrences (exact) or threshold-passers (fuzzy)
	Previews   []string // framed previews for ambiguous outcomes
}

// FuzzyMatcher runs character-window similarity searches
type FuzzyMatcher struct {
	Threshold float64
}

// NewFuzzyMatcher creates a matcher with the given acceptance threshold
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &FuzzyMatcher{Threshold: threshold}
}

// LevenshteinDistance calculates the edit distance between two strings
// using the two-row dynamic programming formulation.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// SimilarityRatio calculates 1 - distance/max(len) for two strings
func SimilarityRatio(s1, s2 string) float64 {
	if len(s1) == 0 && len(s2) == 0 {
		return 1.0
	}
	distance := LevenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))
	return 1.0 - float64(distance)/float64(maxLen)
}

// FindMatch locates target inside content. Exact occurrences win: one is
// a match, several are ambiguous with line-numbered previews. Otherwise a
// window of len(target.lines) slides across the file and the mean
// per-line similarity decides, first with a relative-indent-depth prefix
// so "  x" and "    x" differ, then without it when the best score lands
// in [0.80, threshold).
func (fm *FuzzyMatcher) FindMatch(content, target string) MatchOutcome {
	if len(target) == 0 {
		return MatchOutcome{Kind: MatchNone}
	}

	positions := findOccurrences(content, target)
	switch {
	case len(positions) == 1:
		return MatchOutcome{
			Kind:       MatchFound,
			Start:      positions[0],
			End:        positions[0] + len(target),
			Line:       lineNumberAt(content, positions[0]),
			Confidence: 1.0,
			Count:      1,
		}
	case len(positions) > 1:
		return MatchOutcome{
			Kind:     MatchAmbiguous,
			Count:    len(positions),
			Line:     lineNumberAt(content, positions[0]),
			Previews: framedPreviews(content, positions, len(target)),
		}
	}

	return fm.findFuzzy(content, target)
}

type windowScore struct {
	startLine int
	score     float64
}

func (fm *FuzzyMatcher) findFuzzy(content, target string) MatchOutcome {
	contentLines := strings.Split(content, "\n")
	targetLines := strings.Split(target, "\n")
	if len(targetLines) > len(contentLines) {
		return MatchOutcome{Kind: MatchNone}
	}

	best, passers := fm.scanWindows(contentLines, targetLines, fm.Threshold, true)

	// Depth-prefixed scoring can under-score re-indented code. Retry
	// without the prefix only when the strict pass got close.
	if passers == 0 && best.score >= depthRetryFloor && best.score < fm.Threshold {
		flatBest, flatPassers := fm.scanWindows(contentLines, targetLines, fm.Threshold, false)
		if flatBest.score > best.score {
			best, passers = flatBest, flatPassers
		}
	}

	accept := fm.Threshold
	if passers == 0 {
		// relaxed second chance
		relaxed := min(fm.Threshold, relaxedThresholdCap)
		if best.score >= relaxed {
			accept = relaxed
			passers = countPassers(contentLines, targetLines, relaxed)
		}
	}

	if best.startLine < 0 {
		return MatchOutcome{Kind: MatchNone}
	}

	start, end := lineSpanToByteRange(contentLines, best.startLine, best.startLine+len(targetLines))
	outcome := MatchOutcome{
		Start:      start,
		End:        end,
		Line:       best.startLine + 1,
		Confidence: best.score,
		Count:      passers,
	}
	if best.score >= accept && passers == 1 {
		outcome.Kind = MatchFound
		return outcome
	}
	outcome.Kind = MatchClosest
	return outcome
}

// scanWindows slides a window of len(target) lines across the content and
// returns the best-scoring window plus the count of threshold-passers.
func (fm *FuzzyMatcher) scanWindows(contentLines, targetLines []string, threshold float64, withDepth bool) (windowScore, int) {
	targetNorm := normalizeBlock(targetLines, withDepth)
	best := windowScore{startLine: -1}
	passers := 0

	for i := 0; i+len(targetLines) <= len(contentLines); i++ {
		window := contentLines[i : i+len(targetLines)]
		windowNorm := normalizeBlock(window, withDepth)
		score := meanLineSimilarity(windowNorm, targetNorm)
		if score >= threshold {
			passers++
		}
		if score > best.score {
			best = windowScore{startLine: i, score: score}
		}
	}
	return best, passers
}

func countPassers(contentLines, targetLines []string, threshold float64) int {
	targetNorm := normalizeBlock(targetLines, true)
	passers := 0
	for i := 0; i+len(targetLines) <= len(contentLines); i++ {
		windowNorm := normalizeBlock(contentLines[i:i+len(targetLines)], true)
		if meanLineSimilarity(windowNorm, targetNorm) >= threshold {
			passers++
		}
	}
	return passers
}

// normalizeBlock canonicalizes each line for comparison. With depth
// enabled, each line gets a relative-indent prefix measured against the
// block's shallowest non-blank line, so indentation structure matters
// even after whitespace collapsing.
func normalizeBlock(lines []string, withDepth bool) []string {
	minIndent := minNonBlankIndent(lines)
	out := make([]string, len(lines))
	for i, line := range lines {
		norm := NormalizeForFuzzy(line)
		if withDepth && !IsBlank(line) {
			depth := CountLeadingWhitespace(line) - minIndent
			if depth < 0 {
				depth = 0
			}
			norm = strconv.Itoa(depth) + "\x00" + norm
		}
		out[i] = norm
	}
	return out
}

func minNonBlankIndent(lines []string) int {
	minIndent := -1
	for _, line := range lines {
		if IsBlank(line) {
			continue
		}
		n := CountLeadingWhitespace(line)
		if minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}
	if minIndent < 0 {
		return 0
	}
	return minIndent
}

func meanLineSimilarity(a, b []string) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	total := 0.0
	for i := range a {
		total += SimilarityRatio(a[i], b[i])
	}
	return total / float64(len(a))
}

// findOccurrences returns the byte offsets of every exact occurrence
func findOccurrences(content, search string) []int {
	var positions []int
	pos := 0
	for {
		idx := strings.Index(content[pos:], search)
		if idx == -1 {
			break
		}
		positions = append(positions, pos+idx)
		pos += idx + len(search)
	}
	return positions
}

// lineNumberAt returns the 1-based line number for a byte offset
func lineNumberAt(content string, byteOffset int) int {
	lineNum := 1
	for i := 0; i < byteOffset && i < len(content); i++ {
		if content[i] == '\n' {
			lineNum++
		}
	}
	return lineNum
}

// lineSpanToByteRange converts a [startLine, endLine) span to byte offsets
func lineSpanToByteRange(lines []string, startLine, endLine int) (start, end int) {
	for i := 0; i < startLine; i++ {
		start += len(lines[i]) + 1
	}
	end = start
	for i := startLine; i < endLine && i < len(lines); i++ {
		end += len(lines[i])
		if i < endLine-1 {
			end++
		}
	}
	return start, end
}

const (
	previewLimit        = 5
	previewContextLines = 5
	previewLineWidth    = 80
)

// framedPreviews renders up to previewLimit occurrences as line-numbered
// blocks with surrounding context, so the model can pick out which one it
// meant and add disambiguating lines.
func framedPreviews(content string, positions []int, matchLen int) []string {
	lines := strings.Split(content, "\n")
	shown := len(positions)
	if shown > previewLimit {
		shown = previewLimit
	}

	previews := make([]string, 0, shown)
	for _, pos := range positions[:shown] {
		startLine := lineNumberAt(content, pos) - 1 // 0-based
		endLine := lineNumberAt(content, min(pos+matchLen, len(content))) - 1

		from := max(0, startLine-previewContextLines)
		to := min(len(lines)-1, endLine+previewContextLines)

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
