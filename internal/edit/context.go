package edit

import "strings"

// Context-line search passes (for @@ anchors), strict to lenient
const (
	ContextPassExact      = 1
	ContextPassTrim       = 2
	ContextPassUnicode    = 3
	ContextPassPrefix     = 4
	ContextPassSubstring  = 5
	ContextPassSimilarity = 6

	contextSimilarityFloor = 0.80
)

// ContextResult reports where an anchor line resolved
type ContextResult struct {
	Found      bool
	Index      int // 0-based line index
	Pass       int
	MatchCount int
}

// FindContextLine resolves a single @@ anchor against the file, starting
// at start. Substring matching carries a uniqueness rescue: a lone
// substring hit is accepted regardless of coverage ratio, multiple hits
// are filtered by the 30% ratio. Function-like anchors ending in "()"
// get retried with "(" and again with the parentheses dropped.
func FindContextLine(lines []string, context string, start int) ContextResult {
	if res := findContextVariant(lines, context, start); res.Found {
		return res
	}

	trimmed := strings.TrimSpace(context)
	if strings.HasSuffix(trimmed, "()") {
		open := strings.TrimSuffix(trimmed, ")")
		if res := findContextVariant(lines, open, start); res.Found {
			return res
		}
		bare := strings.TrimSuffix(trimmed, "()")
		if res := findContextVariant(lines, bare, start); res.Found {
			return res
		}
	}
	return ContextResult{}
}

func findContextVariant(lines []string, context string, start int) ContextResult {
	if start < 0 {
		start = 0
	}
	ctxTrim := strings.TrimSpace(context)
	if ctxTrim == "" {
		return ContextResult{}
	}
	ctxNorm := NormalizeForFuzzy(context)

	// Pass 1: exact
	if res := scanContext(lines, start, ContextPassExact, func(l string) bool {
		return l == context
	}); res.Found {
		return res
	}

	// Pass 2: trimmed
	if res := scanContext(lines, start, ContextPassTrim, func(l string) bool {
		return strings.TrimSpace(l) == ctxTrim
	}); res.Found {
		return res
	}

	// Pass 3: unicode-normalized
	ctxUni := NormalizeUnicode(ctxTrim)
	if res := scanContext(lines, start, ContextPassUnicode, func(l string) bool {
		return NormalizeUnicode(strings.TrimSpace(l)) == ctxUni
	}); res.Found {
		return res
	}

	// Pass 4: normalized prefix
	if res := scanContext(lines, start, ContextPassPrefix, func(l string) bool {
		return strings.HasPrefix(NormalizeForFuzzy(l), ctxNorm)
	}); res.Found {
		return res
	}

	// Pass 5: normalized substring with uniqueness rescue
	if res := scanContextSubstring(lines, start, ctxNorm); res.Found {
		return res
	}

	// Pass 6: similarity
	best := -1
	bestScore := 0.0
	count := 0
	for i := start; i < len(lines); i++ {
		score := SimilarityRatio(NormalizeForFuzzy(lines[i]), ctxNorm)
		if score >= contextSimilarityFloor {
			count++
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
	}
	if best >= 0 {
		return ContextResult{Found: true, Index: best, Pass: ContextPassSimilarity, MatchCount: count}
	}
	return ContextResult{}
}

func scanContext(lines []string, start, pass int, pred func(string) bool) ContextResult {
	first := -1
	count := 0
	for i := start; i < len(lines); i++ {
		if pred(lines[i]) {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if first < 0 {
		return ContextResult{}
	}
	return ContextResult{Found: true, Index: first, Pass: pass, MatchCount: count}
}

// scanContextSubstring collects every substring hit. One hit is accepted
// unconditionally; several apply the coverage-ratio filter before
// surfacing ambiguity.
func scanContextSubstring(lines []string, start int, ctxNorm string) ContextResult {
	if ctxNorm == "" {
		return ContextResult{}
	}
	var matches []int
	for i := start; i < len(lines); i++ {
		if strings.Contains(NormalizeForFuzzy(lines[i]), ctxNorm) {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return ContextResult{}
	case 1:
		return ContextResult{Found: true, Index: matches[0], Pass: ContextPassSubstring, MatchCount: 1}
	}

	var filtered []int
	for _, i := range matches {
		lineNorm := NormalizeForFuzzy(lines[i])
		if len(ctxNorm) >= seekSubstringMinChars &&
			float64(len(ctxNorm))/float64(len(lineNorm)) >= seekSubstringMinRatio {
			filtered = append(filtered, i)
		}
	}
	if len(filtered) == 0 {
		filtered = matches
	}
	return ContextResult{Found: true, Index: filtered[0], Pass: ContextPassSubstring, MatchCount: len(filtered)}
}

// signatureChars appear in code-like anchors; their presence disables the
// outer/inner split for space-separated scope chains.
const signatureChars = "()[]{}"

// ResolveContext resolves a possibly-hierarchical changeContext. A
// newline-separated chain resolves each anchor after the previous one;
// ambiguity in the innermost falls back to the line hint when one exists.
// A space-separated chain of more than two tokens without signature
// characters splits into an outer and inner scope.
func ResolveContext(lines []string, changeContext string, lineHint int) ContextResult {
	if strings.Contains(changeContext, "\n") {
		return resolveAnchorChain(lines, strings.Split(changeContext, "\n"), lineHint)
	}

	tokens := strings.Fields(changeContext)
	if len(tokens) > 2 && !strings.ContainsAny(changeContext, signatureChars) {
		outer := strings.Join(tokens[:2], " ")
		inner := strings.Join(tokens[2:], " ")
		return resolveAnchorChain(lines, []string{outer, inner}, lineHint)
	}

	res := FindContextLine(lines, changeContext, 0)
	if res.Found && res.MatchCount > 1 && lineHint > 0 {
		return pickNearestContext(lines, changeContext, lineHint)
	}
	return res
}

func resolveAnchorChain(lines []string, anchors []string, lineHint int) ContextResult {
	start := 0
	var res ContextResult
	for i, anchor := range anchors {
		if strings.TrimSpace(anchor) == "" {
			continue
		}
		res = FindContextLine(lines, anchor, start)
		if !res.Found {
			return ContextResult{}
		}
		last := i == len(anchors)-1
		if last && res.MatchCount > 1 && lineHint > 0 {
			if picked := pickNearestContextFrom(lines, anchor, start, lineHint); picked.Found {
				res = picked
			}
		}
		start = res.Index + 1
	}
	return res
}

// pickNearestContext re-runs the anchor search collecting all candidates
// and keeps the one closest to the line hint.
func pickNearestContext(lines []string, anchor string, lineHint int) ContextResult {
	return pickNearestContextFrom(lines, anchor, 0, lineHint)
}

func pickNearestContextFrom(lines []string, anchor string, start, lineHint int) ContextResult {
	res := FindContextLine(lines, anchor, start)
	if !res.Found || res.MatchCount <= 1 {
		return res
	}

	// Collect all positions matching at the accepted pass's strictness by
	// restarting the search past each hit.
	best := res.Index
	bestDist := absInt(res.Index + 1 - lineHint)
	cursor := res.Index + 1
	for i := 1; i < res.MatchCount; i++ {
		next := FindContextLine(lines, anchor, cursor)
		if !next.Found {
			break
		}
		if d := absInt(next.Index + 1 - lineHint); d < bestDist {
			best = next.Index
			bestDist = d
		}
		cursor = next.Index + 1
	}
	return ContextResult{Found: true, Index: best, Pass: res.Pass, MatchCount: 1}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
