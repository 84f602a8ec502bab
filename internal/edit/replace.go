package edit

import (
	"fmt"
	"strings"
)

// applyReplace performs the replace-mode edit: exact occurrences first,
// with uniqueness enforced, then the character-window fuzzy fallback.
// Returns the new content and the number of occurrences replaced.
func applyReplace(path, content, oldText, newText string, all bool, cfg matchConfig) (string, int, []string, error) {
	if oldText == "" {
		return "", 0, nil, Errf(KindParseError,
			"old_text must not be empty; to create %s use patch mode with op \"create\"", path)
	}
	if oldText == newText {
		return "", 0, nil, Errf(KindIdenticalResult,
			"old_text and new_text are identical in %s - no change would be made", path)
	}

	positions := findOccurrences(content, oldText)
	switch {
	case len(positions) == 1:
		return content[:positions[0]] + newText + content[positions[0]+len(oldText):], 1, nil, nil
	case len(positions) > 1 && all:
		return strings.ReplaceAll(content, oldText, newText), len(positions), nil, nil
	case len(positions) > 1:
		return "", 0, nil, ErrWithDetails(KindAmbiguousMatch,
			fmt.Sprintf("old_text matches %d locations in %s. Add more context lines to disambiguate, or pass all=true to replace every occurrence.",
				len(positions), path),
			map[string]any{
				"count":    len(positions),
				"previews": framedPreviews(content, positions, len(oldText)),
			})
	}

	if !cfg.FuzzyEnabled {
		return "", 0, nil, replaceNotFound(path, content, oldText, MatchOutcome{Kind: MatchNone})
	}

	matcher := NewFuzzyMatcher(cfg.Threshold)
	outcome := matcher.FindMatch(content, oldText)
	switch outcome.Kind {
	case MatchFound:
		matched := content[outcome.Start:outcome.End]
		adjusted := ReconcileIndentation(
			strings.Split(oldText, "\n"),
			strings.Split(matched, "\n"),
			strings.Split(newText, "\n"),
		)
		replacement := strings.Join(adjusted, "\n")
		warnings := []string{fmt.Sprintf("fuzzy match at line %d (%.0f%% similar)", outcome.Line, outcome.Confidence*100)}
		return content[:outcome.Start] + replacement + content[outcome.End:], 1, warnings, nil
	case MatchAmbiguous:
		return "", 0, nil, ErrWithDetails(KindAmbiguousMatch,
			fmt.Sprintf("old_text matches %d locations in %s with high confidence. Add more context lines to disambiguate.",
				outcome.Count, path),
			map[string]any{"count": outcome.Count, "previews": outcome.Previews})
	default:
		return "", 0, nil, replaceNotFound(path, content, oldText, outcome)
	}
}

func replaceNotFound(path, content, oldText string, outcome MatchOutcome) error {
	details := map[string]any{}
	msg := fmt.Sprintf("old_text not found in %s.", path)
	if outcome.Kind == MatchClosest {
		if outcome.Count > 1 {
			msg = fmt.Sprintf("old_text has %d high-confidence matches in %s. Add more context lines to disambiguate.",
				outcome.Count, path)
			return ErrWithDetails(KindAmbiguousMatch, msg, map[string]any{"count": outcome.Count})
		}
		details["closest_line"] = outcome.Line
		details["similarity"] = fmt.Sprintf("%.0f%%", outcome.Confidence*100)
		msg += fmt.Sprintf(" Closest match is at line %d (%.0f%% similar) - re-read the file and copy its current content.",
			outcome.Line, outcome.Confidence*100)
	} else {
		msg += " Re-read the file and copy the text to replace exactly, including whitespace."
	}
	return ErrWithDetails(KindMatchNotFound, msg, details)
}
