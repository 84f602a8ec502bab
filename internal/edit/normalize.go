package edit

import (
	"strings"

	"golang.org/x/text/width"
)

// LineEnding identifies a file's dominant line terminator
type LineEnding string

const (
	LineEndingLF   LineEnding = "\n"
	LineEndingCRLF LineEnding = "\r\n"
	LineEndingCR   LineEnding = "\r"
)

const bomRune = "\uFEFF"

// StripBOM splits a leading UTF-8 byte order mark off the content.
// Returns the BOM (or "") and the remainder.
func StripBOM(text string) (bom, rest string) {
	if strings.HasPrefix(text, bomRune) {
		return bomRune, text[len(bomRune):]
	}
	return "", text
}

// DetectLineEnding returns the ending of the first line break in text.
// Files without any line break default to LF.
func DetectLineEnding(text string) LineEnding {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return LineEndingLF
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return LineEndingCRLF
			}
			return LineEndingCR
		}
	}
	return LineEndingLF
}

// NormalizeToLF converts CRLF and standalone CR line breaks to LF
func NormalizeToLF(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// RestoreLineEndings converts LF-normalized text back to the given ending
func RestoreLineEndings(text string, ending LineEnding) string {
	if ending == LineEndingLF {
		return text
	}
	return strings.ReplaceAll(text, "\n", string(ending))
}

// confusables maps unicode punctuation that models substitute for ASCII.
// Folding is comparison-only; file content is never rewritten through it
// except by the hashline hyphen heuristic.
var confusables = map[rune]rune{
	// hyphens and dashes
	'‐': '-', // hyphen
	'‑': '-', // non-breaking hyphen
	'‒': '-', // figure dash
	'–': '-', // en dash
	'—': '-', // em dash
	'―': '-', // horizontal bar
	'−': '-', // minus sign
	// single quotes
	'‘': '\'',
	'’': '\'',
	'‚': '\'',
	'‛': '\'',
	'′': '\'',
	// double quotes
	'“': '"',
	'”': '"',
	'„': '"',
	'″': '"',
	// spaces
	'\u00a0': ' ', // no-break space
	'\u2000': ' ',
	'\u2001': ' ',
	'\u2002': ' ',
	'\u2003': ' ',
	'\u2004': ' ',
	'\u2005': ' ',
	'\u2006': ' ',
	'\u2007': ' ',
	'\u2008': ' ',
	'\u2009': ' ',
	'\u200a': ' ',
	'\u202f': ' ', // narrow no-break space
	'\u3000': ' ', // ideographic space
}

// confusableHyphens is the subset of confusables the hashline applicator
// may rewrite into ASCII hyphens.
var confusableHyphens = map[rune]bool{
	'‐': true, '‑': true, '‒': true,
	'–': true, '—': true, '―': true, '−': true,
}

func foldConfusables(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := confusables[r]; ok {
			b.WriteRune(folded)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContainsConfusableHyphen reports whether s contains a non-ASCII hyphen
func ContainsConfusableHyphen(s string) bool {
	for _, r := range s {
		if confusableHyphens[r] {
			return true
		}
	}
	return false
}

// FoldHyphens rewrites confusable hyphens in s to ASCII '-'
func FoldHyphens(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if confusableHyphens[r] {
			b.WriteByte('-')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeUnicode folds confusable punctuation and fullwidth forms.
// Used by context matching; lighter than NormalizeForFuzzy (no trimming,
// no whitespace collapsing).
func NormalizeUnicode(line string) string {
	return foldConfusables(width.Narrow.String(line))
}

// NormalizeForFuzzy canonicalizes a line for similarity comparison:
// unicode folding, whitespace runs collapsed to single spaces, trimmed.
// Idempotent.
func NormalizeForFuzzy(line string) string {
	folded := NormalizeUnicode(line)
	fields := strings.Fields(folded)
	return strings.Join(fields, " ")
}

// CountLeadingWhitespace returns the number of leading space/tab bytes
func CountLeadingWhitespace(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return i
		}
	}
	return len(line)
}

// GetLeadingWhitespace returns the leading space/tab run of a line
func GetLeadingWhitespace(line string) string {
	return line[:CountLeadingWhitespace(line)]
}

// ConvertLeadingTabsToSpaces rewrites each leading tab in every line of
// text to ratio spaces. Interior tabs are untouched.
func ConvertLeadingTabsToSpaces(text string, ratio int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = convertLineLeadingTabs(line, ratio)
	}
	return strings.Join(lines, "\n")
}

func convertLineLeadingTabs(line string, ratio int) string {
	j := 0
	for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
		j++
	}
	if !strings.Contains(line[:j], "\t") {
		return line
	}
	var b strings.Builder
	for _, c := range []byte(line[:j]) {
		if c == '\t' {
			b.WriteString(strings.Repeat(" ", ratio))
		} else {
			b.WriteByte(c)
		}
	}
	b.WriteString(line[j:])
	return b.String()
}

// commentLeaders are the prefixes stripped by the comment-tolerant
// matching pass. Ordered longest-first so "//" wins over "/".
var commentLeaders = []string{"//", "--", "#", ";"}

// StripCommentPrefix removes a leading comment marker (and one following
// space) from a trimmed line. Lines without a marker come back trimmed.
func StripCommentPrefix(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, leader := range commentLeaders {
		if strings.HasPrefix(trimmed, leader) {
			rest := strings.TrimPrefix(trimmed, leader)
			return strings.TrimPrefix(rest, " ")
		}
	}
	return trimmed
}

// IsBlank reports whether a line is empty or whitespace-only
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
