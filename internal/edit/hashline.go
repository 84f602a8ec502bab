package edit

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hashSpace is 36^3: line hashes are 3 base-36 characters
const hashSpace = 36 * 36 * 36

// blastRadiusFactor triggers the change-size warning: a hashline call
// whose diff exceeds this many lines per edit operation probably merged
// or echoed more than the model intended.
const blastRadiusFactor = 4

var whitespaceRe = regexp.MustCompile(`\s+`)

// LineHash computes the content digest used in LINE:HASH references.
// Whitespace is stripped before hashing, so re-indenting a line never
// stales its references; any \r is dropped first.
func LineHash(line string) string {
	stripped := whitespaceRe.ReplaceAllString(strings.ReplaceAll(line, "\r", ""), "")
	sum := xxhash.Sum64String(stripped) % (1 << 32) // xxHash32-shaped
	v := sum % hashSpace
	s := strconv.FormatUint(v, 36)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// FormatLines renders content in the display format models read lines
// in: "LINENUM:HASH| CONTENT". The single pipe+space separator is
// load-bearing - the decoration stripper recognizes exactly this shape.
func FormatLines(content string) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d:%s| %s\n", i+1, LineHash(line), line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// LineRef addresses a line by number and staleness token
type LineRef struct {
	Line int    // 1-indexed
	Hash string // 3 base-36 chars
}

func (r LineRef) String() string {
	return fmt.Sprintf("%d:%s", r.Line, r.Hash)
}

var lineRefRe = regexp.MustCompile(`^\s*(\d+)\s*:\s*([0-9a-zA-Z]{3})\s*$`)

// ParseLineRef parses "LINE:HASH". Models that copied the display format
// wholesale ("12:abc| content") are tolerated - everything from the pipe
// on is dropped.
func ParseLineRef(s string) (LineRef, error) {
	orig := s
	if idx := strings.Index(s, "|"); idx >= 0 {
		s = s[:idx]
	}
	m := lineRefRe.FindStringSubmatch(s)
	if m == nil {
		return LineRef{}, Errf(KindParseError,
			"invalid line reference %q: expected LINE:HASH like 12:a3f", orig)
	}
	line, err := strconv.Atoi(m[1])
	if err != nil || line < 1 {
		return LineRef{}, Errf(KindParseError, "invalid line number in reference %q", orig)
	}
	return LineRef{Line: line, Hash: strings.ToLower(m[2])}, nil
}

// HashlineKind discriminates the edit variants
type HashlineKind int

const (
	// HashlineReplaceLine substitutes one line; empty content deletes
	HashlineReplaceLine HashlineKind = iota
	// HashlineReplaceLines substitutes a range; empty content deletes
	HashlineReplaceLines
	// HashlineInsertAfter inserts after a line; content must be non-empty
	HashlineInsertAfter
)

// HashlineEdit is one line-addressed operation
type HashlineEdit struct {
	Kind    HashlineKind
	Start   LineRef
	End     LineRef // ReplaceLines only
	Content string
}

type hashMismatch struct {
	Ref        LineRef
	ActualHash string // correct hash at the referenced line, "" if out of range
}

// applyHashline validates every reference, relocates the ones whose
// hash moved, applies the edits bottom-up with the merge and echo
// heuristics, and fails atomically when any reference stays stale.
func applyHashline(path, content string, edits []HashlineEdit) (string, []string, error) {
	if err := validateHashlineEdits(edits); err != nil {
		return "", nil, err
	}

	hadTrailingNewline := strings.HasSuffix(content, "\n")
	fileLines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	hashes := make([]string, len(fileLines))
	for i, line := range fileLines {
		hashes[i] = LineHash(line)
	}
	unique := uniqueHashIndex(hashes)

	// The touched set is computed before relocation and recomputed
	// after; the heuristics consult the recomputed one.
	_ = touchedLines(edits)

	work := make([]HashlineEdit, len(edits))
	copy(work, edits)

	var mismatches []hashMismatch
	for i := range work {
		relocateRef(&work[i].Start, fileLines, hashes, unique, &mismatches)
		if work[i].Kind == HashlineReplaceLines {
			relocateRef(&work[i].End, fileLines, hashes, unique, &mismatches)
			if work[i].End.Line < work[i].Start.Line {
				work[i].Start, work[i].End = work[i].End, work[i].Start
			}
		}
	}

	if len(mismatches) > 0 {
		return "", nil, hashlineMismatchError(path, fileLines, hashes, mismatches)
	}

	touched := touchedLines(work)

	sortHashlineEdits(work)

	result := make([]string, len(fileLines))
	copy(result, fileLines)
	changedLines := 0

	for _, e := range work {
		var err error
		result, changedLines, err = applyOneHashlineEdit(result, e, touched, changedLines)
		if err != nil {
			return "", nil, err
		}
	}

	newContent := strings.Join(result, "\n")
	if hadTrailingNewline {
		newContent += "\n"
	}

	if newContent == content {
		return "", nil, ErrWithDetails(KindIdenticalResult,
			fmt.Sprintf("The edit left %s unchanged. The targeted lines already read:\n%s",
				path, targetedPreview(fileLines, work)),
			map[string]any{"path": path})
	}

	var warnings []string
	if changedLines > blastRadiusFactor*len(edits) {
		warnings = append(warnings, fmt.Sprintf(
			"%d lines changed for %d edit operations - double-check the result with a fresh read",
			changedLines, len(edits)))
	}

	return newContent, warnings, nil
}

func validateHashlineEdits(edits []HashlineEdit) error {
	if len(edits) == 0 {
		return nil
	}
	for i, e := range edits {
		if e.Start.Line < 1 {
			return Errf(KindParseError, "edit %d: line numbers are 1-indexed", i+1)
		}
		if e.Kind == HashlineInsertAfter && e.Content == "" {
			return Errf(KindParseError,
				"edit %d: insertAfter requires non-empty content; use replaceLine with empty content to delete", i+1)
		}
	}
	return nil
}

// uniqueHashIndex maps each hash that occurs exactly once to its line
// index. Duplicate hashes are excluded: relocation must never guess.
func uniqueHashIndex(hashes []string) map[string]int {
	counts := make(map[string]int, len(hashes))
	for _, h := range hashes {
		counts[h]++
	}
	unique := make(map[string]int)
	for i, h := range hashes {
		if counts[h] == 1 {
			unique[h] = i
		}
	}
	return unique
}

// relocateRef validates one reference in place. A hash found at a
// different line relocates silently when unique; anything else records
// a mismatch.
func relocateRef(ref *LineRef, fileLines []string, hashes []string, unique map[string]int, mismatches *[]hashMismatch) {
	idx := ref.Line - 1
	if idx >= 0 && idx < len(hashes) && hashes[idx] == ref.Hash {
		return
	}
	if at, ok := unique[ref.Hash]; ok {
		ref.Line = at + 1
		return
	}
	actual := ""
	if idx >= 0 && idx < len(hashes) {
		actual = hashes[idx]
	}
	*mismatches = append(*mismatches, hashMismatch{Ref: *ref, ActualHash: actual})
}

func touchedLines(edits []HashlineEdit) map[int]bool {
	touched := make(map[int]bool)
	for _, e := range edits {
		switch e.Kind {
		case HashlineReplaceLine, HashlineInsertAfter:
			touched[e.Start.Line] = true
		case HashlineReplaceLines:
			end := e.End.Line
			if end < e.Start.Line {
				end = e.Start.Line
			}
			for l := e.Start.Line; l <= end; l++ {
				touched[l] = true
			}
		}
	}
	return touched
}

// sortHashlineEdits orders edits bottom-up so earlier splices never
// shift later targets. At the same line, the insertion runs first: its
// content lands after the original line, so the replacement's region is
// untouched and the inserted text ends up after the replaced line.
func sortHashlineEdits(edits []HashlineEdit) {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Start.Line != edits[j].Start.Line {
			return edits[i].Start.Line > edits[j].Start.Line
		}
		return edits[i].Kind == HashlineInsertAfter && edits[j].Kind != HashlineInsertAfter
	})
}

// hashlineMismatchError renders the stale references with surrounding
// context and a quick-fix remap block.
func hashlineMismatchError(path string, fileLines, hashes []string, mismatches []hashMismatch) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Stale line references in %s - the file content does not match the hashes you sent.\n\n", path)

	seen := make(map[int]bool)
	for _, mm := range mismatches {
		idx := mm.Ref.Line - 1
		if idx < 0 || idx >= len(fileLines) {
			fmt.Fprintf(&b, ">>> %s refers past the end of the file (%d lines)\n\n", mm.Ref, len(fileLines))
			continue
		}
		from := max(0, idx-2)
		to := min(len(fileLines)-1, idx+2)
		for i := from; i <= to; i++ {
			if seen[i] && i != idx {
				continue
			}
			seen[i] = true
			marker := "    "
			if i == idx {
				marker = ">>> "
			}
			fmt.Fprintf(&b, "%s%d:%s| %s\n", marker, i+1, hashes[i], fileLines[i])
		}
		b.WriteString("\n")
	}

	b.WriteString("Quick fix - replace the stale references:\n")
	remap := make(map[string]string, len(mismatches))
	for _, mm := range mismatches {
		if mm.ActualHash == "" {
			continue
		}
		fixed := LineRef{Line: mm.Ref.Line, Hash: mm.ActualHash}
		fmt.Fprintf(&b, "  %s → %s\n", mm.Ref, fixed)
		remap[mm.Ref.String()] = fixed.String()
	}

	return ErrWithDetails(KindHashlineMismatch, strings.TrimRight(b.String(), "\n"), map[string]any{
		"mismatches": len(mismatches),
		"remap":      remap,
	})
}

// targetedPreview shows what the edited lines actually hold, so a model
// that produced an identical result can see the current state.
func targetedPreview(fileLines []string, edits []HashlineEdit) string {
	var b strings.Builder
	shown := make(map[int]bool)
	for _, e := range edits {
		start := e.Start.Line
		end := start
		if e.Kind == HashlineReplaceLines {
			end = e.End.Line
		}
		for l := start; l <= end && l-1 < len(fileLines); l++ {
			if shown[l] {
				continue
			}
			shown[l] = true
			fmt.Fprintf(&b, "%d:%s| %s\n", l, LineHash(fileLines[l-1]), fileLines[l-1])
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
