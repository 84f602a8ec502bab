package edit

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies edit failures so callers can route diagnostics
// back to the model with the right framing.
type ErrorKind int

const (
	// KindFileNotFound - path does not exist or is a directory
	KindFileNotFound ErrorKind = iota

	// KindMatchNotFound - pattern could not be placed in the file
	KindMatchNotFound

	// KindAmbiguousMatch - multiple placements; previews included
	KindAmbiguousMatch

	// KindHashlineMismatch - one or more stale line hashes
	KindHashlineMismatch

	// KindParseError - malformed hunk or edit grammar
	KindParseError

	// KindIdenticalResult - the edit produced identical content
	KindIdenticalResult

	// KindNotebookUnsupported - .ipynb paths are rejected
	KindNotebookUnsupported

	// KindPlanModeBlocked - external guard refused the write
	KindPlanModeBlocked
)

// String returns the wire name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindFileNotFound:
		return "file_not_found"
	case KindMatchNotFound:
		return "match_not_found"
	case KindAmbiguousMatch:
		return "ambiguous_match"
	case KindHashlineMismatch:
		return "hashline_mismatch"
	case KindParseError:
		return "parse_error"
	case KindIdenticalResult:
		return "identical_result"
	case KindNotebookUnsupported:
		return "notebook_unsupported"
	case KindPlanModeBlocked:
		return "plan_mode_blocked"
	default:
		return "unknown"
	}
}

// EditError is the engine's failure type. Message is always actionable:
// it names the file, quotes the offending input or nearby previews, and
// tells the model what to change. Details carries structured data
// (line numbers, previews, remaps) for callers that render their own UI.
type EditError struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
}

// Error implements the error interface
func (e *EditError) Error() string {
	return e.Message
}

// ToJSON returns the structured form of the error
func (e *EditError) ToJSON() map[string]any {
	result := map[string]any{
		"success": false,
		"error":   e.Kind.String(),
		"message": e.Message,
	}
	for k, v := range e.Details {
		result[k] = v
	}
	return result
}

// Errf creates an EditError with a formatted message
func Errf(kind ErrorKind, format string, args ...any) *EditError {
	return &EditError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrWithDetails creates an EditError carrying structured details
func ErrWithDetails(kind ErrorKind, msg string, details map[string]any) *EditError {
	return &EditError{Kind: kind, Message: msg, Details: details}
}

// IsKind reports whether err is an EditError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	if ee, ok := err.(*EditError); ok {
		return ee.Kind == kind
	}
	return false
}

// FormatError returns JSON for errors with details, plain text otherwise
func FormatError(err error) string {
	if ee, ok := err.(*EditError); ok && len(ee.Details) > 0 {
		jsonBytes, marshalErr := json.MarshalIndent(ee.ToJSON(), "", "  ")
		if marshalErr == nil {
			return string(jsonBytes)
		}
	}
	return fmt.Sprintf("Error: %v", err)
}
