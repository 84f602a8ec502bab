package edit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kvit-s/editkit/internal/config"
)

// Mode selects the edit grammar for a call
type Mode string

const (
	ModeReplace  Mode = "replace"
	ModePatch    Mode = "patch"
	ModeHashline Mode = "hashline"
)

// ReplaceEdit is the replace-mode descriptor
type ReplaceEdit struct {
	OldText string
	NewText string
	All     bool
}

// Patch ops
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpUpdate = "update"
)

// PatchEdit is the patch-mode descriptor. Diff holds hunks for update,
// or the full file content for create.
type PatchEdit struct {
	Op     string // create | delete | update; empty means update
	Rename string // optional new path, applied after the edit
	Diff   string
}

// Request is the edit descriptor handed to the façade. Exactly one of
// Replace, Patch, Hashline is populated; Mode may force the choice and
// must then agree with the populated field.
type Request struct {
	Path     string
	Mode     Mode
	Replace  *ReplaceEdit
	Patch    *PatchEdit
	Hashline []HashlineEdit
}

// DiagnosticsResult is whatever the writethrough learned while
// persisting - formatter rewrites, linter findings. Advisory metadata;
// the engine passes it through untouched.
type DiagnosticsResult struct {
	FormattedContent string // non-empty when a formatter rewrote the file
	Messages         []string
}

// Writethrough persists bytes and optionally formats and diagnoses.
// When nil, the engine writes through its FS capability directly.
type Writethrough func(ctx context.Context, absPath, content string) (*DiagnosticsResult, error)

// PlanGuard vetoes writes under an external policy (plan mode). A
// non-nil error blocks the edit and is reported verbatim.
type PlanGuard func(path, op, rename string) error

// Result is the outcome of a successful edit
type Result struct {
	Summary          string
	Diff             string
	FirstChangedLine int
	Diagnostics      *DiagnosticsResult
	Op               string
	Rename           string
	Warnings         []string
}

// Engine applies model-proposed edits to files. One instance is safe
// for concurrent use across different files; edits to the same file
// across calls are the caller's problem to order.
type Engine struct {
	fs           FS
	cfg          *config.Config
	log          *zap.Logger
	writethrough Writethrough
	planGuard    PlanGuard
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger attaches a zap logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithWritethrough attaches the external write callback
func WithWritethrough(wt Writethrough) Option {
	return func(e *Engine) { e.writethrough = wt }
}

// WithPlanGuard attaches the external write-guard policy
func WithPlanGuard(g PlanGuard) Option {
	return func(e *Engine) { e.planGuard = g }
}

// New creates an Engine over the given file-system capability
func New(fs FS, cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{fs: fs, cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) matchConfig() matchConfig {
	return matchConfig{
		Threshold:    e.cfg.Edit.GetFuzzyThreshold(),
		FuzzyEnabled: e.cfg.Edit.GetFuzzyEnabled(),
	}
}

// Apply validates the descriptor, reads the file, runs the selected
// applicator on normalized content, and writes the result back with the
// original BOM and line endings restored. The file mutates entirely in
// memory; cancellation before the write leaves it untouched.
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Path == "" {
		return nil, Errf(KindParseError, "path is required")
	}
	if strings.HasSuffix(req.Path, ".ipynb") {
		return nil, Errf(KindNotebookUnsupported,
			"%s: notebook files are not editable with this tool; use a notebook-aware tool", req.Path)
	}

	mode, err := e.resolveMode(req)
	if err != nil {
		return nil, err
	}

	op := OpUpdate
	rename := ""
	if mode == ModePatch && req.Patch != nil {
		if req.Patch.Op != "" {
			op = req.Patch.Op
		}
		rename = req.Patch.Rename
	}

	if e.planGuard != nil {
		if guardErr := e.planGuard(req.Path, op, rename); guardErr != nil {
			return nil, Errf(KindPlanModeBlocked, "%s", guardErr.Error())
		}
	}

	switch op {
	case OpCreate:
		return e.applyCreate(ctx, req)
	case OpDelete:
		return e.applyDelete(ctx, req)
	case OpUpdate:
		return e.applyUpdate(ctx, req, mode, rename)
	default:
		return nil, Errf(KindParseError, "unknown op %q: expected create, delete or update", op)
	}
}

func (e *Engine) resolveMode(req Request) (Mode, error) {
	populated := 0
	inferred := Mode("")
	if req.Replace != nil {
		populated++
		inferred = ModeReplace
	}
	if req.Patch != nil {
		populated++
		inferred = ModePatch
	}
	if req.Hashline != nil {
		populated++
		inferred = ModeHashline
	}
	if populated == 0 {
		return "", Errf(KindParseError, "no edit payload: populate replace, patch or hashline")
	}
	if populated > 1 {
		return "", Errf(KindParseError, "multiple edit payloads: populate exactly one of replace, patch, hashline")
	}
	if req.Mode != "" && req.Mode != inferred {
		return "", Errf(KindParseError, "mode %q does not match the %q payload", req.Mode, inferred)
	}
	return inferred, nil
}

func (e *Engine) applyCreate(ctx context.Context, req Request) (*Result, error) {
	if req.Patch == nil {
		return nil, Errf(KindParseError, "create requires a patch payload with the file content in diff")
	}
	if e.fs.Exists(req.Path) {
		return nil, Errf(KindParseError, "%s already exists: use op \"update\" to modify it", req.Path)
	}

	content := StripAddPrefixes(req.Patch.Diff)

	if dir := filepath.Dir(req.Path); dir != "." && dir != "/" {
		if err := e.fs.Mkdir(dir); err != nil {
			return nil, fmt.Errorf("create parent directory: %w", err)
		}
	}
	if err := e.write(ctx, req.Path, content); err != nil {
		return nil, err
	}

	diff, _ := unifiedDiff("", content, req.Path)
	e.log.Debug("file created", zap.String("path", req.Path), zap.Int("bytes", len(content)))
	return &Result{
		Summary:          fmt.Sprintf("Created %s", req.Path),
		Diff:             diff,
		FirstChangedLine: 1,
		Op:               OpCreate,
	}, nil
}

func (e *Engine) applyDelete(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	old, err := e.fs.Read(req.Path)
	if err != nil {
		return nil, err
	}
	if err := e.fs.Delete(req.Path); err != nil {
		return nil, err
	}
	diff, _ := unifiedDiff(old, "", req.Path)
	return &Result{
		Summary:          fmt.Sprintf("Deleted %s", req.Path),
		Diff:             diff,
		FirstChangedLine: 1,
		Op:               OpDelete,
	}, nil
}

func (e *Engine) applyUpdate(ctx context.Context, req Request, mode Mode, rename string) (*Result, error) {
	raw, err := e.fs.Read(req.Path)
	if err != nil {
		return nil, err
	}

	// A hashline call with no edits is a byte-for-byte no-op
	if mode == ModeHashline && len(req.Hashline) == 0 {
		return &Result{Summary: fmt.Sprintf("No changes to %s", req.Path), Op: OpUpdate}, nil
	}

	bom, rest := StripBOM(raw)
	ending := DetectLineEnding(rest)
	normalized := NormalizeToLF(rest)

	newNormalized, replacedCount, warnings, err := e.dispatch(req, mode, normalized)
	if err != nil {
		return nil, err
	}

	if newNormalized == normalized {
		return nil, Errf(KindIdenticalResult,
			"the edit left %s unchanged - re-read the file to see its current content", req.Path)
	}

	final := bom + RestoreLineEndings(newNormalized, ending)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := req.Path
	if rename != "" {
		target = rename
	}
	diagnostics, err := e.writeTarget(ctx, target, final)
	if err != nil {
		return nil, err
	}
	if rename != "" {
		if err := e.fs.Delete(req.Path); err != nil {
			return nil, fmt.Errorf("remove old path after rename: %w", err)
		}
	}

	diff, _ := unifiedDiff(raw, final, req.Path)
	summary := fmt.Sprintf("Updated %s", req.Path)
	if mode == ModeReplace && replacedCount > 1 {
		summary = fmt.Sprintf("Replaced %d occurrences in %s", replacedCount, req.Path)
	}
	if rename != "" {
		summary += fmt.Sprintf(" (renamed to %s)", rename)
	}

	e.log.Debug("file updated",
		zap.String("path", req.Path),
		zap.String("mode", string(mode)),
		zap.Int("first_changed_line", firstChangedLine(normalized, newNormalized)))

	return &Result{
		Summary:          summary,
		Diff:             diff,
		FirstChangedLine: firstChangedLine(normalized, newNormalized),
		Diagnostics:      diagnostics,
		Op:               OpUpdate,
		Rename:           rename,
		Warnings:         warnings,
	}, nil
}

func (e *Engine) dispatch(req Request, mode Mode, normalized string) (string, int, []string, error) {
	switch mode {
	case ModeReplace:
		return applyReplace(req.Path, normalized,
			NormalizeToLF(req.Replace.OldText), NormalizeToLF(req.Replace.NewText),
			req.Replace.All, e.matchConfig())
	case ModePatch:
		hunks, err := ParseHunks(NormalizeToLF(req.Patch.Diff))
		if err != nil {
			return "", 0, nil, err
		}
		newContent, warnings, err := applyPatch(req.Path, normalized, hunks, e.matchConfig())
		return newContent, 0, warnings, err
	case ModeHashline:
		newContent, warnings, err := applyHashline(req.Path, normalized, req.Hashline)
		return newContent, 0, warnings, err
	default:
		return "", 0, nil, Errf(KindParseError, "unknown edit mode %q", mode)
	}
}

// write persists content to path via the writethrough when one is
// attached, else directly through the FS capability.
func (e *Engine) write(ctx context.Context, path, content string) error {
	_, err := e.writeTarget(ctx, path, content)
	return err
}

func (e *Engine) writeTarget(ctx context.Context, path, content string) (*DiagnosticsResult, error) {
	if e.writethrough != nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		return e.writethrough(ctx, abs, content)
	}
	return nil, e.fs.Write(path, content)
}
