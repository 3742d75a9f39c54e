package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

const rustcInstallHint = "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh"

// RustcOptions configures the rustc adapter, usually from [tools.rustc] in
// the manifest.
type RustcOptions struct {
	Path    string   // binary name or path, defaults to "rustc"
	Edition string   // --edition value, defaults to "2021"
	Args    []string // extra arguments inserted before the fixture path
}

// Rustc checks Rust fixtures with `rustc --error-format=json`. Fixtures are
// compiled as libraries so a missing `fn main` never pollutes the run with
// E0601.
type Rustc struct {
	opts RustcOptions

	fpOnce sync.Once
	fp     string
	fpErr  error
}

// NewRustc creates the rustc adapter with defaults filled in.
func NewRustc(opts RustcOptions) *Rustc {
	if opts.Path == "" {
		opts.Path = "rustc"
	}
	if opts.Edition == "" {
		opts.Edition = "2021"
	}
	return &Rustc{opts: opts}
}

func (a *Rustc) Name() string         { return "rustc" }
func (a *Rustc) Language() string     { return "rust" }
func (a *Rustc) Extensions() []string { return []string{".rs"} }

// Fingerprint probes `rustc --version` once per process.
func (a *Rustc) Fingerprint(ctx context.Context) (string, error) {
	a.fpOnce.Do(func() {
		a.fp, a.fpErr = probeVersion(ctx, a.opts.Path, "--version")
	})
	return a.fp, a.fpErr
}

func (a *Rustc) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	var result CheckResult

	resolved, err := lookTool(a.opts.Path, rustcInstallHint)
	if err != nil {
		return result, err
	}

	outDir, err := os.MkdirTemp("", "diagcheck-rustc-")
	if err != nil {
		return result, fmt.Errorf("create out dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	absPath, err := filepath.Abs(filepath.FromSlash(req.File.Path))
	if err != nil {
		return result, fmt.Errorf("resolve fixture path: %w", err)
	}

	args := a.buildArgs(outDir, absPath, req.ExtraArgs)

	runCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	res, err := runTool(runCtx, req.PrintCommands, "", resolved, args...)
	if err != nil {
		return result, err
	}

	diags, badLines := parseRustcStderr(req.File, res.Stderr)
	if len(diags) == 0 && badLines > 0 && res.ExitCode != 0 {
		return result, fmt.Errorf("%w: rustc stderr had %d unparseable lines", ErrBadOutput, badLines)
	}

	result.Diagnostics = diags
	result.ExitCode = res.ExitCode
	result.Stderr = stderrTail(res.Stderr)
	result.Duration = res.Duration
	return result, nil
}

func (a *Rustc) buildArgs(outDir, fixture string, extra []string) []string {
	args := []string{
		"--edition=" + a.opts.Edition,
		"--crate-type=lib",
		"--emit=metadata",
		"--error-format=json",
		"--out-dir", outDir,
	}
	args = append(args, a.opts.Args...)
	args = append(args, extra...)
	args = append(args, fixture)
	return args
}

type rustcMessage struct {
	Message  string         `json:"message"`
	Code     *rustcCode     `json:"code"`
	Level    string         `json:"level"`
	Spans    []rustcSpan    `json:"spans"`
	Children []rustcMessage `json:"children"`
}

type rustcCode struct {
	Code string `json:"code"`
}

type rustcSpan struct {
	FileName    string `json:"file_name"`
	LineStart   uint32 `json:"line_start"`
	LineEnd     uint32 `json:"line_end"`
	ColumnStart uint32 `json:"column_start"`
	ColumnEnd   uint32 `json:"column_end"`
	IsPrimary   bool   `json:"is_primary"`
	Label       string `json:"label"`
}

var rustcSummaryRe = regexp.MustCompile(`(?i)^(aborting due to|\d+ warnings? emitted|some errors have detailed explanations)`)

// parseRustcStderr decodes the NDJSON diagnostics stream. Lines that fail
// to decode are counted, not fatal: a single garbled line should not sink a
// run that otherwise produced usable diagnostics.
func parseRustcStderr(f *source.File, stderr []byte) ([]diag.Diagnostic, int) {
	cl := newCollector()
	badLines := 0

	for _, line := range bytes.Split(stderr, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var msg rustcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			badLines++
			continue
		}
		if d, ok := rustcToDiagnostic(f, &msg); ok {
			cl.add(d)
		}
	}
	return cl.items(), badLines
}

func rustcToDiagnostic(f *source.File, msg *rustcMessage) (diag.Diagnostic, bool) {
	var sev diag.Severity
	switch msg.Level {
	case "error", "error: internal compiler error":
		sev = diag.SevError
	case "warning":
		sev = diag.SevWarning
	default:
		// notes and helps arrive as children of their parent
		return diag.Diagnostic{}, false
	}
	if rustcSummaryRe.MatchString(msg.Message) {
		return diag.Diagnostic{}, false
	}
	if len(msg.Spans) == 0 {
		// сводные сообщения без спанов ("aborting due to ...") не нужны
		return diag.Diagnostic{}, false
	}

	code := diag.Code("")
	if msg.Code != nil {
		code = diag.Code(msg.Code.Code)
	}

	primary, label := rustcPrimarySpan(f, msg.Spans)

	d := diag.Diagnostic{
		Severity: sev,
		Code:     code,
		Category: diag.Classify("rustc", code, msg.Message),
		Message:  msg.Message,
		Tool:     "rustc",
		Primary:  primary,
	}
	if label != "" {
		d = d.WithNote(primary, label)
	}
	for i := range msg.Children {
		child := &msg.Children[i]
		if child.Message == "" {
			continue
		}
		span := primary
		if cs, _ := rustcSpanInFixture(f, child.Spans); cs != (source.Span{}) {
			span = cs
		}
		d = d.WithNote(span, child.Message)
	}
	return d, true
}

// rustcPrimarySpan picks the primary span anchored in the fixture. Macro
// expansions can put the primary span into another file; those diagnostics
// anchor to the fixture start so category matching still sees them.
func rustcPrimarySpan(f *source.File, spans []rustcSpan) (source.Span, string) {
	if sp, label := rustcSpanInFixture(f, spans); sp != (source.Span{}) {
		return sp, label
	}
	return source.Span{File: f.ID}, ""
}

func rustcSpanInFixture(f *source.File, spans []rustcSpan) (source.Span, string) {
	for i := range spans {
		sp := &spans[i]
		if !sp.IsPrimary {
			continue
		}
		if !sameFixtureFile(f.Path, sp.FileName) {
			continue
		}
		start := f.OffsetOf(source.LineCol{Line: sp.LineStart, Col: sp.ColumnStart})
		end := f.OffsetOf(source.LineCol{Line: sp.LineEnd, Col: sp.ColumnEnd})
		if end < start {
			end = start
		}
		return source.Span{File: f.ID, Start: start, End: end}, sp.Label
	}
	return source.Span{}, ""
}

// sameFixtureFile compares the path rustc echoes back with the fixture
// path. rustc repeats the path exactly as given, but a basename fallback
// keeps virtual files and relative invocations working.
func sameFixtureFile(fixturePath, reported string) bool {
	if reported == "" {
		return false
	}
	a := filepath.ToSlash(filepath.Clean(fixturePath))
	b := filepath.ToSlash(filepath.Clean(reported))
	if a == b {
		return true
	}
	if abs, err := filepath.Abs(filepath.FromSlash(fixturePath)); err == nil {
		if filepath.ToSlash(abs) == b {
			return true
		}
	}
	return strings.EqualFold(filepath.Base(a), filepath.Base(b))
}
