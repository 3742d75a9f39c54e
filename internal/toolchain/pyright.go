package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"fortio.org/safecast"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

const pyrightInstallHint = "npm install -g pyright"

// PyrightOptions configures the pyright adapter, usually from
// [tools.pyright] in the manifest.
type PyrightOptions struct {
	Path string   // binary name or path, defaults to "pyright"
	Args []string // extra arguments inserted before the fixture path
}

// Pyright checks Python fixtures with `pyright --outputjson`. Unlike rustc
// and go vet, the JSON report arrives on stdout.
type Pyright struct {
	opts PyrightOptions

	fpOnce sync.Once
	fp     string
	fpErr  error
}

// NewPyright creates the pyright adapter with defaults filled in.
func NewPyright(opts PyrightOptions) *Pyright {
	if opts.Path == "" {
		opts.Path = "pyright"
	}
	return &Pyright{opts: opts}
}

func (a *Pyright) Name() string         { return "pyright" }
func (a *Pyright) Language() string     { return "python" }
func (a *Pyright) Extensions() []string { return []string{".py"} }

// Fingerprint probes `pyright --version` once per process.
func (a *Pyright) Fingerprint(ctx context.Context) (string, error) {
	a.fpOnce.Do(func() {
		a.fp, a.fpErr = probeVersion(ctx, a.opts.Path, "--version")
	})
	return a.fp, a.fpErr
}

func (a *Pyright) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	var result CheckResult

	resolved, err := lookTool(a.opts.Path, pyrightInstallHint)
	if err != nil {
		return result, err
	}

	absPath, err := filepath.Abs(filepath.FromSlash(req.File.Path))
	if err != nil {
		return result, fmt.Errorf("resolve fixture path: %w", err)
	}

	args := a.buildArgs(absPath, req.ExtraArgs)

	runCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	res, err := runTool(runCtx, req.PrintCommands, "", resolved, args...)
	if err != nil {
		return result, err
	}

	diags, perr := parsePyrightStdout(req.File, res.Stdout)
	if perr != nil {
		if res.ExitCode != 0 {
			return result, fmt.Errorf("%w: %v", ErrBadOutput, perr)
		}
		diags = nil
	}
	if len(diags) == 0 && res.ExitCode > 1 {
		// exit 1 means diagnostics were found; anything above is a crash or a
		// configuration problem
		return result, fmt.Errorf("pyright exited with %d: %s", res.ExitCode, stderrTail(res.Stderr))
	}

	result.Diagnostics = diags
	result.ExitCode = res.ExitCode
	result.Stderr = stderrTail(res.Stderr)
	result.Duration = res.Duration
	return result, nil
}

func (a *Pyright) buildArgs(fixture string, extra []string) []string {
	args := []string{"--outputjson"}
	args = append(args, a.opts.Args...)
	args = append(args, extra...)
	args = append(args, fixture)
	return args
}

type pyrightReport struct {
	GeneralDiagnostics []pyrightDiagnostic `json:"generalDiagnostics"`
}

type pyrightDiagnostic struct {
	File     string       `json:"file"`
	Severity string       `json:"severity"`
	Message  string       `json:"message"`
	Range    pyrightRange `json:"range"`
	Rule     string       `json:"rule"`
}

type pyrightRange struct {
	Start pyrightPosition `json:"start"`
	End   pyrightPosition `json:"end"`
}

// pyrightPosition is zero-based on both axes.
type pyrightPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func parsePyrightStdout(f *source.File, stdout []byte) ([]diag.Diagnostic, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty report")
	}

	var report pyrightReport
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	cl := newCollector()
	for i := range report.GeneralDiagnostics {
		if d, ok := pyrightToDiagnostic(f, &report.GeneralDiagnostics[i]); ok {
			cl.add(d)
		}
	}
	return cl.items(), nil
}

func pyrightToDiagnostic(f *source.File, pd *pyrightDiagnostic) (diag.Diagnostic, bool) {
	var sev diag.Severity
	switch pd.Severity {
	case "error":
		sev = diag.SevError
	case "warning":
		sev = diag.SevWarning
	case "information", "hint":
		sev = diag.SevInfo
	default:
		return diag.Diagnostic{}, false
	}
	if !sameFixtureFile(f.Path, pd.File) {
		return diag.Diagnostic{}, false
	}

	start := pyrightOffset(f, pd.Range.Start)
	end := pyrightOffset(f, pd.Range.End)
	if end < start {
		end = start
	}
	span := source.Span{File: f.ID, Start: start, End: end}

	// followup lines hold rule details ("str" is not assignable to "int");
	// keep them as notes so hint matching can see them
	msg := pd.Message
	var details []string
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		for _, ln := range strings.Split(msg[i+1:], "\n") {
			if ln = strings.TrimSpace(ln); ln != "" {
				details = append(details, ln)
			}
		}
		msg = strings.TrimSpace(msg[:i])
	}

	code := diag.Code(pd.Rule)
	d := diag.Diagnostic{
		Severity: sev,
		Code:     code,
		Category: diag.Classify("pyright", code, msg),
		Message:  msg,
		Tool:     "pyright",
		Primary:  span,
	}
	for _, detail := range details {
		d = d.WithNote(span, detail)
	}
	return d, true
}

// pyrightOffset converts a zero-based report position into a byte offset.
func pyrightOffset(f *source.File, p pyrightPosition) uint32 {
	line, err := safecast.Conv[uint32](p.Line + 1)
	if err != nil {
		return 0
	}
	col, err := safecast.Conv[uint32](p.Character + 1)
	if err != nil {
		return 0
	}
	return f.OffsetOf(source.LineCol{Line: line, Col: col})
}
