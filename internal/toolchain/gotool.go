package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

const goInstallHint = "https://go.dev/dl/ or your distribution's golang package"

// GoOptions configures the go adapter, usually from [tools.go] in the
// manifest.
type GoOptions struct {
	Path string   // binary name or path, defaults to "go"
	Args []string // extra arguments passed to `go vet`
}

// GoTool checks Go fixtures with `go vet`. Each fixture is copied byte for
// byte into a throwaway single-file module, so vet can type-check it
// without a go.mod living inside the corpus tree.
type GoTool struct {
	opts GoOptions

	fpOnce sync.Once
	fp     string
	fpErr  error
}

// NewGoTool creates the go adapter with defaults filled in.
func NewGoTool(opts GoOptions) *GoTool {
	if opts.Path == "" {
		opts.Path = "go"
	}
	return &GoTool{opts: opts}
}

func (a *GoTool) Name() string         { return "go" }
func (a *GoTool) Language() string     { return "go" }
func (a *GoTool) Extensions() []string { return []string{".go"} }

// Fingerprint probes `go version` once per process.
func (a *GoTool) Fingerprint(ctx context.Context) (string, error) {
	a.fpOnce.Do(func() {
		a.fp, a.fpErr = probeVersion(ctx, a.opts.Path, "version")
	})
	return a.fp, a.fpErr
}

func (a *GoTool) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	var result CheckResult

	resolved, err := lookTool(a.opts.Path, goInstallHint)
	if err != nil {
		return result, err
	}

	modDir, err := os.MkdirTemp("", "diagcheck-go-")
	if err != nil {
		return result, fmt.Errorf("create module dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(modDir) }()

	if err := writeFixtureModule(modDir, req.File); err != nil {
		return result, err
	}

	args := a.buildArgs(req.ExtraArgs)

	runCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	res, err := runTool(runCtx, req.PrintCommands, modDir, resolved, args...)
	if err != nil {
		return result, err
	}

	diags, badLines := parseGoVetStderr(req.File, res.Stderr)
	if len(diags) == 0 && badLines > 0 && res.ExitCode != 0 {
		return result, fmt.Errorf("%w: go vet stderr had %d unparseable lines", ErrBadOutput, badLines)
	}

	result.Diagnostics = diags
	result.ExitCode = res.ExitCode
	result.Stderr = stderrTail(res.Stderr)
	result.Duration = res.Duration
	return result, nil
}

func (a *GoTool) buildArgs(extra []string) []string {
	args := []string{"vet"}
	args = append(args, a.opts.Args...)
	args = append(args, extra...)
	args = append(args, ".")
	return args
}

// writeFixtureModule lays out a single-file module around the fixture. The
// fixture bytes come from disk when the file exists there, so the tool sees
// them exactly as committed, BOM and line endings included.
func writeFixtureModule(dir string, f *source.File) error {
	content, err := os.ReadFile(filepath.FromSlash(f.Path))
	if err != nil {
		if f.Flags&source.FileVirtual == 0 {
			return fmt.Errorf("read fixture: %w", err)
		}
		content = f.Content
	}

	name := filepath.Base(filepath.FromSlash(f.Path))
	if !strings.HasSuffix(name, ".go") {
		name = "fixture.go"
	}
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		return fmt.Errorf("copy fixture: %w", err)
	}

	gomod := "module fixture\n\ngo 1.21\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644); err != nil {
		return fmt.Errorf("write go.mod: %w", err)
	}
	return nil
}

var goVetLineRe = regexp.MustCompile(`^(.+?):(\d+):(\d+): (.+)$`)

// parseGoVetStderr reads vet's text diagnostics. Package headers ("# pkg")
// and other chatter are skipped; everything else must look like
// "path:line:col: message".
func parseGoVetStderr(f *source.File, stderr []byte) ([]diag.Diagnostic, int) {
	cl := newCollector()
	badLines := 0

	for _, raw := range bytes.Split(stderr, []byte("\n")) {
		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "vet: ")

		m := goVetLineRe.FindStringSubmatch(line)
		if m == nil {
			badLines++
			continue
		}
		if !sameFixtureFile(f.Path, m[1]) {
			continue
		}
		off := f.OffsetOf(parseLineCol(m[2], m[3]))
		msg := m[4]

		cat := diag.Classify("go", "", msg)
		d := diag.Diagnostic{
			Severity: goVetSeverity(cat, msg),
			Category: cat,
			Message:  msg,
			Tool:     "go",
			Primary:  source.Span{File: f.ID, Start: off, End: off},
		}
		cl.add(d)
	}
	return cl.items(), badLines
}

var goCompileUnusedRe = regexp.MustCompile(`^(declared and not used|imported and not used)`)

// goVetSeverity splits vet's single stream back into compiler errors and
// lints. Go reports unused locals and imports as hard errors; vet's own
// analyzers (unreachable, unusedresult) are advisory.
func goVetSeverity(cat diag.Category, msg string) diag.Severity {
	switch cat {
	case diag.CatUnreachable:
		return diag.SevWarning
	case diag.CatUnused:
		if goCompileUnusedRe.MatchString(msg) {
			return diag.SevError
		}
		return diag.SevWarning
	default:
		return diag.SevError
	}
}

// parseLineCol converts regex-captured digit strings. The captures are
// guaranteed numeric, so conversion errors cannot happen.
func parseLineCol(lineStr, colStr string) source.LineCol {
	line, _ := strconv.ParseUint(lineStr, 10, 32)
	col, _ := strconv.ParseUint(colStr, 10, 32)
	return source.LineCol{Line: uint32(line), Col: uint32(col)}
}
