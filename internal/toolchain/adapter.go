package toolchain

import (
	"context"
	"errors"
	"time"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

// ErrToolNotFound wraps exec.ErrNotFound with the adapter's install hint.
var ErrToolNotFound = errors.New("tool not found")

// ErrBadOutput marks tool output the adapter could not parse.
var ErrBadOutput = errors.New("unparseable tool output")

// CheckRequest asks an adapter to run its tool over one fixture.
type CheckRequest struct {
	File *source.File
	// Timeout bounds the tool run; zero means no per-file limit.
	Timeout time.Duration
	// ExtraArgs are appended after the adapter's own arguments.
	ExtraArgs []string
	// PrintCommands echoes the exact command line before running it.
	PrintCommands bool
}

// CheckResult carries the parsed diagnostics of one tool run.
type CheckResult struct {
	Diagnostics []diag.Diagnostic
	ExitCode    int
	// Stderr keeps a bounded tail of raw stderr for error context.
	Stderr   []byte
	Duration time.Duration
}

// Adapter runs one external tool and translates its output.
type Adapter interface {
	// Name is the stable adapter identifier ("rustc", "go", "pyright").
	Name() string
	// Language names the fixture language the adapter checks.
	Language() string
	// Extensions lists the file extensions the adapter claims, with dots.
	Extensions() []string
	// Fingerprint identifies the tool build, e.g. "rustc 1.79.0". It is part
	// of the cache key: a tool upgrade invalidates cached results.
	Fingerprint(ctx context.Context) (string, error)
	// Check runs the tool on the fixture and parses its diagnostics.
	Check(ctx context.Context, req CheckRequest) (CheckResult, error)
}

// maxToolDiagnostics caps how many diagnostics a single tool run may
// contribute. Cascading failures past that point add no matching signal.
const maxToolDiagnostics = 512

// collector funnels parsed diagnostics through dedup into a capped bag.
// Tools repeat identical diagnostics across macro expansions and package
// passes; one copy is enough for the matcher.
type collector struct {
	bag *diag.Bag
	rep diag.Reporter
}

func newCollector() *collector {
	bag := diag.NewBag(maxToolDiagnostics)
	return &collector{
		bag: bag,
		rep: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
	}
}

func (c *collector) add(d diag.Diagnostic) {
	c.rep.Report(d)
}

func (c *collector) items() []diag.Diagnostic {
	return c.bag.Items()
}
