// Package runner orchestrates a corpus run: walk the manifest's roots, scan
// each fixture's expectations, invoke the language front end (or restore its
// cached output), diff the two sides and aggregate the verdicts.
package runner

import (
	"fmt"
	"slices"

	"diagcheck/internal/cache"
	"diagcheck/internal/corpus"
	"diagcheck/internal/diag"
	"diagcheck/internal/match"
	"diagcheck/internal/observ"
	"diagcheck/internal/source"
	"diagcheck/internal/toolchain"
)

// Options configures one corpus run.
type Options struct {
	// Manifest supplies corpus layout, tool configs and run limits.
	Manifest *corpus.Manifest
	// Registry overrides the adapter set. Nil builds one from the manifest.
	Registry *toolchain.Registry
	// Cache enables result reuse. A nil cache disables it.
	Cache *cache.DiskCache
	// Tools restricts the run to the named adapters (--tool).
	Tools []string
	// Jobs overrides the manifest's parallelism when positive.
	Jobs int
	// Match overrides the manifest's matching options when non-nil.
	Match *match.Options
	// FailFast cancels the run after the first failing fixture.
	FailFast bool
	// PrintCommands echoes every tool command line before running it.
	PrintCommands bool
	// EnableTimings collects per-phase durations into the report.
	EnableTimings bool
	// Sink receives progress events; nil means no progress reporting.
	Sink ProgressSink
}

// Report is the outcome of a whole run.
type Report struct {
	// Results holds one verdict per discovered fixture, in discovery order.
	Results []match.FileResult
	Summary match.Summary
	// FileSet owns every loaded fixture; formatters resolve spans against it.
	FileSet *source.FileSet
	// Bag carries run-level entries that belong to no single fixture
	// (timings payloads).
	Bag *diag.Bag
	// Timing is filled when Options.EnableTimings is set.
	Timing *observ.Report
}

// BuildRegistry assembles the adapter set the manifest asks for. Disabled
// tools and languages outside [corpus].languages are left out; only (when
// non-empty) further restricts by adapter name.
func BuildRegistry(m *corpus.Manifest, only []string) (*toolchain.Registry, error) {
	for _, name := range only {
		if !slices.Contains(corpus.KnownTools(), name) {
			return nil, fmt.Errorf("unknown tool %q (known: rustc, go, pyright)", name)
		}
	}

	wantLang := func(lang string) bool {
		langs := m.Config.Corpus.Languages
		return len(langs) == 0 || slices.Contains(langs, lang)
	}
	wantName := func(name string) bool {
		return len(only) == 0 || slices.Contains(only, name)
	}

	reg := toolchain.NewRegistry()
	add := func(a toolchain.Adapter, disabled bool) error {
		if disabled || !wantLang(a.Language()) || !wantName(a.Name()) {
			return nil
		}
		return reg.Register(a)
	}

	rustCfg := m.Tool("rustc")
	if err := add(toolchain.NewRustc(toolchain.RustcOptions{
		Path:    rustCfg.Path,
		Edition: rustCfg.Edition,
		Args:    rustCfg.Args,
	}), rustCfg.Disabled); err != nil {
		return nil, err
	}

	goCfg := m.Tool("go")
	if err := add(toolchain.NewGoTool(toolchain.GoOptions{
		Path: goCfg.Path,
		Args: goCfg.Args,
	}), goCfg.Disabled); err != nil {
		return nil, err
	}

	pyCfg := m.Tool("pyright")
	if err := add(toolchain.NewPyright(toolchain.PyrightOptions{
		Path: pyCfg.Path,
		Args: pyCfg.Args,
	}), pyCfg.Disabled); err != nil {
		return nil, err
	}

	return reg, nil
}

// keyArgs collapses the manifest knobs that change tool behavior into the
// cache key. The binary itself is covered by the fingerprint.
func keyArgs(cfg corpus.ToolConfig) []string {
	args := make([]string, 0, len(cfg.Args)+1)
	if cfg.Edition != "" {
		args = append(args, "edition="+cfg.Edition)
	}
	return append(args, cfg.Args...)
}
