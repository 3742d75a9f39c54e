package match

import (
	"fmt"
	"time"

	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/source"
)

// Outcome is the per-file verdict.
type Outcome uint8

const (
	// OutcomePass means every marker was answered and nothing failed.
	OutcomePass Outcome = iota
	// OutcomeFail means matching produced at least one error-level finding.
	OutcomeFail
	// OutcomeError means the tool run itself broke (missing binary, timeout,
	// unparseable output); the fixture was never judged.
	OutcomeError
	// OutcomeSkip means no adapter claims the fixture.
	OutcomeSkip
)

var outcomeNames = [...]string{"pass", "fail", "error", "skip"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Pair is one satisfied expectation and the diagnostic that answered it.
type Pair struct {
	Expectation expect.Expectation
	Diagnostic  diag.Diagnostic
}

// FileResult is the full verdict for one fixture. Diff fills the matching
// fields; the runner adds the execution ones (tool exit, cache, duration).
type FileResult struct {
	File    source.FileID
	Path    string
	Tool    string
	Outcome Outcome

	Expected   int
	Matched    []Pair
	Missing    []expect.Expectation
	Unexpected []diag.Diagnostic
	// Findings are the checker's own diagnostics for this fixture (CHK and
	// TOOL codes), span-anchored so formatters can render them like any
	// other diagnostic.
	Findings []diag.Diagnostic

	ToolExit int
	Cached   bool
	Duration time.Duration
}

// Summary aggregates file results for the run report and the exit code.
type Summary struct {
	Files   int
	Passed  int
	Failed  int
	Errored int
	Skipped int

	Expected   int
	Matched    int
	Missing    int
	Unexpected int

	Cached   int
	Duration time.Duration
}

// Add folds one file verdict into the summary.
func (s *Summary) Add(r *FileResult) {
	s.Files++
	switch r.Outcome {
	case OutcomePass:
		s.Passed++
	case OutcomeFail:
		s.Failed++
	case OutcomeError:
		s.Errored++
	case OutcomeSkip:
		s.Skipped++
	}
	s.Expected += r.Expected
	s.Matched += len(r.Matched)
	s.Missing += len(r.Missing)
	s.Unexpected += len(r.Unexpected)
	if r.Cached {
		s.Cached++
	}
	s.Duration += r.Duration
}

// Ok reports whether the whole run counts as green.
func (s *Summary) Ok() bool {
	return s.Failed == 0 && s.Errored == 0
}
