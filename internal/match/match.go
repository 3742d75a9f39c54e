package match

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/source"
)

// Diff pairs the fixture's expectations with the tool's diagnostics and
// builds the file verdict. Info-level diagnostics take no part in matching;
// they are tool chatter, not something fixtures promise.
func Diff(f *source.File, tool string, exps []expect.Expectation, actuals []diag.Diagnostic, opts Options) FileResult {
	res := FileResult{File: f.ID, Path: f.Path, Tool: tool, Expected: len(exps)}

	if len(exps) == 0 && opts.RequireExpectations {
		fd := diag.NewError(diag.CodeNoExpectations, source.Span{File: f.ID},
			"fixture carries no expectation markers").WithTool(tool)
		res.Findings = append(res.Findings, fd)
	}

	type candidate struct {
		d    diag.Diagnostic
		line uint32
		used bool
	}
	cands := make([]candidate, 0, len(actuals))
	for _, d := range actuals {
		if d.Severity != diag.SevError && d.Severity != diag.SevWarning {
			continue
		}
		cands = append(cands, candidate{d: d, line: f.LineCol(d.Primary.Start).Line})
	}

	type edge struct {
		score  int
		ei, ci int
	}
	var edges []edge
	for ei := range exps {
		for ci := range cands {
			if s, ok := pairScore(&exps[ei], &cands[ci].d, cands[ci].line, opts); ok {
				edges = append(edges, edge{score: s, ei: ei, ci: ci})
			}
		}
	}
	// full tie-break keeps the assignment deterministic: scanner order for
	// expectations, tool order for diagnostics
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].score != edges[j].score {
			return edges[i].score < edges[j].score
		}
		if edges[i].ei != edges[j].ei {
			return edges[i].ei < edges[j].ei
		}
		return edges[i].ci < edges[j].ci
	})

	expUsed := make([]bool, len(exps))
	for _, e := range edges {
		if expUsed[e.ei] || cands[e.ci].used {
			continue
		}
		expUsed[e.ei] = true
		cands[e.ci].used = true
		res.Matched = append(res.Matched, Pair{Expectation: exps[e.ei], Diagnostic: cands[e.ci].d})

		// an expected error answered by a mere warning is a real mismatch;
		// the opposite escalation is accepted silently
		if exps[e.ei].Severity == diag.SevError && cands[e.ci].d.Severity == diag.SevWarning {
			res.Findings = append(res.Findings, severityMismatchFinding(tool, &exps[e.ei], &cands[e.ci].d))
		}
	}
	sort.Slice(res.Matched, func(i, j int) bool {
		return res.Matched[i].Expectation.Line < res.Matched[j].Expectation.Line
	})

	for i := range exps {
		if expUsed[i] {
			continue
		}
		res.Missing = append(res.Missing, exps[i])
		res.Findings = append(res.Findings, missingFinding(tool, &exps[i]))
	}
	for i := range cands {
		if cands[i].used {
			continue
		}
		res.Unexpected = append(res.Unexpected, cands[i].d)
		res.Findings = append(res.Findings, unexpectedFinding(opts.Strict, cands[i].d))
	}

	res.Outcome = OutcomePass
	for _, fd := range res.Findings {
		if fd.Severity == diag.SevError {
			res.Outcome = OutcomeFail
			break
		}
	}
	return res
}

// pairScore decides whether the diagnostic can answer the expectation and
// how well. Lower scores pair first; severity never blocks an edge, it only
// ranks it (the mismatch surfaces as CHK0003 after pairing).
func pairScore(e *expect.Expectation, d *diag.Diagnostic, dLine uint32, opts Options) (int, bool) {
	dist := lineDist(e.Line, dLine)
	if opts.Mode == ModeLine {
		if dist != 0 {
			return 0, false
		}
	} else if dist > opts.Window {
		return 0, false
	}

	// an untagged marker whose hint resisted inference matches any category
	if e.Category != diag.CatOther && e.Category != d.Category {
		return 0, false
	}
	if opts.Mode == ModeMessage && !hintMatches(e.Hint, d) {
		return 0, false
	}

	score := int(dist) * 10
	if e.Category == diag.CatOther {
		score += 2
	}
	if e.Severity != d.Severity {
		score++
	}
	return score, true
}

// hintMatches looks for the marker's hint inside the diagnostic message or
// its notes, ignoring case and the quoting tools sprinkle around type names.
func hintMatches(hint string, d *diag.Diagnostic) bool {
	needle := foldMessage(hint)
	if needle == "" {
		return true
	}
	if strings.Contains(foldMessage(d.Message), needle) {
		return true
	}
	for _, n := range d.Notes {
		if strings.Contains(foldMessage(n.Msg), needle) {
			return true
		}
	}
	return false
}

// foldMessage lowercases, drops backticks and quotes, and collapses runs of
// whitespace, so "expected String, found i32" matches rustc's
// "expected `String`, found `i32`". NFC first: совпадение не должно зависеть
// от того, как тул сложил диакритику в идентификаторах.
func foldMessage(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		switch r {
		case '`', '"', '\'':
			continue
		case ' ', '\t', '\r', '\n':
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func lineDist(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func missingFinding(tool string, e *expect.Expectation) diag.Diagnostic {
	what := e.Severity.Label()
	if e.Category != diag.CatOther {
		what += "(" + e.Category.String() + ")"
	}
	return diag.NewError(diag.CodeMissing, e.Span,
		fmt.Sprintf("expected %s not reported by %s", what, tool)).
		WithTool(tool).
		WithNote(e.Span, e.Raw)
}

func unexpectedFinding(strict bool, d diag.Diagnostic) diag.Diagnostic {
	sev := diag.SevWarning
	if strict {
		sev = diag.SevError
	}
	what := d.Severity.Label()
	if d.Code != "" {
		what += " " + d.Code.String()
	}
	return diag.New(sev, diag.CodeUnexpected, d.Primary,
		fmt.Sprintf("unexpected %s: %s", what, d.Message)).
		WithTool(d.Tool).
		WithCategory(d.Category)
}

func severityMismatchFinding(tool string, e *expect.Expectation, d *diag.Diagnostic) diag.Diagnostic {
	return diag.NewError(diag.CodeSeverityMismatch, d.Primary,
		fmt.Sprintf("severity mismatch: marker expects %s, %s reported %s",
			e.Severity.Label(), tool, d.Severity.Label())).
		WithTool(tool).
		WithCategory(d.Category).
		WithNote(e.Span, e.Raw)
}
