// Package bless derives marker edits from a run verdict: fixtures whose
// annotations disagree with what the tool actually reports get their
// expectation comments inserted, rewritten or dropped so the next run is
// green. Planning is pure; Apply performs the writes.
package bless

import (
	"regexp"
	"sort"
	"strings"

	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/match"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
	"diagcheck/internal/toolchain"
)

// EditKind classifies a planned marker edit.
type EditKind uint8

const (
	EditInsert EditKind = iota
	EditRewrite
	EditDelete
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditRewrite:
		return "rewrite"
	case EditDelete:
		return "delete"
	}
	return "edit"
}

// PlannedEdit is one marker change with its provenance for the summary.
type PlannedEdit struct {
	Span    source.Span
	NewText string
	// OldText guards the edit: применяем только если текст на месте
	// совпадает (файл мог измениться с момента прогона).
	OldText string
	Line    uint32
	Kind    EditKind
	Note    string
}

// SkippedEdit captures a change the planner or engine refused, with a reason.
type SkippedEdit struct {
	Path   string
	Line   uint32
	Reason string
}

// Plan is the full set of marker edits for one fixture.
type Plan struct {
	File    source.FileID
	Path    string
	Edits   []PlannedEdit
	Skipped []SkippedEdit
}

// severityWordRe matches the severity word a marker starts with.
var severityWordRe = regexp.MustCompile(`(?i)^(?:type\s+error|error|warning)`)

// PlanReport builds plans for every judged fixture in the report. Skipped
// fixtures and tool errors plan nothing: without trusted diagnostics there is
// nothing to bless against. A passing fixture can still pick up markers for
// diagnostics that were merely warned about.
func PlanReport(rep *runner.Report, reg *toolchain.Registry) []Plan {
	var plans []Plan
	for i := range rep.Results {
		res := &rep.Results[i]
		if res.Outcome != match.OutcomePass && res.Outcome != match.OutcomeFail {
			continue
		}
		leader := "//"
		if reg != nil {
			if ad, ok := reg.ByName(res.Tool); ok {
				leader = expect.CommentLeader(ad.Language())
			}
		}
		plan := PlanFile(rep.FileSet.Get(res.File), res, leader)
		if len(plan.Edits) == 0 && len(plan.Skipped) == 0 {
			continue
		}
		plans = append(plans, plan)
	}
	return plans
}

// PlanFile derives marker edits for one fixture from its verdict:
//   - unexpected diagnostics get a marker appended to their line;
//   - a stale marker on the same line as an unexpected diagnostic is
//     rewritten in place instead;
//   - remaining stale markers (the tool never answered them) are removed;
//   - markers answered with a weaker severity get the severity word
//     downgraded.
//
// Matched markers are left untouched. leader is the line-comment prefix of
// the fixture's language.
func PlanFile(f *source.File, res *match.FileResult, leader string) Plan {
	p := Plan{File: f.ID, Path: res.Path}

	taken := make(map[uint32]bool)
	for i := range res.Matched {
		taken[res.Matched[i].Expectation.Line] = true
	}
	missingByLine := make(map[uint32]int, len(res.Missing))
	for i := range res.Missing {
		taken[res.Missing[i].Line] = true
		missingByLine[res.Missing[i].Line] = i
	}
	consumed := make(map[uint32]bool)

	for i := range res.Unexpected {
		d := &res.Unexpected[i]
		if d.Severity == diag.SevInfo {
			continue
		}
		line := f.LineCol(d.Primary.Start).Line

		if idx, stale := missingByLine[line]; stale && !consumed[line] {
			// маркер есть, но заявляет не то: переписываем его телом
			// фактической диагностики
			consumed[line] = true
			p.Edits = append(p.Edits, rewriteMarkerEdit(f, &res.Missing[idx], d))
			continue
		}
		if taken[line] {
			p.Skipped = append(p.Skipped, SkippedEdit{Path: res.Path, Line: line, Reason: "line already carries a marker"})
			continue
		}
		taken[line] = true
		p.Edits = append(p.Edits, insertMarkerEdit(f, line, d, leader))
	}

	for i := range res.Missing {
		exp := &res.Missing[i]
		if consumed[exp.Line] {
			continue
		}
		edit, ok := deleteMarkerEdit(f, exp, leader)
		if !ok {
			p.Skipped = append(p.Skipped, SkippedEdit{Path: res.Path, Line: exp.Line, Reason: "marker span out of sync"})
			continue
		}
		p.Edits = append(p.Edits, edit)
	}

	for i := range res.Matched {
		pair := &res.Matched[i]
		if pair.Expectation.Severity == diag.SevError && pair.Diagnostic.Severity == diag.SevWarning {
			if edit, ok := rewriteSeverityEdit(f, &pair.Expectation); ok {
				p.Edits = append(p.Edits, edit)
			}
		}
	}

	sortEdits(p.Edits)
	return p
}

func sortEdits(edits []PlannedEdit) {
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Span.Start != edits[j].Span.Start {
			return edits[i].Span.Start < edits[j].Span.Start
		}
		return edits[i].Span.End < edits[j].Span.End
	})
}

// markerBody renders the marker text for an actual diagnostic. The category
// tag is written out only when the hint alone would not infer back to the
// diagnostic's category on the next scan.
func markerBody(d *diag.Diagnostic) string {
	label := d.Severity.Label()
	hint := sanitizeHint(d.Message)
	if d.Category != diag.CatOther && diag.InferCategory(hint) != d.Category {
		return label + "(" + d.Category.String() + "): " + hint
	}
	return label + ": " + hint
}

func sanitizeHint(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.Join(strings.Fields(msg), " ")
}

func insertMarkerEdit(f *source.File, line uint32, d *diag.Diagnostic, leader string) PlannedEdit {
	ls := f.LineSpan(line)
	body := markerBody(d)
	return PlannedEdit{
		Span:    source.Span{File: f.ID, Start: ls.End, End: ls.End},
		NewText: " " + leader + " " + body,
		Line:    line,
		Kind:    EditInsert,
		Note:    body,
	}
}

func rewriteMarkerEdit(f *source.File, exp *expect.Expectation, d *diag.Diagnostic) PlannedEdit {
	body := markerBody(d)
	return PlannedEdit{
		Span:    exp.Span,
		NewText: body,
		OldText: string(f.Content[exp.Span.Start:exp.Span.End]),
		Line:    exp.Line,
		Kind:    EditRewrite,
		Note:    body,
	}
}

// deleteMarkerEdit removes a stale marker. When the marker is the whole
// comment, the comment leader and the spaces before it go too; a marker
// embedded after other comment text is trimmed from its own start.
func deleteMarkerEdit(f *source.File, exp *expect.Expectation, leader string) (PlannedEdit, bool) {
	ls := f.LineSpan(exp.Line)
	if exp.Span.Start < ls.Start || exp.Span.End > ls.End || exp.Span.Start > exp.Span.End {
		return PlannedEdit{}, false
	}

	text := string(f.Content[ls.Start:ls.End])
	leaderIdx := strings.Index(text, leader)
	if leaderIdx < 0 {
		return PlannedEdit{}, false
	}

	start := exp.Span.Start
	relMarker := int(exp.Span.Start - ls.Start)
	if relMarker >= leaderIdx+len(leader) {
		prefix := text[leaderIdx+len(leader) : relMarker]
		if strings.TrimSpace(prefix) == "" {
			j := leaderIdx
			for j > 0 && (text[j-1] == ' ' || text[j-1] == '\t') {
				j--
			}
			start = ls.Start + uint32(j)
		}
	}

	return PlannedEdit{
		Span:    source.Span{File: f.ID, Start: start, End: ls.End},
		NewText: "",
		OldText: string(f.Content[start:ls.End]),
		Line:    exp.Line,
		Kind:    EditDelete,
		Note:    strings.TrimSpace(exp.Raw),
	}, true
}

// rewriteSeverityEdit downgrades the marker's severity word to warning. The
// "type error" shorthand keeps its category through an explicit tag.
func rewriteSeverityEdit(f *source.File, exp *expect.Expectation) (PlannedEdit, bool) {
	word := severityWordRe.FindString(exp.Raw)
	if word == "" {
		return PlannedEdit{}, false
	}

	newWord := diag.SevWarning.Label()
	if strings.Contains(strings.ToLower(word), "type") {
		newWord += "(" + diag.CatTypeMismatch.String() + ")"
	}

	return PlannedEdit{
		Span:    source.Span{File: f.ID, Start: exp.Span.Start, End: exp.Span.Start + uint32(len(word))},
		NewText: newWord,
		OldText: word,
		Line:    exp.Line,
		Kind:    EditRewrite,
		Note:    "severity " + exp.Severity.Label() + " -> warning",
	}, true
}
