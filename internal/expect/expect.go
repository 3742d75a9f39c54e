package expect

import (
	"fmt"
	"regexp"
	"strings"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

// Expectation is one annotated claim: "this line triggers at least this
// diagnostic".
type Expectation struct {
	Severity diag.Severity
	Category diag.Category
	Hint     string
	File     source.FileID
	Line     uint32      // строка-якорь (1-based)
	Span     source.Span // маркер с хвостом комментария
	Raw      string
	Tagged   bool // категория задана явно, а не выведена из текста
}

// Describe returns the compact one-line form used by the list command.
func (e Expectation) Describe() string {
	return fmt.Sprintf("%s(%s) @%d: %s", e.Severity.Label(), e.Category, e.Line, e.Hint)
}

// markerRe picks the expectation marker out of a comment. The "type error"
// alternative must come first, otherwise the leading word is lost.
var markerRe = regexp.MustCompile(`(?i)\b(type\s+error|error|warning)(?:\(([a-z-]+)\))?\s*:\s*(.*)$`)

// CommentLeader returns the line-comment prefix for a language.
func CommentLeader(lang string) string {
	if lang == "python" {
		return "#"
	}
	return "//"
}

// ScanFile walks the file line by line and collects expectations from its
// comments. Malformed markers (empty hint, unknown category tag) are
// reported to r as CHK0005 findings and skipped. The returned slice is in
// line order.
func ScanFile(f *source.File, leader string, r diag.Reporter) []Expectation {
	var out []Expectation

	numLines := f.NumLines()
	for line := uint32(1); line <= numLines; line++ {
		lineSpan := f.LineSpan(line)
		text := string(f.Content[lineSpan.Start:lineSpan.End])

		idx := strings.Index(text, leader)
		if idx < 0 {
			continue
		}
		comment := text[idx+len(leader):]

		m := markerRe.FindStringSubmatchIndex(comment)
		if m == nil {
			continue
		}

		commentStart := lineSpan.Start + uint32(idx+len(leader))
		span := source.Span{
			File:  f.ID,
			Start: commentStart + uint32(m[0]),
			End:   lineSpan.End,
		}
		raw := comment[m[0]:m[1]]

		exp, err := buildExpectation(f.ID, line, span, raw, comment, m)
		if err != nil {
			report(r, span, err)
			continue
		}
		out = append(out, exp)
	}
	return out
}

func buildExpectation(id source.FileID, line uint32, span source.Span, raw, comment string, m []int) (Expectation, error) {
	word := strings.ToLower(comment[m[2]:m[3]])
	word = strings.Join(strings.Fields(word), " ") // "type   error" -> "type error"

	hint := strings.TrimSpace(comment[m[6]:m[7]])
	if hint == "" {
		return Expectation{}, fmt.Errorf("marker %q has no hint text", strings.TrimSpace(raw))
	}

	exp := Expectation{
		Severity: diag.SevError,
		File:     id,
		Line:     line,
		Span:     span,
		Raw:      raw,
		Hint:     hint,
	}
	if word == "warning" {
		exp.Severity = diag.SevWarning
	}

	switch {
	case m[4] >= 0: // явный тег категории
		cat, err := diag.ParseCategory(comment[m[4]:m[5]])
		if err != nil {
			return Expectation{}, err
		}
		exp.Category = cat
		exp.Tagged = true
	case word == "type error":
		exp.Category = diag.CatTypeMismatch
		exp.Tagged = true
	default:
		exp.Category = diag.InferCategory(hint)
	}
	return exp, nil
}

func report(r diag.Reporter, span source.Span, err error) {
	if r == nil {
		return
	}
	r.Report(diag.NewWarning(diag.CodeBadExpectation, span, "bad expectation: "+err.Error()))
}

// CountBySeverity tallies expectations per severity, for summaries.
func CountBySeverity(exps []Expectation) (errors, warnings int) {
	for _, e := range exps {
		switch e.Severity {
		case diag.SevError:
			errors++
		case diag.SevWarning:
			warnings++
		}
	}
	return errors, warnings
}
