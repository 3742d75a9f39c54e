package match

import (
	"strings"
	"testing"

	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/source"
)

// blankFixture builds an in-memory file with enough lines to anchor spans.
func blankFixture(t *testing.T, lines int) *source.File {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("fixture.rs", []byte(strings.Repeat("// filler\n", lines)))
	return fs.Get(id)
}

func expectationAt(f *source.File, line uint32, sev diag.Severity, cat diag.Category, hint string) expect.Expectation {
	return expect.Expectation{
		Severity: sev,
		Category: cat,
		Hint:     hint,
		File:     f.ID,
		Line:     line,
		Span:     f.LineSpan(line),
		Raw:      "error: " + hint,
	}
}

func diagnosticAt(f *source.File, line uint32, sev diag.Severity, cat diag.Category, msg string) diag.Diagnostic {
	off := f.OffsetOf(source.LineCol{Line: line, Col: 1})
	d := diag.New(sev, "", source.Span{File: f.ID, Start: off, End: off}, msg)
	return d.WithCategory(cat).WithTool("rustc")
}

func TestDiff_AllAnswered(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 8, diag.SevError, diag.CatTypeMismatch, "expected String, found i32"),
		expectationAt(f, 18, diag.SevError, diag.CatTypeMismatch, "expected i32, found &str"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 8, diag.SevError, diag.CatTypeMismatch, "mismatched types"),
		diagnosticAt(f, 18, diag.SevError, diag.CatTypeMismatch, "mismatched types"),
	}

	res := Diff(f, "rustc", exps, actuals, DefaultOptions())
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %v, want pass (findings: %v)", res.Outcome, res.Findings)
	}
	if len(res.Matched) != 2 || len(res.Missing) != 0 || len(res.Unexpected) != 0 {
		t.Errorf("matched/missing/unexpected = %d/%d/%d, want 2/0/0",
			len(res.Matched), len(res.Missing), len(res.Unexpected))
	}
	if res.Expected != 2 {
		t.Errorf("expected = %d, want 2", res.Expected)
	}
}

func TestDiff_MissingExpectation(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 25, diag.SevError, diag.CatBorrow, "cannot borrow as mutable"),
	}

	res := Diff(f, "rustc", exps, nil, DefaultOptions())
	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %v, want fail", res.Outcome)
	}
	if len(res.Missing) != 1 {
		t.Fatalf("missing = %d, want 1", len(res.Missing))
	}
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	fd := res.Findings[0]
	if fd.Code != diag.CodeMissing || fd.Severity != diag.SevError {
		t.Errorf("finding = %s %v, want CHK0001 error", fd.Code, fd.Severity)
	}
	if !strings.Contains(fd.Message, "error(borrow)") {
		t.Errorf("finding message = %q, want the expected kind spelled out", fd.Message)
	}
	if len(fd.Notes) != 1 || fd.Notes[0].Msg != "error: cannot borrow as mutable" {
		t.Errorf("finding should quote the raw marker, got %v", fd.Notes)
	}
}

func TestDiff_Unexpected(t *testing.T) {
	f := blankFixture(t, 80)
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 13, diag.SevError, diag.CatUnresolved, "cannot find value `undefined_var` in this scope"),
	}

	res := Diff(f, "rustc", nil, actuals, DefaultOptions())
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %v, want pass when not strict", res.Outcome)
	}
	if len(res.Unexpected) != 1 || len(res.Findings) != 1 {
		t.Fatalf("unexpected/findings = %d/%d, want 1/1", len(res.Unexpected), len(res.Findings))
	}
	if res.Findings[0].Code != diag.CodeUnexpected || res.Findings[0].Severity != diag.SevWarning {
		t.Errorf("finding = %s %v, want CHK0002 warning", res.Findings[0].Code, res.Findings[0].Severity)
	}

	opts := DefaultOptions()
	opts.Strict = true
	res = Diff(f, "rustc", nil, actuals, opts)
	if res.Outcome != OutcomeFail {
		t.Errorf("strict outcome = %v, want fail", res.Outcome)
	}
	if res.Findings[0].Severity != diag.SevError {
		t.Errorf("strict finding severity = %v, want error", res.Findings[0].Severity)
	}
}

func TestDiff_SeverityMismatch(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 36, diag.SevError, diag.CatUnused, "unused variable"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 36, diag.SevWarning, diag.CatUnused, "unused variable: `unused`"),
	}

	res := Diff(f, "rustc", exps, actuals, DefaultOptions())
	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %v, want fail", res.Outcome)
	}
	// the pair still counts as matched, the mismatch is its own finding
	if len(res.Matched) != 1 || len(res.Missing) != 0 || len(res.Unexpected) != 0 {
		t.Errorf("matched/missing/unexpected = %d/%d/%d, want 1/0/0",
			len(res.Matched), len(res.Missing), len(res.Unexpected))
	}
	if len(res.Findings) != 1 || res.Findings[0].Code != diag.CodeSeverityMismatch {
		t.Fatalf("findings = %v, want a single CHK0003", res.Findings)
	}
}

func TestDiff_WarningSatisfiedByError(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 36, diag.SevWarning, diag.CatUnused, "unused variable"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 36, diag.SevError, diag.CatUnused, "unused variable: `unused`"),
	}

	res := Diff(f, "rustc", exps, actuals, DefaultOptions())
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %v, want pass (escalation is fine), findings: %v", res.Outcome, res.Findings)
	}
	if len(res.Findings) != 0 {
		t.Errorf("findings = %v, want none", res.Findings)
	}
}

func TestDiff_WindowAnchoring(t *testing.T) {
	// markers for non-exhaustive matches sit inside the match body while the
	// tool anchors at the match head a few lines up
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 56, diag.SevError, diag.CatNonExhaustive, "non-exhaustive patterns"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 53, diag.SevError, diag.CatNonExhaustive, "non-exhaustive patterns: `Color::Blue` not covered"),
	}

	res := Diff(f, "rustc", exps, actuals, DefaultOptions())
	if res.Outcome != OutcomePass {
		t.Errorf("window 4: outcome = %v, want pass", res.Outcome)
	}

	opts := DefaultOptions()
	opts.Window = 2
	res = Diff(f, "rustc", exps, actuals, opts)
	if res.Outcome != OutcomeFail {
		t.Errorf("window 2: outcome = %v, want fail", res.Outcome)
	}
	if len(res.Missing) != 1 || len(res.Unexpected) != 1 {
		t.Errorf("window 2: missing/unexpected = %d/%d, want 1/1", len(res.Missing), len(res.Unexpected))
	}
}

func TestDiff_ModeLine(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 56, diag.SevError, diag.CatNonExhaustive, "non-exhaustive patterns"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 53, diag.SevError, diag.CatNonExhaustive, "non-exhaustive patterns"),
	}

	opts := DefaultOptions()
	opts.Mode = ModeLine
	res := Diff(f, "rustc", exps, actuals, opts)
	if res.Outcome != OutcomeFail {
		t.Errorf("line mode three lines apart: outcome = %v, want fail", res.Outcome)
	}

	actuals[0] = diagnosticAt(f, 56, diag.SevError, diag.CatNonExhaustive, "non-exhaustive patterns")
	res = Diff(f, "rustc", exps, actuals, opts)
	if res.Outcome != OutcomePass {
		t.Errorf("line mode exact: outcome = %v, want pass", res.Outcome)
	}
}

func TestDiff_ModeMessage(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 8, diag.SevError, diag.CatTypeMismatch, "expected String, found i32"),
	}
	withNote := diagnosticAt(f, 8, diag.SevError, diag.CatTypeMismatch, "mismatched types").
		WithNote(source.Span{File: f.ID}, "expected `String`, found `i32`")
	plain := diagnosticAt(f, 8, diag.SevError, diag.CatTypeMismatch, "mismatched types")

	opts := DefaultOptions()
	opts.Mode = ModeMessage

	res := Diff(f, "rustc", exps, []diag.Diagnostic{withNote}, opts)
	if res.Outcome != OutcomePass {
		t.Errorf("hint in note: outcome = %v, want pass", res.Outcome)
	}

	res = Diff(f, "rustc", exps, []diag.Diagnostic{plain}, opts)
	if res.Outcome != OutcomeFail {
		t.Errorf("hint nowhere: outcome = %v, want fail", res.Outcome)
	}
}

func TestDiff_GreedyPrefersCloserLine(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 10, diag.SevError, diag.CatTypeMismatch, "first"),
		expectationAt(f, 12, diag.SevError, diag.CatTypeMismatch, "second"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 12, diag.SevError, diag.CatTypeMismatch, "second site"),
		diagnosticAt(f, 10, diag.SevError, diag.CatTypeMismatch, "first site"),
	}

	res := Diff(f, "rustc", exps, actuals, DefaultOptions())
	if res.Outcome != OutcomePass {
		t.Fatalf("outcome = %v, want pass", res.Outcome)
	}
	if len(res.Matched) != 2 {
		t.Fatalf("matched = %d, want 2", len(res.Matched))
	}
	// pairs must not cross: each marker takes the diagnostic on its own line
	for _, p := range res.Matched {
		dLine := f.LineCol(p.Diagnostic.Primary.Start).Line
		if p.Expectation.Line != dLine {
			t.Errorf("marker @%d paired with diagnostic @%d", p.Expectation.Line, dLine)
		}
	}
}

func TestDiff_UntaggedMarkerMatchesAnyCategory(t *testing.T) {
	f := blankFixture(t, 80)
	exps := []expect.Expectation{
		expectationAt(f, 5, diag.SevError, diag.CatOther, "something odd happens here"),
	}
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 5, diag.SevError, diag.CatTypeMismatch, "mismatched types"),
	}

	res := Diff(f, "rustc", exps, actuals, DefaultOptions())
	if res.Outcome != OutcomePass {
		t.Errorf("outcome = %v, want pass (uncategorized marker is a wildcard)", res.Outcome)
	}
}

func TestDiff_RequireExpectations(t *testing.T) {
	f := blankFixture(t, 80)

	opts := DefaultOptions()
	opts.RequireExpectations = true
	res := Diff(f, "rustc", nil, nil, opts)
	if res.Outcome != OutcomeFail {
		t.Fatalf("outcome = %v, want fail", res.Outcome)
	}
	if len(res.Findings) != 1 || res.Findings[0].Code != diag.CodeNoExpectations {
		t.Errorf("findings = %v, want a single CHK0004", res.Findings)
	}

	res = Diff(f, "rustc", nil, nil, DefaultOptions())
	if res.Outcome != OutcomePass || len(res.Findings) != 0 {
		t.Errorf("without the flag an empty fixture passes, got %v / %v", res.Outcome, res.Findings)
	}
}

func TestDiff_InfoDiagnosticsIgnored(t *testing.T) {
	f := blankFixture(t, 80)
	actuals := []diag.Diagnostic{
		diagnosticAt(f, 3, diag.SevInfo, diag.CatOther, "variable is not accessed"),
	}

	res := Diff(f, "pyright", nil, actuals, DefaultOptions())
	if res.Outcome != OutcomePass || len(res.Unexpected) != 0 {
		t.Errorf("info chatter must not count as unexpected, got %v / %d", res.Outcome, len(res.Unexpected))
	}
}

func TestFoldMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"expected `String`, found `i32`", "expected string, found i32"},
		{"Expected  STRING,\tfound i32", "expected string, found i32"},
		{"  \"dict[str, int]\" is not assignable  ", "dict[str, int] is not assignable"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := foldMessage(tc.in); got != tc.want {
			t.Errorf("foldMessage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
