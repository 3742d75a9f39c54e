package diagfmt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"diagcheck/internal/diag"
	"diagcheck/internal/match"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
)

// failingReport собирает отчёт с одним красным файлом: маркер на строке 2
// не подтверждён, находка CHK0001 указывает на спан `"oops"`.
func failingReport(t *testing.T) *runner.Report {
	t.Helper()

	fs := source.NewFileSetWithBase("/home/user/project")
	content := []byte("fn main() {\n    let x: i32 = \"oops\";\n}\n")
	id := fs.AddVirtual("/home/user/project/fixtures/test.rs", content)

	f := fs.Get(id)
	span := source.Span{
		File:  id,
		Start: f.OffsetOf(source.LineCol{Line: 2, Col: 18}),
		End:   f.OffsetOf(source.LineCol{Line: 2, Col: 24}),
	}
	finding := diag.NewError(diag.CodeMissing, span,
		"expected error(type-mismatch) not reported by rustc").WithTool("rustc")

	res := match.FileResult{
		File:     id,
		Path:     "fixtures/test.rs",
		Tool:     "rustc",
		Outcome:  match.OutcomeFail,
		Expected: 1,
		Findings: []diag.Diagnostic{finding},
		Duration: 40 * time.Millisecond,
	}

	rep := &runner.Report{
		Results: []match.FileResult{res},
		FileSet: fs,
		Bag:     diag.NewBag(8),
	}
	rep.Summary.Add(&rep.Results[0])
	return rep
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{
			name:     "Absolute path",
			mode:     PathModeAbsolute,
			contains: "/home/user/project/fixtures/test.rs:2:18",
		},
		{
			name:     "Relative path",
			mode:     PathModeRelative,
			contains: "fixtures/test.rs:2:18",
		},
		{
			name:     "Basename only",
			mode:     PathModeBasename,
			contains: "test.rs:2:18",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := failingReport(t)

			var buf bytes.Buffer
			opts := PrettyOpts{
				Color:    false,
				Context:  1,
				PathMode: tt.mode,
			}
			Pretty(&buf, rep, opts)
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR") {
				t.Error("Expected ERROR in output")
			}
			if !strings.Contains(output, "CHK0001") {
				t.Error("Expected CHK0001 code in output")
			}
			if !strings.Contains(output, "not reported by rustc") {
				t.Error("Expected finding message in output")
			}
		})
	}
}

func TestPrettyContextAndCaret(t *testing.T) {
	rep := failingReport(t)

	var buf bytes.Buffer
	Pretty(&buf, rep, PrettyOpts{Context: 1, PathMode: PathModeRelative})
	output := buf.String()

	if !strings.Contains(output, "1 | fn main() {") {
		t.Errorf("expected context line 1, got:\n%s", output)
	}
	if !strings.Contains(output, "2 |     let x: i32 = \"oops\";") {
		t.Errorf("expected source line 2, got:\n%s", output)
	}
	if !strings.Contains(output, "3 | }") {
		t.Errorf("expected context line 3, got:\n%s", output)
	}

	// `"oops"` занимает 6 колонок после 17 символов префикса
	caret := strings.Repeat(" ", 17) + "^" + strings.Repeat("~", 5)
	if !strings.Contains(output, caret) {
		t.Errorf("expected caret row %q, got:\n%s", caret, output)
	}
}

func TestPrettyStatusAndSummary(t *testing.T) {
	rep := failingReport(t)

	var buf bytes.Buffer
	Pretty(&buf, rep, PrettyOpts{Context: -1, PathMode: PathModeRelative})
	output := buf.String()

	if !strings.Contains(output, "FAIL fixtures/test.rs [rustc] 0/1 matched 40ms") {
		t.Errorf("unexpected status line:\n%s", output)
	}
	if !strings.Contains(output, "FAILED 1 files: 0 passed, 1 failed; expectations 0/1 matched") {
		t.Errorf("unexpected summary line:\n%s", output)
	}
}

func TestPrettyHidesPassingByDefault(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("ok.rs", []byte("fn main() {}\n"))

	res := match.FileResult{
		File:     id,
		Path:     "ok.rs",
		Tool:     "rustc",
		Outcome:  match.OutcomePass,
		Expected: 1,
		Matched:  []match.Pair{{}},
		Cached:   true,
	}
	rep := &runner.Report{Results: []match.FileResult{res}, FileSet: fs, Bag: diag.NewBag(4)}
	rep.Summary.Add(&rep.Results[0])

	var buf bytes.Buffer
	Pretty(&buf, rep, PrettyOpts{})
	if strings.Contains(buf.String(), "ok.rs") {
		t.Errorf("passing file should be hidden by default:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "ok 1 files: 1 passed, 0 failed (1 cached)") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}

	buf.Reset()
	Pretty(&buf, rep, PrettyOpts{ShowPassing: true})
	if !strings.Contains(buf.String(), "PASS ok.rs [rustc] 1/1 matched (cached)") {
		t.Errorf("expected PASS line with ShowPassing:\n%s", buf.String())
	}
}

func TestPrettyNotes(t *testing.T) {
	rep := failingReport(t)
	f := rep.FileSet.Get(rep.Results[0].File)
	noteSpan := source.Span{
		File:  rep.Results[0].File,
		Start: f.OffsetOf(source.LineCol{Line: 2, Col: 5}),
		End:   f.OffsetOf(source.LineCol{Line: 2, Col: 8}),
	}
	rep.Results[0].Findings[0] = rep.Results[0].Findings[0].
		WithNote(noteSpan, "marker is here").
		WithNote(source.Span{}, "run with --strict for details")

	var buf bytes.Buffer
	Pretty(&buf, rep, PrettyOpts{Context: -1, PathMode: PathModeBasename, ShowNotes: true})
	output := buf.String()

	if !strings.Contains(output, "note: test.rs:2:5: marker is here") {
		t.Errorf("expected note with location, got:\n%s", output)
	}
	if !strings.Contains(output, "note: run with --strict for details") {
		t.Errorf("expected unanchored note, got:\n%s", output)
	}
}
