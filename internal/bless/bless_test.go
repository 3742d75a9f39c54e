package bless

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/match"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
	"diagcheck/internal/toolchain"
)

// scanExps разбирает маркеры файла, находки сканера в тестах не интересны.
func scanExps(t *testing.T, f *source.File) []expect.Expectation {
	t.Helper()
	return expect.ScanFile(f, "//", diag.BagReporter{Bag: diag.NewBag(16)})
}

func diagAt(f *source.File, code string, line, col uint32, msg string) diag.Diagnostic {
	start := f.OffsetOf(source.LineCol{Line: line, Col: col})
	return diag.New(diag.SevError, diag.Code(code),
		source.Span{File: f.ID, Start: start, End: start + 1}, msg).WithTool("rustc")
}

func TestPlanFileInsertsMarker(t *testing.T) {
	content := "fn main() {\n    let x: i32 = \"oops\";\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/a.rs", []byte(content)))

	d := diagAt(f, "E0308", 2, 18, "mismatched types")
	res := &match.FileResult{File: f.ID, Path: "rust/a.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Unexpected: []diag.Diagnostic{d}}

	plan := PlanFile(f, res, "//")
	if len(plan.Edits) != 1 || len(plan.Skipped) != 0 {
		t.Fatalf("edits=%d skipped=%d, want 1/0", len(plan.Edits), len(plan.Skipped))
	}
	e := plan.Edits[0]
	if e.Kind != EditInsert || e.Line != 2 {
		t.Fatalf("kind=%s line=%d, want insert at line 2", e.Kind, e.Line)
	}
	if e.Span.Start != e.Span.End {
		t.Fatalf("insert span must be empty, got %d..%d", e.Span.Start, e.Span.End)
	}
	if e.NewText != " // error: mismatched types" {
		t.Fatalf("NewText = %q", e.NewText)
	}

	_, after, ok := editPreview(f, e)
	if !ok {
		t.Fatal("edit is not previewable")
	}
	if after != `    let x: i32 = "oops"; // error: mismatched types` {
		t.Fatalf("after = %q", after)
	}
}

func TestPlanFileTagsUninferableHint(t *testing.T) {
	content := "fn main() {\n    takes_u8(300);\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/call.rs", []byte(content)))

	// из текста подсказки категория не восстанавливается, тег обязателен
	d := diagAt(f, "E0308", 2, 5, "arguments to this function are incorrect")
	res := &match.FileResult{File: f.ID, Path: "rust/call.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Unexpected: []diag.Diagnostic{d}}

	plan := PlanFile(f, res, "//")
	if len(plan.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(plan.Edits))
	}
	want := " // error(type-mismatch): arguments to this function are incorrect"
	if plan.Edits[0].NewText != want {
		t.Fatalf("NewText = %q, want %q", plan.Edits[0].NewText, want)
	}
}

func TestMarkerBodySanitizesHint(t *testing.T) {
	d := diag.New(diag.SevWarning, "", source.Span{}, "unused   variable:\n  `x`")
	if got := markerBody(&d); got != "warning: unused variable:" {
		t.Fatalf("markerBody = %q", got)
	}
}

func TestPlanFileDeletesStaleMarker(t *testing.T) {
	content := "fn main() {\n    let ok = 1; // error: mismatched types\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/b.rs", []byte(content)))

	exps := scanExps(t, f)
	if len(exps) != 1 {
		t.Fatalf("scanned %d expectations, want 1", len(exps))
	}
	res := &match.FileResult{File: f.ID, Path: "rust/b.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Missing: exps}

	plan := PlanFile(f, res, "//")
	if len(plan.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(plan.Edits))
	}
	e := plan.Edits[0]
	if e.Kind != EditDelete {
		t.Fatalf("kind = %s, want delete", e.Kind)
	}
	if e.OldText != " // error: mismatched types" {
		t.Fatalf("OldText = %q", e.OldText)
	}
	_, after, ok := editPreview(f, e)
	if !ok || after != "    let ok = 1;" {
		t.Fatalf("after = %q ok=%v", after, ok)
	}
}

func TestPlanFileKeepsCommentPrefixOnDelete(t *testing.T) {
	content := "fn main() {\n    let ok = 1; // verified error: mismatched types\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/c.rs", []byte(content)))

	exps := scanExps(t, f)
	if len(exps) != 1 {
		t.Fatalf("scanned %d expectations, want 1", len(exps))
	}
	res := &match.FileResult{File: f.ID, Path: "rust/c.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Missing: exps}

	plan := PlanFile(f, res, "//")
	if len(plan.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(plan.Edits))
	}
	// перед маркером есть другой текст комментария, он должен уцелеть
	_, after, ok := editPreview(f, plan.Edits[0])
	if !ok || after != "    let ok = 1; // verified " {
		t.Fatalf("after = %q ok=%v", after, ok)
	}
}

func TestPlanFileRewritesDisagreeingMarker(t *testing.T) {
	content := "fn main() {\n    let x: i32 = \"oops\"; // error(borrow): cannot borrow\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/d.rs", []byte(content)))

	exps := scanExps(t, f)
	if len(exps) != 1 {
		t.Fatalf("scanned %d expectations, want 1", len(exps))
	}
	d := diagAt(f, "E0308", 2, 18, "mismatched types")
	res := &match.FileResult{File: f.ID, Path: "rust/d.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Missing: exps, Unexpected: []diag.Diagnostic{d}}

	plan := PlanFile(f, res, "//")
	// один rewrite, а не пара delete+insert
	if len(plan.Edits) != 1 || len(plan.Skipped) != 0 {
		t.Fatalf("edits=%d skipped=%d, want 1/0", len(plan.Edits), len(plan.Skipped))
	}
	e := plan.Edits[0]
	if e.Kind != EditRewrite {
		t.Fatalf("kind = %s, want rewrite", e.Kind)
	}
	_, after, ok := editPreview(f, e)
	if !ok || after != `    let x: i32 = "oops"; // error: mismatched types` {
		t.Fatalf("after = %q ok=%v", after, ok)
	}
}

func TestPlanFileDowngradesSeverity(t *testing.T) {
	content := "fn main() {\n    let unused = 1; // error: unused variable\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/e.rs", []byte(content)))

	exps := scanExps(t, f)
	if len(exps) != 1 {
		t.Fatalf("scanned %d expectations, want 1", len(exps))
	}
	start := f.OffsetOf(source.LineCol{Line: 2, Col: 9})
	d := diag.New(diag.SevWarning, "unused_variables",
		source.Span{File: f.ID, Start: start, End: start + 6}, "unused variable: `unused`").WithTool("rustc")
	res := &match.FileResult{File: f.ID, Path: "rust/e.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Matched: []match.Pair{{Expectation: exps[0], Diagnostic: d}}}

	plan := PlanFile(f, res, "//")
	if len(plan.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(plan.Edits))
	}
	e := plan.Edits[0]
	if e.Kind != EditRewrite || e.OldText != "error" || e.NewText != "warning" {
		t.Fatalf("edit = %s %q -> %q", e.Kind, e.OldText, e.NewText)
	}
	_, after, ok := editPreview(f, e)
	if !ok || after != "    let unused = 1; // warning: unused variable" {
		t.Fatalf("after = %q ok=%v", after, ok)
	}
}

func TestPlanFileDowngradeKeepsTypeCategory(t *testing.T) {
	content := "fn main() {\n    let x: i32 = \"s\"; // type error: expected i32\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/f.rs", []byte(content)))

	exps := scanExps(t, f)
	if len(exps) != 1 {
		t.Fatalf("scanned %d expectations, want 1", len(exps))
	}
	start := f.OffsetOf(source.LineCol{Line: 2, Col: 18})
	d := diag.New(diag.SevWarning, "E0308",
		source.Span{File: f.ID, Start: start, End: start + 3}, "expected i32, found &str").WithTool("rustc")
	res := &match.FileResult{File: f.ID, Path: "rust/f.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Matched: []match.Pair{{Expectation: exps[0], Diagnostic: d}}}

	plan := PlanFile(f, res, "//")
	if len(plan.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(plan.Edits))
	}
	// сокращение "type error" несёт категорию, при понижении она не теряется
	if plan.Edits[0].NewText != "warning(type-mismatch)" {
		t.Fatalf("NewText = %q", plan.Edits[0].NewText)
	}
	_, after, ok := editPreview(f, plan.Edits[0])
	if !ok || after != `    let x: i32 = "s"; // warning(type-mismatch): expected i32` {
		t.Fatalf("after = %q ok=%v", after, ok)
	}
}

func TestApplyDryRunLeavesFileAlone(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a.rs")
	content := "fn main() {\n    let x: i32 = \"oops\";\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := source.NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f := fs.Get(id)

	d := diagAt(f, "E0308", 2, 18, "mismatched types")
	res := &match.FileResult{File: f.ID, Path: "a.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Unexpected: []diag.Diagnostic{d}}
	plans := []Plan{PlanFile(f, res, "//")}

	result, err := Apply(fs, plans, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Applied) != 1 || len(result.FileChanges) != 1 {
		t.Fatalf("applied=%d changes=%d, want 1/1", len(result.Applied), len(result.FileChanges))
	}
	if result.FileChanges[0].Backup != "" {
		t.Fatalf("dry run produced a backup: %q", result.FileChanges[0].Backup)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Fatalf("dry run modified the file:\n%s", got)
	}
}

func TestApplyWriteWithBackup(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a.rs")
	content := "fn main() {\n    let x: i32 = \"oops\";\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := source.NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f := fs.Get(id)

	d := diagAt(f, "E0308", 2, 18, "mismatched types")
	res := &match.FileResult{File: f.ID, Path: "a.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Unexpected: []diag.Diagnostic{d}}
	plans := []Plan{PlanFile(f, res, "//")}

	result, err := Apply(fs, plans, Options{Write: true, Backup: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Applied) != 1 || len(result.FileChanges) != 1 {
		t.Fatalf("applied=%d changes=%d, want 1/1", len(result.Applied), len(result.FileChanges))
	}
	fc := result.FileChanges[0]
	if fc.Path != "a.rs" || fc.EditCount != 1 {
		t.Fatalf("change = %+v", fc)
	}
	if fc.Backup != path+".bak" {
		t.Fatalf("backup path = %q", fc.Backup)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "fn main() {\n    let x: i32 = \"oops\"; // error: mismatched types\n}\n"
	if string(got) != want {
		t.Fatalf("written content:\n%s\nwant:\n%s", got, want)
	}

	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatal(err)
	}
	if string(bak) != content {
		t.Fatalf("backup content:\n%s", bak)
	}
}

func TestApplyRefusesStaleGuard(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a.rs")
	if err := os.WriteFile(path, []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	plan := Plan{File: id, Path: "a.rs", Edits: []PlannedEdit{{
		Span:    source.Span{File: id, Start: 0, End: 2},
		NewText: "xx",
		OldText: "zz",
		Line:    1,
		Kind:    EditRewrite,
	}}}
	result, err := Apply(fs, []Plan{plan}, Options{Write: true})
	if !errors.Is(err, ErrNoEdits) {
		t.Fatalf("err = %v, want ErrNoEdits", err)
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0].Reason, "does not match") {
		t.Fatalf("skipped = %+v", result.Skipped)
	}
}

func TestApplyRejectsOverlappingEdits(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a.rs")
	if err := os.WriteFile(path, []byte("0123456789\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	plan := Plan{File: id, Path: "a.rs", Edits: []PlannedEdit{
		{Span: source.Span{File: id, Start: 0, End: 5}, NewText: "AAAAA", OldText: "01234", Line: 1, Kind: EditRewrite},
		{Span: source.Span{File: id, Start: 3, End: 8}, NewText: "BBBBB", OldText: "34567", Line: 1, Kind: EditRewrite},
	}}
	result, err := Apply(fs, []Plan{plan}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Applied) != 1 {
		t.Fatalf("applied = %d, want 1", len(result.Applied))
	}
	if len(result.Skipped) != 1 || !strings.Contains(result.Skipped[0].Reason, "conflicts") {
		t.Fatalf("skipped = %+v", result.Skipped)
	}
}

func TestApplyVirtualFileSkipped(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("mem.rs", []byte("fn main() {}\n"))

	plan := Plan{File: id, Path: "mem.rs", Edits: []PlannedEdit{{
		Span:    source.Span{File: id, Start: 12, End: 12},
		NewText: " // error: boom",
		Line:    1,
		Kind:    EditInsert,
	}}}
	result, err := Apply(fs, []Plan{plan}, Options{Write: true})
	if !errors.Is(err, ErrNoEdits) {
		t.Fatalf("err = %v, want ErrNoEdits", err)
	}
	if len(result.FileChanges) != 0 {
		t.Fatalf("file changes = %+v", result.FileChanges)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != "target file is virtual" {
		t.Fatalf("skipped = %+v", result.Skipped)
	}
}

func TestSpansConflict(t *testing.T) {
	mk := func(start, end uint32) source.Span { return source.Span{Start: start, End: end} }
	tests := []struct {
		name string
		a, b source.Span
		want bool
	}{
		{"two inserts at same offset", mk(5, 5), mk(5, 5), false},
		{"insert inside replacement", mk(3, 3), mk(0, 5), true},
		{"insert at replacement end", mk(5, 5), mk(0, 5), false},
		{"adjacent replacements", mk(0, 5), mk(5, 9), false},
		{"overlapping replacements", mk(0, 5), mk(4, 9), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spansConflict(tt.a, tt.b); got != tt.want {
				t.Fatalf("spansConflict = %v, want %v", got, tt.want)
			}
			if got := spansConflict(tt.b, tt.a); got != tt.want {
				t.Fatalf("spansConflict reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiffPreview(t *testing.T) {
	content := "fn main() {\n    let x: i32 = \"oops\";\n}\n"
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/a.rs", []byte(content)))

	d := diagAt(f, "E0308", 2, 18, "mismatched types")
	res := &match.FileResult{File: f.ID, Path: "rust/a.rs", Tool: "rustc",
		Outcome: match.OutcomeFail, Unexpected: []diag.Diagnostic{d}}
	plans := []Plan{PlanFile(f, res, "//")}

	var buf bytes.Buffer
	DiffPreview(&buf, fs, plans)
	out := buf.String()
	for _, want := range []string{
		"bless rust/a.rs",
		"  @ line 2 (insert)",
		`  -     let x: i32 = "oops";`,
		`  +     let x: i32 = "oops"; // error: mismatched types`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPlanReport(t *testing.T) {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("rust/a.rs", []byte("fn main() {\n    let x: i32 = \"oops\";\n}\n")))
	d := diagAt(f, "E0308", 2, 18, "mismatched types")

	rep := &runner.Report{
		FileSet: fs,
		Results: []match.FileResult{
			{File: f.ID, Path: "rust/a.rs", Tool: "rustc",
				Outcome: match.OutcomeFail, Unexpected: []diag.Diagnostic{d}},
			{Path: "rust/skip.rs", Outcome: match.OutcomeSkip},
			{Path: "rust/broken.rs", Outcome: match.OutcomeError},
		},
	}
	reg := toolchain.NewRegistry()
	if err := reg.Register(toolchain.NewRustc(toolchain.RustcOptions{})); err != nil {
		t.Fatal(err)
	}

	plans := PlanReport(rep, reg)
	if len(plans) != 1 {
		t.Fatalf("plans = %d, want 1", len(plans))
	}
	if plans[0].Path != "rust/a.rs" || len(plans[0].Edits) != 1 {
		t.Fatalf("plan = %+v", plans[0])
	}
}
