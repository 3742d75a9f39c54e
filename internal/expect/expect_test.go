package expect

import (
	"path/filepath"
	"testing"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

func scanString(t *testing.T, content, leader string) ([]Expectation, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("fixture", []byte(content)))
	bag := diag.NewBag(16)
	exps := ScanFile(f, leader, diag.BagReporter{Bag: bag})
	return exps, bag
}

func TestScanFileMarkers(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		leader   string
		wantSev  diag.Severity
		wantCat  diag.Category
		wantHint string
		wantLine uint32
		tagged   bool
	}{
		{
			name:     "trailing error",
			content:  "let x: i32 = \"no\";  // Error: expected i32, found &str\n",
			leader:   "//",
			wantSev:  diag.SevError,
			wantCat:  diag.CatTypeMismatch,
			wantHint: "expected i32, found &str",
			wantLine: 1,
		},
		{
			name:     "warning marker",
			content:  "let unused = 42;  // Warning: unused variable\n",
			leader:   "//",
			wantSev:  diag.SevWarning,
			wantCat:  diag.CatUnused,
			wantHint: "unused variable",
			wantLine: 1,
		},
		{
			name:     "marker mid comment",
			content:  "fn f() {\n// Missing Blue case - Error: non-exhaustive patterns\n}\n",
			leader:   "//",
			wantSev:  diag.SevError,
			wantCat:  diag.CatNonExhaustive,
			wantHint: "non-exhaustive patterns",
			wantLine: 2,
		},
		{
			name:     "type error shorthand",
			content:  "x = 1  # Type error: str is not int\n",
			leader:   "#",
			wantSev:  diag.SevError,
			wantCat:  diag.CatTypeMismatch,
			wantHint: "str is not int",
			wantLine: 1,
			tagged:   true,
		},
		{
			name:     "explicit category tag",
			content:  "let r = &mut s;  // Error(borrowck): conflicting borrow\n",
			leader:   "//",
			wantSev:  diag.SevError,
			wantCat:  diag.CatBorrow,
			wantHint: "conflicting borrow",
			wantLine: 1,
			tagged:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exps, bag := scanString(t, tt.content, tt.leader)
			if bag.Len() != 0 {
				t.Fatalf("unexpected scan findings: %v", bag.Items())
			}
			if len(exps) != 1 {
				t.Fatalf("got %d expectations, want 1", len(exps))
			}
			e := exps[0]
			if e.Severity != tt.wantSev {
				t.Errorf("Severity = %s, want %s", e.Severity, tt.wantSev)
			}
			if e.Category != tt.wantCat {
				t.Errorf("Category = %s, want %s", e.Category, tt.wantCat)
			}
			if e.Hint != tt.wantHint {
				t.Errorf("Hint = %q, want %q", e.Hint, tt.wantHint)
			}
			if e.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", e.Line, tt.wantLine)
			}
			if e.Tagged != tt.tagged {
				t.Errorf("Tagged = %v, want %v", e.Tagged, tt.tagged)
			}
		})
	}
}

func TestScanFileIgnoresPlainComments(t *testing.T) {
	content := "// Test file with intentional errors for testing\n" +
		"// Borrowing error\n" +
		"let s2 = s;  // s is moved here\n" +
		"// This should cause a type error\n" +
		"loop {\n    // Missing break\n}\n"
	exps, bag := scanString(t, content, "//")
	if len(exps) != 0 {
		t.Errorf("got %d expectations from plain comments: %+v", len(exps), exps)
	}
	if bag.Len() != 0 {
		t.Errorf("unexpected findings: %v", bag.Items())
	}
}

func TestScanFileMalformedMarkers(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty hint", content: "x  // Error:\n"},
		{name: "unknown tag", content: "x  // Error(bogus): something\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exps, bag := scanString(t, tt.content, "//")
			if len(exps) != 0 {
				t.Errorf("malformed marker produced expectation: %+v", exps)
			}
			if bag.Len() != 1 {
				t.Fatalf("findings = %d, want 1", bag.Len())
			}
			d := bag.Items()[0]
			if d.Code != diag.CodeBadExpectation {
				t.Errorf("Code = %s, want %s", d.Code, diag.CodeBadExpectation)
			}
			if d.Severity != diag.SevWarning {
				t.Errorf("Severity = %s", d.Severity)
			}
		})
	}
}

func TestScanFileSpans(t *testing.T) {
	content := "a + b  // Error: expected String, found i32\n"
	exps, _ := scanString(t, content, "//")
	if len(exps) != 1 {
		t.Fatal("no expectation")
	}
	span := exps[0].Span
	text := content[span.Start:span.End]
	if text != "Error: expected String, found i32" {
		t.Errorf("span text = %q", text)
	}
}

// The seeded Rust corpus is the reference input: every annotation in it must
// scan to the documented severity, category, and anchor line.
func TestScanRustDiagnosticsCorpus(t *testing.T) {
	fs := source.NewFileSet()
	id, err := fs.Load(filepath.Join("..", "..", "testdata", "corpus", "rust", "diagnostics.rs"))
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	bag := diag.NewBag(16)
	exps := ScanFile(fs.Get(id), "//", diag.BagReporter{Bag: bag})
	if bag.Len() != 0 {
		t.Fatalf("scan findings: %v", bag.Items())
	}

	want := []struct {
		line uint32
		sev  diag.Severity
		cat  diag.Category
	}{
		{line: 8, sev: diag.SevError, cat: diag.CatTypeMismatch},
		{line: 18, sev: diag.SevError, cat: diag.CatTypeMismatch},
		{line: 25, sev: diag.SevError, cat: diag.CatBorrow},
		{line: 31, sev: diag.SevError, cat: diag.CatLifetime},
		{line: 36, sev: diag.SevWarning, cat: diag.CatUnused},
		{line: 42, sev: diag.SevWarning, cat: diag.CatUnreachable},
		{line: 56, sev: diag.SevError, cat: diag.CatNonExhaustive},
		{line: 72, sev: diag.SevError, cat: diag.CatMove},
	}

	if len(exps) != len(want) {
		for _, e := range exps {
			t.Logf("scanned: %s", e.Describe())
		}
		t.Fatalf("got %d expectations, want %d", len(exps), len(want))
	}
	for i, w := range want {
		e := exps[i]
		if e.Line != w.line || e.Severity != w.sev || e.Category != w.cat {
			t.Errorf("[%d] = %s, want %s(%s) @%d", i, e.Describe(), w.sev.Label(), w.cat, w.line)
		}
	}

	errors, warnings := CountBySeverity(exps)
	if errors != 6 || warnings != 2 {
		t.Errorf("counts = %d errors, %d warnings", errors, warnings)
	}
}

func TestScanTypedProgramCorpus(t *testing.T) {
	tests := []struct {
		path   string
		leader string
		lines  []uint32
	}{
		{path: "rust/typed_program.rs", leader: "//", lines: []uint32{39, 42}},
		{path: "go/typed_program.go", leader: "//", lines: []uint32{47, 50}},
		{path: "python/typed_program.py", leader: "#", lines: []uint32{34, 37}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fs := source.NewFileSet()
			id, err := fs.Load(filepath.Join("..", "..", "testdata", "corpus", filepath.FromSlash(tt.path)))
			if err != nil {
				t.Fatalf("load corpus: %v", err)
			}
			exps := ScanFile(fs.Get(id), tt.leader, nil)
			if len(exps) != len(tt.lines) {
				t.Fatalf("got %d expectations, want %d", len(exps), len(tt.lines))
			}
			for i, line := range tt.lines {
				e := exps[i]
				if e.Line != line {
					t.Errorf("[%d].Line = %d, want %d", i, e.Line, line)
				}
				if e.Severity != diag.SevError || e.Category != diag.CatTypeMismatch {
					t.Errorf("[%d] = %s, want error(type-mismatch)", i, e.Describe())
				}
				if !e.Tagged {
					t.Errorf("[%d] not tagged despite explicit Type error marker", i)
				}
			}
		})
	}
}

func TestCommentLeader(t *testing.T) {
	if CommentLeader("python") != "#" {
		t.Error("python leader")
	}
	if CommentLeader("rust") != "//" || CommentLeader("go") != "//" {
		t.Error("slash leader")
	}
}
