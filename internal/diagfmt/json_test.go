package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

// TestJSONRunEnvelope проверяет корневую структуру JSON вывода
func TestJSONRunEnvelope(t *testing.T) {
	rep := failingReport(t)

	var buf bytes.Buffer
	opts := JSONOpts{
		IncludePositions: true,
		PathMode:         PathModeRelative,
		IncludeNotes:     true,
	}
	if err := JSON(&buf, rep, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var out RunOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON produced: %v\n%s", err, buf.String())
	}

	if out.SchemaVersion != jsonSchemaVersion {
		t.Errorf("schema_version = %d, want %d", out.SchemaVersion, jsonSchemaVersion)
	}
	if out.Summary.Files != 1 || out.Summary.Failed != 1 || out.Summary.Ok {
		t.Errorf("summary = %+v", out.Summary)
	}
	if len(out.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(out.Files))
	}

	f := out.Files[0]
	if f.Path != "fixtures/test.rs" || f.Outcome != "fail" || f.Tool != "rustc" {
		t.Errorf("file = %+v", f)
	}
	if f.Expected != 1 || f.Matched != 0 {
		t.Errorf("file counts = %+v", f)
	}
	if f.DurationMS != 40 {
		t.Errorf("duration_ms = %v, want 40", f.DurationMS)
	}
	if len(f.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(f.Findings))
	}

	fd := f.Findings[0]
	if fd.Severity != "error" || fd.Code != "CHK0001" {
		t.Errorf("finding = %+v", fd)
	}
	loc := fd.Location
	if loc.File != "fixtures/test.rs" {
		t.Errorf("location file = %q", loc.File)
	}
	if loc.StartLine != 2 || loc.StartCol != 18 || loc.EndLine != 2 || loc.EndCol != 24 {
		t.Errorf("location positions = %+v", loc)
	}
}

// TestJSONMaxFindings проверяет обрезку списка находок
func TestJSONMaxFindings(t *testing.T) {
	rep := failingReport(t)
	extra := diag.NewWarning(diag.CodeUnexpected, rep.Results[0].Findings[0].Primary,
		"unexpected warning(unused) from rustc").WithTool("rustc")
	rep.Results[0].Findings = append(rep.Results[0].Findings, extra)

	out := BuildRunOutput(rep, JSONOpts{Max: 1})
	if got := len(out.Files[0].Findings); got != 1 {
		t.Errorf("findings after Max=1: %d, want 1", got)
	}

	out = BuildRunOutput(rep, JSONOpts{})
	if got := len(out.Files[0].Findings); got != 2 {
		t.Errorf("findings without Max: %d, want 2", got)
	}
}

// TestJSONZeroSpanLocation: находка без привязки не должна указывать на
// случайный файл.
func TestJSONZeroSpanLocation(t *testing.T) {
	rep := failingReport(t)
	rep.Results[0].Findings[0] = diag.NewError(diag.CodeLoadFailed, source.Span{},
		"failed to load fixture: permission denied")

	out := BuildRunOutput(rep, JSONOpts{IncludePositions: true})
	loc := out.Files[0].Findings[0].Location
	if loc.File != "" || loc.StartLine != 0 {
		t.Errorf("zero-span location = %+v, want empty", loc)
	}
}

func TestShortGoldenLines(t *testing.T) {
	rep := failingReport(t)

	var buf bytes.Buffer
	Short(&buf, rep, false)
	output := buf.String()

	want := "error CHK0001 fixtures/test.rs:2:18 expected error(type-mismatch) not reported by rustc\n"
	if output != want {
		t.Errorf("Short output = %q, want %q", output, want)
	}
}

func TestShortEmptyReport(t *testing.T) {
	rep := failingReport(t)
	rep.Results[0].Findings = nil

	var buf bytes.Buffer
	Short(&buf, rep, false)
	if buf.Len() != 0 {
		t.Errorf("Short on clean report produced %q", buf.String())
	}
}

func TestJSONStableKeys(t *testing.T) {
	rep := failingReport(t)

	var buf bytes.Buffer
	if err := JSON(&buf, rep, JSONOpts{}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	// ключи конверта фиксированы структурами
	for _, key := range []string{`"schema_version"`, `"summary"`, `"files"`, `"outcome"`, `"findings"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("expected key %s in output:\n%s", key, buf.String())
		}
	}
	if strings.Contains(buf.String(), `"timings"`) {
		t.Errorf("timings should be omitted when not collected:\n%s", buf.String())
	}
}
