package diagfmt

import (
	"encoding/json"
	"io"
	"time"

	"diagcheck/internal/diag"
	"diagcheck/internal/observ"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
)

// jsonSchemaVersion versions the run envelope, not the cache payload.
const jsonSchemaVersion = 1

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FindingJSON представляет одну находку чекера для JSON
type FindingJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Category string       `json:"category"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// FileJSON представляет вердикт по одному фикстур-файлу
type FileJSON struct {
	Path       string        `json:"path"`
	Outcome    string        `json:"outcome"`
	Tool       string        `json:"tool,omitempty"`
	Expected   int           `json:"expected"`
	Matched    int           `json:"matched"`
	Missing    int           `json:"missing"`
	Unexpected int           `json:"unexpected"`
	Cached     bool          `json:"cached,omitempty"`
	ToolExit   int           `json:"tool_exit,omitempty"`
	DurationMS float64       `json:"duration_ms"`
	Findings   []FindingJSON `json:"findings,omitempty"`
}

// SummaryJSON представляет агрегаты прогона
type SummaryJSON struct {
	Files      int     `json:"files"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Errored    int     `json:"errored"`
	Skipped    int     `json:"skipped"`
	Expected   int     `json:"expected"`
	Matched    int     `json:"matched"`
	Missing    int     `json:"missing"`
	Unexpected int     `json:"unexpected"`
	Cached     int     `json:"cached"`
	DurationMS float64 `json:"duration_ms"`
	Ok         bool    `json:"ok"`
}

// RunOutput представляет корневую структуру JSON вывода прогона
type RunOutput struct {
	SchemaVersion int            `json:"schema_version"`
	Summary       SummaryJSON    `json:"summary"`
	Files         []FileJSON     `json:"files"`
	Timings       *observ.Report `json:"timings,omitempty"`
}

// makeLocation создаёт LocationJSON из Span
func makeLocation(span source.Span, fs *source.FileSet, pathMode PathMode, includePositions bool) LocationJSON {
	if span.Start == 0 && span.End == 0 {
		// нет привязки к месту
		return LocationJSON{}
	}

	loc := LocationJSON{
		File:      formatSpanPath(fs, span.File, pathMode),
		StartByte: span.Start,
		EndByte:   span.End,
	}

	if includePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}

	return loc
}

func makeFinding(d *diag.Diagnostic, fs *source.FileSet, opts JSONOpts) FindingJSON {
	out := FindingJSON{
		Severity: d.Severity.Label(),
		Code:     d.Code.ID(),
		Category: d.Category.String(),
		Message:  d.Message,
		Location: makeLocation(d.Primary, fs, opts.PathMode, opts.IncludePositions),
	}

	includeNotes := opts.IncludeNotes || d.Code == diag.CodeTimings
	if includeNotes && len(d.Notes) > 0 {
		out.Notes = make([]NoteJSON, len(d.Notes))
		for j, note := range d.Notes {
			out.Notes[j] = NoteJSON{
				Message:  note.Msg,
				Location: makeLocation(note.Span, fs, opts.PathMode, opts.IncludePositions),
			}
		}
	}
	return out
}

// BuildRunOutput формирует структуру JSON-вывода без сериализации.
func BuildRunOutput(rep *runner.Report, opts JSONOpts) RunOutput {
	files := make([]FileJSON, 0, len(rep.Results))
	for i := range rep.Results {
		r := &rep.Results[i]

		fileJSON := FileJSON{
			Path:       r.Path,
			Outcome:    r.Outcome.String(),
			Tool:       r.Tool,
			Expected:   r.Expected,
			Matched:    len(r.Matched),
			Missing:    len(r.Missing),
			Unexpected: len(r.Unexpected),
			Cached:     r.Cached,
			ToolExit:   r.ToolExit,
			DurationMS: durationMS(r.Duration),
		}

		findings := r.Findings
		if opts.Max > 0 && opts.Max < len(findings) {
			findings = findings[:opts.Max]
		}
		if len(findings) > 0 {
			fileJSON.Findings = make([]FindingJSON, len(findings))
			for j := range findings {
				fileJSON.Findings[j] = makeFinding(&findings[j], rep.FileSet, opts)
			}
		}

		files = append(files, fileJSON)
	}

	s := rep.Summary
	return RunOutput{
		SchemaVersion: jsonSchemaVersion,
		Summary: SummaryJSON{
			Files:      s.Files,
			Passed:     s.Passed,
			Failed:     s.Failed,
			Errored:    s.Errored,
			Skipped:    s.Skipped,
			Expected:   s.Expected,
			Matched:    s.Matched,
			Missing:    s.Missing,
			Unexpected: s.Unexpected,
			Cached:     s.Cached,
			DurationMS: durationMS(s.Duration),
			Ok:         s.Ok(),
		},
		Files:   files,
		Timings: rep.Timing,
	}
}

// JSON форматирует отчёт прогона в JSON.
func JSON(w io.Writer, rep *runner.Report, opts JSONOpts) error {
	output := BuildRunOutput(rep, opts)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
