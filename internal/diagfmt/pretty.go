package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"diagcheck/internal/diag"
	"diagcheck/internal/match"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
)

// palette держит цвета вывода; при выключенном цвете все Sprint — no-op.
type palette struct {
	pass    *color.Color
	fail    *color.Color
	errOut  *color.Color
	skip    *color.Color
	sevErr  *color.Color
	sevWarn *color.Color
	sevInfo *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		pass:    color.New(color.FgGreen, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		errOut:  color.New(color.FgMagenta, color.Bold),
		skip:    color.New(color.FgHiBlack),
		sevErr:  color.New(color.FgRed),
		sevWarn: color.New(color.FgYellow),
		sevInfo: color.New(color.FgCyan),
	}
	if !enabled {
		for _, c := range []*color.Color{p.pass, p.fail, p.errOut, p.skip, p.sevErr, p.sevWarn, p.sevInfo} {
			c.DisableColor()
		}
	}
	return p
}

func (p *palette) outcome(o match.Outcome) string {
	switch o {
	case match.OutcomePass:
		return p.pass.Sprint("PASS")
	case match.OutcomeFail:
		return p.fail.Sprint("FAIL")
	case match.OutcomeError:
		return p.errOut.Sprint("ERR ")
	default:
		return p.skip.Sprint("SKIP")
	}
}

func (p *palette) severity(s diag.Severity) (string, *color.Color) {
	switch s {
	case diag.SevError:
		return p.sevErr.Sprint("ERROR"), p.sevErr
	case diag.SevWarning:
		return p.sevWarn.Sprint("WARNING"), p.sevWarn
	default:
		return p.sevInfo.Sprint("INFO"), p.sevInfo
	}
}

// Pretty renders the run report for humans. One status line per fixture;
// red fixtures additionally list their findings as
// <path>:<line>:<col>: <SEV> <CODE>: <message>
// followed by the source line with a ^~~~ underline for the span and, with
// ShowNotes, the indented notes. Passing fixtures are listed only with
// ShowPassing; the summary line always closes the report.
func Pretty(w io.Writer, rep *runner.Report, opts PrettyOpts) {
	pal := newPalette(opts.Color)

	listed := 0
	for i := range rep.Results {
		r := &rep.Results[i]
		if r.Outcome == match.OutcomePass && !opts.ShowPassing {
			continue
		}
		writeStatusLine(w, r, pal, opts)
		listed++

		if r.Outcome == match.OutcomePass || r.Outcome == match.OutcomeSkip {
			continue
		}
		for j := range r.Findings {
			prettyFinding(w, rep.FileSet, r, &r.Findings[j], pal, opts)
		}
	}

	if listed > 0 {
		fmt.Fprintln(w)
	}
	writeSummaryLine(w, &rep.Summary, pal)
}

func writeStatusLine(w io.Writer, r *match.FileResult, pal *palette, opts PrettyOpts) {
	path := r.Path
	if opts.Width > 0 {
		path = runewidth.Truncate(path, int(opts.Width), "...")
	}
	if r.Tool != "" {
		fmt.Fprintf(w, "%s %s [%s] %s\n", pal.outcome(r.Outcome), path, r.Tool, statusDetail(r))
	} else {
		fmt.Fprintf(w, "%s %s %s\n", pal.outcome(r.Outcome), path, statusDetail(r))
	}
}

func statusDetail(r *match.FileResult) string {
	switch r.Outcome {
	case match.OutcomePass, match.OutcomeFail:
		s := fmt.Sprintf("%d/%d matched", len(r.Matched), r.Expected)
		if n := len(r.Missing); n > 0 {
			s += fmt.Sprintf(", %d missing", n)
		}
		if n := len(r.Unexpected); n > 0 {
			s += fmt.Sprintf(", %d unexpected", n)
		}
		if r.Cached {
			s += " (cached)"
		}
		if r.Duration > 0 {
			s += fmt.Sprintf(" %dms", r.Duration.Milliseconds())
		}
		return s
	case match.OutcomeError:
		return "not judged"
	default:
		return "skipped"
	}
}

func prettyFinding(w io.Writer, fs *source.FileSet, r *match.FileResult, d *diag.Diagnostic, pal *palette, opts PrettyOpts) {
	code := d.Code.ID()
	if code == "" {
		code = d.Category.String()
	}
	sev, sevColor := pal.severity(d.Severity)

	// Start==End==0 — привязки к месту нет (ошибка чтения, падение тула):
	// печатаем путь результата без позиции и без контекста.
	if d.Primary.Start == 0 && d.Primary.End == 0 {
		fmt.Fprintf(w, "  %s: %s %s: %s\n", r.Path, sev, code, d.Message)
		writeNotes(w, fs, d, opts)
		return
	}

	start, end := fs.Resolve(d.Primary)
	path := formatSpanPath(fs, d.Primary.File, opts.PathMode)
	fmt.Fprintf(w, "  %s:%d:%d: %s %s: %s\n", path, start.Line, start.Col, sev, code, d.Message)

	if opts.Context >= 0 {
		writeContext(w, fs.Get(d.Primary.File), start, end, int(opts.Context), sevColor)
	}
	writeNotes(w, fs, d, opts)
}

func writeNotes(w io.Writer, fs *source.FileSet, d *diag.Diagnostic, opts PrettyOpts) {
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		if n.Span.Start == 0 && n.Span.End == 0 {
			fmt.Fprintf(w, "    note: %s\n", n.Msg)
			continue
		}
		start, _ := fs.Resolve(n.Span)
		path := formatSpanPath(fs, n.Span.File, opts.PathMode)
		fmt.Fprintf(w, "    note: %s:%d:%d: %s\n", path, start.Line, start.Col, n.Msg)
	}
}

// writeContext prints line numbers and source around the primary line with a
// caret row under the span.
func writeContext(w io.Writer, f *source.File, start, end source.LineCol, ctx int, caretColor *color.Color) {
	first := int(start.Line) - ctx
	if first < 1 {
		first = 1
	}
	last := int(start.Line) + ctx
	if n := int(f.NumLines()); last > n {
		last = n
	}

	for line := first; line <= last; line++ {
		text := expandTabs(f.GetLine(uint32(line)))
		fmt.Fprintf(w, "  %5d | %s\n", line, text)
		if uint32(line) == start.Line {
			writeCaret(w, f, start, end, caretColor)
		}
	}
}

func writeCaret(w io.Writer, f *source.File, start, end source.LineCol, caretColor *color.Color) {
	lineText := f.GetLine(start.Line)

	prefixEnd := int(start.Col) - 1
	if prefixEnd > len(lineText) {
		prefixEnd = len(lineText)
	}
	if prefixEnd < 0 {
		prefixEnd = 0
	}
	pad := runewidth.StringWidth(expandTabs(lineText[:prefixEnd]))

	width := 1
	switch {
	case end.Line == start.Line && int(end.Col)-1 > prefixEnd:
		segEnd := int(end.Col) - 1
		if segEnd > len(lineText) {
			segEnd = len(lineText)
		}
		width = runewidth.StringWidth(lineText[prefixEnd:segEnd])
	case end.Line > start.Line:
		// спан уходит на следующие строки: подчёркиваем до конца строки
		width = runewidth.StringWidth(expandTabs(lineText)) - pad
	}
	if width < 1 {
		width = 1
	}

	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "  %5s | %s%s\n", "", strings.Repeat(" ", pad), caretColor.Sprint(marker))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func writeSummaryLine(w io.Writer, s *match.Summary, pal *palette) {
	verdict := pal.pass.Sprint("ok")
	if !s.Ok() {
		verdict = pal.fail.Sprint("FAILED")
	}

	counts := fmt.Sprintf("%d files: %d passed, %d failed", s.Files, s.Passed, s.Failed)
	if s.Errored > 0 {
		counts += fmt.Sprintf(", %d errored", s.Errored)
	}
	if s.Skipped > 0 {
		counts += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	if s.Cached > 0 {
		counts += fmt.Sprintf(" (%d cached)", s.Cached)
	}

	fmt.Fprintf(w, "%s %s; expectations %d/%d matched", verdict, counts, s.Matched, s.Expected)
	if s.Unexpected > 0 {
		fmt.Fprintf(w, ", %d unexpected", s.Unexpected)
	}
	fmt.Fprintln(w)
}

// formatSpanPath форматирует путь файла спана согласно режиму.
func formatSpanPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	case PathModeAuto:
		return f.FormatPath("auto", "")
	default:
		return f.Path
	}
}
