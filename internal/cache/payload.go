package cache

import (
	"time"

	"diagcheck/internal/diag"
	"diagcheck/internal/source"
)

// Payload is the serialized form of one parsed tool run.
//
// Positions are stored as line and column, not byte offsets: a FileID is
// only meaningful inside the process that allocated it, and line/col stays
// valid regardless of how the content was normalized in memory.
type Payload struct {
	Schema   uint16
	Tool     string
	ExitCode int
	Duration int64 // nanoseconds

	Diagnostics []PayloadDiagnostic
}

// PayloadDiagnostic mirrors diag.Diagnostic without process-local IDs.
type PayloadDiagnostic struct {
	Severity  uint8
	Code      string
	Category  uint8
	Message   string
	StartLine uint32
	StartCol  uint32
	EndLine   uint32
	EndCol    uint32
	Notes     []PayloadNote
}

// PayloadNote mirrors diag.Note.
type PayloadNote struct {
	StartLine uint32
	StartCol  uint32
	EndLine   uint32
	EndCol    uint32
	Msg       string
}

// Snapshot converts a parsed run into its cacheable form.
func Snapshot(f *source.File, tool string, exitCode int, dur time.Duration, diags []diag.Diagnostic) *Payload {
	p := &Payload{
		Schema:      schemaVersion,
		Tool:        tool,
		ExitCode:    exitCode,
		Duration:    int64(dur),
		Diagnostics: make([]PayloadDiagnostic, 0, len(diags)),
	}
	for _, d := range diags {
		start, end := spanToLineCol(f, d.Primary)
		pd := PayloadDiagnostic{
			Severity:  uint8(d.Severity),
			Code:      string(d.Code),
			Category:  uint8(d.Category),
			Message:   d.Message,
			StartLine: start.Line,
			StartCol:  start.Col,
			EndLine:   end.Line,
			EndCol:    end.Col,
		}
		for _, n := range d.Notes {
			ns, ne := spanToLineCol(f, n.Span)
			pd.Notes = append(pd.Notes, PayloadNote{
				StartLine: ns.Line,
				StartCol:  ns.Col,
				EndLine:   ne.Line,
				EndCol:    ne.Col,
				Msg:       n.Msg,
			})
		}
		p.Diagnostics = append(p.Diagnostics, pd)
	}
	return p
}

// Restore re-anchors a cached run against the freshly loaded fixture. ok is
// false for payloads written by another schema.
func (p *Payload) Restore(f *source.File) (diags []diag.Diagnostic, exitCode int, dur time.Duration, ok bool) {
	if p == nil || p.Schema != schemaVersion {
		return nil, 0, 0, false
	}
	diags = make([]diag.Diagnostic, 0, len(p.Diagnostics))
	for _, pd := range p.Diagnostics {
		d := diag.Diagnostic{
			Severity: diag.Severity(pd.Severity),
			Code:     diag.Code(pd.Code),
			Category: diag.Category(pd.Category),
			Message:  pd.Message,
			Tool:     p.Tool,
			Primary:  lineColToSpan(f, pd.StartLine, pd.StartCol, pd.EndLine, pd.EndCol),
		}
		for _, n := range pd.Notes {
			d = d.WithNote(lineColToSpan(f, n.StartLine, n.StartCol, n.EndLine, n.EndCol), n.Msg)
		}
		diags = append(diags, d)
	}
	return diags, p.ExitCode, time.Duration(p.Duration), true
}

func spanToLineCol(f *source.File, sp source.Span) (start, end source.LineCol) {
	return f.LineCol(sp.Start), f.LineCol(sp.End)
}

func lineColToSpan(f *source.File, sl, sc, el, ec uint32) source.Span {
	start := f.OffsetOf(source.LineCol{Line: sl, Col: sc})
	end := f.OffsetOf(source.LineCol{Line: el, Col: ec})
	if end < start {
		end = start
	}
	return source.Span{File: f.ID, Start: start, End: end}
}
