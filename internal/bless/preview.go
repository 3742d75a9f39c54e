package bless

import (
	"fmt"
	"io"

	"diagcheck/internal/source"
)

// DiffPreview renders the dry-run view: each planned edit as the affected
// line before and after.
func DiffPreview(w io.Writer, fs *source.FileSet, plans []Plan) {
	first := true
	for i := range plans {
		plan := &plans[i]
		if len(plan.Edits) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false

		fmt.Fprintf(w, "bless %s\n", plan.Path)
		f := fs.Get(plan.File)
		for _, e := range plan.Edits {
			before, after, ok := editPreview(f, e)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  @ line %d (%s)\n", e.Line, e.Kind)
			fmt.Fprintf(w, "  - %s\n", before)
			fmt.Fprintf(w, "  + %s\n", after)
		}
	}
}

// editPreview splices a single edit into its line. Edits crossing line
// boundaries are not previewable.
func editPreview(f *source.File, e PlannedEdit) (before, after string, ok bool) {
	ls := f.LineSpan(e.Line)
	if e.Span.Start < ls.Start || e.Span.End > ls.End || e.Span.Start > e.Span.End {
		return "", "", false
	}
	text := string(f.Content[ls.Start:ls.End])
	rs := int(e.Span.Start - ls.Start)
	re := int(e.Span.End - ls.Start)
	return text, text[:rs] + e.NewText + text[re:], true
}
