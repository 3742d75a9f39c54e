package diagfmt

import (
	"fmt"
	"io"

	"diagcheck/internal/diag"
	"diagcheck/internal/runner"
)

// Short renders every finding of the run as golden single-line entries:
// <severity> <code> <path>:<line>:<col> <message>, sorted and with whitespace
// collapsed so the output diffs cleanly. Files without findings print nothing.
func Short(w io.Writer, rep *runner.Report, includeNotes bool) {
	var items []diag.Diagnostic
	for i := range rep.Results {
		items = append(items, rep.Results[i].Findings...)
	}
	out := diag.FormatGolden(items, rep.FileSet, includeNotes)
	if out != "" {
		fmt.Fprintln(w, out)
	}
}
