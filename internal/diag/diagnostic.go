package diag

import (
	"diagcheck/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is the common record for both actual tool output and the
// harness's own findings. Tool carries the adapter name ("rustc", "go",
// "pyright"); harness findings keep the name of the tool they judged
// against.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Category Category
	Message  string
	Tool     string
	Primary  source.Span
	Notes    []Note
}
