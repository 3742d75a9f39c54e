package match

import "fmt"

// Mode selects how strictly a diagnostic has to agree with a marker before
// the two can pair up.
type Mode uint8

const (
	// ModeCategory pairs on category and anchor distance. The default.
	ModeCategory Mode = iota
	// ModeMessage additionally requires the marker's hint text to appear in
	// the diagnostic's message or notes.
	ModeMessage
	// ModeLine requires the exact anchor line; the window is ignored.
	ModeLine
)

var modeNames = [...]string{"category", "message", "line"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode maps a manifest or flag value onto a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return ModeCategory, fmt.Errorf("unknown match mode %q (category, message, line)", s)
}

// DefaultWindow is how many lines an expectation may sit away from the
// diagnostic it describes. Trailing markers land on the offending line, but
// e.g. a non-exhaustive match is annotated inside the match body while the
// tool anchors at the match head a few lines up.
const DefaultWindow = 4

// Options configures one matching run.
type Options struct {
	Mode Mode
	// Window is the maximum line distance between marker and diagnostic.
	// Zero means the lines must agree exactly.
	Window uint32
	// Strict turns unexpected tool diagnostics into failures.
	Strict bool
	// RequireExpectations fails fixtures that carry no markers at all.
	RequireExpectations bool
}

// DefaultOptions returns the matcher defaults used when the manifest is
// silent.
func DefaultOptions() Options {
	return Options{Mode: ModeCategory, Window: DefaultWindow}
}
