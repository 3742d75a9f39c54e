package main

import (
	"fmt"
	"io"

	"diagcheck/internal/observ"
)

// printPhaseTimings renders the collected phase durations in the same
// shape the observ summary uses, one line per phase plus the total.
func printPhaseTimings(out io.Writer, rep *observ.Report) {
	if out == nil || rep == nil || len(rep.Phases) == 0 {
		return
	}
	for _, ph := range rep.Phases {
		if ph.Note != "" {
			fmt.Fprintf(out, "%-12s %8.1f ms  (%s)\n", ph.Name, ph.DurationMS, ph.Note)
			continue
		}
		fmt.Fprintf(out, "%-12s %8.1f ms\n", ph.Name, ph.DurationMS)
	}
	fmt.Fprintf(out, "%-12s %8.1f ms\n", "total", rep.TotalMS)
}
