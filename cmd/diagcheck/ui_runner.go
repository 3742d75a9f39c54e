package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"diagcheck/internal/runner"
	"diagcheck/internal/ui"
)

type runOutcome struct {
	report *runner.Report
	err    error
}

// runCorpusWithUI drives a corpus run behind the bubbletea progress view.
// The run itself happens on a goroutine; events stream into the model and
// the verdict is collected once the program exits.
func runCorpusWithUI(ctx context.Context, title string, files []string, opts runner.Options) (*runner.Report, error) {
	events := make(chan runner.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = runner.ChannelSink{Ch: events}
		rep, err := runner.Run(ctx, optsCopy)
		outcomeCh <- runOutcome{report: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
