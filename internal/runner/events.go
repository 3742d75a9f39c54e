package runner

import "time"

// Stage describes a per-fixture processing phase.
type Stage string

const (
	// StageLoad covers reading the fixture and scanning its expectations.
	StageLoad Stage = "load"
	// StageCheck covers the external tool invocation.
	StageCheck Stage = "check"
	// StageMatch covers diffing expectations against tool output.
	StageMatch Stage = "match"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the fixture is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the fixture is currently being processed.
	StatusWorking Status = "working"
	// StatusPass indicates every expectation was answered.
	StatusPass Status = "pass"
	// StatusFail indicates the diff produced error findings.
	StatusFail Status = "fail"
	// StatusError indicates the tool could not be run on the fixture.
	StatusError Status = "error"
	// StatusSkip indicates the fixture was skipped (no tool, disabled).
	StatusSkip Status = "skip"
)

// Event reports progress for a fixture (or for the whole run when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
	Cached  bool
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}
