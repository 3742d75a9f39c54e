package match

import (
	"testing"
	"time"

	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"category", ModeCategory, false},
		{"message", ModeMessage, false},
		{"line", ModeLine, false},
		{"Category", ModeCategory, true},
		{"fuzzy", ModeCategory, true},
		{"", ModeCategory, true},
	}
	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestModeAndOutcomeStrings(t *testing.T) {
	if ModeMessage.String() != "message" {
		t.Errorf("ModeMessage.String() = %q", ModeMessage.String())
	}
	if Mode(9).String() != "mode(9)" {
		t.Errorf("unknown mode string = %q", Mode(9).String())
	}
	for o, want := range map[Outcome]string{
		OutcomePass:  "pass",
		OutcomeFail:  "fail",
		OutcomeError: "error",
		OutcomeSkip:  "skip",
	} {
		if o.String() != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", uint8(o), o.String(), want)
		}
	}
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(&FileResult{
		Outcome:  OutcomePass,
		Expected: 2,
		Matched:  make([]Pair, 2),
		Cached:   true,
		Duration: time.Second,
	})
	s.Add(&FileResult{
		Outcome:    OutcomeFail,
		Expected:   3,
		Matched:    make([]Pair, 1),
		Missing:    make([]expect.Expectation, 2),
		Unexpected: make([]diag.Diagnostic, 1),
		Duration:   2 * time.Second,
	})
	s.Add(&FileResult{Outcome: OutcomeError})
	s.Add(&FileResult{Outcome: OutcomeSkip})

	if s.Files != 4 || s.Passed != 1 || s.Failed != 1 || s.Errored != 1 || s.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d/%d/%d, want 4/1/1/1/1",
			s.Files, s.Passed, s.Failed, s.Errored, s.Skipped)
	}
	if s.Expected != 5 || s.Matched != 3 || s.Missing != 2 || s.Unexpected != 1 {
		t.Errorf("expectation counts = %d/%d/%d/%d, want 5/3/2/1",
			s.Expected, s.Matched, s.Missing, s.Unexpected)
	}
	if s.Cached != 1 || s.Duration != 3*time.Second {
		t.Errorf("cached/duration = %d/%v, want 1/3s", s.Cached, s.Duration)
	}
	if s.Ok() {
		t.Errorf("summary with failures must not be ok")
	}

	var green Summary
	green.Add(&FileResult{Outcome: OutcomePass})
	green.Add(&FileResult{Outcome: OutcomeSkip})
	if !green.Ok() {
		t.Errorf("pass+skip summary should be ok")
	}
}
