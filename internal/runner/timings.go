package runner

import (
	"encoding/json"
	"fmt"

	"diagcheck/internal/diag"
	"diagcheck/internal/observ"
	"diagcheck/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingEntry attaches the phase timings to the run bag as an info
// entry with the JSON payload in a note, so machine formats can pick it up.
func appendTimingEntry(bag *diag.Bag, payload timingPayload) {
	if bag == nil {
		return
	}
	if payload.Kind == "" {
		payload.Kind = "run"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.New(diag.SevInfo, diag.CodeTimings, source.Span{}, msg).
		WithNote(source.Span{}, string(data))

	if bag.Add(entry) {
		return
	}
	// переполненный bag: расширяем через merge, тайминги не теряем
	overflow := diag.NewBag(1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
