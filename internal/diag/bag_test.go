package diag

import (
	"testing"

	"diagcheck/internal/source"
)

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(CodeMissing, source.Span{}, "one")) {
		t.Fatal("first add rejected")
	}
	if !b.Add(NewError(CodeMissing, source.Span{}, "two")) {
		t.Fatal("second add rejected")
	}
	if b.Add(NewError(CodeMissing, source.Span{}, "three")) {
		t.Error("add above cap accepted")
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", b.Dropped())
	}
}

func TestBagSeverityQueries(t *testing.T) {
	b := NewBag(10)
	b.Add(New(SevInfo, CodeUnexpected, source.Span{}, "fyi"))
	if b.HasErrors() || b.HasWarnings() {
		t.Error("info-only bag reports errors/warnings")
	}
	b.Add(NewWarning(CodeUnexpected, source.Span{}, "warn"))
	if b.HasErrors() {
		t.Error("warning counted as error")
	}
	if !b.HasWarnings() {
		t.Error("warning not seen")
	}
	b.Add(NewError(CodeMissing, source.Span{}, "err"))
	if !b.HasErrors() {
		t.Error("error not seen")
	}
	if got := b.CountBySeverity(SevWarning); got != 1 {
		t.Errorf("CountBySeverity(warning) = %d, want 1", got)
	}
}

func TestBagSortOrder(t *testing.T) {
	b := NewBag(10)
	b.Add(NewWarning("unused_variables", source.Span{File: 1, Start: 40, End: 45}, "later"))
	b.Add(NewError("E0308", source.Span{File: 1, Start: 10, End: 15}, "earlier"))
	b.Add(NewWarning("unused_mut", source.Span{File: 1, Start: 10, End: 15}, "same span lower severity"))
	b.Add(NewError("E0004", source.Span{File: 0, Start: 99, End: 100}, "file zero first"))

	b.Sort()

	items := b.Items()
	wantMsgs := []string{"file zero first", "earlier", "same span lower severity", "later"}
	for i, want := range wantMsgs {
		if items[i].Message != want {
			t.Errorf("items[%d].Message = %q, want %q", i, items[i].Message, want)
		}
	}
}

func TestBagDedup(t *testing.T) {
	sp := source.Span{File: 1, Start: 5, End: 9}
	b := NewBag(10)
	b.Add(NewError("E0308", sp, "mismatched types"))
	b.Add(NewError("E0308", sp, "mismatched types"))
	b.Add(NewError("E0425", sp, "different code survives"))
	b.Dedup()
	if b.Len() != 2 {
		t.Errorf("Len after Dedup = %d, want 2", b.Len())
	}
}

func TestBagFilter(t *testing.T) {
	b := NewBag(10)
	b.Add(NewError("E0308", source.Span{}, "keep"))
	b.Add(NewWarning("unused_variables", source.Span{}, "drop"))
	b.Filter(func(d Diagnostic) bool { return d.Severity == SevError })
	if b.Len() != 1 || b.Items()[0].Message != "keep" {
		t.Errorf("Filter kept %d items", b.Len())
	}
}

func TestBagMerge(t *testing.T) {
	a := NewBag(1)
	a.Add(NewError("E0308", source.Span{}, "a"))
	other := NewBag(2)
	other.Add(NewError("E0425", source.Span{}, "b"))
	other.Add(NewError("E0004", source.Span{}, "c"))

	a.Merge(other)
	if a.Len() != 3 {
		t.Errorf("Len after merge = %d, want 3", a.Len())
	}
	// лимит должен вырасти, чтобы вместить всё
	if int(a.Cap()) < 3 {
		t.Errorf("Cap = %d, want >= 3", a.Cap())
	}
}
