package bless

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"diagcheck/internal/source"
)

// ErrNoEdits reports that every fixture already agrees with its tool.
var ErrNoEdits = errors.New("no marker edits to apply")

// Options controls how Apply treats the planned edits. The default is a dry
// run: edits are validated and staged but nothing touches the disk.
type Options struct {
	// Write flushes staged buffers back to the fixture files.
	Write bool
	// Backup keeps the original next to the rewritten file as <path>.bak.
	// Только вместе с Write.
	Backup bool
}

// AppliedEdit describes one marker change that passed validation.
type AppliedEdit struct {
	Path string
	Line uint32
	Kind EditKind
	Note string
}

// FileChange summarizes the edits staged for a single fixture.
type FileChange struct {
	Path      string
	EditCount int
	// Backup is the path of the saved original, empty on dry runs.
	Backup string
}

// Result is the outcome of an Apply call.
type Result struct {
	Applied     []AppliedEdit
	Skipped     []SkippedEdit
	FileChanges []FileChange
}

// Apply validates and applies the plans. Per file: conflicting edits are
// rejected pairwise, the survivors are spliced into a staged buffer from the
// highest offset down so earlier splices never shift later spans, and each
// splice is guarded by OldText against fixtures that changed since the run.
// With opts.Write the staged buffers replace the files on disk, preserving
// the original mode.
func Apply(fs *source.FileSet, plans []Plan, opts Options) (*Result, error) {
	result := &Result{}
	if fs == nil {
		return result, fmt.Errorf("bless: nil file set")
	}

	for i := range plans {
		plan := &plans[i]
		result.Skipped = append(result.Skipped, plan.Skipped...)
		if len(plan.Edits) == 0 {
			continue
		}

		file := fs.Get(plan.File)
		if file.Flags&source.FileVirtual != 0 {
			for _, e := range plan.Edits {
				result.Skipped = append(result.Skipped, SkippedEdit{Path: plan.Path, Line: e.Line, Reason: "target file is virtual"})
			}
			continue
		}

		kept := rejectConflicts(plan, result)
		staged, applied := splice(file, plan.Path, kept, result)
		if len(applied) == 0 {
			continue
		}

		change := FileChange{Path: plan.Path, EditCount: len(applied)}
		if opts.Write {
			backup, err := flush(file, staged, opts.Backup)
			if err != nil {
				return result, err
			}
			change.Backup = backup
		}
		result.Applied = append(result.Applied, applied...)
		result.FileChanges = append(result.FileChanges, change)
	}

	sort.Slice(result.FileChanges, func(i, j int) bool {
		return result.FileChanges[i].Path < result.FileChanges[j].Path
	})

	if len(result.Applied) == 0 {
		return result, ErrNoEdits
	}
	return result, nil
}

// rejectConflicts keeps the edits in plan order, dropping any that overlap an
// already kept one.
func rejectConflicts(plan *Plan, result *Result) []PlannedEdit {
	kept := make([]PlannedEdit, 0, len(plan.Edits))
	for _, e := range plan.Edits {
		conflict := false
		for k := range kept {
			if spansConflict(e.Span, kept[k].Span) {
				conflict = true
				break
			}
		}
		if conflict {
			result.Skipped = append(result.Skipped, SkippedEdit{Path: plan.Path, Line: e.Line, Reason: "conflicts with another edit"})
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// splice applies the kept edits to a copy of the file content. Descending
// order keeps every span valid against the original offsets.
func splice(file *source.File, path string, kept []PlannedEdit, result *Result) ([]byte, []AppliedEdit) {
	order := make([]PlannedEdit, len(kept))
	copy(order, kept)
	sort.Slice(order, func(i, j int) bool {
		if order[i].Span.Start != order[j].Span.Start {
			return order[i].Span.Start > order[j].Span.Start
		}
		return order[i].Span.End > order[j].Span.End
	})

	staged := make([]byte, len(file.Content))
	copy(staged, file.Content)

	var applied []AppliedEdit
	for _, e := range order {
		start, end := int(e.Span.Start), int(e.Span.End)
		if start > end || end > len(staged) {
			result.Skipped = append(result.Skipped, SkippedEdit{Path: path, Line: e.Line, Reason: "edit span out of range"})
			continue
		}
		if e.OldText != "" && string(staged[start:end]) != e.OldText {
			result.Skipped = append(result.Skipped, SkippedEdit{Path: path, Line: e.Line, Reason: "existing text does not match expected content"})
			continue
		}
		next := make([]byte, 0, len(staged)-(end-start)+len(e.NewText))
		next = append(next, staged[:start]...)
		next = append(next, e.NewText...)
		next = append(next, staged[end:]...)
		staged = next
		applied = append(applied, AppliedEdit{Path: path, Line: e.Line, Kind: e.Kind, Note: e.Note})
	}

	// запись шла сверху вниз, сводку выводим в порядке строк
	sort.Slice(applied, func(i, j int) bool { return applied[i].Line < applied[j].Line })
	return staged, applied
}

// flush writes the staged buffer over the original file, keeping its mode.
// With backup the on-disk bytes survive as <path>.bak; сохраняем именно
// дисковую копию, в памяти содержимое нормализовано (CRLF, BOM).
func flush(file *source.File, staged []byte, backup bool) (string, error) {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(file.Path); err == nil {
		mode = info.Mode()
	}

	bak := ""
	if backup {
		orig, err := os.ReadFile(file.Path)
		if err != nil {
			return "", fmt.Errorf("backup %s: %w", file.Path, err)
		}
		bak = file.Path + ".bak"
		if err := os.WriteFile(bak, orig, mode); err != nil {
			return "", fmt.Errorf("backup %s: %w", bak, err)
		}
	}
	if err := os.WriteFile(file.Path, staged, mode); err != nil {
		return bak, fmt.Errorf("write %s: %w", file.Path, err)
	}
	return bak, nil
}

// spansConflict reports whether two edits touch overlapping byte ranges.
// Spans are half-open. Two pure insertions never conflict even at the same
// offset; an insertion inside a replaced range does.
func spansConflict(a, b source.Span) bool {
	aStart, aEnd := a.Start, a.End
	bStart, bEnd := b.Start, b.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}
