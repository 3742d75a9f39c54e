package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"diagcheck/internal/corpus"
	"diagcheck/internal/diag"
	"diagcheck/internal/expect"
	"diagcheck/internal/runner"
	"diagcheck/internal/source"
)

var listCmd = &cobra.Command{
	Use:   "list [paths...]",
	Short: "Show the corpus and its expectation markers without running tools",
	Long: `List discovers the corpus the same way run does, scans every fixture's
expectation markers and prints what a run would check. No external tool
is invoked.`,
	Args: cobra.ArbitraryArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringP("format", "f", "pretty", "output format (pretty|json)")
	listCmd.Flags().Bool("markers", false, "print every marker, not just per-file counts")
}

type listMarkerJSON struct {
	Line     uint32 `json:"line"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Tagged   bool   `json:"tagged,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

type listFileJSON struct {
	Path         string           `json:"path"`
	Language     string           `json:"language"`
	Tool         string           `json:"tool"`
	Expectations int              `json:"expectations"`
	Markers      []listMarkerJSON `json:"markers,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "json":
		// supported
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	showMarkers, err := cmd.Flags().GetBool("markers")
	if err != nil {
		return fmt.Errorf("failed to get markers flag: %w", err)
	}

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	if err := applyRootOverrides(cmd, m); err != nil {
		return err
	}
	restrictToArgs(m, args)

	reg, err := runner.BuildRegistry(m, nil)
	if err != nil {
		return err
	}
	files, err := corpus.Discover(m, adapterExtensions(reg))
	if err != nil {
		return err
	}

	fs := source.NewFileSetWithBase(m.Root)
	bag := diag.NewBag(m.Config.Run.MaxFindings)

	out := cmd.OutOrStdout()
	entries := make([]listFileJSON, 0, len(files))
	totalMarkers := 0

	for _, rel := range files {
		ad, ok := reg.ForFile(rel)
		if !ok {
			continue
		}

		id, err := fs.Load(filepath.Join(m.Root, rel))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", rel, err)
			continue
		}
		f := fs.Get(id)

		leader := expect.CommentLeader(ad.Language())
		exps := expect.ScanFile(f, leader, diag.BagReporter{Bag: bag})
		totalMarkers += len(exps)

		entry := listFileJSON{
			Path:         rel,
			Language:     ad.Language(),
			Tool:         ad.Name(),
			Expectations: len(exps),
		}
		for _, e := range exps {
			entry.Markers = append(entry.Markers, listMarkerJSON{
				Line:     e.Line,
				Severity: e.Severity.Label(),
				Category: e.Category.String(),
				Tagged:   e.Tagged,
				Hint:     e.Hint,
			})
		}
		entries = append(entries, entry)

		if format == "pretty" && !quiet {
			fmt.Fprintf(out, "%s  [%s/%s]  %s\n", rel, ad.Language(), ad.Name(), countNoun(len(exps), "marker"))
			if len(exps) > 0 {
				fmt.Fprintf(out, "    %s\n", categorySummary(exps))
			}
			if showMarkers {
				for _, e := range exps {
					fmt.Fprintf(out, "    %s\n", e.Describe())
				}
			}
		}
	}

	// Кривые маркеры (CHK0005) не попадают в счётчики, но о них надо сказать
	reportScanFindings(cmd.ErrOrStderr(), fs, bag)

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	fmt.Fprintf(out, "%s, %s\n", countNoun(len(entries), "fixture"), countNoun(totalMarkers, "marker"))
	return nil
}

// categorySummary collapses the expectations of one file into a stable
// "category:count" line.
func categorySummary(exps []expect.Expectation) string {
	counts := make(map[string]int)
	for _, e := range exps {
		counts[e.Category.String()]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if counts[name] == 1 {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d", name, counts[name]))
	}
	return strings.Join(parts, ", ")
}

// reportScanFindings prints marker problems collected during scanning.
func reportScanFindings(w io.Writer, fs *source.FileSet, bag *diag.Bag) {
	for _, d := range bag.Items() {
		f := fs.Get(d.Primary.File)
		lc := f.LineCol(d.Primary.Start)
		fmt.Fprintf(w, "warning: %s:%d: %s\n", f.FormatPath("relative", fs.BaseDir()), lc.Line, d.Message)
	}
}

func countNoun(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
