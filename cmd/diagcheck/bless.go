package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"diagcheck/internal/bless"
	"diagcheck/internal/match"
	"diagcheck/internal/runner"
)

var blessCmd = &cobra.Command{
	Use:   "bless [paths...]",
	Short: "Rewrite expectation markers to match what the tools actually report",
	Long: `Bless runs the corpus like run does, then derives marker edits from the
verdict: missing markers are inserted, stale ones removed, disagreeing
ones rewritten in place.

By default bless only previews the edits. Pass --write to modify the
fixtures; originals are kept as .bak files unless --no-backup is set.`,
	Args: cobra.ArbitraryArgs,
	RunE: runBless,
}

func init() {
	blessCmd.Flags().Bool("write", false, "apply the edits instead of previewing them")
	blessCmd.Flags().Bool("no-backup", false, "do not keep .bak copies of modified fixtures")
	blessCmd.Flags().IntP("jobs", "j", 0, "parallel tool invocations (0 picks the CPU count)")
	blessCmd.Flags().StringSlice("tool", nil, "restrict the run to the named tools")
	blessCmd.Flags().String("match", "", "override matching mode (category|message|line)")
	blessCmd.Flags().Uint32("window", match.DefaultWindow, "line distance tolerance for matching")
	blessCmd.Flags().Bool("strict", false, "treat unexpected diagnostics as failures")
	registerProfileFlags(blessCmd)
}

func runBless(cmd *cobra.Command, args []string) error {
	// Ensure trace is dumped on panic
	defer dumpTraceOnPanic(cmd)

	stopTracing, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer stopTracing()

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return fmt.Errorf("failed to get write flag: %w", err)
	}
	noBackup, err := cmd.Flags().GetBool("no-backup")
	if err != nil {
		return fmt.Errorf("failed to get no-backup flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	tools, err := cmd.Flags().GetStringSlice("tool")
	if err != nil {
		return fmt.Errorf("failed to get tool flag: %w", err)
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

	reg, err := runner.BuildRegistry(m, tools)
	if err != nil {
		return err
	}
	matchOpts, err := buildMatchOptions(cmd, m)
	if err != nil {
		return err
	}
	resultCache, err := openCache(cmd, m)
	if err != nil {
		return err
	}

	rep, err := runner.Run(cmd.Context(), runner.Options{
		Manifest: m,
		Registry: reg,
		Cache:    resultCache,
		Tools:    tools,
		Jobs:     jobs,
		Match:    &matchOpts,
	})
	if err != nil {
		return err
	}

	plans := bless.PlanReport(rep, reg)

	out := cmd.OutOrStdout()
	if !write && !quiet {
		bless.DiffPreview(out, rep.FileSet, plans)
	}

	res, err := bless.Apply(rep.FileSet, plans, bless.Options{
		Write:  write,
		Backup: write && !noBackup,
	})
	if err != nil {
		if errors.Is(err, bless.ErrNoEdits) {
			printBlessSkips(cmd, res)
			fmt.Fprintln(out, "nothing to bless")
			return nil
		}
		return err
	}

	printBlessSkips(cmd, res)
	if !quiet {
		for _, fc := range res.FileChanges {
			if fc.Backup != "" {
				fmt.Fprintf(out, "blessed %s (%s, backup %s)\n", fc.Path, countNoun(fc.EditCount, "edit"), fc.Backup)
				continue
			}
			fmt.Fprintf(out, "blessed %s (%s)\n", fc.Path, countNoun(fc.EditCount, "edit"))
		}
	}

	fmt.Fprintf(out, "%s across %s",
		countNoun(len(res.Applied), "edit"), countNoun(len(res.FileChanges), "fixture"))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, ", %d skipped", len(res.Skipped))
	}
	fmt.Fprintln(out)

	if !write {
		fmt.Fprintln(out, "dry run: re-run with --write to apply")
	}
	return nil
}

// printBlessSkips explains every edit the engine refused to make.
func printBlessSkips(cmd *cobra.Command, res *bless.Result) {
	if res == nil {
		return
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s:%d: %s\n", s.Path, s.Line, s.Reason)
	}
}
