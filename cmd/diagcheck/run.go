package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"diagcheck/internal/corpus"
	"diagcheck/internal/diagfmt"
	"diagcheck/internal/match"
	"diagcheck/internal/runner"
	"diagcheck/internal/toolchain"
	"diagcheck/internal/version"
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Check the corpus against its annotated diagnostics",
	Long: `Run walks the corpus, feeds every fixture to its language front end and
diffs the produced diagnostics against the expectation markers in the file.

Without arguments the whole manifest corpus is checked. Paths narrow the
run: each argument becomes an include pattern relative to the manifest
root, so both exact files and globs work.

Exit status is 0 when every fixture passes, 1 otherwise.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("format", "f", "pretty", "output format (pretty|short|json|sarif)")
	runCmd.Flags().IntP("jobs", "j", 0, "parallel tool invocations (0 picks the CPU count)")
	runCmd.Flags().String("match", "", "override matching mode (category|message|line)")
	runCmd.Flags().Uint32("window", match.DefaultWindow, "line distance tolerance for matching")
	runCmd.Flags().Bool("strict", false, "treat unexpected diagnostics as failures")
	runCmd.Flags().StringSlice("tool", nil, "restrict the run to the named tools")
	runCmd.Flags().Bool("show-passing", false, "list passing fixtures too")
	runCmd.Flags().Bool("notes", false, "include secondary notes under findings")
	runCmd.Flags().Bool("abs-paths", false, "print absolute fixture paths")
	runCmd.Flags().Bool("fail-fast", false, "stop after the first failing fixture")
	runCmd.Flags().Bool("print-commands", false, "echo every tool command line before running it")
	runCmd.Flags().String("ui", "auto", "live progress view (auto|on|off)")
	registerProfileFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	// Получаем флаги
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "short", "json", "sarif":
		// supported
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, short, json or sarif)", format)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}

	tools, err := cmd.Flags().GetStringSlice("tool")
	if err != nil {
		return fmt.Errorf("failed to get tool flag: %w", err)
	}

	showPassing, err := cmd.Flags().GetBool("show-passing")
	if err != nil {
		return fmt.Errorf("failed to get show-passing flag: %w", err)
	}

	showNotes, err := cmd.Flags().GetBool("notes")
	if err != nil {
		return fmt.Errorf("failed to get notes flag: %w", err)
	}

	absPaths, err := cmd.Flags().GetBool("abs-paths")
	if err != nil {
		return fmt.Errorf("failed to get abs-paths flag: %w", err)
	}

	failFast, err := cmd.Flags().GetBool("fail-fast")
	if err != nil {
		return fmt.Errorf("failed to get fail-fast flag: %w", err)
	}

	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return fmt.Errorf("failed to get print-commands flag: %w", err)
	}

	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	useColor, err := readColorFlag(cmd)
	if err != nil {
		return err
	}

	// Манифест и его переопределения с командной строки
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

	opts := runner.Options{
		Manifest:      m,
		Registry:      reg,
		Cache:         resultCache,
		Tools:         tools,
		Jobs:          jobs,
		Match:         &matchOpts,
		FailFast:      failFast,
		PrintCommands: printCommands,
		EnableTimings: showTimings,
	}

	// Живой прогресс имеет смысл только для pretty-вывода в терминал
	useTUI := format == "pretty" && !quiet && !printCommands && shouldUseTUI(mode)

	var rep *runner.Report
	if useTUI {
		files, err := corpus.Discover(m, adapterExtensions(reg))
		if err != nil {
			return err
		}
		rep, err = runCorpusWithUI(cmd.Context(), "diagcheck run", files, opts)
		if err != nil {
			return err
		}
	} else {
		rep, err = runner.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
	}

	pathMode := diagfmt.PathModeAuto
	if absPaths {
		pathMode = diagfmt.PathModeAbsolute
	}

	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		diagfmt.Pretty(out, rep, diagfmt.PrettyOpts{
			Color:       useColor,
			Context:     2,
			PathMode:    pathMode,
			ShowNotes:   showNotes,
			ShowPassing: showPassing,
		})
	case "short":
		diagfmt.Short(out, rep, showNotes)
	case "json":
		if err := diagfmt.JSON(out, rep, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			Max:              m.Config.Run.MaxFindings,
			IncludeNotes:     showNotes,
		}); err != nil {
			return fmt.Errorf("failed to render json: %w", err)
		}
	case "sarif":
		if err := diagfmt.Sarif(out, rep, diagfmt.SarifRunMeta{
			ToolName:       "diagcheck",
			ToolVersion:    version.String(),
			InvocationArgs: os.Args[1:],
		}); err != nil {
			return fmt.Errorf("failed to render sarif: %w", err)
		}
	}

	// json уже несёт тайминги внутри отчёта
	if showTimings && !quiet && format != "json" {
		printPhaseTimings(cmd.ErrOrStderr(), rep.Timing)
	}

	if !rep.Summary.Ok() {
		return silentExit(cmd)
	}
	return nil
}

// buildMatchOptions starts from the manifest's matching config and lets the
// command line shadow individual knobs.
func buildMatchOptions(cmd *cobra.Command, m *corpus.Manifest) (match.Options, error) {
	opts, err := m.MatchOptions()
	if err != nil {
		return match.Options{}, err
	}

	if cmd.Flags().Changed("match") {
		modeStr, err := cmd.Flags().GetString("match")
		if err != nil {
			return match.Options{}, fmt.Errorf("failed to get match flag: %w", err)
		}
		mode, err := match.ParseMode(modeStr)
		if err != nil {
			return match.Options{}, err
		}
		opts.Mode = mode
	}
	if cmd.Flags().Changed("window") {
		window, err := cmd.Flags().GetUint32("window")
		if err != nil {
			return match.Options{}, fmt.Errorf("failed to get window flag: %w", err)
		}
		opts.Window = window
	}
	if cmd.Flags().Changed("strict") {
		strict, err := cmd.Flags().GetBool("strict")
		if err != nil {
			return match.Options{}, fmt.Errorf("failed to get strict flag: %w", err)
		}
		opts.Strict = strict
	}
	return opts, nil
}

// adapterExtensions collects the file extensions the registered adapters
// claim, for corpus discovery.
func adapterExtensions(reg *toolchain.Registry) map[string]struct{} {
	exts := make(map[string]struct{})
	for _, a := range reg.All() {
		for _, ext := range a.Extensions() {
			exts[ext] = struct{}{}
		}
	}
	return exts
}
