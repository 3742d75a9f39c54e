package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"diagcheck/internal/corpus"
	"diagcheck/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "diagcheck",
	Short: "Fixture-driven checker for compiler diagnostics",
	Long: `diagcheck runs real language front ends (rustc, go, pyright) over a corpus
of deliberately broken fixtures and verifies that every annotated snippet
still produces the diagnostic its trailing marker promises.`,
}

// main wires the subcommands and global flags, then executes the root command.
// A command error exits with status code 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.String()

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(blessCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show per-phase timing information")
	rootCmd.PersistentFlags().Int("max-findings", corpus.DefaultMaxFindings, "maximum number of findings to keep per file")
	rootCmd.PersistentFlags().String("manifest", "", "path to diagcheck.toml (default: nearest one upward from cwd)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "ignore and do not update the result cache")

	// Трассировка чекера (не путать с go runtime trace)
	rootCmd.PersistentFlags().String("trace", "", "trace output path (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "ring", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson|chrome)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "trace ring buffer capacity")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit trace heartbeats at this interval (0 disables)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readColorFlag resolves the --color persistent flag against the actual
// output stream.
func readColorFlag(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout)), nil
}

// silentExit makes the command exit with code 1 without cobra printing
// usage or a duplicate error line. The caller has already reported the
// failure through normal output.
func silentExit(cmd *cobra.Command) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return fmt.Errorf("")
}
