package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"diagcheck/internal/corpus"
	"diagcheck/internal/runner"
	"diagcheck/internal/toolchain"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show which language front ends are available",
	Long: `Tools probes every configured front end and prints its version
fingerprint, the same string the result cache is keyed on. Missing
binaries are reported but do not fail the command unless
--all-required is set.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().Bool("all-required", false, "exit non-zero when any tool is unavailable")
}

// fingerprintTimeout bounds a single --version probe.
const fingerprintTimeout = 10 * time.Second

func runTools(cmd *cobra.Command, _ []string) error {
	allRequired, err := cmd.Flags().GetBool("all-required")
	if err != nil {
		return fmt.Errorf("failed to get all-required flag: %w", err)
	}

	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	reg, err := runner.BuildRegistry(m, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	missing := 0
	for _, name := range corpus.KnownTools() {
		cfg := m.Tool(name)
		if cfg.Disabled {
			fmt.Fprintf(out, "%-8s disabled in manifest\n", name)
			continue
		}
		ad, ok := reg.ByName(name)
		if !ok {
			// [corpus].languages не покрывает язык этого тула
			fmt.Fprintf(out, "%-8s filtered out by corpus languages\n", name)
			continue
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), fingerprintTimeout)
		fp, err := ad.Fingerprint(ctx)
		cancel()

		switch {
		case err == nil:
			fmt.Fprintf(out, "%-8s %s\n", name, fp)
		case errors.Is(err, toolchain.ErrToolNotFound):
			missing++
			if cfg.Path != "" {
				fmt.Fprintf(out, "%-8s not found (configured path: %s)\n", name, cfg.Path)
				continue
			}
			fmt.Fprintf(out, "%-8s not found\n", name)
		default:
			missing++
			fmt.Fprintf(out, "%-8s error: %v\n", name, err)
		}
	}

	if allRequired && missing > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s unavailable\n", countNoun(missing, "tool"))
		return silentExit(cmd)
	}
	return nil
}
