package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cached tool results",
	Long: `Clean removes the result cache directory of the current manifest.
The next run re-invokes every front end from scratch.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}

	cacheDir := m.CacheDir()
	info, err := os.Stat(cacheDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "cache directory not found")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", cacheDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", cacheDir)
	}
	if err := os.RemoveAll(cacheDir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", cacheDir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cacheDir)
	return nil
}
