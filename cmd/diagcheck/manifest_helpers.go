package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"diagcheck/internal/cache"
	"diagcheck/internal/corpus"
)

// loadManifest resolves the manifest the command should run against:
// --manifest wins, otherwise the nearest diagcheck.toml upward from the
// working directory, otherwise built-in defaults rooted at cwd.
func loadManifest(cmd *cobra.Command) (*corpus.Manifest, error) {
	manifestPath, err := cmd.Root().PersistentFlags().GetString("manifest")
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest flag: %w", err)
	}
	if manifestPath != "" {
		return corpus.LoadManifestFile(manifestPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return corpus.LoadOrDefault(cwd)
}

// applyRootOverrides folds the root persistent flags that shadow manifest
// settings into the loaded config.
func applyRootOverrides(cmd *cobra.Command, m *corpus.Manifest) error {
	root := cmd.Root()
	if root.PersistentFlags().Changed("max-findings") {
		maxFindings, err := root.PersistentFlags().GetInt("max-findings")
		if err != nil {
			return fmt.Errorf("failed to get max-findings flag: %w", err)
		}
		m.Config.Run.MaxFindings = maxFindings
	}
	return nil
}

// restrictToArgs narrows the corpus to the paths given on the command line.
// Each argument becomes an include pattern relative to the manifest root, so
// `diagcheck run rust/moves.rs` and `diagcheck run 'rust/*'` both work from
// anywhere inside the project.
func restrictToArgs(m *corpus.Manifest, args []string) {
	if len(args) == 0 {
		return
	}
	include := make([]string, 0, len(args))
	for _, arg := range args {
		pat := arg
		if abs, err := filepath.Abs(arg); err == nil {
			if rel, err := filepath.Rel(m.Root, abs); err == nil && !isOutside(rel) {
				pat = rel
			}
		}
		include = append(include, filepath.ToSlash(pat))
	}
	m.Config.Corpus.Include = include
}

func isOutside(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// openCache opens the manifest's result cache unless --no-cache or the
// manifest itself disabled it. A nil cache simply re-runs every tool.
func openCache(cmd *cobra.Command, m *corpus.Manifest) (*cache.DiskCache, error) {
	noCache, err := cmd.Root().PersistentFlags().GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if noCache || !m.Config.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.Open(m.CacheDir())
	if err != nil {
		// Кэш не критичен: предупреждаем и едем дальше без него
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		return nil, nil
	}
	return c, nil
}
