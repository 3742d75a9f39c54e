package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"diagcheck/internal/corpus"
	"diagcheck/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a fixture corpus",
	Long: `Initialize a new corpus by writing a diagcheck.toml manifest and one
starter fixture per language. If [path] is omitted, the current directory
is initialized. A non-existing path is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	// Resolve target directory
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	// Ensure directory exists
	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	// Refuse to re-initialize
	manifestPath := filepath.Join(target, corpus.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("corpus already initialized: %s exists", manifestPath)
	}

	created, kept, err := scaffold.Write(target)
	if err != nil {
		return err
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized diagcheck corpus in %s\n", rel)
	for _, f := range created {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	for _, f := range kept {
		fmt.Fprintf(out, "  - %s (existing)\n", f)
	}
	fmt.Fprintln(out, "Next: `diagcheck tools` to probe front ends, `diagcheck run` to check.")
	return nil
}
