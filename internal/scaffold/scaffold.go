// Package scaffold materializes the starter corpus written by the init
// command: a manifest plus one small fixture per language.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates
var templatesFS embed.FS

// starterFiles maps embedded templates onto the files init creates. The go
// fixture is stored with a .txt suffix so the embedded tree is not taken
// for a package by the toolchain.
var starterFiles = []struct {
	src string
	dst string
}{
	{"templates/diagcheck.toml", "diagcheck.toml"},
	{"templates/rust/starter.rs", "rust/starter.rs"},
	{"templates/go/starter.go.txt", "go/starter.go"},
	{"templates/python/starter.py", "python/starter.py"},
}

// Templates exposes the embedded starter tree.
func Templates() fs.FS {
	return templatesFS
}

// Write materializes the starter files under target, creating directories
// as needed. Files that already exist are left untouched and reported in
// kept; callers guard against re-initializing a manifest.
func Write(target string) (created, kept []string, err error) {
	for _, sf := range starterFiles {
		data, err := templatesFS.ReadFile(sf.src)
		if err != nil {
			return created, kept, fmt.Errorf("embedded template %s: %w", sf.src, err)
		}

		dst := filepath.Join(target, filepath.FromSlash(sf.dst))
		if _, statErr := os.Stat(dst); statErr == nil {
			kept = append(kept, sf.dst)
			continue
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return created, kept, statErr
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return created, kept, fmt.Errorf("failed to create directory %q: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return created, kept, fmt.Errorf("failed to write %s: %w", sf.dst, err)
		}
		created = append(created, sf.dst)
	}
	return created, kept, nil
}
