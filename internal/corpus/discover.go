package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirNames are directories never worth walking: VCS metadata, build
// output and the checker's own cache.
var skipDirNames = map[string]struct{}{
	".git":           {},
	".hg":            {},
	"target":         {},
	"node_modules":   {},
	"__pycache__":    {},
	DefaultCacheDir:  {},
	".diagcheck-tmp": {},
}

// Discover walks the corpus roots and returns the fixture paths whose
// extension is in exts, include/exclude filtered, relative to the manifest
// root, slash-separated, sorted and deduplicated.
func Discover(m *Manifest, exts map[string]struct{}) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, root := range m.Config.Corpus.Roots {
		rootDir := root
		if !filepath.IsAbs(rootDir) {
			rootDir = filepath.Join(m.Root, filepath.FromSlash(root))
		}
		info, err := os.Stat(rootDir)
		if err != nil {
			return nil, fmt.Errorf("corpus root %q: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("corpus root %q is not a directory", root)
		}

		err = filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if _, skip := skipDirNames[d.Name()]; skip && p != rootDir {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(p))
			if _, ok := exts[ext]; !ok {
				return nil
			}
			rel, err := filepath.Rel(m.Root, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if !m.Config.Corpus.selected(rel) {
				return nil
			}
			if _, dup := seen[rel]; dup {
				return nil
			}
			seen[rel] = struct{}{}
			out = append(out, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk corpus root %q: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// selected applies the include and exclude globs. Exclude wins over
// include; an empty include list selects everything.
func (c *CorpusConfig) selected(rel string) bool {
	for _, pat := range c.Exclude {
		if matchGlob(pat, rel) {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	for _, pat := range c.Include {
		if matchGlob(pat, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches the pattern against the relative path and, failing
// that, its basename. Patterns were validated at manifest load.
func matchGlob(pat, rel string) bool {
	if ok, _ := path.Match(pat, rel); ok {
		return true
	}
	ok, _ := path.Match(pat, path.Base(rel))
	return ok
}
