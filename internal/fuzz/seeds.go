package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"diagcheck/internal/scaffold"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB — ограничение для тестового корпуса
)

var seedExts = map[string]bool{".rs": true, ".go": true, ".py": true}

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addStarterSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata", "corpus")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву корпуса, добавляем фикстуры всех трёх языков
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !seedExts[filepath.Ext(path)] {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		return
	}
	// добавляем хотя бы один минимальный пример на случай пустого testdata
	f.Add([]byte{})
	f.Add([]byte("fn main() {} // error: mismatched types\n"))
	f.Add([]byte("x = 1  # warning(unused): is not accessed\n"))
	f.Add([]byte("\xEF\xBB\xBF// Error: with bom\r\n"))
	f.Add([]byte("x  // Error(borrowck): conflict\n// Error:\n"))
}

// addStarterSeeds pulls the embedded starter fixtures in: one marker-bearing
// file per language, straight from what the init command writes.
func addStarterSeeds(f *testing.F) {
	tpl := scaffold.Templates()
	_ = fs.WalkDir(tpl, "templates", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) == ".toml" {
			return nil
		}
		src, err := fs.ReadFile(tpl, path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
