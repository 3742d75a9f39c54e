package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diagcheck/internal/match"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return p
}

func TestLoadManifestFile_Full(t *testing.T) {
	p := writeManifest(t, t.TempDir(), `
[corpus]
roots = ["testdata/corpus"]
include = ["rust/*.rs", "*.py"]
exclude = ["*_wip.rs"]
languages = ["rust", "python"]
require_expectations = true

[match]
mode = "message"
window = 2
strict = true

[tools.rustc]
path = "/opt/rust/bin/rustc"
edition = "2018"
args = ["-W", "unused"]

[tools.pyright]
disabled = true

[cache]
enabled = false
dir = "build/cache"

[run]
jobs = 4
timeout_s = 30
max_findings = 64
`)

	m, err := LoadManifestFile(p)
	if err != nil {
		t.Fatalf("LoadManifestFile: %v", err)
	}
	if m.Root != filepath.Dir(p) {
		t.Errorf("root = %q, want %q", m.Root, filepath.Dir(p))
	}
	c := m.Config
	if len(c.Corpus.Roots) != 1 || c.Corpus.Roots[0] != "testdata/corpus" {
		t.Errorf("roots = %v", c.Corpus.Roots)
	}
	if !c.Corpus.RequireExpectations {
		t.Errorf("require_expectations not parsed")
	}
	if c.Match.Mode != "message" || c.Match.Window != 2 || !c.Match.Strict {
		t.Errorf("match = %+v", c.Match)
	}
	rustc := m.Tool("rustc")
	if rustc.Path != "/opt/rust/bin/rustc" || rustc.Edition != "2018" || len(rustc.Args) != 2 {
		t.Errorf("tools.rustc = %+v", rustc)
	}
	if !m.Tool("pyright").Disabled {
		t.Errorf("tools.pyright.disabled not parsed")
	}
	if m.Tool("go").Path != "" {
		t.Errorf("absent tool section should be zero, got %+v", m.Tool("go"))
	}
	if c.Cache.Enabled || c.Cache.Dir != "build/cache" {
		t.Errorf("cache = %+v", c.Cache)
	}
	if c.Run.Jobs != 4 || c.Run.TimeoutS != 30 || c.Run.MaxFindings != 64 {
		t.Errorf("run = %+v", c.Run)
	}
}

func TestLoadManifestFile_Defaults(t *testing.T) {
	p := writeManifest(t, t.TempDir(), "")

	m, err := LoadManifestFile(p)
	if err != nil {
		t.Fatalf("LoadManifestFile: %v", err)
	}
	c := m.Config
	if len(c.Corpus.Roots) != 1 || c.Corpus.Roots[0] != "." {
		t.Errorf("default roots = %v, want [.]", c.Corpus.Roots)
	}
	if c.Match.Mode != "category" || c.Match.Window != match.DefaultWindow || c.Match.Strict {
		t.Errorf("default match = %+v", c.Match)
	}
	if !c.Cache.Enabled || c.Cache.Dir != DefaultCacheDir {
		t.Errorf("default cache = %+v", c.Cache)
	}
	if c.Run.Jobs != 0 || c.Run.TimeoutS != DefaultTimeoutS || c.Run.MaxFindings != DefaultMaxFindings {
		t.Errorf("default run = %+v", c.Run)
	}
}

func TestLoadManifestFile_ExplicitZeroWindow(t *testing.T) {
	p := writeManifest(t, t.TempDir(), "[match]\nwindow = 0\n")

	m, err := LoadManifestFile(p)
	if err != nil {
		t.Fatalf("LoadManifestFile: %v", err)
	}
	// an explicit zero means exact lines, not "fill in the default"
	if m.Config.Match.Window != 0 {
		t.Errorf("window = %d, want 0", m.Config.Match.Window)
	}
}

func TestLoadManifestFile_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{"unknown key", "[corpus]\nrots = [\".\"]\n", "unknown key"},
		{"bad mode", "[match]\nmode = \"fuzzy\"\n", "unknown match mode"},
		{"unknown language", "[corpus]\nlanguages = [\"cobol\"]\n", "unknown language"},
		{"unknown tool", "[tools.clang]\npath = \"clang\"\n", "unknown tool"},
		{"negative jobs", "[run]\njobs = -1\n", "jobs"},
		{"zero findings", "[run]\nmax_findings = 0\n", "max_findings"},
		{"bad glob", "[corpus]\ninclude = [\"[\"]\n", "bad pattern"},
	}
	for _, tc := range tests {
		p := writeManifest(t, t.TempDir(), tc.content)
		_, err := LoadManifestFile(p)
		if err == nil {
			t.Errorf("%s: expected an error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Errorf("%s: error = %q, want substring %q", tc.name, err, tc.wantSub)
		}
	}
}

func TestFindManifest_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "")
	nested := filepath.Join(root, "corpus", "rust")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	p, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	if filepath.Dir(p) != root {
		t.Errorf("manifest found at %q, want under %q", p, root)
	}
}

func TestLoadOrDefault_NoManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if m.Path != "" {
		t.Errorf("path = %q, want empty for defaults", m.Path)
	}
	if m.Root != dir {
		t.Errorf("root = %q, want %q", m.Root, dir)
	}
	if m.Config.Match.Mode != "category" {
		t.Errorf("default config not applied: %+v", m.Config.Match)
	}
}

func TestManifest_MatchOptions(t *testing.T) {
	p := writeManifest(t, t.TempDir(), `
[corpus]
require_expectations = true

[match]
mode = "line"
window = 1
strict = true
`)
	m, err := LoadManifestFile(p)
	if err != nil {
		t.Fatalf("LoadManifestFile: %v", err)
	}
	opts, err := m.MatchOptions()
	if err != nil {
		t.Fatalf("MatchOptions: %v", err)
	}
	if opts.Mode != match.ModeLine || opts.Window != 1 || !opts.Strict || !opts.RequireExpectations {
		t.Errorf("options = %+v", opts)
	}
}

func TestManifest_CacheDir(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Root: dir, Config: DefaultConfig()}
	if got := m.CacheDir(); got != filepath.Join(dir, DefaultCacheDir) {
		t.Errorf("CacheDir() = %q", got)
	}

	m.Config.Cache.Dir = string(filepath.Separator) + filepath.Join("var", "cache", "diagcheck")
	if got := m.CacheDir(); got != m.Config.Cache.Dir {
		t.Errorf("absolute CacheDir() = %q, want %q", got, m.Config.Cache.Dir)
	}
}
