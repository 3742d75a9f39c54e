package corpus

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"diagcheck/internal/match"
)

// ManifestName is the suite manifest file the checker walks up to find.
const ManifestName = "diagcheck.toml"

// Defaults applied when the manifest is absent or silent.
const (
	DefaultTimeoutS    = 60
	DefaultMaxFindings = 256
	DefaultCacheDir    = ".diagcheck-cache"
)

var knownLanguages = []string{"go", "python", "rust"}
var knownTools = []string{"go", "pyright", "rustc"}

// KnownLanguages lists the fixture languages the checker understands.
func KnownLanguages() []string {
	out := make([]string, len(knownLanguages))
	copy(out, knownLanguages)
	return out
}

// KnownTools lists the adapter names the checker ships.
func KnownTools() []string {
	out := make([]string, len(knownTools))
	copy(out, knownTools)
	return out
}

// Manifest is a located and validated diagcheck.toml.
type Manifest struct {
	Path   string // manifest file location, empty when running on defaults
	Root   string // directory all corpus paths resolve against
	Config Config
}

// Config mirrors the manifest layout.
type Config struct {
	Corpus CorpusConfig          `toml:"corpus"`
	Match  MatchConfig           `toml:"match"`
	Tools  map[string]ToolConfig `toml:"tools"`
	Cache  CacheConfig           `toml:"cache"`
	Run    RunConfig             `toml:"run"`
}

// CorpusConfig selects which fixtures belong to the suite.
type CorpusConfig struct {
	// Roots are directories to walk, relative to the manifest.
	Roots []string `toml:"roots"`
	// Include/Exclude are globs over the root-relative slash path, with a
	// basename fallback. Exclude wins.
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
	// Languages restricts the run; empty means every language with an
	// adapter.
	Languages []string `toml:"languages"`
	// RequireExpectations fails fixtures without any marker.
	RequireExpectations bool `toml:"require_expectations"`
}

// MatchConfig mirrors [match].
type MatchConfig struct {
	Mode   string `toml:"mode"`
	Window uint32 `toml:"window"`
	Strict bool   `toml:"strict"`
}

// ToolConfig mirrors one [tools.<name>] section.
type ToolConfig struct {
	Path     string   `toml:"path"`
	Edition  string   `toml:"edition"`
	Args     []string `toml:"args"`
	Disabled bool     `toml:"disabled"`
}

// CacheConfig mirrors [cache].
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// RunConfig mirrors [run].
type RunConfig struct {
	// Jobs bounds parallel tool runs; zero picks the CPU count.
	Jobs        int `toml:"jobs"`
	TimeoutS    int `toml:"timeout_s"`
	MaxFindings int `toml:"max_findings"`
}

// DefaultConfig returns the configuration used without a manifest.
func DefaultConfig() Config {
	return Config{
		Corpus: CorpusConfig{Roots: []string{"."}},
		Match:  MatchConfig{Mode: match.ModeCategory.String(), Window: match.DefaultWindow},
		Cache:  CacheConfig{Enabled: true, Dir: DefaultCacheDir},
		Run:    RunConfig{TimeoutS: DefaultTimeoutS, MaxFindings: DefaultMaxFindings},
	}
}

// FindManifest walks up from startDir to locate diagcheck.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest finds and parses the manifest above startDir. ok is false
// when there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifestFile(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadOrDefault loads the manifest above startDir, falling back to the
// default configuration rooted at startDir.
func LoadOrDefault(startDir string) (*Manifest, error) {
	m, ok, err := LoadManifest(startDir)
	if err != nil {
		return nil, err
	}
	if ok {
		return m, nil
	}
	root, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	return &Manifest{Root: root, Config: DefaultConfig()}, nil
}

// LoadManifestFile parses and validates a manifest at an explicit path.
func LoadManifestFile(manifestPath string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(manifestPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", manifestPath, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", manifestPath, undecoded[0].String())
	}
	applyDefaults(&cfg, &meta)
	if err := validate(&cfg, manifestPath); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", manifestPath, err)
	}
	return &Manifest{
		Path:   abs,
		Root:   filepath.Dir(abs),
		Config: cfg,
	}, nil
}

// applyDefaults fills in what the manifest left unsaid. Metadata is needed
// to tell an explicit zero from an absent key.
func applyDefaults(cfg *Config, meta *toml.MetaData) {
	if len(cfg.Corpus.Roots) == 0 {
		cfg.Corpus.Roots = []string{"."}
	}
	if cfg.Match.Mode == "" {
		cfg.Match.Mode = match.ModeCategory.String()
	}
	if !meta.IsDefined("match", "window") {
		cfg.Match.Window = match.DefaultWindow
	}
	if !meta.IsDefined("cache", "enabled") {
		cfg.Cache.Enabled = true
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	if !meta.IsDefined("run", "timeout_s") {
		cfg.Run.TimeoutS = DefaultTimeoutS
	}
	if !meta.IsDefined("run", "max_findings") {
		cfg.Run.MaxFindings = DefaultMaxFindings
	}
}

func validate(cfg *Config, manifestPath string) error {
	if _, err := match.ParseMode(cfg.Match.Mode); err != nil {
		return fmt.Errorf("%s: [match].mode: %w", manifestPath, err)
	}
	for _, lang := range cfg.Corpus.Languages {
		if !slices.Contains(knownLanguages, lang) {
			return fmt.Errorf("%s: [corpus].languages: unknown language %q (known: %s)",
				manifestPath, lang, strings.Join(knownLanguages, ", "))
		}
	}
	for _, pat := range cfg.Corpus.Include {
		if _, err := path.Match(pat, "probe"); err != nil {
			return fmt.Errorf("%s: [corpus].include: bad pattern %q", manifestPath, pat)
		}
	}
	for _, pat := range cfg.Corpus.Exclude {
		if _, err := path.Match(pat, "probe"); err != nil {
			return fmt.Errorf("%s: [corpus].exclude: bad pattern %q", manifestPath, pat)
		}
	}
	names := make([]string, 0, len(cfg.Tools))
	for name := range cfg.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !slices.Contains(knownTools, name) {
			return fmt.Errorf("%s: [tools.%s]: unknown tool (known: %s)",
				manifestPath, name, strings.Join(knownTools, ", "))
		}
	}
	if cfg.Run.Jobs < 0 {
		return fmt.Errorf("%s: [run].jobs must not be negative", manifestPath)
	}
	if cfg.Run.TimeoutS < 0 {
		return fmt.Errorf("%s: [run].timeout_s must not be negative", manifestPath)
	}
	if cfg.Run.MaxFindings <= 0 {
		return fmt.Errorf("%s: [run].max_findings must be positive", manifestPath)
	}
	return nil
}

// MatchOptions converts the manifest's matching knobs into match.Options.
func (m *Manifest) MatchOptions() (match.Options, error) {
	mode, err := match.ParseMode(m.Config.Match.Mode)
	if err != nil {
		return match.Options{}, err
	}
	return match.Options{
		Mode:                mode,
		Window:              m.Config.Match.Window,
		Strict:              m.Config.Match.Strict,
		RequireExpectations: m.Config.Corpus.RequireExpectations,
	}, nil
}

// Tool returns the manifest section for the named tool, zero when absent.
func (m *Manifest) Tool(name string) ToolConfig {
	return m.Config.Tools[name]
}

// CacheDir resolves the cache directory against the manifest root.
func (m *Manifest) CacheDir() string {
	dir := m.Config.Cache.Dir
	if dir == "" {
		dir = DefaultCacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, dir)
}
