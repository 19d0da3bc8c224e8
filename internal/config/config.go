package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations for the decision cache and optional log file.
type Paths struct {
	CachePath string `toml:"cache_path"`
	LogFile   string `toml:"log_file"`
}

// Scan controls which files discovery considers.
type Scan struct {
	ValidExtensions []string    `toml:"valid_extensions"`
	Recursive       bool        `toml:"recursive"`
	Blacklist       []Blacklist `toml:"blacklist"`
}

// Blacklist excludes files whose name (or full path) matches verbatim or by
// regular expression.
type Blacklist struct {
	Match    string `toml:"match"`
	IsRegex  bool   `toml:"is_regex"`
	FullPath bool   `toml:"full_path"`
}

// Catalog contains connection settings for the TVDB metadata catalog.
type Catalog struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Resolve controls how parsed filenames are matched against the catalog.
type Resolve struct {
	Order           string `toml:"order"`
	RetryLimit      int    `toml:"retry_limit"`
	SkipBehaviour   string `toml:"skip_behaviour"`
	SkipFileOnError bool   `toml:"skip_file_on_error"`
	SelectFirst     bool   `toml:"select_first"`
	Remember        bool   `toml:"remember"`
}

// Replacement rewrites part of a filename, verbatim or by regular expression.
type Replacement struct {
	Match       string `toml:"match"`
	Replacement string `toml:"replacement"`
	IsRegex     bool   `toml:"is_regex"`
}

// Rename contains destination name templates and filename cleanup rules.
type Rename struct {
	Always                    bool          `toml:"always"`
	Template                  string        `toml:"template"`
	TemplateNoTitle           string        `toml:"template_no_title"`
	TemplateSeasonless        string        `toml:"template_seasonless"`
	TemplateSeasonlessNoTitle string        `toml:"template_seasonless_no_title"`
	TemplateDated             string        `toml:"template_dated"`
	TemplateDatedNoTitle      string        `toml:"template_dated_no_title"`
	TitleSeparator            string        `toml:"title_separator"`
	EpisodeSeparator          string        `toml:"episode_separator"`
	CharacterBlacklist        string        `toml:"character_blacklist"`
	CharacterReplacement      string        `toml:"character_replacement"`
	LowercaseFilenames        bool          `toml:"lowercase_filenames"`
	TitlecaseFilenames        bool          `toml:"titlecase_filenames"`
	NormalizeUnicode          bool          `toml:"normalize_unicode"`
	InputReplacements         []Replacement `toml:"input_replacements"`
	OutputReplacements        []Replacement `toml:"output_replacements"`
}

// Move controls relocation into a destination tree after renaming.
type Move struct {
	Enabled       bool   `toml:"enabled"`
	Destination   string `toml:"destination"`
	Template      string `toml:"template"`
	TemplateDated string `toml:"template_dated"`
	Only          bool   `toml:"only"`
	Mode          string `toml:"mode"`
	Overwrite     bool   `toml:"overwrite"`
	LeaveSymlink  bool   `toml:"leave_symlink"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for retitle.
//
// Configuration sections by subsystem:
//   - Paths: decision cache database and optional log file
//   - Scan: extension filter, blacklist, and recursion for discovery
//   - Catalog: TVDB connection settings
//   - Resolve: episode ordering, retry budget, and skip policy
//   - Rename: name templates, replacements, casing, and sanitization
//   - Move: relocation into a destination tree
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Scan    Scan    `toml:"scan"`
	Catalog Catalog `toml:"catalog"`
	Resolve Resolve `toml:"resolve"`
	Rename  Rename  `toml:"rename"`
	Move    Move    `toml:"move"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "retitle", "config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath := DefaultConfigPath()

	projectPath, err := filepath.Abs("retitle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ResolvePath reports which config file a load would read and whether it
// exists, without parsing or validating it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

// EnsureDirectories creates the parent directories the cache and log file
// need before a run.
func (c *Config) EnsureDirectories() error {
	if dir := filepath.Dir(c.Paths.CachePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LogFile) != "" {
		if dir := filepath.Dir(c.Paths.LogFile); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCachePath() string {
	return filepath.Join(xdg.DataHome, "retitle", "cache.db")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
