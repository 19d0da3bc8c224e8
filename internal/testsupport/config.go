package testsupport

import (
	"path/filepath"
	"testing"

	"retitle/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Catalog.APIKey = "test"
	cfgVal.Paths.CachePath = filepath.Join(base, "cache", "decisions.db")
	cfgVal.Move.Destination = filepath.Join(base, "library")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIKey sets the catalog API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.APIKey = key
	}
}

// WithExtensions restricts discovery to the provided extensions.
func WithExtensions(exts ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.ValidExtensions = exts
	}
}

// WithMoveEnabled turns on relocation into the test library directory.
func WithMoveEnabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Move.Enabled = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Paths.CachePath))
}
