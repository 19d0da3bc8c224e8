package preflight

import (
	"path/filepath"

	"retitle/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Catalog key (always checked; every lookup needs it)
	results = append(results, CheckAPIKey(cfg.Catalog.APIKey))

	// Cache directory (always checked)
	results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Paths.CachePath)))

	// Move destination (when relocation is enabled)
	if cfg.Move.Enabled {
		results = append(results, CheckDestinationWritable("Move destination", cfg.Move.Destination))
	}

	return results
}
