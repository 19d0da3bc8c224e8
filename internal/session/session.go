package session

import (
	"strings"

	"retitle/internal/config"
)

// SkipBehaviour selects how recoverable per-file errors are handled.
type SkipBehaviour string

const (
	// SkipExit aborts the entire batch on the first unresolved error.
	SkipExit SkipBehaviour = "exit"
	// SkipAsk prompts for a corrected series name and retries.
	SkipAsk SkipBehaviour = "ask"
	// SkipFile logs the error and moves on to the next file.
	SkipFile SkipBehaviour = "skip"
)

// ParseSkipBehaviour maps a config or flag value onto a SkipBehaviour,
// falling back to skip for unknown input.
func ParseSkipBehaviour(value string) SkipBehaviour {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SkipExit):
		return SkipExit
	case string(SkipAsk):
		return SkipAsk
	default:
		return SkipFile
	}
}

// Settings is the mutable per-batch state shared across the pipeline. It is
// passed by reference so an interactive "always" answer takes effect for every
// later file in the same run, without any process-global state.
type Settings struct {
	AlwaysRename    bool
	SelectFirst     bool
	DryRun          bool
	Remember        bool
	SkipBehaviour   SkipBehaviour
	SkipFileOnError bool
	RetryLimit      int

	Order    string
	Language string

	// ForceName and SeriesID apply to every file in the batch when set; a
	// per-file correction entered at the ask prompt stays inside the
	// resolution machine and never lands here.
	ForceName string
	SeriesID  int64
}

// FromConfig seeds batch settings from the effective configuration. CLI flags
// overwrite individual fields afterwards.
func FromConfig(cfg *config.Config) *Settings {
	if cfg == nil {
		return &Settings{SkipBehaviour: SkipFile, RetryLimit: 1, Remember: true}
	}
	return &Settings{
		AlwaysRename:    cfg.Rename.Always,
		SelectFirst:     cfg.Resolve.SelectFirst,
		Remember:        cfg.Resolve.Remember,
		SkipBehaviour:   ParseSkipBehaviour(cfg.Resolve.SkipBehaviour),
		SkipFileOnError: cfg.Resolve.SkipFileOnError,
		RetryLimit:      cfg.Resolve.RetryLimit,
		Order:           cfg.Resolve.Order,
		Language:        cfg.Catalog.Language,
	}
}

// StrictErrors reports whether transport and past-identity failures follow
// the exit/ask/skip policy instead of being logged and retried. The stricter
// handling only activates when the run both renames without confirmation and
// is told to skip files on error.
func (s *Settings) StrictErrors() bool {
	return s.AlwaysRename && s.SkipFileOnError
}
