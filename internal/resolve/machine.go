package resolve

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"retitle/internal/cache"
	"retitle/internal/episode"
	"retitle/internal/logging"
	"retitle/internal/services"
	"retitle/internal/session"
)

// Outcome classifies how the retry machine finished with one file.
type Outcome int

const (
	// OutcomeResolved means an identity was confirmed, possibly without
	// episode titles, and remembered in the decision cache.
	OutcomeResolved Outcome = iota + 1
	// OutcomeSkipped means the file produced no rename action; the batch
	// moves on.
	OutcomeSkipped
	// OutcomeAborted means the whole batch must stop, either by policy or
	// because the user quit.
	OutcomeAborted
)

// Result is the machine's verdict for one file. Episode is set only for
// OutcomeResolved. Reason explains skips and aborts for logging and the run
// summary.
type Result struct {
	Outcome Outcome
	Episode *episode.Resolved
	Reason  error
}

// Lookup performs one catalog resolution attempt. *Resolver is the production
// implementation.
type Lookup interface {
	Resolve(ctx context.Context, parsed episode.Parsed, forceName string, seriesID int64) (*episode.Resolved, error)
}

var _ Lookup = (*Resolver)(nil)

// Prompter supplies the interactive series-name correction used by the ask
// skip behaviour.
type Prompter interface {
	AskSeriesName(ctx context.Context, sourcePath string) (string, error)
}

// Machine drives bounded resolution retries for one file, applying the
// configured skip behaviour per failure kind and persisting confirmed
// identities to the decision cache.
type Machine struct {
	lookup   Lookup
	store    *cache.Store
	prompter Prompter
	settings *session.Settings
	logger   *slog.Logger
}

// NewMachine wires the retry machine. The settings pointer is shared with the
// rest of the batch so interactive answers take effect immediately.
func NewMachine(lookup Lookup, store *cache.Store, prompter Prompter, settings *session.Settings, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Machine{
		lookup:   lookup,
		store:    store,
		prompter: prompter,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "resolve"),
	}
}

// Run resolves one parsed file. Each pass consumes one retry; a substantial
// corrected name entered at the ask prompt earns one more. When the retries
// run out with a confirmed series id the identity is persisted and returned
// even if episode titles are missing; with no id at all the file is skipped
// without further noise.
func (m *Machine) Run(ctx context.Context, parsed episode.Parsed) (Result, error) {
	retries := m.settings.RetryLimit
	if retries < 1 {
		retries = 1
	}

	var askedName string
	var lastFailure *Error
	current := &episode.Resolved{Parsed: parsed}

	for retries > 0 {
		if ctx.Err() != nil {
			return Result{Outcome: OutcomeAborted, Reason: services.ErrUserAbort}, nil
		}

		forceName := m.settings.ForceName
		if forceName == "" {
			forceName = askedName
		}
		displayName := parsed.SeriesName
		if forceName != "" {
			displayName = forceName
		}
		m.logger.Info("processing file",
			"file", parsed.SourceName,
			"series", displayName,
			"episode", parsed.Code())

		seriesID, err := m.seriesHint(ctx, parsed)
		if err != nil {
			return Result{}, err
		}

		resolved, err := m.lookup.Resolve(ctx, parsed, forceName, seriesID)
		switch {
		case err == nil:
			current = resolved
			retries = 0

		case ctx.Err() != nil || errors.Is(err, services.ErrUserAbort):
			return Result{Outcome: OutcomeAborted, Reason: services.ErrUserAbort}, nil

		default:
			var failure *Error
			if !errors.As(err, &failure) {
				return Result{}, err
			}
			lastFailure = failure

			switch failure.Kind {
			case KindShowNotFound:
				switch m.settings.SkipBehaviour {
				case session.SkipExit:
					m.logger.Warn("stopping batch", "file", parsed.SourceName, "error", failure.Error())
					return Result{Outcome: OutcomeAborted, Reason: failure}, nil
				case session.SkipAsk:
					m.logger.Info(failure.Error())
					name, earned, askErr := m.askForName(ctx, parsed)
					if askErr != nil {
						return Result{Outcome: OutcomeAborted, Reason: services.ErrUserAbort}, nil
					}
					askedName = name
					if earned {
						retries++
					}
				default:
					m.logger.Warn("skipping file", "file", parsed.SourceName, "error", failure.Error())
					return Result{Outcome: OutcomeSkipped, Reason: failure}, nil
				}

			case KindDataRetrieval:
				if !m.settings.StrictErrors() {
					m.logger.Warn("catalog unavailable", "file", parsed.SourceName, "error", failure.Error())
					break
				}
				switch m.settings.SkipBehaviour {
				case session.SkipExit:
					m.logger.Warn("stopping batch", "file", parsed.SourceName, "error", failure.Error())
					return Result{Outcome: OutcomeAborted, Reason: failure}, nil
				case session.SkipAsk:
					m.logger.Info(failure.Error())
					name, earned, askErr := m.askForName(ctx, parsed)
					if askErr != nil {
						return Result{Outcome: OutcomeAborted, Reason: services.ErrUserAbort}, nil
					}
					askedName = name
					if earned {
						retries++
					}
				default:
					m.logger.Warn("skipping file", "file", parsed.SourceName, "error", failure.Error())
					return Result{Outcome: OutcomeSkipped, Reason: failure}, nil
				}

			default:
				// Season, episode, and title misses: the series itself was
				// confirmed, so there is nothing to ask the user for.
				if m.settings.StrictErrors() {
					if m.settings.SkipBehaviour == session.SkipExit {
						m.logger.Warn("stopping batch", "file", parsed.SourceName, "error", failure.Error())
						return Result{Outcome: OutcomeAborted, Reason: failure}, nil
					}
					m.logger.Warn("skipping file", "file", parsed.SourceName, "error", failure.Error())
					return Result{Outcome: OutcomeSkipped, Reason: failure}, nil
				}
				if failure.Episode != nil {
					// Keep the confirmed identity; the rename falls back to
					// a titleless template.
					current = failure.Episode
				}
				m.logger.Warn("episode lookup incomplete", "file", parsed.SourceName, "error", failure.Error())
			}
		}

		retries--
	}

	if current.SeriesID > 0 {
		if err := m.remember(ctx, current); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeResolved, Episode: current}, nil
	}

	m.logger.Debug("no series identity established", "file", parsed.SourceName)
	return Result{Outcome: OutcomeSkipped, Reason: lastFailure}, nil
}

// seriesHint returns the series id to resolve with: an explicit batch-wide id
// wins, then the remembered decision for this path when cache lookups are
// enabled.
func (m *Machine) seriesHint(ctx context.Context, parsed episode.Parsed) (int64, error) {
	if m.settings.SeriesID > 0 {
		return m.settings.SeriesID, nil
	}
	if !m.settings.Remember {
		return 0, nil
	}
	id, ok, err := m.store.LookupSeriesID(ctx, parsed.SourcePath)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "resolve", "cache lookup", parsed.SourceName, err)
	}
	if !ok {
		return 0, nil
	}
	m.logger.Debug("using remembered series id", "file", parsed.SourceName, "series_id", id)
	return id, nil
}

// askForName prompts for a corrected series name. The second return reports
// whether the reply was substantial enough to earn another resolution pass;
// one-character replies are treated as a decline so a stray keypress cannot
// loop forever.
func (m *Machine) askForName(ctx context.Context, parsed episode.Parsed) (string, bool, error) {
	name, err := m.prompter.AskSeriesName(ctx, parsed.SourcePath)
	if err != nil {
		return "", false, err
	}
	return name, utf8.RuneCountInString(name) > 1, nil
}

// remember persists the confirmed identity. Destination names are recorded
// separately by the rename planner once one is computed.
func (m *Machine) remember(ctx context.Context, resolved *episode.Resolved) error {
	seriesID := resolved.SeriesID
	season := resolved.SeasonLabel()
	episodes := resolved.EpisodeLabel()
	err := m.store.Upsert(ctx, resolved.SourcePath, cache.Fields{
		SeriesID: &seriesID,
		Season:   &season,
		Episode:  &episodes,
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "resolve", "remember decision", resolved.SourceName, err)
	}
	return nil
}
