package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"retitle/internal/episode"
	"retitle/internal/language"
	"retitle/internal/logging"
	"retitle/internal/services/tvdb"
	"retitle/internal/session"
)

// Catalog is the subset of the series catalog client the resolver uses.
type Catalog interface {
	SearchSeries(ctx context.Context, name string) ([]tvdb.Series, error)
	GetSeries(ctx context.Context, id int64) (*tvdb.Series, error)
	SeasonEpisodes(ctx context.Context, id int64, order, lang string, season int) ([]tvdb.Episode, error)
	EpisodeByAirDate(ctx context.Context, id int64, order, lang string, aired time.Time) (*tvdb.Episode, error)
}

var _ Catalog = (*tvdb.Client)(nil)

// Picker chooses between candidate series when a search is ambiguous.
type Picker interface {
	PickSeries(ctx context.Context, query string, options []tvdb.Series) (tvdb.Series, error)
}

// Resolver turns a parsed filename identity into a catalog-confirmed episode.
// Failures are classified as *Error so the retry machine can apply the
// configured skip behaviour per failure kind.
type Resolver struct {
	catalog  Catalog
	picker   Picker
	settings *session.Settings
	logger   *slog.Logger
}

// NewResolver wires a resolver against a catalog client and a series picker.
func NewResolver(catalog Catalog, picker Picker, settings *session.Settings, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		catalog:  catalog,
		picker:   picker,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve confirms the series identity and fetches episode titles for one
// parsed file. An explicit seriesID skips the name search entirely; otherwise
// forceName overrides the filename guess as the search query.
func (r *Resolver) Resolve(ctx context.Context, parsed episode.Parsed, forceName string, seriesID int64) (*episode.Resolved, error) {
	series, err := r.findSeries(ctx, parsed, forceName, seriesID)
	if err != nil {
		return nil, err
	}

	resolved := &episode.Resolved{
		Parsed:     parsed,
		SeriesID:   series.ID,
		SeriesName: series.Name,
	}

	order := tvdb.OrderFromConfig(r.settings.Order)
	lang := language.ToISO3(r.settings.Language)

	if parsed.Kind() == episode.KindDated {
		return r.resolveDated(ctx, resolved, order, lang)
	}
	return r.resolveNumbered(ctx, resolved, order, lang)
}

func (r *Resolver) findSeries(ctx context.Context, parsed episode.Parsed, forceName string, seriesID int64) (tvdb.Series, error) {
	if seriesID > 0 {
		series, err := r.catalog.GetSeries(ctx, seriesID)
		if err != nil {
			if errors.Is(err, tvdb.ErrSeriesNotFound) {
				return tvdb.Series{}, newError(KindShowNotFound, fmt.Sprintf("series id %d is unknown to the catalog", seriesID), nil, err)
			}
			return tvdb.Series{}, newError(KindDataRetrieval, fmt.Sprintf("fetch series %d", seriesID), nil, err)
		}
		r.logger.Debug("series confirmed by id", "series_id", series.ID, "series_name", series.Name)
		return *series, nil
	}

	query := forceName
	if query == "" {
		query = parsed.SeriesName
	}
	if query == "" {
		return tvdb.Series{}, newError(KindShowNotFound, fmt.Sprintf("%s yielded no series name", parsed.SourceName), nil, nil)
	}

	results, err := r.catalog.SearchSeries(ctx, query)
	if err != nil {
		return tvdb.Series{}, newError(KindDataRetrieval, fmt.Sprintf("search for %q", query), nil, err)
	}
	if len(results) == 0 {
		return tvdb.Series{}, newError(KindShowNotFound, fmt.Sprintf("no series found for %q", query), nil, nil)
	}
	if len(results) == 1 || r.settings.SelectFirst {
		series := results[0]
		r.logger.Debug("series selected",
			"query", query,
			"series_id", series.ID,
			"series_name", series.Name,
			"candidates", len(results))
		return series, nil
	}

	series, err := r.picker.PickSeries(ctx, query, results)
	if err != nil {
		return tvdb.Series{}, err
	}
	return series, nil
}

func (r *Resolver) resolveDated(ctx context.Context, resolved *episode.Resolved, order, lang string) (*episode.Resolved, error) {
	aired := resolved.AirDate
	ep, err := r.catalog.EpisodeByAirDate(ctx, resolved.SeriesID, order, lang, aired)
	if err != nil {
		return nil, newError(KindDataRetrieval, fmt.Sprintf("fetch episode aired %s", aired.Format("2006-01-02")), partial(resolved), err)
	}
	if ep == nil {
		return nil, newError(KindEpisodeNotFound, fmt.Sprintf("%s has no episode aired %s", resolved.SeriesName, aired.Format("2006-01-02")), partial(resolved), nil)
	}
	if ep.Name == "" {
		return nil, newError(KindEpisodeNameNotFound, fmt.Sprintf("episode aired %s has no title", aired.Format("2006-01-02")), partial(resolved), nil)
	}

	resolved.EpisodeTitles = []string{ep.Name}
	return resolved, nil
}

func (r *Resolver) resolveNumbered(ctx context.Context, resolved *episode.Resolved, order, lang string) (*episode.Resolved, error) {
	season := resolved.Season
	if !resolved.HasSeason {
		// Seasonless formats are keyed against the catalog's first season.
		season = 1
	}

	episodes, err := r.catalog.SeasonEpisodes(ctx, resolved.SeriesID, order, lang, season)
	if err != nil {
		if errors.Is(err, tvdb.ErrSeriesNotFound) {
			return nil, newError(KindSeasonNotFound, fmt.Sprintf("season %d of %s is unknown", season, resolved.SeriesName), partial(resolved), err)
		}
		return nil, newError(KindDataRetrieval, fmt.Sprintf("fetch season %d of %s", season, resolved.SeriesName), partial(resolved), err)
	}
	if len(episodes) == 0 {
		return nil, newError(KindSeasonNotFound, fmt.Sprintf("%s has no season %d", resolved.SeriesName, season), partial(resolved), nil)
	}

	byNumber := make(map[int]tvdb.Episode, len(episodes))
	for _, ep := range episodes {
		byNumber[ep.Number] = ep
	}

	titles := make([]string, 0, len(resolved.EpisodeNumbers))
	for _, number := range resolved.EpisodeNumbers {
		ep, ok := byNumber[number]
		if !ok {
			return nil, newError(KindEpisodeNotFound, fmt.Sprintf("season %d of %s has no episode %d", season, resolved.SeriesName, number), partial(resolved), nil)
		}
		if ep.Name == "" {
			return nil, newError(KindEpisodeNameNotFound, fmt.Sprintf("episode %d of season %d has no title", number, season), partial(resolved), nil)
		}
		titles = append(titles, ep.Name)
	}

	resolved.EpisodeTitles = titles
	return resolved, nil
}

// partial copies the confirmed identity so error paths cannot alias the
// resolver's working value.
func partial(resolved *episode.Resolved) *episode.Resolved {
	clone := *resolved
	clone.EpisodeTitles = nil
	return &clone
}
