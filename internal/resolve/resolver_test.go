package resolve_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"retitle/internal/episode"
	"retitle/internal/resolve"
	"retitle/internal/services"
	"retitle/internal/services/tvdb"
	"retitle/internal/session"
	"retitle/internal/testsupport"
)

type fakeCatalog struct {
	results     []tvdb.Series
	searchErr   error
	byID        map[int64]*tvdb.Series
	getErr      error
	episodes    []tvdb.Episode
	episodesErr error
	dated       *tvdb.Episode
	datedErr    error

	searchCalls int
	lastQuery   string
	lastSeason  int
	lastOrder   string
	lastLang    string
	lastAired   time.Time
}

func (f *fakeCatalog) SearchSeries(ctx context.Context, name string) ([]tvdb.Series, error) {
	f.searchCalls++
	f.lastQuery = name
	return f.results, f.searchErr
}

func (f *fakeCatalog) GetSeries(ctx context.Context, id int64) (*tvdb.Series, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	series, ok := f.byID[id]
	if !ok {
		return nil, tvdb.ErrSeriesNotFound
	}
	return series, nil
}

func (f *fakeCatalog) SeasonEpisodes(ctx context.Context, id int64, order, lang string, season int) ([]tvdb.Episode, error) {
	f.lastOrder = order
	f.lastLang = lang
	f.lastSeason = season
	return f.episodes, f.episodesErr
}

func (f *fakeCatalog) EpisodeByAirDate(ctx context.Context, id int64, order, lang string, aired time.Time) (*tvdb.Episode, error) {
	f.lastOrder = order
	f.lastLang = lang
	f.lastAired = aired
	return f.dated, f.datedErr
}

type fakePicker struct {
	pick  int
	err   error
	calls int
	query string
}

func (f *fakePicker) PickSeries(ctx context.Context, query string, options []tvdb.Series) (tvdb.Series, error) {
	f.calls++
	f.query = query
	if f.err != nil {
		return tvdb.Series{}, f.err
	}
	return options[f.pick], nil
}

func newResolver(t *testing.T, catalog *fakeCatalog, picker *fakePicker, mutate func(*session.Settings)) *resolve.Resolver {
	t.Helper()
	settings := session.FromConfig(testsupport.NewConfig(t))
	if mutate != nil {
		mutate(settings)
	}
	return resolve.NewResolver(catalog, picker, settings, nil)
}

func numberedParsed() episode.Parsed {
	return episode.Parsed{
		SourcePath:     "/tv/scrubs.s01e04.avi",
		SourceName:     "scrubs.s01e04.avi",
		Dir:            "/tv",
		Ext:            ".avi",
		SeriesName:     "scrubs",
		Season:         1,
		HasSeason:      true,
		EpisodeNumbers: []int{4},
	}
}

func scrubsEpisodes() []tvdb.Episode {
	return []tvdb.Episode{
		{ID: 1, Name: "My First Day", Season: 1, Number: 1},
		{ID: 2, Name: "My Mentor", Season: 1, Number: 2},
		{ID: 4, Name: "My Old Lady", Season: 1, Number: 4},
	}
}

func TestResolveNumbered(t *testing.T) {
	catalog := &fakeCatalog{
		results:  []tvdb.Series{{ID: 76156, Name: "Scrubs", Year: 2001}},
		episodes: scrubsEpisodes(),
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	resolved, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.SeriesID != 76156 || resolved.SeriesName != "Scrubs" {
		t.Fatalf("series = %d %q, want 76156 Scrubs", resolved.SeriesID, resolved.SeriesName)
	}
	if len(resolved.EpisodeTitles) != 1 || resolved.EpisodeTitles[0] != "My Old Lady" {
		t.Fatalf("titles = %v, want [My Old Lady]", resolved.EpisodeTitles)
	}
	if catalog.lastQuery != "scrubs" {
		t.Fatalf("search query = %q, want guess", catalog.lastQuery)
	}
	if catalog.lastOrder != tvdb.OrderAired || catalog.lastLang != "eng" {
		t.Fatalf("order/lang = %q/%q, want official/eng", catalog.lastOrder, catalog.lastLang)
	}
	if catalog.lastSeason != 1 {
		t.Fatalf("season = %d, want 1", catalog.lastSeason)
	}
}

func TestResolveMultiEpisodeTitlesKeepOrder(t *testing.T) {
	catalog := &fakeCatalog{
		results:  []tvdb.Series{{ID: 76156, Name: "Scrubs"}},
		episodes: scrubsEpisodes(),
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := numberedParsed()
	parsed.EpisodeNumbers = []int{2, 1}

	resolved, err := resolver.Resolve(context.Background(), parsed, "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved.EpisodeTitles) != 2 || resolved.EpisodeTitles[0] != "My Mentor" || resolved.EpisodeTitles[1] != "My First Day" {
		t.Fatalf("titles = %v, want requested order", resolved.EpisodeTitles)
	}
}

func TestResolveExplicitIDSkipsSearch(t *testing.T) {
	catalog := &fakeCatalog{
		byID:     map[int64]*tvdb.Series{76156: {ID: 76156, Name: "Scrubs"}},
		episodes: scrubsEpisodes(),
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	resolved, err := resolver.Resolve(context.Background(), numberedParsed(), "", 76156)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.SeriesID != 76156 {
		t.Fatalf("series id = %d, want 76156", resolved.SeriesID)
	}
	if catalog.searchCalls != 0 {
		t.Fatalf("search called %d times, want 0", catalog.searchCalls)
	}
}

func TestResolveUnknownSeriesID(t *testing.T) {
	catalog := &fakeCatalog{byID: map[int64]*tvdb.Series{}}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	_, err := resolver.Resolve(context.Background(), numberedParsed(), "", 999)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindShowNotFound {
		t.Fatalf("Resolve() error = %v, want show-not-found", err)
	}
}

func TestResolveForceNameOverridesGuess(t *testing.T) {
	catalog := &fakeCatalog{
		results:  []tvdb.Series{{ID: 76156, Name: "Scrubs"}},
		episodes: scrubsEpisodes(),
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	if _, err := resolver.Resolve(context.Background(), numberedParsed(), "Scrubs", 0); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if catalog.lastQuery != "Scrubs" {
		t.Fatalf("search query = %q, want forced name", catalog.lastQuery)
	}
}

func TestResolveSelectFirstSkipsPicker(t *testing.T) {
	catalog := &fakeCatalog{
		results: []tvdb.Series{
			{ID: 76156, Name: "Scrubs"},
			{ID: 368358, Name: "Scrubs (2018)"},
		},
		episodes: scrubsEpisodes(),
	}
	picker := &fakePicker{pick: 1}
	resolver := newResolver(t, catalog, picker, func(s *session.Settings) { s.SelectFirst = true })

	resolved, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.SeriesID != 76156 {
		t.Fatalf("series id = %d, want first candidate", resolved.SeriesID)
	}
	if picker.calls != 0 {
		t.Fatalf("picker consulted %d times, want 0", picker.calls)
	}
}

func TestResolveAmbiguousSearchUsesPicker(t *testing.T) {
	catalog := &fakeCatalog{
		results: []tvdb.Series{
			{ID: 76156, Name: "Scrubs"},
			{ID: 368358, Name: "Scrubs (2018)"},
		},
		episodes: scrubsEpisodes(),
	}
	picker := &fakePicker{pick: 1}
	resolver := newResolver(t, catalog, picker, nil)

	resolved, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.SeriesID != 368358 {
		t.Fatalf("series id = %d, want picked candidate", resolved.SeriesID)
	}
	if picker.calls != 1 || picker.query != "scrubs" {
		t.Fatalf("picker calls = %d query = %q", picker.calls, picker.query)
	}
}

func TestResolvePickerAbortPropagates(t *testing.T) {
	catalog := &fakeCatalog{
		results: []tvdb.Series{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
	}
	picker := &fakePicker{err: services.ErrUserAbort}
	resolver := newResolver(t, catalog, picker, nil)

	_, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)
	if !errors.Is(err, services.ErrUserAbort) {
		t.Fatalf("Resolve() error = %v, want ErrUserAbort", err)
	}
}

func TestResolveShowNotFound(t *testing.T) {
	catalog := &fakeCatalog{}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	_, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindShowNotFound {
		t.Fatalf("Resolve() error = %v, want show-not-found", err)
	}
	if failure.Episode != nil {
		t.Fatalf("show-not-found carried identity %+v", failure.Episode)
	}
}

func TestResolveEmptyGuessIsShowNotFound(t *testing.T) {
	catalog := &fakeCatalog{}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := numberedParsed()
	parsed.SeriesName = ""

	_, err := resolver.Resolve(context.Background(), parsed, "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindShowNotFound {
		t.Fatalf("Resolve() error = %v, want show-not-found", err)
	}
	if catalog.searchCalls != 0 {
		t.Fatalf("search called with empty query")
	}
}

func TestResolveSearchFailureIsDataRetrieval(t *testing.T) {
	catalog := &fakeCatalog{searchErr: errors.New("connection refused")}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	_, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindDataRetrieval {
		t.Fatalf("Resolve() error = %v, want data-retrieval", err)
	}
}

func TestResolveSeasonNotFoundKeepsIdentity(t *testing.T) {
	catalog := &fakeCatalog{
		results: []tvdb.Series{{ID: 76156, Name: "Scrubs"}},
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := numberedParsed()
	parsed.Season = 99

	_, err := resolver.Resolve(context.Background(), parsed, "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindSeasonNotFound {
		t.Fatalf("Resolve() error = %v, want season-not-found", err)
	}
	if failure.Episode == nil || failure.Episode.SeriesID != 76156 || failure.Episode.SeriesName != "Scrubs" {
		t.Fatalf("partial identity = %+v, want confirmed series", failure.Episode)
	}
	if len(failure.Episode.EpisodeTitles) != 0 {
		t.Fatalf("partial identity carried titles %v", failure.Episode.EpisodeTitles)
	}
}

func TestResolveEpisodeNotFoundKeepsIdentity(t *testing.T) {
	catalog := &fakeCatalog{
		results:  []tvdb.Series{{ID: 76156, Name: "Scrubs"}},
		episodes: scrubsEpisodes(),
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := numberedParsed()
	parsed.EpisodeNumbers = []int{99}

	_, err := resolver.Resolve(context.Background(), parsed, "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindEpisodeNotFound {
		t.Fatalf("Resolve() error = %v, want episode-not-found", err)
	}
	if failure.Episode == nil || failure.Episode.SeriesID != 76156 {
		t.Fatalf("partial identity = %+v, want confirmed series", failure.Episode)
	}
}

func TestResolveMissingTitle(t *testing.T) {
	catalog := &fakeCatalog{
		results:  []tvdb.Series{{ID: 76156, Name: "Scrubs"}},
		episodes: []tvdb.Episode{{ID: 4, Season: 1, Number: 4}},
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	_, err := resolver.Resolve(context.Background(), numberedParsed(), "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindEpisodeNameNotFound {
		t.Fatalf("Resolve() error = %v, want episode-name-not-found", err)
	}
}

func TestResolveSeasonlessUsesSeasonOne(t *testing.T) {
	catalog := &fakeCatalog{
		results:  []tvdb.Series{{ID: 76156, Name: "Scrubs"}},
		episodes: scrubsEpisodes(),
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := numberedParsed()
	parsed.HasSeason = false
	parsed.Season = 0
	parsed.EpisodeNumbers = []int{2}

	resolved, err := resolver.Resolve(context.Background(), parsed, "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if catalog.lastSeason != 1 {
		t.Fatalf("season queried = %d, want 1", catalog.lastSeason)
	}
	if resolved.EpisodeTitles[0] != "My Mentor" {
		t.Fatalf("title = %q, want My Mentor", resolved.EpisodeTitles[0])
	}
}

func TestResolveDated(t *testing.T) {
	catalog := &fakeCatalog{
		results: []tvdb.Series{{ID: 71256, Name: "The Daily Show"}},
		dated:   &tvdb.Episode{ID: 9, Name: "Dolly Parton", Aired: "2019-11-28"},
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := episode.Parsed{
		SourcePath: "/tv/the.daily.show.2019.11.28.mkv",
		SourceName: "the.daily.show.2019.11.28.mkv",
		Dir:        "/tv",
		Ext:        ".mkv",
		SeriesName: "the daily show",
		AirDate:    time.Date(2019, 11, 28, 0, 0, 0, 0, time.UTC),
	}

	resolved, err := resolver.Resolve(context.Background(), parsed, "", 0)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.EpisodeTitles[0] != "Dolly Parton" {
		t.Fatalf("title = %q, want Dolly Parton", resolved.EpisodeTitles[0])
	}
	if !catalog.lastAired.Equal(parsed.AirDate) {
		t.Fatalf("aired = %v, want %v", catalog.lastAired, parsed.AirDate)
	}
}

func TestResolveDatedMissIsEpisodeNotFound(t *testing.T) {
	catalog := &fakeCatalog{
		results: []tvdb.Series{{ID: 71256, Name: "The Daily Show"}},
	}
	resolver := newResolver(t, catalog, &fakePicker{}, nil)

	parsed := episode.Parsed{
		SourcePath: "/tv/the.daily.show.2019.11.28.mkv",
		SourceName: "the.daily.show.2019.11.28.mkv",
		SeriesName: "the daily show",
		AirDate:    time.Date(2019, 11, 28, 0, 0, 0, 0, time.UTC),
	}

	_, err := resolver.Resolve(context.Background(), parsed, "", 0)

	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindEpisodeNotFound {
		t.Fatalf("Resolve() error = %v, want episode-not-found", err)
	}
	if failure.Episode == nil || failure.Episode.SeriesID != 71256 {
		t.Fatalf("partial identity = %+v, want confirmed series", failure.Episode)
	}
}
