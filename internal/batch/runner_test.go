package batch_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"retitle/internal/batch"
	"retitle/internal/cache"
	"retitle/internal/config"
	"retitle/internal/discover"
	"retitle/internal/episode"
	"retitle/internal/naming"
	"retitle/internal/prompt"
	"retitle/internal/rename"
	"retitle/internal/resolve"
	"retitle/internal/services"
	"retitle/internal/session"
	"retitle/internal/testsupport"
)

// stubLookup resolves against a fixed series and episode-title table,
// failing the files listed in failures. It stands in for the catalog-backed
// resolver so runs stay offline.
type stubLookup struct {
	seriesID   int64
	seriesName string
	titles     map[int]string
	failures   map[string]error
}

func (s *stubLookup) Resolve(_ context.Context, parsed episode.Parsed, _ string, _ int64) (*episode.Resolved, error) {
	if err, ok := s.failures[parsed.SourceName]; ok {
		return nil, err
	}
	titles := make([]string, 0, len(parsed.EpisodeNumbers))
	for _, number := range parsed.EpisodeNumbers {
		if title, ok := s.titles[number]; ok {
			titles = append(titles, title)
		}
	}
	return &episode.Resolved{
		Parsed:        parsed,
		SeriesID:      s.seriesID,
		SeriesName:    s.seriesName,
		EpisodeTitles: titles,
	}, nil
}

type batchEnv struct {
	cfg      *config.Config
	settings *session.Settings
	store    *cache.Store
	lookup   *stubLookup
	out      *bytes.Buffer
	mediaDir string
	runner   *batch.Runner
}

// newBatchEnv wires a runner over real components, with only the catalog
// stubbed out. input feeds the confirmation prompts; an empty input makes any
// unexpected prompt fail the run.
func newBatchEnv(t *testing.T, input string, opts ...testsupport.ConfigOption) *batchEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	settings := session.FromConfig(cfg)
	store := testsupport.MustOpenCache(t, cfg)
	lookup := &stubLookup{
		seriesID:   76156,
		seriesName: "Scrubs",
		titles: map[int]string{
			1: "My First Day",
			2: "My Mentor",
			3: "My Best Friend's Mistake",
			4: "My Old Lady",
			5: "My Two Dads",
		},
	}

	out := &bytes.Buffer{}
	console := prompt.NewConsole(strings.NewReader(input), out)

	finder, err := discover.NewFinder(cfg, nil)
	if err != nil {
		t.Fatalf("NewFinder() error = %v", err)
	}
	parser, err := episode.NewParser(cfg)
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	formatter, err := naming.NewFormatter(cfg)
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	pipe := batch.Pipeline{
		Finder:    finder,
		Parser:    parser,
		Machine:   resolve.NewMachine(lookup, store, console, settings, nil),
		Planner:   rename.NewPlanner(formatter, store, nil),
		Relocator: rename.NewRelocator(nil),
		Formatter: formatter,
		Console:   console,
		Store:     store,
	}

	return &batchEnv{
		cfg:      cfg,
		settings: settings,
		store:    store,
		lookup:   lookup,
		out:      out,
		mediaDir: t.TempDir(),
		runner:   batch.NewRunner(cfg, settings, pipe, nil, batch.WithOutput(out)),
	}
}

// run processes the media directory unless explicit paths are given.
func (e *batchEnv) run(t *testing.T, paths ...string) (batch.Summary, error) {
	t.Helper()
	if len(paths) == 0 {
		paths = []string{e.mediaDir}
	}
	return e.runner.Run(context.Background(), paths)
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func mustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected %s to be gone, stat error = %v", path, err)
	}
}

func TestRunRenamesBatch(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	first := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")
	second := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e05.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Found != 2 || summary.Renamed != 2 {
		t.Fatalf("summary = %+v, want 2 found and 2 renamed", summary)
	}
	mustNotExist(t, first)
	mustNotExist(t, second)
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi"))
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E05 - My Two Dads.avi"))

	record, err := env.store.Lookup(context.Background(), first)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if record == nil {
		t.Fatal("no decision recorded for the renamed file")
	}
	if record.SeriesID != 76156 || record.Destination != "Scrubs - S01E04 - My Old Lady.avi" {
		t.Fatalf("record = %+v", record)
	}
}

func TestRunNoValidFiles(t *testing.T) {
	env := newBatchEnv(t, "")

	summary, err := env.run(t)
	if !errors.Is(err, batch.ErrNoValidFiles) {
		t.Fatalf("Run() error = %v, want ErrNoValidFiles", err)
	}
	if summary.Found != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunInvalidFilenamesCounted(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	testsupport.TouchMedia(t, env.mediaDir, "extras.avi")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Found != 2 || summary.Invalid != 1 || summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunOnlyInvalidFilenames(t *testing.T) {
	env := newBatchEnv(t, "")
	testsupport.TouchMedia(t, env.mediaDir, "extras.avi")

	summary, err := env.run(t)
	if !errors.Is(err, batch.ErrNoValidFiles) {
		t.Fatalf("Run() error = %v, want ErrNoValidFiles", err)
	}
	if summary.Invalid != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunSkipsFileWithoutSeriesName(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	bare := testsupport.TouchMedia(t, env.mediaDir, "s01e05.avi")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, bare)
}

func TestRunSeriesIDHintResolvesBareFilename(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.settings.SeriesID = 76156
	testsupport.TouchMedia(t, env.mediaDir, "s01e05.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E05 - My Two Dads.avi"))
}

func TestRunDeclineSkipsFile(t *testing.T) {
	env := newBatchEnv(t, "n\n")
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Renamed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)

	output := env.out.String()
	for _, want := range []string{"Old filename: scrubs.s01e04.avi", "New filename: Scrubs - S01E04 - My Old Lady.avi", "Rename?"} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRunAnswerAlwaysAppliesToRest(t *testing.T) {
	env := newBatchEnv(t, "a\n")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e05.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := strings.Count(env.out.String(), "Rename?"); got != 1 {
		t.Fatalf("prompted %d times, want 1", got)
	}
	if !env.settings.AlwaysRename {
		t.Fatal("always answer did not stick in settings")
	}
}

func TestRunQuitAborts(t *testing.T) {
	env := newBatchEnv(t, "q\n")
	first := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")
	second := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e05.avi")

	summary, err := env.run(t)
	if !errors.Is(err, services.ErrUserAbort) {
		t.Fatalf("Run() error = %v, want ErrUserAbort", err)
	}
	if summary.Renamed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, first)
	mustExist(t, second)
}

func TestRunExitBehaviourStopsOnResolveFailure(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.settings.SkipBehaviour = session.SkipExit
	env.lookup.failures = map[string]error{
		"scrubs.s01e02.avi": &resolve.Error{Kind: resolve.KindShowNotFound, Message: "no match"},
	}
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e01.avi")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e02.avi")
	third := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e03.avi")

	summary, err := env.run(t)
	if err == nil {
		t.Fatal("Run() succeeded, want abort")
	}
	var failure *resolve.Error
	if !errors.As(err, &failure) || failure.Kind != resolve.KindShowNotFound {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E01 - My First Day.avi"))
	mustExist(t, third)
}

func TestRunSkipBehaviourContinuesOnResolveFailure(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.lookup.failures = map[string]error{
		"scrubs.s01e02.avi": &resolve.Error{Kind: resolve.KindShowNotFound, Message: "no match"},
	}
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e01.avi")
	skipped := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e02.avi")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e03.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 2 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, skipped)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.settings.DryRun = true
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)
	mustNotExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi"))
	if !strings.Contains(env.out.String(), "Dry run: not renaming.") {
		t.Fatalf("output missing dry run note:\n%s", env.out.String())
	}

	record, err := env.store.Lookup(context.Background(), file)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if record == nil || record.Destination != "Scrubs - S01E04 - My Old Lady.avi" {
		t.Fatalf("record = %+v, want remembered destination", record)
	}
}

func TestRunAlreadyCorrect(t *testing.T) {
	env := newBatchEnv(t, "")
	file := testsupport.TouchMedia(t, env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.AlreadyCorrect != 1 || summary.Renamed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)
	if !strings.Contains(env.out.String(), "Existing filename is correct: Scrubs - S01E04 - My Old Lady.avi") {
		t.Fatalf("output = %s", env.out.String())
	}
}

func TestRunCollisionUsesVariant(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.1x04.xvid.avi")
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi"))
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E04 - My Old Lady (2).avi"))
}

func TestRunMoveEnabled(t *testing.T) {
	env := newBatchEnv(t, "", testsupport.WithMoveEnabled())
	env.settings.AlwaysRename = true
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustNotExist(t, file)
	mustExist(t, filepath.Join(env.cfg.Move.Destination, "Scrubs", "Season 1", "Scrubs - S01E04 - My Old Lady.avi"))
	if !strings.Contains(env.out.String(), "New path: ") {
		t.Fatalf("output = %s", env.out.String())
	}
}

func TestRunMoveOfCorrectNamePromptsSeparately(t *testing.T) {
	env := newBatchEnv(t, "y\n", testsupport.WithMoveEnabled())
	file := testsupport.TouchMedia(t, env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 || summary.AlreadyCorrect != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustNotExist(t, file)
	mustExist(t, filepath.Join(env.cfg.Move.Destination, "Scrubs", "Season 1", "Scrubs - S01E04 - My Old Lady.avi"))
	if !strings.Contains(env.out.String(), "Move?") {
		t.Fatalf("output = %s", env.out.String())
	}
}

func TestRunMoveDeclined(t *testing.T) {
	env := newBatchEnv(t, "n\n", testsupport.WithMoveEnabled())
	file := testsupport.TouchMedia(t, env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Renamed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)
}

func TestRunMoveOnlyKeepsFilename(t *testing.T) {
	env := newBatchEnv(t, "", testsupport.WithMoveEnabled())
	env.cfg.Move.Only = true
	env.settings.AlwaysRename = true
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustNotExist(t, file)
	mustExist(t, filepath.Join(env.cfg.Move.Destination, "Scrubs", "Season 1", "scrubs.s01e04.avi"))
}

func TestRunExistingDestinationSkips(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")
	testsupport.TouchMedia(t, env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi")

	summary, err := env.run(t, file)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 1 || summary.Renamed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)
}

func TestRunExistingDestinationOverwrites(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.cfg.Move.Overwrite = true
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")
	testsupport.TouchMedia(t, env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi")

	summary, err := env.run(t, file)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustNotExist(t, file)
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi"))
}

func TestRunExistingDestinationExitBehaviour(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.settings.SkipBehaviour = session.SkipExit
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")
	testsupport.TouchMedia(t, env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi")

	summary, err := env.run(t, file)
	if !errors.Is(err, services.ErrFileExists) {
		t.Fatalf("Run() error = %v, want ErrFileExists", err)
	}
	if summary.Renamed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)
}

func TestRunCopyModeKeepsSource(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	env.cfg.Move.Mode = "copy"
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	summary, err := env.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	mustExist(t, file)
	mustExist(t, filepath.Join(env.mediaDir, "Scrubs - S01E04 - My Old Lady.avi"))
}

func TestRunPreflightFailure(t *testing.T) {
	env := newBatchEnv(t, "", testsupport.WithAPIKey(""))
	testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	_, err := env.run(t)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "TVDB API key") {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	env := newBatchEnv(t, "")
	env.settings.AlwaysRename = true
	file := testsupport.TouchMedia(t, env.mediaDir, "scrubs.s01e04.avi")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.runner.Run(ctx, []string{env.mediaDir})
	if !errors.Is(err, services.ErrUserAbort) {
		t.Fatalf("Run() error = %v, want ErrUserAbort", err)
	}
	mustExist(t, file)
}
