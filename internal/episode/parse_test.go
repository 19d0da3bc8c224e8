package episode_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"retitle/internal/config"
	"retitle/internal/episode"
)

func newParser(t *testing.T, cfg *config.Config) *episode.Parser {
	t.Helper()
	parser, err := episode.NewParser(cfg)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return parser
}

func TestParseRecognizesCommonPatterns(t *testing.T) {
	parser := newParser(t, nil)

	cases := []struct {
		filename string
		series   string
		season   int
		episodes []int
		kind     episode.Kind
		airDate  string
	}{
		{"Scrubs.s01e22.hdtv.xvid-lol.mkv", "Scrubs", 1, []int{22}, episode.KindNumbered, ""},
		{"Show.Name-S01E02-Some.Title.mkv", "Show Name", 1, []int{2}, episode.KindNumbered, ""},
		{"the.simpsons.1x01.pilot.avi", "the simpsons", 1, []int{1}, episode.KindNumbered, ""},
		{"Brooklyn Nine-Nine 3x04.mkv", "Brooklyn Nine-Nine", 3, []int{4}, episode.KindNumbered, ""},
		{"show name - [04x01] - title.avi", "show name", 4, []int{1}, episode.KindNumbered, ""},
		{"Show S01E01E02.mkv", "Show", 1, []int{1, 2}, episode.KindNumbered, ""},
		{"Show.S01E01-E03.mkv", "Show", 1, []int{1, 2, 3}, episode.KindNumbered, ""},
		{"Show - 1x01x02x03.mkv", "Show", 1, []int{1, 2, 3}, episode.KindNumbered, ""},
		{"Show 1x05-1x07.mkv", "Show", 1, []int{5, 6, 7}, episode.KindNumbered, ""},
		{"Show Season 2 Episode 3.avi", "Show", 2, []int{3}, episode.KindNumbered, ""},
		{"Show - Episode 7.mkv", "Show", 0, []int{7}, episode.KindSeasonless, ""},
		{"Show.e07.repack.mkv", "Show", 0, []int{7}, episode.KindSeasonless, ""},
		{"Show.ep12.mkv", "Show", 0, []int{12}, episode.KindSeasonless, ""},
		{"The Colbert Report - 2019-11-28.mkv", "The Colbert Report", 0, nil, episode.KindDated, "2019-11-28"},
		{"Show.2019.11.28.Guest.Name.mkv", "Show", 0, nil, episode.KindDated, "2019-11-28"},
		{"an.example.1.0.test.s01e02.mkv", "an example 1.0 test", 1, []int{2}, episode.KindNumbered, ""},
		{"Scrubs (2001) - S01E04.mkv", "Scrubs", 1, []int{4}, episode.KindNumbered, ""},
		{"Show_Name_[2019]_s02e05.mkv", "Show Name", 2, []int{5}, episode.KindNumbered, ""},
		{"[SubGroup] Naruto - e05.mkv", "Naruto", 0, []int{5}, episode.KindSeasonless, ""},
		{"S01E02.mkv", "", 1, []int{2}, episode.KindNumbered, ""},
	}

	for _, tc := range cases {
		got, err := parser.Parse("/media/" + tc.filename)
		if err != nil {
			t.Fatalf("Parse(%s): %v", tc.filename, err)
		}
		if got.Kind() != tc.kind {
			t.Fatalf("Parse(%s) kind = %s, want %s", tc.filename, got.Kind(), tc.kind)
		}
		if got.SeriesName != tc.series {
			t.Fatalf("Parse(%s) series = %q, want %q", tc.filename, got.SeriesName, tc.series)
		}
		switch tc.kind {
		case episode.KindNumbered:
			if !got.HasSeason || got.Season != tc.season {
				t.Fatalf("Parse(%s) season = %d,%v want %d,true", tc.filename, got.Season, got.HasSeason, tc.season)
			}
			if !reflect.DeepEqual(got.EpisodeNumbers, tc.episodes) {
				t.Fatalf("Parse(%s) episodes = %v, want %v", tc.filename, got.EpisodeNumbers, tc.episodes)
			}
		case episode.KindSeasonless:
			if got.HasSeason {
				t.Fatalf("Parse(%s) unexpectedly has a season", tc.filename)
			}
			if !reflect.DeepEqual(got.EpisodeNumbers, tc.episodes) {
				t.Fatalf("Parse(%s) episodes = %v, want %v", tc.filename, got.EpisodeNumbers, tc.episodes)
			}
		case episode.KindDated:
			if got.AirDate.Format("2006-01-02") != tc.airDate {
				t.Fatalf("Parse(%s) air date = %s, want %s", tc.filename, got.AirDate.Format("2006-01-02"), tc.airDate)
			}
		}
	}
}

func TestParseCollapsesAbsurdRanges(t *testing.T) {
	parser := newParser(t, nil)

	// A resolution tag after a dash reads like a range end; the wide-span
	// guard keeps only the real episode number.
	got, err := parser.Parse("/media/Show - S02E01 - 1080p.mkv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(got.EpisodeNumbers, []int{1}) || got.Season != 2 {
		t.Fatalf("unexpected identity: season %d episodes %v", got.Season, got.EpisodeNumbers)
	}
}

func TestParseSwapsReversedRanges(t *testing.T) {
	parser := newParser(t, nil)

	got, err := parser.Parse("/media/Show S01E05-E03.mkv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(got.EpisodeNumbers, []int{3, 4, 5}) {
		t.Fatalf("episodes = %v, want [3 4 5]", got.EpisodeNumbers)
	}
}

func TestParseRejectsInvalidDates(t *testing.T) {
	parser := newParser(t, nil)

	if _, err := parser.Parse("/media/Show.2019.13.45.mkv"); !errors.Is(err, episode.ErrUnrecognized) {
		t.Fatalf("expected ErrUnrecognized, got %v", err)
	}
}

func TestParseRejectsUnrecognizedNames(t *testing.T) {
	parser := newParser(t, nil)

	for _, filename := range []string{
		"holiday-video.mkv",
		"notes.txt",
		"IMG_1234.jpg",
	} {
		_, err := parser.Parse("/media/" + filename)
		if !errors.Is(err, episode.ErrUnrecognized) {
			t.Fatalf("Parse(%s) error = %v, want ErrUnrecognized", filename, err)
		}
	}
}

func TestParseKeepsOriginalNameAndExtension(t *testing.T) {
	parser := newParser(t, nil)

	got, err := parser.Parse("/media/tv/Show.S01E02.MKV")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.SourcePath != "/media/tv/Show.S01E02.MKV" {
		t.Fatalf("source path = %q", got.SourcePath)
	}
	if got.Dir != "/media/tv" || got.SourceName != "Show.S01E02.MKV" || got.Ext != ".MKV" {
		t.Fatalf("unexpected split: dir %q name %q ext %q", got.Dir, got.SourceName, got.Ext)
	}
}

func TestParseAppliesInputReplacements(t *testing.T) {
	cfg := config.Default()
	cfg.Rename.InputReplacements = []config.Replacement{
		{Match: `(?i)part\.?(\d{1,2})`, Replacement: "e$1", IsRegex: true},
	}
	parser := newParser(t, &cfg)

	got, err := parser.Parse("/media/Show.Part.3.mkv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Kind() != episode.KindSeasonless || !reflect.DeepEqual(got.EpisodeNumbers, []int{3}) {
		t.Fatalf("unexpected identity: kind %s episodes %v", got.Kind(), got.EpisodeNumbers)
	}
	if got.SourceName != "Show.Part.3.mkv" || got.Ext != ".mkv" {
		t.Fatalf("replacements must not rewrite the original name: %q %q", got.SourceName, got.Ext)
	}
}

func TestParseErrorMentionsReplacedName(t *testing.T) {
	cfg := config.Default()
	cfg.Rename.InputReplacements = []config.Replacement{
		{Match: "S01E01", Replacement: "nonsense", IsRegex: false},
	}
	parser := newParser(t, &cfg)

	_, err := parser.Parse("/media/Show.S01E01.mkv")
	if !errors.Is(err, episode.ErrUnrecognized) {
		t.Fatalf("expected ErrUnrecognized, got %v", err)
	}
	if !strings.Contains(err.Error(), "with replacements") {
		t.Fatalf("error should mention the replaced form: %v", err)
	}
}

func TestNewParserRejectsBadReplacementPattern(t *testing.T) {
	cfg := config.Default()
	cfg.Rename.InputReplacements = []config.Replacement{
		{Match: "([", Replacement: "", IsRegex: true},
	}
	if _, err := episode.NewParser(&cfg); err == nil {
		t.Fatal("expected compile error")
	}
}
