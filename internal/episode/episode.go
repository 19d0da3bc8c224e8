package episode

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies how an episode is keyed within its series.
type Kind string

const (
	// KindNumbered episodes carry a season and one or more episode numbers.
	KindNumbered Kind = "numbered"
	// KindSeasonless episodes carry episode numbers but no season, common
	// for anime and long-running daily shows.
	KindSeasonless Kind = "seasonless"
	// KindDated episodes are keyed by original air date.
	KindDated Kind = "dated"
)

// SeasonSentinel is the season label recorded for dated and seasonless
// episodes, which have no real season number.
const SeasonSentinel = "00"

// Parsed is the identity guessed from a media filename before any catalog
// lookup. Values are treated as immutable once produced; a corrected series
// name flows through the resolver's force-name argument rather than by
// rewriting the guess.
type Parsed struct {
	SourcePath     string
	SourceName     string
	Dir            string
	Ext            string
	SeriesName     string
	Season         int
	HasSeason      bool
	EpisodeNumbers []int
	AirDate        time.Time
}

// Kind reports whether the episode is keyed by air date, by season and
// episode number, or by episode number alone.
func (p Parsed) Kind() Kind {
	switch {
	case !p.AirDate.IsZero():
		return KindDated
	case p.HasSeason:
		return KindNumbered
	default:
		return KindSeasonless
	}
}

// SeasonLabel returns the zero-padded season used in cache records and
// directory templates. Dated and seasonless episodes use the sentinel.
func (p Parsed) SeasonLabel() string {
	if p.Kind() == KindNumbered {
		return fmt.Sprintf("%02d", p.Season)
	}
	return SeasonSentinel
}

// EpisodeLabel returns the zero-padded episode numbers joined by spaces, or
// the ISO air date for dated episodes.
func (p Parsed) EpisodeLabel() string {
	if p.Kind() == KindDated {
		return p.AirDate.Format("2006-01-02")
	}
	parts := make([]string, 0, len(p.EpisodeNumbers))
	for _, number := range p.EpisodeNumbers {
		parts = append(parts, fmt.Sprintf("%02d", number))
	}
	return strings.Join(parts, " ")
}

// Code returns a compact reference such as "S01E02", "S01E02E03", "E07", or
// "2019-11-28" for prompts and log lines.
func (p Parsed) Code() string {
	switch p.Kind() {
	case KindDated:
		return p.AirDate.Format("2006-01-02")
	case KindNumbered:
		var b strings.Builder
		fmt.Fprintf(&b, "S%02d", p.Season)
		for _, number := range p.EpisodeNumbers {
			fmt.Fprintf(&b, "E%02d", number)
		}
		return b.String()
	default:
		parts := make([]string, 0, len(p.EpisodeNumbers))
		for _, number := range p.EpisodeNumbers {
			parts = append(parts, fmt.Sprintf("E%02d", number))
		}
		return strings.Join(parts, "")
	}
}

// Resolved pairs a parsed identity with the catalog's authoritative record.
// The outer SeriesName shadows the embedded guess; read Parsed.SeriesName for
// the raw extraction. EpisodeTitles may be empty when the catalog record has
// no title for the episode.
type Resolved struct {
	Parsed

	SeriesID      int64
	SeriesName    string
	EpisodeTitles []string
}
