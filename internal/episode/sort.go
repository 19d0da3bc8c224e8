package episode

import (
	"sort"
	"strings"
)

// Sort orders parsed episodes by series guess, season, first episode number
// or air date, then source path, so batches process in a stable order.
func Sort(items []*Parsed) {
	sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func less(a, b *Parsed) bool {
	if an, bn := strings.ToLower(a.SeriesName), strings.ToLower(b.SeriesName); an != bn {
		return an < bn
	}
	if as, bs := a.seasonKey(), b.seasonKey(); as != bs {
		return as < bs
	}
	if ae, be := a.episodeKey(), b.episodeKey(); ae != be {
		return ae < be
	}
	return a.SourcePath < b.SourcePath
}

func (p Parsed) seasonKey() int {
	if p.Kind() == KindNumbered {
		return p.Season
	}
	return 0
}

func (p Parsed) episodeKey() int64 {
	if p.Kind() == KindDated {
		return p.AirDate.Unix()
	}
	if len(p.EpisodeNumbers) == 0 {
		return 0
	}
	return int64(p.EpisodeNumbers[0])
}
