package episode

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"retitle/internal/config"
)

// ErrUnrecognized reports that no filename pattern matched.
var ErrUnrecognized = errors.New("unrecognized episode filename")

var (
	seasonEpisodeRangePattern = regexp.MustCompile(`(?i)(?:^|[\s._(\[-])s(\d{1,4})[\s._-]*e(\d{1,4})[\s._-]*(?:-|to)[\s._-]*e?(\d{1,4})`)
	seasonEpisodeListPattern  = regexp.MustCompile(`(?i)(?:^|[\s._(\[-])s(\d{1,4})((?:[\s._-]*e\d{1,4})+)`)
	crossRangePattern         = regexp.MustCompile(`(?i)(?:^|[\s._(\[-])(\d{1,2})x(\d{1,3})[\s._-]*-[\s._-]*(?:\d{1,2}x)?(\d{1,3})`)
	crossListPattern          = regexp.MustCompile(`(?i)(?:^|[\s._(\[-])(\d{1,2})x(\d{1,3})((?:x\d{1,3})*)`)
	wordySeasonPattern        = regexp.MustCompile(`(?i)(?:^|[\s._(\[-])s(?:eason)?[\s._-]*(\d{1,4})[\s._-]*e(?:p(?:isode)?)?[\s._-]*(\d{1,4})`)
	airDatePattern            = regexp.MustCompile(`(?:^|[\s._(\[-])((?:19|20)\d{2})[.\- ](\d{1,2})[.\- ](\d{1,2})`)
	bareEpisodePattern        = regexp.MustCompile(`(?i)(?:^|[\s._(\[-])ep?(?:isode)?[\s._-]?(\d{1,4})`)
)

var (
	groupPrefixPattern     = regexp.MustCompile(`^\[[^\]]*\]\s*`)
	dotBetweenWordsPattern = regexp.MustCompile(`(\D)\.(\D)`)
	dotAfterWordPattern    = regexp.MustCompile(`(\D)\.`)
	dotBeforeWordPattern   = regexp.MustCompile(`\.(\D)`)
	yearSuffixPattern      = regexp.MustCompile(`\s*[(\[](?:19|20)\d{2}[)\]].*$`)
	spaceRunPattern        = regexp.MustCompile(`\s{2,}`)
	digitRunPattern        = regexp.MustCompile(`\d{1,4}`)
)

// Parser extracts episode identities from media filenames.
type Parser struct {
	input []inputReplacement
}

type inputReplacement struct {
	pattern *regexp.Regexp
	match   string
	with    string
}

// NewParser builds a parser that applies the configured input filename
// replacements before pattern matching.
func NewParser(cfg *config.Config) (*Parser, error) {
	parser := &Parser{}
	if cfg == nil {
		return parser, nil
	}
	rules, err := compileInputReplacements(cfg.Rename.InputReplacements)
	if err != nil {
		return nil, err
	}
	parser.input = rules
	return parser, nil
}

// Parse extracts the series guess, season, episode numbers, or air date from
// the file's base name. The returned identity keeps the original name and
// extension; input replacements only affect pattern matching.
func (p *Parser) Parse(path string) (*Parsed, error) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := p.applyInput(strings.TrimSuffix(name, ext))

	found, ok := extractIdentity(stem)
	if !ok {
		if stem+ext != name {
			return nil, fmt.Errorf("%w: %s (with replacements: %s)", ErrUnrecognized, name, stem+ext)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, name)
	}

	return &Parsed{
		SourcePath:     path,
		SourceName:     name,
		Dir:            filepath.Dir(path),
		Ext:            ext,
		SeriesName:     cleanSeriesName(stem[:found.start]),
		Season:         found.season,
		HasSeason:      found.hasSeason,
		EpisodeNumbers: found.episodes,
		AirDate:        found.airDate,
	}, nil
}

func (p *Parser) applyInput(name string) string {
	for _, rule := range p.input {
		if rule.pattern != nil {
			name = rule.pattern.ReplaceAllString(name, rule.with)
			continue
		}
		name = strings.ReplaceAll(name, rule.match, rule.with)
	}
	return name
}

type identity struct {
	start     int
	season    int
	hasSeason bool
	episodes  []int
	airDate   time.Time
}

func extractIdentity(stem string) (identity, bool) {
	if loc := seasonEpisodeRangePattern.FindStringSubmatchIndex(stem); loc != nil {
		return identity{
			start:     loc[0],
			season:    groupInt(stem, loc, 1),
			hasSeason: true,
			episodes:  expandEpisodeRange(groupInt(stem, loc, 2), groupInt(stem, loc, 3)),
		}, true
	}
	if loc := seasonEpisodeListPattern.FindStringSubmatchIndex(stem); loc != nil {
		return identity{
			start:     loc[0],
			season:    groupInt(stem, loc, 1),
			hasSeason: true,
			episodes:  episodeNumbersIn(stem[loc[4]:loc[5]]),
		}, true
	}
	if loc := crossRangePattern.FindStringSubmatchIndex(stem); loc != nil {
		return identity{
			start:     loc[0],
			season:    groupInt(stem, loc, 1),
			hasSeason: true,
			episodes:  expandEpisodeRange(groupInt(stem, loc, 2), groupInt(stem, loc, 3)),
		}, true
	}
	if loc := crossListPattern.FindStringSubmatchIndex(stem); loc != nil {
		episodes := []int{groupInt(stem, loc, 2)}
		episodes = append(episodes, episodeNumbersIn(stem[loc[6]:loc[7]])...)
		sort.Ints(episodes)
		return identity{
			start:     loc[0],
			season:    groupInt(stem, loc, 1),
			hasSeason: true,
			episodes:  episodes,
		}, true
	}
	if loc := wordySeasonPattern.FindStringSubmatchIndex(stem); loc != nil {
		return identity{
			start:     loc[0],
			season:    groupInt(stem, loc, 1),
			hasSeason: true,
			episodes:  []int{groupInt(stem, loc, 2)},
		}, true
	}
	if loc := airDatePattern.FindStringSubmatchIndex(stem); loc != nil {
		if date, ok := airDateAt(stem, loc); ok {
			return identity{start: loc[0], airDate: date}, true
		}
	}
	if loc := bareEpisodePattern.FindStringSubmatchIndex(stem); loc != nil {
		return identity{start: loc[0], episodes: []int{groupInt(stem, loc, 1)}}, true
	}
	return identity{}, false
}

// cleanSeriesName turns the text before the matched episode marker into a
// searchable series name. Dots between non-digits become spaces so decimal
// numbers such as "1.0" survive, release-group prefixes and bracketed year
// suffixes are dropped, and separator residue is trimmed.
func cleanSeriesName(raw string) string {
	name := groupPrefixPattern.ReplaceAllString(raw, "")
	name = dotBetweenWordsPattern.ReplaceAllString(name, "$1 $2")
	name = dotAfterWordPattern.ReplaceAllString(name, "$1 ")
	name = dotBeforeWordPattern.ReplaceAllString(name, " $1")
	name = strings.ReplaceAll(name, "_", " ")
	name = yearSuffixPattern.ReplaceAllString(name, "")
	name = spaceRunPattern.ReplaceAllString(name, " ")
	return strings.TrimSpace(strings.TrimRight(name, " -(["))
}

func compileInputReplacements(rules []config.Replacement) ([]inputReplacement, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	compiled := make([]inputReplacement, 0, len(rules))
	for _, rule := range rules {
		entry := inputReplacement{match: rule.Match, with: rule.Replacement}
		if rule.IsRegex {
			pattern, err := regexp.Compile(rule.Match)
			if err != nil {
				return nil, fmt.Errorf("compile input replacement %q: %w", rule.Match, err)
			}
			entry.pattern = pattern
		}
		compiled = append(compiled, entry)
	}
	return compiled, nil
}

func groupInt(src string, loc []int, group int) int {
	start, end := loc[2*group], loc[2*group+1]
	if start < 0 {
		return 0
	}
	n, err := strconv.Atoi(src[start:end])
	if err != nil {
		return 0
	}
	return n
}

// expandEpisodeRange expands start..end inclusive. Spans wider than five are
// almost always a numeric episode title misread as a range, so only the first
// number is kept. Reversed bounds are swapped.
func expandEpisodeRange(start, end int) []int {
	if end-start > 5 {
		return []int{start}
	}
	if start > end {
		start, end = end, start
	}
	numbers := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}

func episodeNumbersIn(blob string) []int {
	runs := digitRunPattern.FindAllString(blob, -1)
	numbers := make([]int, 0, len(runs))
	for _, run := range runs {
		n, err := strconv.Atoi(run)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func airDateAt(src string, loc []int) (time.Time, bool) {
	year := groupInt(src, loc, 1)
	month := groupInt(src, loc, 2)
	day := groupInt(src, loc, 3)
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}
