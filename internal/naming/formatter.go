package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"retitle/internal/config"
	"retitle/internal/episode"
)

// tokenPattern matches template tokens like {Token} or {Token:format}.
var tokenPattern = regexp.MustCompile(`\{([^}:]+)(?::([^}]+))?\}`)

// partTitlePattern matches multi-part episode titles such as "Pilot (2)".
var partTitlePattern = regexp.MustCompile(`^(.+) \((\d+)\)$`)

// Formatter renders destination filenames and library directories for
// resolved episodes. Templates use {Token} or {Token:format} placeholders;
// a format of "00" zero-pads numbers to the format's width.
//
// Filename tokens: {Series Title}, {Season}, {Episode} (multi-episode numbers
// joined by rename.episode_separator), {Episode Title} (multiple titles
// joined by rename.title_separator), {Air Date}, {Original Name}. Directory
// templates additionally take {Year}, {Month}, {Day} for dated episodes.
type Formatter struct {
	rename config.Rename
	move   config.Move
	output []replacement
}

type replacement struct {
	pattern *regexp.Regexp
	match   string
	with    string
}

// NewFormatter compiles the configured output replacements and returns a
// formatter bound to the rename and move sections of cfg.
func NewFormatter(cfg *config.Config) (*Formatter, error) {
	formatter := &Formatter{rename: cfg.Rename, move: cfg.Move}
	rules, err := compileReplacements(cfg.Rename.OutputReplacements)
	if err != nil {
		return nil, err
	}
	formatter.output = rules
	return formatter, nil
}

// Format renders the destination filename for a resolved episode, extension
// included. The template is chosen by episode kind and title presence, then
// casing options, output replacements, and filesystem sanitization apply.
func (f *Formatter) Format(ep episode.Resolved) string {
	return f.render(ep, true)
}

// BeforeReplacements renders the name with the output replacements withheld,
// so callers can show what the configured replacements changed.
func (f *Formatter) BeforeReplacements(ep episode.Resolved) string {
	return f.render(ep, false)
}

// MoveDirectory renders the relative library directory for the post-rename
// move step. Text tokens are sanitized individually so a series name cannot
// introduce path separators; separators in the template itself are kept.
func (f *Formatter) MoveDirectory(ep episode.Resolved) string {
	template := f.move.Template
	if ep.Kind() == episode.KindDated && f.move.TemplateDated != "" {
		template = f.move.TemplateDated
	}
	rendered := renderTemplate(template, func(token, format string) string {
		value := f.resolveToken(token, format, ep)
		switch strings.ToLower(token) {
		case "series title", "series", "episode title", "title", "original name":
			value = sanitizeStem(value, f.rename.CharacterBlacklist, f.rename.CharacterReplacement)
		}
		return value
	})
	return filepath.FromSlash(strings.Trim(rendered, "/"))
}

// WithVariant inserts a copy marker before the extension, producing
// "name (2).mkv" from "name.mkv".
func WithVariant(name string, n int) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", stem, n, ext)
}

func (f *Formatter) render(ep episode.Resolved, withReplacements bool) string {
	stem := renderTemplate(f.template(ep), func(token, format string) string {
		return f.resolveToken(token, format, ep)
	})
	ext := ep.Ext

	if f.rename.TitlecaseFilenames {
		// NoLower keeps "S01E04" intact; only word-initial letters change.
		stem = cases.Title(language.Und, cases.NoLower).String(stem)
	}
	if f.rename.LowercaseFilenames {
		stem = strings.ToLower(stem)
		ext = strings.ToLower(ext)
	}
	if withReplacements {
		stem = f.applyReplacements(stem)
	}
	if f.rename.NormalizeUnicode {
		stem = foldToASCII(stem)
	}
	stem = sanitizeStem(stem, f.rename.CharacterBlacklist, f.rename.CharacterReplacement)
	stem, ext = clampLength(stem, ext)
	return stem + ext
}

// template picks the filename template for the episode's kind, falling back
// to the no-title variant when the catalog had no usable episode title.
func (f *Formatter) template(ep episode.Resolved) string {
	titled := hasTitles(ep.EpisodeTitles)
	switch ep.Kind() {
	case episode.KindDated:
		if titled {
			return f.rename.TemplateDated
		}
		return f.rename.TemplateDatedNoTitle
	case episode.KindSeasonless:
		if titled {
			return f.rename.TemplateSeasonless
		}
		return f.rename.TemplateSeasonlessNoTitle
	default:
		if titled {
			return f.rename.Template
		}
		return f.rename.TemplateNoTitle
	}
}

func (f *Formatter) resolveToken(token, format string, ep episode.Resolved) string {
	switch strings.ToLower(token) {
	case "series title", "series":
		if ep.SeriesName != "" {
			return ep.SeriesName
		}
		return ep.Parsed.SeriesName
	case "season":
		return formatNumber(ep.Season, format)
	case "episode":
		return f.episodeNumbers(ep, format)
	case "episode title", "title":
		return f.episodeTitle(ep)
	case "air date", "date":
		if ep.AirDate.IsZero() {
			return ""
		}
		return ep.AirDate.Format("2006-01-02")
	case "original name":
		return strings.TrimSuffix(ep.SourceName, ep.Ext)
	case "year":
		if ep.AirDate.IsZero() {
			return ""
		}
		return formatNumber(ep.AirDate.Year(), format)
	case "month":
		if ep.AirDate.IsZero() {
			return ""
		}
		return formatNumber(int(ep.AirDate.Month()), format)
	case "day":
		if ep.AirDate.IsZero() {
			return ""
		}
		return formatNumber(ep.AirDate.Day(), format)
	}
	return ""
}

// episodeNumbers renders the episode number list. Multi-episode files join
// the formatted numbers with the configured episode separator, so the default
// "S{Season:00}E{Episode:00}" template yields "S01E01E02".
func (f *Formatter) episodeNumbers(ep episode.Resolved, format string) string {
	if len(ep.EpisodeNumbers) == 1 {
		return formatNumber(ep.EpisodeNumbers[0], format)
	}
	parts := make([]string, 0, len(ep.EpisodeNumbers))
	for _, number := range ep.EpisodeNumbers {
		parts = append(parts, formatNumber(number, format))
	}
	return strings.Join(parts, f.rename.EpisodeSeparator)
}

// episodeTitle joins multiple titles with the configured separator. Titles
// that are parts of one story, such as "Pilot (1)" and "Pilot (2)", collapse
// to "Pilot (1-2)".
func (f *Formatter) episodeTitle(ep episode.Resolved) string {
	titles := ep.EpisodeTitles
	switch len(titles) {
	case 0:
		return ""
	case 1:
		return titles[0]
	}

	stem := ""
	low, high := 0, 0
	for _, title := range titles {
		m := partTitlePattern.FindStringSubmatch(title)
		if m == nil || (stem != "" && m[1] != stem) {
			return strings.Join(titles, f.rename.TitleSeparator)
		}
		stem = m[1]
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return strings.Join(titles, f.rename.TitleSeparator)
		}
		if low == 0 || n < low {
			low = n
		}
		if n > high {
			high = n
		}
	}
	return fmt.Sprintf("%s (%d-%d)", stem, low, high)
}

func (f *Formatter) applyReplacements(name string) string {
	for _, rule := range f.output {
		if rule.pattern != nil {
			name = rule.pattern.ReplaceAllString(name, rule.with)
			continue
		}
		name = strings.ReplaceAll(name, rule.match, rule.with)
	}
	return name
}

func renderTemplate(template string, resolve func(token, format string) string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := tokenPattern.FindStringSubmatch(match)
		if len(sub) < 3 {
			return match
		}
		return resolve(sub[1], sub[2])
	})
}

// formatNumber pads n to the format's width when the format starts with a
// zero, matching tokens like {Season:00}.
func formatNumber(n int, format string) string {
	if format != "" && format[0] == '0' {
		return fmt.Sprintf("%0*d", len(format), n)
	}
	return strconv.Itoa(n)
}

func hasTitles(titles []string) bool {
	for _, title := range titles {
		if strings.TrimSpace(title) != "" {
			return true
		}
	}
	return false
}

func compileReplacements(rules []config.Replacement) ([]replacement, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	compiled := make([]replacement, 0, len(rules))
	for _, rule := range rules {
		entry := replacement{match: rule.Match, with: rule.Replacement}
		if rule.IsRegex {
			pattern, err := regexp.Compile(rule.Match)
			if err != nil {
				return nil, fmt.Errorf("compile output replacement %q: %w", rule.Match, err)
			}
			entry.pattern = pattern
		}
		compiled = append(compiled, entry)
	}
	return compiled, nil
}
