package discover

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"retitle/internal/config"
	"retitle/internal/logging"
)

// Finder resolves command-line path arguments to candidate media files. A
// file argument is taken as-is if it passes the filters; a directory argument
// is listed one level deep, or fully when recursive scanning is on. Unusable
// paths are logged and skipped rather than failing the batch.
type Finder struct {
	extensions []string
	blacklist  []blacklistRule
	recursive  bool
	logger     *slog.Logger
}

type blacklistRule struct {
	pattern  *regexp.Regexp
	match    string
	fullPath bool
}

// NewFinder builds a finder from the scan section of cfg.
func NewFinder(cfg *config.Config, logger *slog.Logger) (*Finder, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	finder := &Finder{
		recursive: cfg.Scan.Recursive,
		logger:    logging.NewComponentLogger(logger, "discover"),
	}
	for _, ext := range cfg.Scan.ValidExtensions {
		finder.extensions = append(finder.extensions, strings.TrimPrefix(ext, "."))
	}
	for _, entry := range cfg.Scan.Blacklist {
		rule := blacklistRule{match: entry.Match, fullPath: entry.FullPath}
		if entry.IsRegex {
			// Anchored so a pattern only matches from the start of the name.
			pattern, err := regexp.Compile("^(?:" + entry.Match + ")")
			if err != nil {
				return nil, fmt.Errorf("compile blacklist pattern %q: %w", entry.Match, err)
			}
			rule.pattern = pattern
		}
		finder.blacklist = append(finder.blacklist, rule)
	}
	return finder, nil
}

// Find expands the given arguments into a deduplicated, sorted list of
// absolute file paths that pass the extension and blacklist filters.
func (f *Finder) Find(paths []string) []string {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range paths {
		info, err := os.Stat(arg)
		switch {
		case err != nil:
			f.logger.Warn("invalid path", logging.String("path", arg), logging.Error(err))
		case info.IsDir():
			for _, found := range f.walk(arg) {
				add(found)
			}
		default:
			abs, err := filepath.Abs(arg)
			if err != nil {
				f.logger.Warn("invalid path", logging.String("path", arg), logging.Error(err))
				continue
			}
			if f.wanted(abs) {
				add(abs)
			}
		}
	}

	sort.Strings(files)
	return files
}

// walk lists dir, descending into subdirectories only in recursive mode.
// Unreadable directories are skipped with a log line, matching the per-path
// tolerance of Find.
func (f *Finder) walk(dir string) []string {
	var files []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		f.logger.Info("skipping inaccessible path", logging.String("path", dir), logging.Error(err))
		return files
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		// Stat follows symlinks so a linked directory is walked and a
		// linked file is considered.
		info, err := os.Stat(abs)
		if err != nil {
			f.logger.Info("skipping unreadable entry", logging.String("path", abs), logging.Error(err))
			continue
		}
		if info.IsDir() {
			if f.recursive {
				files = append(files, f.walk(abs)...)
			}
			continue
		}
		if f.wanted(abs) {
			files = append(files, abs)
		}
	}
	return files
}

func (f *Finder) wanted(path string) bool {
	return f.validExtension(path) && !f.blacklisted(path)
}

func (f *Finder) validExtension(path string) bool {
	if len(f.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, valid := range f.extensions {
		if strings.EqualFold(ext, valid) {
			return true
		}
	}
	return false
}

func (f *Finder) blacklisted(path string) bool {
	name := filepath.Base(path)
	for _, rule := range f.blacklist {
		target := name
		if rule.fullPath {
			target = path
		}
		if rule.pattern != nil {
			if rule.pattern.MatchString(target) {
				return true
			}
			continue
		}
		if strings.Contains(target, rule.match) {
			return true
		}
	}
	return false
}
