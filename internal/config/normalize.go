package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeResolve()
	c.normalizeRename()
	if err := c.normalizeMove(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath()
	}
	if c.Paths.CachePath, err = expandPath(c.Paths.CachePath); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	c.Paths.LogFile = strings.TrimSpace(c.Paths.LogFile)
	if c.Paths.LogFile != "" {
		if c.Paths.LogFile, err = expandPath(c.Paths.LogFile); err != nil {
			return fmt.Errorf("paths.log_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeScan() {
	if len(c.Scan.ValidExtensions) > 0 {
		exts := make([]string, 0, len(c.Scan.ValidExtensions))
		seen := make(map[string]struct{}, len(c.Scan.ValidExtensions))
		for _, ext := range c.Scan.ValidExtensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			normalized = strings.TrimPrefix(normalized, ".")
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		c.Scan.ValidExtensions = exts
	}
	if len(c.Scan.Blacklist) > 0 {
		entries := make([]Blacklist, 0, len(c.Scan.Blacklist))
		for _, entry := range c.Scan.Blacklist {
			entry.Match = strings.TrimSpace(entry.Match)
			if entry.Match == "" {
				continue
			}
			entries = append(entries, entry)
		}
		c.Scan.Blacklist = entries
	}
}

func (c *Config) normalizeCatalog() error {
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("TVDB_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		}
	}
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	c.Catalog.Language = strings.TrimSpace(c.Catalog.Language)
	if c.Catalog.Language == "" {
		c.Catalog.Language = defaultCatalogLanguage
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogRequestTimeout
	}
	return nil
}

func (c *Config) normalizeResolve() {
	c.Resolve.Order = strings.ToLower(strings.TrimSpace(c.Resolve.Order))
	if c.Resolve.Order == "" {
		c.Resolve.Order = defaultOrder
	}
	c.Resolve.SkipBehaviour = strings.ToLower(strings.TrimSpace(c.Resolve.SkipBehaviour))
	if c.Resolve.SkipBehaviour == "" {
		c.Resolve.SkipBehaviour = defaultSkipBehaviour
	}
	if c.Resolve.RetryLimit <= 0 {
		c.Resolve.RetryLimit = defaultRetryLimit
	}
}

func (c *Config) normalizeRename() {
	c.Rename.Template = strings.TrimSpace(c.Rename.Template)
	if c.Rename.Template == "" {
		c.Rename.Template = defaultTemplate
	}
	c.Rename.TemplateNoTitle = strings.TrimSpace(c.Rename.TemplateNoTitle)
	if c.Rename.TemplateNoTitle == "" {
		c.Rename.TemplateNoTitle = defaultTemplateNoTitle
	}
	c.Rename.TemplateSeasonless = strings.TrimSpace(c.Rename.TemplateSeasonless)
	if c.Rename.TemplateSeasonless == "" {
		c.Rename.TemplateSeasonless = defaultTemplateSeasonless
	}
	c.Rename.TemplateSeasonlessNoTitle = strings.TrimSpace(c.Rename.TemplateSeasonlessNoTitle)
	if c.Rename.TemplateSeasonlessNoTitle == "" {
		c.Rename.TemplateSeasonlessNoTitle = defaultTemplateSeasonlessNoTitle
	}
	c.Rename.TemplateDated = strings.TrimSpace(c.Rename.TemplateDated)
	if c.Rename.TemplateDated == "" {
		c.Rename.TemplateDated = defaultTemplateDated
	}
	c.Rename.TemplateDatedNoTitle = strings.TrimSpace(c.Rename.TemplateDatedNoTitle)
	if c.Rename.TemplateDatedNoTitle == "" {
		c.Rename.TemplateDatedNoTitle = defaultTemplateDatedNoTitle
	}
	if c.Rename.TitleSeparator == "" {
		c.Rename.TitleSeparator = defaultTitleSeparator
	}
	if c.Rename.EpisodeSeparator == "" {
		c.Rename.EpisodeSeparator = defaultEpisodeSeparator
	}
	if c.Rename.CharacterReplacement == "" {
		c.Rename.CharacterReplacement = defaultCharacterReplacement
	}
}

func (c *Config) normalizeMove() error {
	var err error
	c.Move.Mode = strings.ToLower(strings.TrimSpace(c.Move.Mode))
	if c.Move.Mode == "" {
		c.Move.Mode = defaultMoveMode
	}
	c.Move.Destination = strings.TrimSpace(c.Move.Destination)
	if c.Move.Destination != "" {
		if c.Move.Destination, err = expandPath(c.Move.Destination); err != nil {
			return fmt.Errorf("move.destination: %w", err)
		}
	}
	c.Move.Template = strings.TrimSpace(c.Move.Template)
	if c.Move.Template == "" {
		c.Move.Template = defaultMoveTemplate
	}
	c.Move.TemplateDated = strings.TrimSpace(c.Move.TemplateDated)
	if c.Move.TemplateDated == "" {
		c.Move.TemplateDated = defaultMoveTemplateDated
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
