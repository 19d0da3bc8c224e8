package config

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateResolve(); err != nil {
		return err
	}
	if err := c.validateRename(); err != nil {
		return err
	}
	if err := c.validateMove(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	for _, entry := range c.Scan.Blacklist {
		if !entry.IsRegex {
			continue
		}
		if _, err := regexp.Compile(entry.Match); err != nil {
			return fmt.Errorf("scan.blacklist pattern %q: %w", entry.Match, err)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url must be set")
	}
	if _, err := language.Parse(c.Catalog.Language); err != nil {
		return fmt.Errorf("catalog.language %q is not a valid language tag: %w", c.Catalog.Language, err)
	}
	if c.Catalog.RequestTimeout <= 0 {
		return errors.New("catalog.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateResolve() error {
	switch c.Resolve.Order {
	case "aired", "dvd":
	default:
		return fmt.Errorf("resolve.order must be %q or %q, got %q", "aired", "dvd", c.Resolve.Order)
	}
	switch c.Resolve.SkipBehaviour {
	case "exit", "ask", "skip":
	default:
		return fmt.Errorf("resolve.skip_behaviour must be one of exit, ask, skip, got %q", c.Resolve.SkipBehaviour)
	}
	if c.Resolve.RetryLimit < 1 {
		return errors.New("resolve.retry_limit must be >= 1")
	}
	return nil
}

func (c *Config) validateRename() error {
	for key, value := range map[string]string{
		"rename.template":                     c.Rename.Template,
		"rename.template_no_title":            c.Rename.TemplateNoTitle,
		"rename.template_seasonless":          c.Rename.TemplateSeasonless,
		"rename.template_seasonless_no_title": c.Rename.TemplateSeasonlessNoTitle,
		"rename.template_dated":               c.Rename.TemplateDated,
		"rename.template_dated_no_title":      c.Rename.TemplateDatedNoTitle,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Rename.LowercaseFilenames && c.Rename.TitlecaseFilenames {
		return errors.New("rename.lowercase_filenames and rename.titlecase_filenames cannot both be true")
	}
	if err := validateReplacements("rename.input_replacements", c.Rename.InputReplacements); err != nil {
		return err
	}
	if err := validateReplacements("rename.output_replacements", c.Rename.OutputReplacements); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMove() error {
	switch c.Move.Mode {
	case "move", "copy", "symlink":
	default:
		return fmt.Errorf("move.mode must be one of move, copy, symlink, got %q", c.Move.Mode)
	}
	if c.Move.Enabled && c.Move.Destination == "" {
		return errors.New("move.destination must be set when move.enabled is true")
	}
	if c.Move.Only && !c.Move.Enabled {
		return errors.New("move.only requires move.enabled")
	}
	if c.Move.Enabled && c.Move.Template == "" {
		return errors.New("move.template must be set when move.enabled is true")
	}
	return nil
}

func validateReplacements(key string, replacements []Replacement) error {
	for _, replacement := range replacements {
		if replacement.Match == "" {
			return fmt.Errorf("%s entries must set match", key)
		}
		if !replacement.IsRegex {
			continue
		}
		if _, err := regexp.Compile(replacement.Match); err != nil {
			return fmt.Errorf("%s pattern %q: %w", key, replacement.Match, err)
		}
	}
	return nil
}
