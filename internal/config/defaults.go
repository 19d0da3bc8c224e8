package config

const (
	defaultCatalogBaseURL        = "https://api4.thetvdb.com/v4"
	defaultCatalogLanguage       = "en"
	defaultCatalogRequestTimeout = 10
	defaultOrder                 = "aired"
	defaultRetryLimit            = 1
	defaultSkipBehaviour         = "skip"
	defaultTitleSeparator        = ", "
	defaultEpisodeSeparator      = "E"
	defaultCharacterReplacement  = "_"
	defaultMoveMode              = "move"
	defaultMoveTemplate          = "{Series Title}/Season {Season}"
	defaultMoveTemplateDated     = "{Series Title}"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	defaultTemplate                  = "{Series Title} - S{Season:00}E{Episode:00} - {Episode Title}"
	defaultTemplateNoTitle           = "{Series Title} - S{Season:00}E{Episode:00}"
	defaultTemplateSeasonless        = "{Series Title} - E{Episode:00} - {Episode Title}"
	defaultTemplateSeasonlessNoTitle = "{Series Title} - E{Episode:00}"
	defaultTemplateDated             = "{Series Title} - {Air Date} - {Episode Title}"
	defaultTemplateDatedNoTitle      = "{Series Title} - {Air Date}"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CachePath: defaultCachePath(),
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			Language:       defaultCatalogLanguage,
			RequestTimeout: defaultCatalogRequestTimeout,
		},
		Resolve: Resolve{
			Order:         defaultOrder,
			RetryLimit:    defaultRetryLimit,
			SkipBehaviour: defaultSkipBehaviour,
			Remember:      true,
		},
		Rename: Rename{
			Template:                  defaultTemplate,
			TemplateNoTitle:           defaultTemplateNoTitle,
			TemplateSeasonless:        defaultTemplateSeasonless,
			TemplateSeasonlessNoTitle: defaultTemplateSeasonlessNoTitle,
			TemplateDated:             defaultTemplateDated,
			TemplateDatedNoTitle:      defaultTemplateDatedNoTitle,
			TitleSeparator:            defaultTitleSeparator,
			EpisodeSeparator:          defaultEpisodeSeparator,
			CharacterReplacement:      defaultCharacterReplacement,
		},
		Move: Move{
			Mode:          defaultMoveMode,
			Template:      defaultMoveTemplate,
			TemplateDated: defaultMoveTemplateDated,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
