// Package episode models episode identities as they move through the rename
// pipeline.
//
// Parse extracts a best-effort identity from a media filename: a series-name
// guess plus season and episode numbers, or an air date for date-keyed shows.
// Patterns are tried from most to least specific (S01E02 ranges and lists,
// 1x02 forms, verbose "Season 1 Episode 2", air dates, bare episode markers)
// and the text before the first match becomes the series guess. Resolved adds
// the catalog's authoritative series id, name, and episode titles to a parsed
// identity once a lookup succeeds.
package episode
