// Package naming renders destination filenames and library directories from
// resolved episodes.
//
// Templates use {Token} placeholders with optional zero-pad formats, e.g.
// "{Series Title} - S{Season:00}E{Episode:00} - {Episode Title}". A template
// is picked per episode kind (numbered, seasonless, dated) with a no-title
// fallback when the catalog record lacks an episode title. Rendered names
// pass through the configured casing options and output replacements, then a
// sanitization step that keeps names portable: characters unsafe on any
// mainstream filesystem are replaced, Windows reserved device names and
// leading dots are prefixed, and stem plus extension is clamped to 254 bytes.
package naming
