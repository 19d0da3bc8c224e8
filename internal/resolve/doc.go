// Package resolve turns filename guesses into catalog-confirmed episode
// identities.
//
// The Resolver performs a single lookup: it confirms the series (by explicit
// id, by remembered id, or by name search with optional interactive
// selection) and then fetches episode titles by season and number or by air
// date. Failures are classified (*Error) by what exactly was missing.
//
// The Machine wraps the resolver in the bounded retry loop that gives the
// tool its interactive feel. Missing-series and transport failures follow the
// configured skip behaviour (exit the batch, ask for a corrected name, or
// skip the file); season and episode misses either skip or degrade to a
// titleless rename depending on how strict the run is. A substantial
// corrected name entered at the ask prompt earns one extra pass.
//
// Confirmed identities are written to the decision cache on the way out so
// later runs over the same files resolve without prompting or searching.
package resolve
