package resolve

import (
	"fmt"

	"retitle/internal/episode"
)

// Kind classifies why a catalog resolution attempt failed. The retry machine
// branches on it: missing-series and transport failures can prompt for a
// corrected name, while season and episode misses only ever warn or skip.
type Kind int

const (
	// KindShowNotFound means no series matched the guess, hint, or forced name.
	KindShowNotFound Kind = iota + 1
	// KindSeasonNotFound means the series matched but has no such season.
	KindSeasonNotFound
	// KindEpisodeNotFound means the season exists but lacks a requested number
	// or air date.
	KindEpisodeNotFound
	// KindEpisodeNameNotFound means the episode exists but carries no title.
	KindEpisodeNameNotFound
	// KindDataRetrieval covers transport and catalog-service failures where no
	// identity judgement was possible.
	KindDataRetrieval
)

func (k Kind) String() string {
	switch k {
	case KindShowNotFound:
		return "show not found"
	case KindSeasonNotFound:
		return "season not found"
	case KindEpisodeNotFound:
		return "episode not found"
	case KindEpisodeNameNotFound:
		return "episode name not found"
	case KindDataRetrieval:
		return "data retrieval failed"
	default:
		return "unknown"
	}
}

// Error is a classified resolution failure. Episode carries whatever partial
// identity was established before the failure, so lenient error handling can
// still rename with a confirmed series name and no episode title.
type Error struct {
	Kind    Kind
	Message string
	Episode *episode.Resolved
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, partial *episode.Resolved, cause error) *Error {
	return &Error{Kind: kind, Message: message, Episode: partial, Err: cause}
}
