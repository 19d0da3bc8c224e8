package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	sourceFileKey contextKey = "source_file"
	seriesKey     contextKey = "series"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSourceFile annotates context with the file currently being processed.
func WithSourceFile(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceFileKey, path)
}

// SourceFileFromContext returns the current source file path if present.
func SourceFileFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceFileKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSeries annotates context with the resolved or guessed series name.
func WithSeries(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, seriesKey, name)
}

// SeriesFromContext returns the series name if present.
func SeriesFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(seriesKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
