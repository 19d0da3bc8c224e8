package logging

import (
	"context"
	"log/slog"

	"retitle/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldFile is the standardized structured logging key for the source file being processed.
	FieldFile = "file"
	// FieldSeries is the standardized structured logging key for series names.
	FieldSeries = "series"
	// FieldDestination is the standardized structured logging key for planned destination names.
	FieldDestination = "destination"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if path, ok := services.SourceFileFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFile, path))
	}
	if series, ok := services.SeriesFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSeries, series))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
