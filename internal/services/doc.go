// Package services defines shared utilities consumed by the rename pipeline
// and the catalog integration.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, source file paths, and
//     series names for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (recoverable vs fatal vs user abort) uniform across
//     the pipeline.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
