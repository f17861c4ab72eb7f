// Package services defines shared utilities consumed by the intake pipeline
// and its external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, phrase IDs, and contributor
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures with a
//     machine-distinguishable kind (InvalidMedia, NormalizationFailed,
//     StorageFailed, NotFound, Unavailable).
//   - Subpackages wrapping external tools (ffmpeg) so command execution stays
//     testable.
//
// Use these helpers when wiring new intake logic so operational behaviour
// (error reporting, observability, retries) stays uniform across the service.
package services
