// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect probes a file on disk; InspectBytes pipes an upload held in memory
// through stdin so the normalizer never writes temporary files. Helper methods
// on Result expose the audio stream count, the primary audio stream, and
// container duration.
package ffprobe
