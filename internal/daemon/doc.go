// Package daemon coordinates the long-running voicecollect process.
//
// It wires the phrase repository, submission recorder, blob store and export
// reporter into a single HTTP API with flock-based locking to prevent
// multiple instances against the same data directory. The daemon owns the
// PID file, request IDs, per-route metrics and the mapping from error kinds
// onto HTTP status codes.
//
// Keep orchestration logic here: collection semantics live in phrases and
// recorder while the daemon focuses on startup, shutdown and transport.
package daemon
