// Package preflight provides readiness checks for the filesystem paths,
// database, blob store and external binaries voicecollect depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to serve when a
//     required check fails.
//   - The CLI "voicecollect status" command renders the same results.
//
// Checks are gated by configuration: storage directories are only checked
// for the local backend, and ffmpeg only for the ffmpeg normalizer.
package preflight
