// Package ffmpeg wraps the ffmpeg CLI for in-memory audio transcoding.
//
// The client feeds the upload through stdin and reads 16-bit PCM WAV from
// stdout, so nothing touches disk. Command execution sits behind the Executor
// interface so tests can substitute canned output.
package ffmpeg
