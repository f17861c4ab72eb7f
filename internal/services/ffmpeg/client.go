package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// maxStderr bounds how much ffmpeg diagnostic output is kept for errors.
const maxStderr = 2048

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin []byte) (stdout []byte, stderr string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs an ffmpeg client. A zero timeout leaves runs bounded only
// by the caller's context.
func New(binary string, timeout time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{binary: binary, timeout: timeout, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary reports the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// TranscodeToWAV converts any ffmpeg-readable input into 16-bit PCM WAV at
// the given sample rate and channel count.
func (c *Client) TranscodeToWAV(ctx context.Context, input []byte, sampleRate, channels int) ([]byte, error) {
	if len(input) == 0 {
		return nil, errors.New("ffmpeg transcode: empty input")
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("ffmpeg transcode: invalid target %d Hz / %d ch", sampleRate, channels)
	}
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn", "-map", "0:a:0",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"-bitexact",
		"pipe:1",
	}
	stdout, stderr, err := c.exec.Run(runCtx, c.binary, args, input)
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg transcode: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg transcode: %w: %s", err, truncate(stderr))
	}
	if len(stdout) == 0 {
		return nil, fmt.Errorf("ffmpeg transcode: no output: %s", truncate(stderr))
	}
	return stdout, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[len(s)-maxStderr:]
	}
	return s
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}
