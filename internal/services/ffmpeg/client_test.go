package ffmpeg_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"voicecollect/internal/services/ffmpeg"
)

type fakeExecutor struct {
	args   []string
	stdin  []byte
	stdout []byte
	stderr string
	err    error
	block  bool
}

func (f *fakeExecutor) Run(ctx context.Context, _ string, args []string, stdin []byte) ([]byte, string, error) {
	f.args = args
	f.stdin = stdin
	if f.block {
		<-ctx.Done()
		return nil, "", errors.New("signal: killed")
	}
	return f.stdout, f.stderr, f.err
}

func TestTranscodeToWAVBuildsArguments(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte("RIFF....WAVE")}
	client, err := ffmpeg.New("ffmpeg", time.Second, ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := client.TranscodeToWAV(context.Background(), []byte("OggS"), 16000, 1)
	if err != nil {
		t.Fatalf("TranscodeToWAV: %v", err)
	}
	if string(out) != "RIFF....WAVE" {
		t.Fatalf("unexpected output %q", out)
	}
	if string(exec.stdin) != "OggS" {
		t.Fatalf("expected input piped on stdin, got %q", exec.stdin)
	}
	joined := strings.Join(exec.args, " ")
	for _, want := range []string{"-ac 1", "-ar 16000", "-c:a pcm_s16le", "-f wav", "-i pipe:0"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
	if exec.args[len(exec.args)-1] != "pipe:1" {
		t.Fatalf("expected stdout output target, got %v", exec.args)
	}
	if !slices.Contains(exec.args, "-nostdin") {
		t.Fatal("expected -nostdin")
	}
}

func TestTranscodeToWAVReportsStderr(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1"), stderr: "Invalid data found when processing input"}
	client, _ := ffmpeg.New("ffmpeg", 0, ffmpeg.WithExecutor(exec))
	_, err := client.TranscodeToWAV(context.Background(), []byte("junk"), 16000, 1)
	if err == nil || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestTranscodeToWAVHonoursTimeout(t *testing.T) {
	exec := &fakeExecutor{block: true}
	client, _ := ffmpeg.New("ffmpeg", 20*time.Millisecond, ffmpeg.WithExecutor(exec))
	_, err := client.TranscodeToWAV(context.Background(), []byte("junk"), 16000, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ffmpeg.New("  ", 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
