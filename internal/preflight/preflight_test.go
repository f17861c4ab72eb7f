package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicecollect/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type fakeBlobs struct{ err error }

func (f fakeBlobs) Health(context.Context) error { return f.err }
func (fakeBlobs) Name() string                   { return "fake" }

func TestCheckDatabase(t *testing.T) {
	ok := CheckDatabase(context.Background(), "sqlite", pingFunc(func(context.Context) error { return nil }))
	if !ok.Passed || ok.Name != "Database (sqlite)" {
		t.Fatalf("unexpected result %#v", ok)
	}
	slow := CheckDatabase(context.Background(), "postgres", pingFunc(func(context.Context) error { return context.DeadlineExceeded }))
	if slow.Passed || slow.Detail != "check timed out" {
		t.Fatalf("unexpected result %#v", slow)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, Targets{})
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Storage.Backend = config.StorageLocal
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Audio.Transcode = config.TranscodeNative
	return &cfg
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := newConfig(t)
	results := RunAll(context.Background(), cfg, Targets{})
	// data, log and audio directories only
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestRunAll_ReportsTargetsAndMissingFFmpeg(t *testing.T) {
	cfg := newConfig(t)
	cfg.Audio.Transcode = config.TranscodeFFmpeg
	cfg.Audio.FFmpegBinary = "voicecollect-no-such-ffmpeg"
	cfg.Audio.FFprobeBinary = "voicecollect-no-such-ffprobe"

	results := RunAll(context.Background(), cfg, Targets{
		Database: pingFunc(func(context.Context) error { return nil }),
		Blobs:    fakeBlobs{err: errors.New("bucket missing")},
	})
	failed := Failed(results)
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"Blob store (fake)", "FFmpeg", "FFprobe"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q among failures, got %s", want, joined)
		}
	}
	if strings.Contains(joined, "Database") {
		t.Fatalf("database check should pass, failures: %s", joined)
	}
}
