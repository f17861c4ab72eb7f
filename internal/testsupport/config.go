package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"voicecollect/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It uses SQLite, local blob storage and the native normalizer so no external
// binaries or servers are needed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Database.Driver = config.DriverSQLite
	cfgVal.Database.SQLitePath = filepath.Join(base, "data", "voicecollect.db")
	cfgVal.Database.ConnectAttempts = 1
	cfgVal.Storage.Backend = config.StorageLocal
	cfgVal.Storage.LocalDir = filepath.Join(base, "audio")
	cfgVal.Storage.PublicBaseURL = "http://collector.test"
	cfgVal.Storage.RetryAttempts = 1
	cfgVal.Export.Dir = filepath.Join(base, "exports")
	cfgVal.Audio.Transcode = config.TranscodeNative

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithQuota sets the per-phrase sample quota.
func WithQuota(quota int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collection.Quota = quota
	}
}

// WithTranscode selects the normalizer strategy.
func WithTranscode(strategy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.Transcode = strategy
	}
}

// WithMaxUploadBytes overrides the upload size limit.
func WithMaxUploadBytes(limit int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collection.MaxUploadBytes = limit
	}
}

// WithStaticDir points paths.static_dir at <base>/static.
func WithStaticDir() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "static")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir static dir: %v", err)
		}
		b.cfg.Paths.StaticDir = dir
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
