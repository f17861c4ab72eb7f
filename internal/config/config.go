package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	StaticDir string `toml:"static_dir"`
	APIBind   string `toml:"api_bind"`
}

// Database selects and tunes the phrase/submission backing store.
type Database struct {
	// Driver is either "sqlite" or "postgres".
	Driver       string `toml:"driver"`
	SQLitePath   string `toml:"sqlite_path"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	// Startup connection attempts use bounded exponential backoff.
	ConnectAttempts             int `toml:"connect_attempts"`
	ConnectInitialBackoffMillis int `toml:"connect_initial_backoff_ms"`
	ConnectMaxBackoffMillis     int `toml:"connect_max_backoff_ms"`
	CommitTimeoutSeconds        int `toml:"commit_timeout_seconds"`
}

// Collection contains the phrase distribution policy.
type Collection struct {
	Quota          int   `toml:"quota"`
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// Audio contains configuration for the ingestion normalizer.
type Audio struct {
	// Transcode is one of "ffmpeg", "native", or "none".
	Transcode      string `toml:"transcode"`
	SampleRate     int    `toml:"sample_rate"`
	Channels       int    `toml:"channels"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// S3 contains configuration for an S3-compatible object store.
type S3 struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Storage contains configuration for the audio blob store.
type Storage struct {
	// Backend is either "local" or "s3".
	Backend              string `toml:"backend"`
	LocalDir             string `toml:"local_dir"`
	PublicBaseURL        string `toml:"public_base_url"`
	Prefix               string `toml:"prefix"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	RetryAttempts        int    `toml:"retry_attempts"`
	RetryBackoffMillis   int    `toml:"retry_backoff_ms"`
	RetryMaxBackoffMilli int    `toml:"retry_max_backoff_ms"`
	S3                   S3     `toml:"s3"`
}

// Export contains configuration for the submission export.
type Export struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics toggles the Prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for voicecollect.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and static directories plus the API bind address
//   - Database: backend driver and connection policy
//   - Collection: per-phrase quota and upload size limit
//   - Audio: normalizer strategy and canonical encoding
//   - Storage: blob store backend and retry policy
//   - Export: default export destination and format
//   - Logging: log format, level, and retention
//   - Metrics: Prometheus endpoint toggle
type Config struct {
	Paths      Paths      `toml:"paths"`
	Database   Database   `toml:"database"`
	Collection Collection `toml:"collection"`
	Audio      Audio      `toml:"audio"`
	Storage    Storage    `toml:"storage"`
	Export     Export     `toml:"export"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env from the working directory. Existing environment
// variables win over file values.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voicecollect.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Export.Dir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	if c.Database.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Database.SQLitePath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "voicecollect.lock")
}

// ConnectPolicy returns the startup connection backoff parameters.
func (c *Config) ConnectPolicy() (attempts int, initial, max time.Duration) {
	return c.Database.ConnectAttempts,
		time.Duration(c.Database.ConnectInitialBackoffMillis) * time.Millisecond,
		time.Duration(c.Database.ConnectMaxBackoffMillis) * time.Millisecond
}

// CommitTimeout bounds the database commit that follows a successful blob write.
func (c *Config) CommitTimeout() time.Duration {
	return time.Duration(c.Database.CommitTimeoutSeconds) * time.Second
}

// StorageTimeout bounds a single blob store put including retries.
func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}

// AudioTimeout bounds a single transcoding run.
func (c *Config) AudioTimeout() time.Duration {
	return time.Duration(c.Audio.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
