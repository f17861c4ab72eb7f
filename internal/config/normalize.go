package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeCollection()
	c.normalizeAudio()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizeExport(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StaticDir, err = expandPath(strings.TrimSpace(c.Paths.StaticDir)); err != nil {
		return fmt.Errorf("paths.static_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if port, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(port) != "" && c.Paths.APIBind == defaultAPIBind {
		c.Paths.APIBind = "0.0.0.0:" + strings.TrimSpace(port)
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	if c.Database.DSN == "" {
		if value, ok := os.LookupEnv("VOICECOLLECT_DATABASE_DSN"); ok {
			c.Database.DSN = value
		} else if value, ok := os.LookupEnv("DATABASE_URL"); ok {
			c.Database.DSN = value
		}
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pgx", "pg":
		c.Database.Driver = DriverPostgres
	}

	var err error
	if strings.TrimSpace(c.Database.SQLitePath) == "" {
		c.Database.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteName)
	}
	if c.Database.SQLitePath, err = expandPath(c.Database.SQLitePath); err != nil {
		return fmt.Errorf("database.sqlite_path: %w", err)
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Database.ConnectAttempts <= 0 {
		c.Database.ConnectAttempts = defaultConnectAttempts
	}
	if c.Database.ConnectInitialBackoffMillis <= 0 {
		c.Database.ConnectInitialBackoffMillis = defaultConnectInitialBackoffMillis
	}
	if c.Database.ConnectMaxBackoffMillis <= 0 {
		c.Database.ConnectMaxBackoffMillis = defaultConnectMaxBackoffMillis
	}
	if c.Database.CommitTimeoutSeconds <= 0 {
		c.Database.CommitTimeoutSeconds = defaultCommitTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeCollection() {
	if value, ok := os.LookupEnv("PHRASE_QUOTA"); ok {
		if quota, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Collection.Quota = quota
		}
	}
	if c.Collection.MaxUploadBytes == 0 {
		c.Collection.MaxUploadBytes = defaultMaxUploadBytes
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Transcode = strings.ToLower(strings.TrimSpace(c.Audio.Transcode))
	if c.Audio.Transcode == "" {
		c.Audio.Transcode = defaultTranscode
	}
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	c.Audio.FFprobeBinary = strings.TrimSpace(c.Audio.FFprobeBinary)
	if c.Audio.FFprobeBinary == "" {
		c.Audio.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = defaultChannels
	}
	if c.Audio.TimeoutSeconds <= 0 {
		c.Audio.TimeoutSeconds = defaultAudioTimeoutSeconds
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	var err error
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = filepath.Join(c.Paths.DataDir, "audio")
	}
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.PublicBaseURL == "" && c.Storage.Backend == StorageLocal {
		c.Storage.PublicBaseURL = "http://" + c.Paths.APIBind
	}
	if c.Storage.TimeoutSeconds <= 0 {
		c.Storage.TimeoutSeconds = defaultStorageTimeoutSeconds
	}
	if c.Storage.RetryAttempts <= 0 {
		c.Storage.RetryAttempts = defaultStorageRetryAttempts
	}
	if c.Storage.RetryBackoffMillis <= 0 {
		c.Storage.RetryBackoffMillis = defaultStorageRetryBackoffMillis
	}
	if c.Storage.RetryMaxBackoffMilli <= 0 {
		c.Storage.RetryMaxBackoffMilli = defaultStorageRetryMaxBackoffMilli
	}

	s3 := &c.Storage.S3
	s3.Endpoint = strings.TrimSpace(s3.Endpoint)
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.Region = strings.TrimSpace(s3.Region)
	s3.AccessKey = strings.TrimSpace(s3.AccessKey)
	if s3.AccessKey == "" {
		s3.AccessKey = firstEnv("VOICECOLLECT_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	}
	s3.SecretKey = strings.TrimSpace(s3.SecretKey)
	if s3.SecretKey == "" {
		s3.SecretKey = firstEnv("VOICECOLLECT_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	}
	return nil
}

func (c *Config) normalizeExport() error {
	var err error
	if strings.TrimSpace(c.Export.Dir) == "" {
		c.Export.Dir = filepath.Join(c.Paths.DataDir, "exports")
	}
	if c.Export.Dir, err = expandPath(c.Export.Dir); err != nil {
		return fmt.Errorf("export.dir: %w", err)
	}
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	if c.Export.Format == "" {
		c.Export.Format = defaultExportFormat
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
