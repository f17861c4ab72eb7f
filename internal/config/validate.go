package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateCollection(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return errors.New("database.sqlite_path must be set when database.driver is sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("database.dsn is required for postgres. Set DATABASE_URL or edit %s (create with 'voicecollect config init')", defaultPath)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.ConnectInitialBackoffMillis > c.Database.ConnectMaxBackoffMillis {
		return errors.New("database.connect_initial_backoff_ms must not exceed database.connect_max_backoff_ms")
	}
	return nil
}

func (c *Config) validateCollection() error {
	if c.Collection.Quota <= 0 {
		return errors.New("collection.quota must be positive")
	}
	if c.Collection.MaxUploadBytes <= 0 {
		return errors.New("collection.max_upload_bytes must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.Transcode {
	case TranscodeFFmpeg, TranscodeNative, TranscodeNone:
	default:
		return fmt.Errorf("audio.transcode must be one of ffmpeg, native, none; got %q", c.Audio.Transcode)
	}
	if err := ensurePositiveMap(map[string]int{
		"audio.sample_rate":     c.Audio.SampleRate,
		"audio.channels":        c.Audio.Channels,
		"audio.timeout_seconds": c.Audio.TimeoutSeconds,
	}); err != nil {
		return err
	}
	// Stored clips are mono; the native path can only downmix.
	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels must be 1; got %d", c.Audio.Channels)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return errors.New("storage.local_dir must be set when storage.backend is local")
		}
	case StorageS3:
		if c.Storage.S3.Endpoint == "" {
			return errors.New("storage.s3.endpoint must be set when storage.backend is s3")
		}
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket must be set when storage.backend is s3")
		}
		if c.Storage.S3.AccessKey == "" || c.Storage.S3.SecretKey == "" {
			return errors.New("storage.s3.access_key and storage.s3.secret_key must be set (or export VOICECOLLECT_S3_ACCESS_KEY / VOICECOLLECT_S3_SECRET_KEY)")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageLocal, StorageS3, c.Storage.Backend)
	}
	if c.Storage.RetryBackoffMillis > c.Storage.RetryMaxBackoffMilli {
		return errors.New("storage.retry_backoff_ms must not exceed storage.retry_max_backoff_ms")
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Format {
	case "xlsx", "csv":
		return nil
	default:
		return fmt.Errorf("export.format must be xlsx or csv, got %q", c.Export.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
