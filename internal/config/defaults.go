package config

const (
	defaultConfigPath                  = "~/.config/voicecollect/config.toml"
	defaultDataDir                     = "~/.local/share/voicecollect"
	defaultAPIBind                     = "127.0.0.1:3000"
	defaultDriver                      = DriverSQLite
	defaultSQLiteName                  = "voicecollect.db"
	defaultMaxOpenConns                = 8
	defaultConnectAttempts             = 10
	defaultConnectInitialBackoffMillis = 250
	defaultConnectMaxBackoffMillis     = 10_000
	defaultCommitTimeoutSeconds        = 10
	defaultQuota                       = 10
	defaultMaxUploadBytes              = 10 * 1024 * 1024
	defaultTranscode                   = TranscodeFFmpeg
	defaultSampleRate                  = 16000
	defaultChannels                    = 1
	defaultFFmpegBinary                = "ffmpeg"
	defaultFFprobeBinary               = "ffprobe"
	defaultAudioTimeoutSeconds         = 60
	defaultStorageBackend              = StorageLocal
	defaultStoragePrefix               = "voice_collectes"
	defaultStorageTimeoutSeconds       = 30
	defaultStorageRetryAttempts        = 3
	defaultStorageRetryBackoffMillis   = 200
	defaultStorageRetryMaxBackoffMilli = 2_000
	defaultExportFormat                = "xlsx"
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"
	defaultLogRetentionDays            = 30
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Normalizer strategies.
const (
	TranscodeFFmpeg = "ffmpeg"
	TranscodeNative = "native"
	TranscodeNone   = "none"
)

// Blob store backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		Database: Database{
			Driver:                      defaultDriver,
			MaxOpenConns:                defaultMaxOpenConns,
			ConnectAttempts:             defaultConnectAttempts,
			ConnectInitialBackoffMillis: defaultConnectInitialBackoffMillis,
			ConnectMaxBackoffMillis:     defaultConnectMaxBackoffMillis,
			CommitTimeoutSeconds:        defaultCommitTimeoutSeconds,
		},
		Collection: Collection{
			Quota:          defaultQuota,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Audio: Audio{
			Transcode:      defaultTranscode,
			SampleRate:     defaultSampleRate,
			Channels:       defaultChannels,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultAudioTimeoutSeconds,
		},
		Storage: Storage{
			Backend:              defaultStorageBackend,
			Prefix:               defaultStoragePrefix,
			TimeoutSeconds:       defaultStorageTimeoutSeconds,
			RetryAttempts:        defaultStorageRetryAttempts,
			RetryBackoffMillis:   defaultStorageRetryBackoffMillis,
			RetryMaxBackoffMilli: defaultStorageRetryMaxBackoffMilli,
			S3: S3{
				UseSSL: true,
			},
		},
		Export: Export{
			Format: defaultExportFormat,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}
