package blobstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"voicecollect/internal/audio"
	"voicecollect/internal/config"
	"voicecollect/internal/logging"
	"voicecollect/internal/services"
)

const component = "blobstore"

// Object identifies a stored clip.
type Object struct {
	// AudioRef is the URL handed back to clients and exported.
	AudioRef string
	// StorageID is the backend key, used for reconciliation.
	StorageID string
}

// Store persists normalized audio. Each submission id maps to its own object;
// a repeated Put for the same id overwrites or skips, never duplicates.
type Store interface {
	Put(ctx context.Context, id string, clip audio.NormalizedAudio) (Object, error)
	Health(ctx context.Context) error
	Name() string
}

// Clock returns the current time; key date buckets come from it.
type Clock func() time.Time

// Key builds the object key for submission id.
func Key(prefix string, now time.Time, id string, clip audio.NormalizedAudio) string {
	ext := strings.TrimPrefix(clip.Extension, ".")
	if ext == "" {
		ext = "bin"
	}
	now = now.UTC()
	name := fmt.Sprintf("%s.%s", id, ext)
	return path.Join(strings.Trim(prefix, "/"), fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), name)
}

// New builds the configured backend wrapped in the configured retry policy.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("blobstore: config is required")
	}
	logger = logging.NewComponentLogger(logger, component)
	var (
		backend Store
		err     error
	)
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		backend, err = NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, cfg.Storage.Prefix)
	case config.StorageS3:
		backend, err = NewS3(ctx, cfg.Storage.S3, cfg.Storage.PublicBaseURL, cfg.Storage.Prefix)
	default:
		err = fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(backend,
		cfg.Storage.RetryAttempts,
		time.Duration(cfg.Storage.RetryBackoffMillis)*time.Millisecond,
		time.Duration(cfg.Storage.RetryMaxBackoffMilli)*time.Millisecond,
		logger,
	), nil
}

func validateClip(id string, clip audio.NormalizedAudio) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\.") {
		return permanent(services.Wrap(services.ErrStorageFailed, component, "put", "object id is missing or malformed", nil))
	}
	if len(clip.Data) == 0 {
		return permanent(services.Wrap(services.ErrStorageFailed, component, "put", "clip is empty", nil))
	}
	if len(clip.Checksum) != 64 {
		return permanent(services.Wrap(services.ErrStorageFailed, component, "put", "clip checksum missing", nil))
	}
	return nil
}

func storageError(operation, message string, err error) error {
	return services.Wrap(services.ErrStorageFailed, component, operation, message, err)
}
