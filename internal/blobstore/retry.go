package blobstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voicecollect/internal/audio"
	"voicecollect/internal/logging"
)

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// permanent marks err as not worth retrying.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type retryStore struct {
	Store
	attempts   int
	initial    time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
}

// WithRetry retries failed puts with bounded exponential backoff. Every
// attempt reuses the submission id, so repeating a put is safe.
func WithRetry(store Store, attempts int, initial, maxBackoff time.Duration, logger *slog.Logger) Store {
	if attempts <= 1 {
		return store
	}
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if maxBackoff < initial {
		maxBackoff = initial
	}
	return &retryStore{
		Store:      store,
		attempts:   attempts,
		initial:    initial,
		maxBackoff: maxBackoff,
		logger:     logging.NewComponentLogger(logger, component),
	}
}

// Unwrap exposes the backend, e.g. to find the local root.
func (r *retryStore) Unwrap() Store { return r.Store }

func (r *retryStore) Put(ctx context.Context, id string, clip audio.NormalizedAudio) (Object, error) {
	delay := r.initial
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		obj, err := r.Store.Put(ctx, id, clip)
		if err == nil {
			return obj, nil
		}
		lastErr = err
		if isPermanent(err) || attempt == r.attempts || ctx.Err() != nil {
			break
		}
		logging.WarnWithContext(r.logger, "blob put failed; retrying", "blob_put_retry",
			logging.String("backend", r.Store.Name()),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", r.attempts),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Object{}, storageError("put", "retry abandoned", errors.Join(lastErr, ctx.Err()))
		}
		delay *= 2
		if delay > r.maxBackoff {
			delay = r.maxBackoff
		}
	}
	return Object{}, lastErr
}

// LocalRoot returns the served directory when store is, or wraps, a Local backend.
func LocalRoot(store Store) (string, bool) {
	for store != nil {
		switch s := store.(type) {
		case *Local:
			return s.Root(), true
		case interface{ Unwrap() Store }:
			store = s.Unwrap()
		default:
			return "", false
		}
	}
	return "", false
}
