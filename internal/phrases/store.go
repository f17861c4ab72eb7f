package phrases

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"voicecollect/internal/config"
	"voicecollect/internal/logging"
	"voicecollect/internal/services"
)

const component = "phrases"

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// RandomSource returns a uniformly distributed integer in [0, n).
type RandomSource func(n int64) int64

// Store is the relational Repository implementation shared by both dialects.
type Store struct {
	db      *sql.DB
	dialect dialect
	quota   int64
	random  RandomSource
	logger  *slog.Logger
}

// Option customizes Store construction.
type Option func(*Store)

// WithLogger attaches a logger; the store logs with component "phrases".
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.NewComponentLogger(logger, component) }
}

// WithRandomSource overrides the selection randomness, mainly for tests.
func WithRandomSource(source RandomSource) Option {
	return func(s *Store) {
		if source != nil {
			s.random = source
		}
	}
}

// Open connects to the configured database with bounded exponential backoff,
// creates or verifies the schema and returns a ready Store.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("phrases: config is required")
	}
	d, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	store := &Store{
		dialect: d,
		quota:   int64(cfg.Collection.Quota),
		random:  rand.Int64N,
		logger:  logging.NewComponentLogger(nil, component),
	}
	for _, opt := range opts {
		opt(store)
	}

	dsn := cfg.Database.DSN
	if d.name == config.DriverSQLite {
		dsn = sqliteDSN(cfg.Database.SQLitePath)
	}
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, component, "open", "open database handle", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	attempts, initial, maxBackoff := cfg.ConnectPolicy()
	if err := connectWithBackoff(ctx, db, attempts, initial, maxBackoff, store.logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	store.db = db

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	store.logger.Info("database ready",
		logging.String("driver", d.name),
		logging.Int64("quota", store.quota),
		logging.String(logging.FieldEventType, "database_ready"),
	)
	return store, nil
}

// connectWithBackoff pings until the database answers or attempts run out.
func connectWithBackoff(ctx context.Context, db *sql.DB, attempts int, initial, maxBackoff time.Duration, logger *slog.Logger) error {
	if attempts <= 0 {
		attempts = 1
	}
	delay := initial
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logging.WarnWithContext(logger, "database not reachable; retrying", "database_connect_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("backoff", delay),
			logging.Error(lastErr),
			logging.String(logging.FieldErrorHint, "check database.dsn and that the database server is running"),
			logging.String(logging.FieldImpact, "startup delayed until the database responds"),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return services.Wrap(services.ErrUnavailable, component, "connect", "startup cancelled", ctx.Err())
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
	return services.Wrap(services.ErrUnavailable, component, "connect",
		fmt.Sprintf("database unreachable after %d attempts", attempts), lastErr)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ensureContext(ctx)); err != nil {
		return services.Wrap(services.ErrUnavailable, component, "ping", "database unreachable", err)
	}
	return nil
}

// Driver reports the active dialect name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Quota reports the configured per-phrase sample quota.
func (s *Store) Quota() int64 {
	return s.quota
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// retryTransient reruns op while the dialect reports a transient conflict.
func (s *Store) retryTransient(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !s.dialect.transient(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// withTx runs fn inside a transaction, retrying the whole unit on transient
// conflicts. Errors already tagged with a services marker pass through;
// anything else is reported as Unavailable.
func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, operation string, fn func(*sql.Tx) error) error {
	ctx = ensureContext(ctx)
	err := s.retryTransient(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, opts)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()
		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	})
	return s.classify(operation, err)
}

func (s *Store) classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if services.KindOf(err) != services.KindInternal {
		return err
	}
	return services.Wrap(services.ErrUnavailable, component, operation, "database operation failed", err)
}
