package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/gofrs/flock"

	"voicecollect/internal/blobstore"
	"voicecollect/internal/config"
	"voicecollect/internal/deps"
	"voicecollect/internal/export"
	"voicecollect/internal/logging"
	"voicecollect/internal/metrics"
	"voicecollect/internal/phrases"
	"voicecollect/internal/preflight"
	"voicecollect/internal/recorder"
)

// Submitter records uploads; satisfied by *recorder.Recorder.
type Submitter interface {
	RecordSubmission(ctx context.Context, req recorder.Request) (recorder.Result, error)
}

// Deps are the process-wide resources the daemon serves. They are built once
// by the caller and shared read-only across requests.
type Deps struct {
	Repository phrases.Repository
	Recorder   Submitter
	Blobs      blobstore.Store
	Reporter   *export.Reporter
	Metrics    *metrics.Metrics
	// Normalizer names the active audio strategy for status output.
	Normalizer string
}

// Daemon serves the collection API and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	api    *apiServer

	lockPath string
	lock     *flock.Flock
	pidPath  string

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	LockFilePath   string             `json:"lock_file"`
	DatabaseDriver string             `json:"database_driver"`
	StorageBackend string             `json:"storage_backend"`
	Normalizer     string             `json:"normalizer"`
	Catalog        *phrases.Summary   `json:"catalog,omitempty"`
	CatalogError   string             `json:"catalog_error,omitempty"`
	Checks         []preflight.Result `json:"checks"`
	Dependencies   []deps.Status      `json:"dependencies"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, d Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || d.Repository == nil || d.Recorder == nil || d.Blobs == nil {
		return nil, errors.New("daemon requires config, repository, recorder and blob store")
	}
	if d.Reporter == nil {
		d.Reporter = export.NewReporter(d.Repository, logger)
	}
	daemon := &Daemon{
		cfg:      cfg,
		deps:     d,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		pidPath:  filepath.Join(cfg.Paths.DataDir, "voicecollect.pid"),
	}
	daemon.api = newAPIServer(cfg, daemon, logger)
	return daemon, nil
}

// Start acquires the instance lock, writes the PID file and binds the API
// listener. Serving begins with Serve.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another voicecollect daemon instance is already running")
	}
	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := d.api.listen(); err != nil {
		_ = os.Remove(d.pidPath)
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("voicecollect daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.Addr()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Serve blocks until ctx is cancelled or the HTTP server fails, then shuts
// the server down gracefully.
func (d *Daemon) Serve(ctx context.Context) error {
	if !d.running.Load() {
		return errors.New("daemon not started")
	}
	return d.api.serve(ctx)
}

// Stop releases the daemon lock and PID file. It is safe to call twice.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}
	d.api.stop()
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("voicecollect daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Addr reports the bound listener address, or the configured bind before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Handler exposes the HTTP routes, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status gathers runtime, catalog and dependency information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		DatabaseDriver: d.cfg.Database.Driver,
		StorageBackend: d.deps.Blobs.Name(),
		Normalizer:     d.deps.Normalizer,
		Checks: preflight.RunAll(ctx, d.cfg, preflight.Targets{
			Database: d.deps.Repository,
			Blobs:    d.deps.Blobs,
		}),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	summary, err := d.deps.Repository.Summary(ctx)
	if err != nil {
		status.CatalogError = err.Error()
	} else {
		status.Catalog = &summary
	}
	return status
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
