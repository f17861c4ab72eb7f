package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voicecollect/internal/audio"
	"voicecollect/internal/blobstore"
	"voicecollect/internal/config"
	"voicecollect/internal/daemon"
	"voicecollect/internal/deps"
	"voicecollect/internal/export"
	"voicecollect/internal/logging"
	"voicecollect/internal/metrics"
	"voicecollect/internal/phrases"
	"voicecollect/internal/preflight"
	"voicecollect/internal/recorder"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the voicecollect HTTP service and blocks until a signal or
// cmdCtx cancellation stops it.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("voicecollect-%s.log", runID))

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update voicecollect.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "voicecollect-*.log", Exclude: []string{logPath}},
	)
	logDependencySnapshot(logger, cfg)

	resources, err := Build(signalCtx, cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "service initialization failed", "startup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database and storage settings"),
		)
		return err
	}
	defer resources.Close()

	checks := preflight.RunAll(signalCtx, cfg, preflight.Targets{
		Database: resources.Store,
		Blobs:    resources.Deps.Blobs,
	})
	if failed := preflight.Failed(checks); len(failed) > 0 {
		for _, check := range failed {
			logger.Error("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
			)
		}
		return fmt.Errorf("preflight: %d check(s) failed", len(failed))
	}

	d, err := daemon.New(cfg, resources.Deps, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	if err := d.Serve(signalCtx); err != nil {
		return err
	}
	logger.Info("voicecollect daemon shutting down")
	return nil
}

// Resources holds the process-wide services shared by every request.
type Resources struct {
	Store *phrases.Store
	Deps  daemon.Deps
}

// Build opens the phrase store and constructs the normalizer, blob store,
// recorder, metrics and reporter once.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Resources, error) {
	store, err := phrases.Open(ctx, cfg, phrases.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open phrase store: %w", err)
	}
	normalizer, err := audio.New(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init normalizer: %w", err)
	}
	blobs, err := blobstore.New(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	rec, err := recorder.New(store, normalizer, blobs, recorder.LimitsFromConfig(cfg),
		recorder.WithLogger(logger),
		recorder.WithMetrics(m),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init recorder: %w", err)
	}

	return &Resources{
		Store: store,
		Deps: daemon.Deps{
			Repository: store,
			Recorder:   rec,
			Blobs:      blobs,
			Reporter:   export.NewReporter(store, logger),
			Metrics:    m,
			Normalizer: normalizer.Strategy(),
		},
	}, nil
}

// Close releases the phrase store.
func (r *Resources) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "voicecollect.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("database_driver", cfg.Database.Driver),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("transcode", cfg.Audio.Transcode),
		logging.Int("quota", cfg.Collection.Quota),
	}
	for _, status := range deps.CheckBinaries(deps.AudioRequirements(cfg)) {
		attrs = append(attrs,
			logging.Bool(strings.ToLower(status.Name)+"_available", status.Available),
			logging.String(strings.ToLower(status.Name)+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
