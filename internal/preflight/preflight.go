package preflight

import (
	"context"

	"voicecollect/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Targets are the live resources to probe. Nil fields are skipped so the
// directory and binary checks can run before anything is opened.
type Targets struct {
	Database Pinger
	Blobs    HealthChecker
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Audio directory", cfg.Storage.LocalDir))
	}
	if cfg.Paths.StaticDir != "" {
		results = append(results, CheckStaticDir(cfg.Paths.StaticDir))
	}

	if targets.Database != nil {
		results = append(results, CheckDatabase(ctx, cfg.Database.Driver, targets.Database))
	}
	if targets.Blobs != nil {
		results = append(results, CheckBlobStore(ctx, targets.Blobs))
	}

	for _, status := range CheckSystemDeps(cfg) {
		r := Result{Name: status.Name, Passed: status.Available, Detail: status.Path}
		if !status.Available {
			r.Detail = status.Detail
			if status.Optional {
				r.Passed = true
				r.Detail += " (optional)"
			}
		}
		results = append(results, r)
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
