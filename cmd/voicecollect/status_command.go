package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"voicecollect/internal/blobstore"
	"voicecollect/internal/config"
	"voicecollect/internal/deps"
	"voicecollect/internal/phrases"
	"voicecollect/internal/preflight"
)

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	Driver       string             `json:"database_driver"`
	Storage      string             `json:"storage_backend"`
	Transcode    string             `json:"transcode"`
	Metrics      bool               `json:"metrics_enabled"`
	Catalog      phrases.Summary    `json:"catalog"`
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show preflight checks and collection progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *phrases.Store, logger *slog.Logger) error {
				report := statusReport{
					ConfigPath:   ctx.configPath,
					Driver:       store.Driver(),
					Storage:      cfg.Storage.Backend,
					Transcode:    cfg.Audio.Transcode,
					Metrics:      cfg.Metrics.Enabled,
					Dependencies: preflight.CheckSystemDeps(cfg),
				}
				targets := preflight.Targets{Database: store}
				blobs, err := blobstore.New(cmd.Context(), cfg, logger)
				if err != nil {
					report.Checks = append(report.Checks, preflight.Result{Name: "Blob store", Detail: err.Error()})
				} else {
					targets.Blobs = blobs
				}
				report.Checks = append(report.Checks, preflight.RunAll(cmd.Context(), cfg, targets)...)

				summary, err := store.Summary(cmd.Context())
				if err != nil {
					return err
				}
				report.Catalog = summary

				if jsonOut {
					return writeJSON(cmd, report)
				}
				printStatus(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	p := newStatusPrinter(out)

	p.section("Service")
	p.line("Config", statusInfo, report.ConfigPath)
	p.line("Database", statusInfo, report.Driver)
	p.line("Storage", statusInfo, report.Storage)
	p.line("Normalizer", statusInfo, report.Transcode)
	p.line("Metrics", statusInfo, yesNo(report.Metrics))

	p.section("Checks")
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		p.line(check.Name, kind, check.Detail)
	}
	for _, dep := range report.Dependencies {
		switch {
		case dep.Available:
			p.line(dep.Name, statusOK, dep.Path)
		case dep.Optional:
			p.line(dep.Name, statusWarn, dep.Detail)
		default:
			p.line(dep.Name, statusError, dep.Detail)
		}
	}
	fmt.Fprintln(out, p.String())
	fmt.Fprintln(out)

	c := report.Catalog
	rows := [][]string{
		{"Phrases", humanize.Comma(c.Phrases)},
		{"Below quota", humanize.Comma(c.Eligible)},
		{"At quota", humanize.Comma(c.Exhausted)},
		{"Submissions", humanize.Comma(c.Submissions)},
		{"Contributors", humanize.Comma(c.Contributors)},
		{"Quota per phrase", strconv.FormatInt(c.Quota, 10)},
	}
	fmt.Fprintln(out, renderTable([]string{"Catalog", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	if c.Phrases > 0 && c.Eligible == 0 {
		fmt.Fprintln(out, renderStatusLine("Collection", statusWarn, "every phrase has reached the quota", p.colorize))
	}
}
