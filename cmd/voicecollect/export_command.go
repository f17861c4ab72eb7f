package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"voicecollect/internal/config"
	"voicecollect/internal/export"
	"voicecollect/internal/phrases"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var outputDir string
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export committed submissions",
		Long: "Export committed submissions as xlsx, csv or a rendered table.\n\n" +
			"Files are written atomically to export.dir unless --output or --stdout is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *phrases.Store, logger *slog.Logger) error {
				value := strings.TrimSpace(formatFlag)
				if value == "" {
					value = cfg.Export.Format
				}
				format, err := export.ParseFormat(value)
				if err != nil {
					return err
				}
				reporter := export.NewReporter(store, logger)
				if stdout {
					_, err := reporter.Write(cmd.Context(), cmd.OutOrStdout(), format)
					return err
				}
				dir := strings.TrimSpace(outputDir)
				if dir == "" {
					dir = cfg.Export.Dir
				} else if dir, err = config.ExpandPath(dir); err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				path, rows, err := reporter.WriteFile(cmd.Context(), dir, format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d submissions to %s\n", rows, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Export format: xlsx, csv or table (default export.format)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the export file (default export.dir)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the export to stdout instead of a file")
	return cmd
}
