package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"voicecollect/internal/config"
	"voicecollect/internal/importer"
	"voicecollect/internal/phrases"
)

const forceImportEnv = "FORCE_IMPORT"

func newImportCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <phrases.json|phrases.yaml>",
		Short: "Seed the phrase catalog from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("force") {
				force = envBool(forceImportEnv)
			}
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store *phrases.Store, logger *slog.Logger) error {
				return runImport(cmd.Context(), cmd, store, logger, args[0], force)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Import even when the catalog already has phrases (env FORCE_IMPORT)")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, store *phrases.Store, logger *slog.Logger, path string, force bool) error {
	result, err := importer.New(store, logger).ImportFile(ctx, path, importer.Options{Force: force})
	out := cmd.OutOrStdout()
	if errors.Is(err, importer.ErrCatalogNotEmpty) {
		fmt.Fprintf(out, "Catalog already holds %s phrases; nothing imported (use --force to import anyway)\n",
			humanize.Comma(result.Existing))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %s of %s entries from %s (%s)\n",
		humanize.Comma(int64(result.Inserted)),
		humanize.Comma(int64(result.Entries)),
		path,
		humanize.Bytes(uint64(result.Bytes)),
	)
	if result.Duplicates > 0 || result.Empty > 0 {
		fmt.Fprintf(out, "Skipped %d duplicate and %d empty entries\n", result.Duplicates, result.Empty)
	}
	return nil
}

func envBool(key string) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
