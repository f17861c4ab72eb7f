package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"voicecollect/internal/config"
	"voicecollect/internal/phrases"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats <contributor>",
		Short: "Show how many submissions a contributor has made",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contributor := strings.TrimSpace(args[0])
			if contributor == "" {
				return fmt.Errorf("contributor id is required")
			}
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store *phrases.Store, _ *slog.Logger) error {
				count, err := store.ContributorCount(cmd.Context(), contributor)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"contributor_id": contributor, "count": count})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d submissions\n", contributor, count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print one phrase that still needs recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store *phrases.Store, _ *slog.Logger) error {
				phrase, err := store.NextAvailablePhrase(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					if phrase == nil {
						return writeJSON(cmd, map[string]bool{"exhausted": true})
					}
					return writeJSON(cmd, phrase)
				}
				if phrase == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "All phrases have reached the quota")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d (%d/%d): %s\n", phrase.ID, phrase.SampleCount, store.Quota(), phrase.Text)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
