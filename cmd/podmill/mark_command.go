package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podmill/internal/logging"
)

func newMarkProcessedCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "mark-processed <episode-id...>",
		Short: "Manually mark episodes as digested without running any stage",
		Long: "Forces episodes straight to digested, bypassing the pipeline. Useful\n" +
			"for error recovery when an episode was handled outside podmill or is\n" +
			"not worth reprocessing. A --reason is kept with the episode and shows\n" +
			"up in the errors listing as an audit note.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid episode id %q", arg)
				}
				ids = append(ids, id)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withLock(func() error {
				st, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				runCtx := cmd.Context()
				out := cmd.OutOrStdout()
				for _, id := range ids {
					episode, err := st.EpisodeByID(runCtx, id)
					if err != nil {
						return fmt.Errorf("episode %d: %w", id, err)
					}
					if err := st.MarkProcessed(runCtx, id, reason); err != nil {
						return fmt.Errorf("episode %d: %w", id, err)
					}
					logger.Info("episode manually marked processed",
						logging.Int64("episode_id", id),
						logging.String("reason", reason))
					fmt.Fprintf(out, "Marked episode %d (%s) as digested\n", id, episode.Title)
				}
				if reason != "" {
					fmt.Fprintf(out, "Reason: %s\n", reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the episodes are being marked processed")
	return cmd
}
