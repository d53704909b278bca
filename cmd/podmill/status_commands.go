package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podmill/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show episode counts per lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runCtx := cmd.Context()
			stats, err := st.Stats(runCtx)
			if err != nil {
				return err
			}
			health, err := st.Health(runCtx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats))
			for _, status := range store.AllStatuses() {
				count, ok := stats[status]
				if !ok {
					continue
				}
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Episodes", colorize) {
				fmt.Fprintln(out, line)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No episodes yet; run `podmill fetch` first.")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Total %d: %d pending, %d in flight, %d failed, %d digested\n",
				health.Total, health.Pending, health.InFlight, health.Failed, health.Digested)
			return nil
		},
	}
}

func newErrorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "errors",
		Short: "List episodes with recorded failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.EpisodesWithErrors(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No recorded failures.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				lastError := ""
				if rec.LastErrorAt != nil {
					lastError = rec.LastErrorAt.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatInt(rec.EpisodeID, 10),
					rec.PodcastName,
					rec.EpisodeTitle,
					string(rec.Status),
					strconv.FormatInt(rec.ErrorCount, 10),
					lastError,
					truncate(rec.ErrorMessage, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Podcast", "Episode", "Status", "Failures", "Last", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [episode-id...]",
		Short: "Clear failure bookkeeping so stage reruns pick the episodes up",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("pass episode ids or --all")
			}

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid episode id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withLock(func() error {
				st, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				count, err := st.ResetErrors(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d episode(s); failed stages will retry on the next run\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reset every failed episode")
	return cmd
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
