package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podmill/internal/logging"
	"podmill/internal/services/feeds"
	"podmill/internal/store"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Discover new episodes from configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Feeds) == 0 {
				return fmt.Errorf("no feeds configured; add [[feeds]] entries to the config")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			source := feeds.NewSource()
			runCtx := cmd.Context()

			rows := make([][]string, 0, len(cfg.Feeds))
			var totalNew int
			for _, feed := range cfg.Feeds {
				podcast, err := st.AddPodcast(runCtx, feed.Name, feed.URL, feed.Category)
				if err != nil {
					return err
				}

				episodes, err := source.ListEpisodes(runCtx, feed.URL)
				if err != nil {
					logger.Warn("feed fetch failed",
						logging.String("feed", feed.Name),
						logging.Error(err))
					rows = append(rows, []string{feed.Name, "-", "-", "error: " + err.Error()})
					continue
				}
				if limit := cfg.Fetch.MaxEpisodesPerFeed; limit > 0 && len(episodes) > limit {
					episodes = episodes[:limit]
				}

				var created int
				for _, episode := range episodes {
					_, isNew, err := st.UpsertEpisode(runCtx, podcast.ID, store.EpisodeMeta{
						GUID:            episode.GUID,
						Title:           episode.Title,
						AudioURL:        episode.AudioURL,
						PublishedAt:     episode.PublishedAt,
						DurationSeconds: episode.Duration,
					})
					if err != nil {
						return err
					}
					if isNew {
						created++
					}
				}
				totalNew += created
				rows = append(rows, []string{feed.Name, strconv.Itoa(created), strconv.Itoa(len(episodes)), ""})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Feed", "New", "Seen", "Notes"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d new episode(s) discovered\n", totalNew)
			return nil
		},
	}
}
