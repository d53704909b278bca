package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"podmill/internal/config"
	"podmill/internal/pipeline"
	"podmill/internal/services/audio"
	"podmill/internal/services/whisper"
	"podmill/internal/store"
)

// handlerFactory builds the stage handler once config and store are available.
type handlerFactory func(ctx *commandContext, cfg *config.Config, st *store.Store) (pipeline.Handler, error)

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStageCommand(ctx, pipeline.StageDownload,
			"Download and normalize audio for discovered episodes",
			func(_ *commandContext, cfg *config.Config, st *store.Store) (pipeline.Handler, error) {
				svc := audio.NewService(audio.Config{
					AudioDir:        cfg.Paths.AudioDir,
					Format:          cfg.Fetch.AudioFormat,
					SampleRate:      cfg.Fetch.SampleRate,
					DownloadTimeout: time.Duration(cfg.Fetch.DownloadTimeout) * time.Second,
					FFmpegBinary:    cfg.FFmpegBinary(),
				})
				return pipeline.NewDownloadHandler(st, svc), nil
			}),
		newStageCommand(ctx, pipeline.StageTranscribe,
			"Transcribe downloaded audio with whisper",
			func(_ *commandContext, cfg *config.Config, st *store.Store) (pipeline.Handler, error) {
				svc := whisper.NewService(whisper.Config{
					Binary:   cfg.Whisper.Binary,
					Model:    cfg.Whisper.Model,
					Language: cfg.Whisper.Language,
					Timeout:  time.Duration(cfg.Whisper.Timeout) * time.Second,
				})
				workDir := filepath.Join(cfg.Paths.DataDir, "transcripts")
				return pipeline.NewTranscribeHandler(st, svc, workDir), nil
			}),
		newStageCommand(ctx, pipeline.StageDigest,
			"Summarize transcripts into structured digests",
			func(cmdCtx *commandContext, _ *config.Config, st *store.Store) (pipeline.Handler, error) {
				client, err := cmdCtx.newLLMClient()
				if err != nil {
					return nil, err
				}
				return pipeline.NewDigestHandler(st, client), nil
			}),
	}
}

func newStageCommand(ctx *commandContext, stage pipeline.Stage, short string, factory handlerFactory) *cobra.Command {
	var (
		episodeID   int64
		limit       int
		force       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   stage.String(),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLock(func() error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
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

				handler, err := factory(ctx, cfg, st)
				if err != nil {
					return err
				}

				workers := concurrency
				if workers <= 0 {
					workers = cfg.Pipeline.Concurrency
				}
				runner := pipeline.NewRunner(st, logger, time.Duration(cfg.Pipeline.LeaseTimeout)*time.Second)
				report, err := runner.RunStage(cmd.Context(), stage, handler, pipeline.Options{
					EpisodeID:   episodeID,
					Limit:       limit,
					Force:       force,
					Concurrency: workers,
				})
				printReport(cmd, report)
				return err
			})
		},
	}

	cmd.Flags().Int64Var(&episodeID, "episode", 0, "Process a single episode by id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum episodes to process (0 = all)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-run the stage over already processed episodes")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel episodes (default from config)")
	return cmd
}

func printReport(cmd *cobra.Command, report pipeline.Report) {
	out := cmd.OutOrStdout()
	if len(report.Outcomes) > 0 {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, outcome := range report.Outcomes {
			rows = append(rows, []string{
				strconv.FormatInt(outcome.EpisodeID, 10),
				outcome.Title,
				string(outcome.Kind),
				outcome.Reason,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Episode", "Result", "Details"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		))
	}
	fmt.Fprintf(out, "%s: %d succeeded, %d failed, %d skipped\n",
		report.Stage, report.Succeeded, report.Failed, report.Skipped)
}
