package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"podmill/internal/export"
	"podmill/internal/writer"
)

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var (
		dateFlag   string
		days       int
		title      string
		target     float64
		iterations int
		style      string
		social     bool
	)

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a graded blog post from a date range's digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.newLLMClient()
			if err != nil {
				return err
			}
			from, to, err := parseDateRange(dateFlag, days)
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
				rows, err := st.SummariesByDateRange(runCtx, from, to)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					return fmt.Errorf("no digests between %s and %s; run the digest stage first",
						from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02"))
				}

				digest := export.Digest{From: from, To: to, Rows: rows}
				material, err := export.Render(export.FormatMarkdown, digest)
				if err != nil {
					return err
				}

				postTitle := strings.TrimSpace(title)
				if postTitle == "" {
					postTitle = digest.Title()
				}
				targetGrade := target
				if targetGrade <= 0 {
					targetGrade = cfg.Writer.TargetGrade
				}
				maxIterations := iterations
				if maxIterations <= 0 {
					maxIterations = cfg.Writer.MaxIterations
				}

				loop := writer.NewLoop(writer.NewBlogGenerator(client), writer.NewBlogGrader(client), st, logger)
				result, err := loop.Run(runCtx, writer.Request{
					Topic:         postTitle,
					Material:      string(material),
					Style:         strings.TrimSpace(style),
					TargetGrade:   targetGrade,
					MaxIterations: maxIterations,
				})
				if err != nil {
					return err
				}

				history, err := st.DraftCyclesForRequest(runCtx, result.RequestID)
				if err != nil {
					return err
				}

				post := writer.Post{
					Title:   postTitle,
					Slug:    writer.Slugify(postTitle),
					Date:    to.AddDate(0, 0, -1),
					Body:    result.Draft,
					Score:   result.Score,
					Met:     result.Met,
					History: history,
				}
				postPath := filepath.Join(cfg.Paths.PostsDir, post.Filename())
				if err := os.WriteFile(postPath, []byte(post.Markdown()), 0o644); err != nil {
					return fmt.Errorf("write post: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote %s (grade %.1f after %d iteration(s))\n", postPath, result.Score, result.Iterations)
				if !result.Met {
					fmt.Fprintf(out, "Target grade %.1f not met; kept the best draft. Feedback: %s\n",
						targetGrade, result.Feedback)
				}

				if social {
					posts, err := writer.GenerateSocialPosts(runCtx, client, post)
					if err != nil {
						return fmt.Errorf("generate social posts: %w", err)
					}
					socialPath := filepath.Join(cfg.Paths.PostsDir, strings.TrimSuffix(post.Filename(), ".md")+"-social.md")
					content := fmt.Sprintf("# Social posts for %s\n\n## Twitter\n\n%s\n\n## LinkedIn\n\n%s\n",
						post.Title, posts.Twitter, posts.LinkedIn)
					if err := os.WriteFile(socialPath, []byte(content), 0o644); err != nil {
						return fmt.Errorf("write social posts: %w", err)
					}
					fmt.Fprintf(out, "Wrote %s\n", socialPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Last day of the range, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 1, "Number of days to include, ending at --date")
	cmd.Flags().StringVar(&title, "title", "", "Post title (default derived from the range)")
	cmd.Flags().Float64Var(&target, "target", 0, "Target grade (default from config)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Maximum grading iterations (default from config)")
	cmd.Flags().StringVar(&style, "style", "", "Extra style guidelines for the generator")
	cmd.Flags().BoolVar(&social, "social", false, "Also generate Twitter and LinkedIn posts")
	return cmd
}
