package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podmill/internal/export"
)

// parseDateRange turns --date/--days flags into a [from, to) window. The
// window covers `days` whole days ending with the given date.
func parseDateRange(dateFlag string, days int) (time.Time, time.Time, error) {
	var zero time.Time
	date := time.Now().UTC()
	if strings.TrimSpace(dateFlag) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(dateFlag))
		if err != nil {
			return zero, zero, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", dateFlag)
		}
		date = parsed
	}
	if days < 1 {
		days = 1
	}
	to := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)
	return from, to, nil
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		dateFlag   string
		days       int
		formatFlag string
		output     string
		toStdout   bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render digests for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, ok := export.ParseFormat(formatFlag)
			if !ok {
				return fmt.Errorf("unknown format %q (markdown, json, html)", formatFlag)
			}
			from, to, err := parseDateRange(dateFlag, days)
			if err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			rows, err := st.SummariesByDateRange(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			data, err := export.Render(format, export.Digest{From: from, To: to, Rows: rows})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if toStdout {
				fmt.Fprint(out, string(data))
				return nil
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = filepath.Join(cfg.Paths.ExportDir, fmt.Sprintf("digest-%s.%s", from.Format("2006-01-02"), exportExtension(format)))
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(out, "Wrote %d digest(s) to %s\n", len(rows), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Last day of the range, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 1, "Number of days to include, ending at --date")
	cmd.Flags().StringVar(&formatFlag, "format", "markdown", "Output format: markdown, json, or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default under export_dir)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write to stdout instead of a file")
	return cmd
}

func exportExtension(format export.Format) string {
	switch format {
	case export.FormatJSON:
		return "json"
	case export.FormatHTML:
		return "html"
	default:
		return "md"
	}
}
