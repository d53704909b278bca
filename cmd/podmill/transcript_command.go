package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var srt bool

	cmd := &cobra.Command{
		Use:   "transcript <episode-id>",
		Short: "Print an episode transcript as text or SRT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid episode id %q", args[0])
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			transcript, err := st.TranscriptForEpisode(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(transcript) == 0 {
				return fmt.Errorf("episode %d has no transcript; run the transcribe stage first", id)
			}

			out := cmd.OutOrStdout()
			if srt {
				fmt.Fprint(out, transcript.SRT())
				return nil
			}
			fmt.Fprintln(out, transcript.PlainText())
			return nil
		},
	}

	cmd.Flags().BoolVar(&srt, "srt", false, "Render in SubRip subtitle format")
	return cmd
}
