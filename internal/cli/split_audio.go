package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/pipeline"
)

func newSplitAudioCommand(a *app) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "split-audio <recording>",
		Short: "Cut one narration recording into per-line audio files",
		Long: `Cuts a single recording at the middle of its silences and writes
line_NN.mp3 files next to it, ready for generate --skip-tts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}
			ctx := cmd.Context()

			runner := a.mediaRunner()
			if err := media.NewCachedDoctor(runner, a.logger).Require(ctx); err != nil {
				return err
			}

			paths, err := pipeline.SplitAudio(ctx, media.NewCLI(runner, a.logger), args[0], lines, a.logger)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(a.out, p)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 0, "expected number of lines, 0 to cut at every silence")
	return cmd
}
