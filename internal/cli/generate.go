package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinktok/thinktok/internal/narration"
	"github.com/thinktok/thinktok/internal/pipeline"
)

type generateFlags struct {
	outputDir      string
	generateImages bool
	fast           bool
	mood           string
	skipTTS        bool
	rate           float64
	pitch          float64
	speedFactor    float64
	edl            bool
	keepWork       bool
	workers        int
}

func (f generateFlags) validate() error {
	if _, err := narration.ParseMood(f.mood); err != nil {
		return err
	}
	if f.rate <= 0 {
		return errors.New("--rate must be positive")
	}
	if f.speedFactor <= 0 {
		return errors.New("--speed-factor must be positive")
	}
	if f.workers < 0 {
		return errors.New("--workers must not be negative")
	}
	return nil
}

func (f generateFlags) options() pipeline.Options {
	return pipeline.Options{
		OutputDir:      f.outputDir,
		GenerateImages: f.generateImages,
		Fast:           f.fast,
		Mood:           f.mood,
		SkipTTS:        f.skipTTS,
		Rate:           f.rate,
		Pitch:          f.pitch,
		SpeedFactor:    f.speedFactor,
		EDL:            f.edl,
		KeepWork:       f.keepWork,
		Workers:        f.workers,
	}
}

func newGenerateCommand(a *app) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate <script>...",
		Short: "Generate a video for each script",
		Long: `Narrates every line of each script, writes first-pass subtitles,
optionally illustrates the lines and assembles the final video. Each
script is recorded in the run catalog.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return a.generate(cmd.Context(), args, flags.options())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.outputDir, "output-dir", "o", ".", "directory the audio, images, subtitles and video folders are created in")
	f.BoolVar(&flags.generateImages, "generate-images", false, "illustrate each line with a generated image")
	f.BoolVar(&flags.fast, "fast", false, "encode at a lower frame rate with the fastest x264 preset")
	f.StringVar(&flags.mood, "mood", string(narration.DefaultMood), "narration voice mood")
	f.BoolVar(&flags.skipTTS, "skip-tts", false, "reuse existing line audio instead of synthesizing it")
	f.Float64Var(&flags.rate, "rate", pipeline.DefaultRate, "narration speaking rate")
	f.Float64Var(&flags.pitch, "pitch", 0, "narration pitch in semitones")
	f.Float64Var(&flags.speedFactor, "speed-factor", 1, "playback speed of the final video")
	f.BoolVar(&flags.edl, "edl", false, "also write an EDL of the scene groups")
	f.BoolVar(&flags.keepWork, "keep-work", false, "keep intermediate segment files")
	f.IntVar(&flags.workers, "workers", 0, "concurrent image requests, 0 for the default")
	return cmd
}

func (a *app) generate(ctx context.Context, scripts []string, opts pipeline.Options) error {
	database, _, svc, err := a.openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	pipe, doctor := a.newPipeline()
	if err := doctor.Require(ctx); err != nil {
		return err
	}

	for _, path := range scripts {
		run, err := svc.StartRun(ctx, path, opts.OutputDir, opts.RunOptions())
		if err != nil {
			return err
		}

		res, err := pipe.Run(ctx, run.ID, run.ScriptPath, opts)
		if err != nil {
			svc.FailRun(context.WithoutCancel(ctx), run.ID, err)
			return fmt.Errorf("%s: %w", run.ScriptName, err)
		}
		if err := svc.RecordResult(ctx, run.ID, pipeline.Record(res, opts.SpeedFactor)); err != nil {
			return err
		}

		fmt.Fprintf(a.out, "%s\n  video:     %s\n  subtitles: %s\n", run.ScriptName, res.Assembly.VideoPath, res.Assembly.SubtitlePath)
		if res.EDLPath != "" {
			fmt.Fprintf(a.out, "  edl:       %s\n", res.EDLPath)
		}
	}
	return nil
}
