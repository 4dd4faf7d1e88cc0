// Package cli implements the thinktok command line: one-shot generation,
// the preview server, run history, tool checks and audio splitting.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thinktok/thinktok/internal/catalog"
	"github.com/thinktok/thinktok/internal/config"
	"github.com/thinktok/thinktok/internal/db"
	"github.com/thinktok/thinktok/internal/logging"
	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/pipeline"
)

// app carries what PersistentPreRunE loads for every subcommand.
type app struct {
	cfg    *config.EnvConfig
	logger *slog.Logger
	out    io.Writer
}

// NewRootCommand builds the thinktok command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "thinktok",
		Short:        "Turn scene scripts into narrated vertical videos",
		Version:      config.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			a.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel())
			a.out = cmd.OutOrStdout()
			return nil
		},
	}

	root.AddCommand(
		newGenerateCommand(a),
		newServeCommand(a),
		newRunsCommand(a),
		newDoctorCommand(a),
		newSplitAudioCommand(a),
	)
	return root
}

// Execute runs the command tree with ctx, which is cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// openCatalog opens the run catalog under the data dir. The caller closes the DB.
func (a *app) openCatalog() (*db.DB, catalog.Repository, *catalog.Service, error) {
	if err := os.MkdirAll(a.cfg.DataDir(), 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.New(a.cfg.DBPath(), a.logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	repo := catalog.NewRepository(database.Conn())
	return database, repo, catalog.NewService(repo, a.logger), nil
}

func (a *app) mediaRunner() *media.Runner {
	return media.NewRunner(media.RunnerConfig{
		FFmpegPath:  a.cfg.FFmpegPath(),
		FFprobePath: a.cfg.FFprobePath(),
		Timeout:     a.cfg.FFmpegTimeout(),
		Logger:      a.logger,
	})
}

// newPipeline wires the ffmpeg CLI, credentials and assets into a pipeline.
func (a *app) newPipeline() (*pipeline.Pipeline, *media.CachedDoctor) {
	runner := a.mediaRunner()
	ff := media.NewCLI(runner, a.logger)
	pipe := pipeline.New(ff, pipeline.NewEnvServices(a.cfg, a.logger), pipeline.SettingsFromConfig(a.cfg), a.logger)
	return pipe, media.NewCachedDoctor(runner, a.logger)
}
