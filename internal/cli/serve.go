package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinktok/thinktok/internal/api"
	"github.com/thinktok/thinktok/internal/catalog"
	"github.com/thinktok/thinktok/internal/playback"
)

func newServeCommand(a *app) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local preview server and the run queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), poll)
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", 5*time.Second, "how often the queue checks for pending runs")
	return cmd
}

func (a *app) serve(ctx context.Context, poll time.Duration) error {
	startTime := time.Now()
	a.logger.Info("starting thinktok preview server", "version", api.Version, "data_dir", a.cfg.DataDir())

	database, repo, svc, err := a.openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	authToken, err := svc.EnsureAuthToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "╔═══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(a.out, "║  THINKTOK PREVIEW v%-59s║\n", api.Version)
	fmt.Fprintln(a.out, "╠═══════════════════════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(a.out, "║  API URL:    http://127.0.0.1:%-48d║\n", a.cfg.Port())
	fmt.Fprintf(a.out, "║  Auth Token: %-65s║\n", authToken)
	fmt.Fprintln(a.out, "╚═══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(a.out)

	pipe, doctor := a.newPipeline()
	doctor.Refresh(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := catalog.NewRunner(svc, repo, pipe, doctor, a.logger)
	runner.SetPollInterval(poll)
	go runner.Start(runCtx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           a.cfg.Port(),
		CatalogService: svc,
		PlaybackServer: playback.NewServer(a.logger),
		Repository:     repo,
		Runner:         runner,
		Doctor:         doctor,
		Stages:         pipe,
		Logger:         a.logger,
		StartTime:      startTime,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown HTTP server", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
