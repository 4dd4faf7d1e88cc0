package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Executor generates the video for a queued run.
type Executor interface {
	Execute(ctx context.Context, run *Run) (*RunRecord, error)
}

// ToolCheck reports whether the media tools are usable.
type ToolCheck interface {
	Require(ctx context.Context) error
}

// Runner polls for pending runs and executes them one at a time.
type Runner struct {
	service      CatalogService
	repo         Repository
	exec         Executor
	tools        ToolCheck
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
	active       atomic.Int32
}

func NewRunner(service CatalogService, repo Repository, exec Executor, tools ToolCheck, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		exec:         exec,
		tools:        tools,
		logger:       logger,
		pollInterval: 5 * time.Second,
	}
}

// SetPollInterval overrides the default five-second poll.
func (r *Runner) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("run queue started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("run queue stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextRun(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("run queue paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("run queue resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// ActiveRuns returns the number of runs executing now, zero or one.
func (r *Runner) ActiveRuns() int {
	return int(r.active.Load())
}

func (r *Runner) processNextRun(ctx context.Context) {
	runs, err := r.repo.ListPendingRuns(ctx)
	if err != nil {
		r.logger.Error("failed to list pending runs", "error", err)
		return
	}
	if len(runs) == 0 {
		return
	}

	run := runs[0]
	logger := r.logger.With("run_id", run.ID, "script", run.ScriptName)
	logger.Info("processing run")

	if r.exec == nil {
		r.service.FailRun(ctx, run.ID, fmt.Errorf("executor not configured"))
		return
	}
	if r.tools != nil {
		if err := r.tools.Require(ctx); err != nil {
			r.service.FailRun(ctx, run.ID, fmt.Errorf("media tools unavailable: %w", err))
			return
		}
	}

	if err := r.service.MarkRunning(ctx, run.ID); err != nil {
		logger.Error("failed to mark run running", "error", err)
		return
	}
	run.Status = RunStatusRunning

	r.active.Add(1)
	defer r.active.Add(-1)

	start := time.Now()
	rec, err := r.exec.Execute(ctx, run)
	if err != nil {
		r.service.FailRun(context.WithoutCancel(ctx), run.ID, err)
		return
	}
	if err := r.service.RecordResult(ctx, run.ID, rec); err != nil {
		logger.Error("failed to record run result", "error", err)
		r.service.FailRun(ctx, run.ID, err)
		return
	}
	logger.Info("run finished", "elapsed", time.Since(start).Round(time.Millisecond))
}
