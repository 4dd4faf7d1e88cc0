package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/thinktok/thinktok/internal/script"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

type CatalogService interface {
	QueueRun(ctx context.Context, scriptPath, outputDir string, opts RunOptions) (*Run, error)
	StartRun(ctx context.Context, scriptPath, outputDir string, opts RunOptions) (*Run, error)
	MarkRunning(ctx context.Context, id string) error
	RecordResult(ctx context.Context, id string, rec *RunRecord) error
	FailRun(ctx context.Context, id string, cause error) error
	GetRuns(ctx context.Context, limit int) ([]*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetRunDetail(ctx context.Context, id string) (*RunDetail, error)
	EnsureAuthToken(ctx context.Context) (string, error)
}

// RunRecord is what a finished generation reports back.
type RunRecord struct {
	VideoPath    string
	SubtitlePath string
	Duration     float64
	Lines        []*RunLine
	Scenes       []*RunScene
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// QueueRun records a pending run for the background runner.
func (s *Service) QueueRun(ctx context.Context, scriptPath, outputDir string, opts RunOptions) (*Run, error) {
	return s.createRun(ctx, scriptPath, outputDir, opts, RunStatusPending)
}

// StartRun records a run that the caller executes immediately.
func (s *Service) StartRun(ctx context.Context, scriptPath, outputDir string, opts RunOptions) (*Run, error) {
	return s.createRun(ctx, scriptPath, outputDir, opts, RunStatusRunning)
}

func (s *Service) createRun(ctx context.Context, scriptPath, outputDir string, opts RunOptions, status string) (*Run, error) {
	absScript, err := filepath.Abs(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("invalid script path: %w", err)
	}
	info, err := os.Stat(absScript)
	if err != nil {
		return nil, fmt.Errorf("script does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("script path is a directory")
	}

	if outputDir == "" {
		outputDir = "."
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output dir: %w", err)
	}

	now := time.Now()
	run := &Run{
		ID:         NewID(),
		ScriptName: script.NameFromPath(absScript),
		ScriptPath: absScript,
		OutputDir:  absOut,
		Status:     status,
		Options:    opts,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("run created", "run_id", run.ID, "script", run.ScriptName, "status", status)
	}
	return run, nil
}

func (s *Service) MarkRunning(ctx context.Context, id string) error {
	return s.repo.UpdateRunStatus(ctx, id, RunStatusRunning, "")
}

// RecordResult stores lines and scenes and marks the run completed.
func (s *Service) RecordResult(ctx context.Context, id string, rec *RunRecord) error {
	for _, l := range rec.Lines {
		l.RunID = id
	}
	for _, sc := range rec.Scenes {
		sc.RunID = id
	}
	if err := s.repo.ReplaceLines(ctx, id, rec.Lines); err != nil {
		return fmt.Errorf("record lines: %w", err)
	}
	if err := s.repo.ReplaceScenes(ctx, id, rec.Scenes); err != nil {
		return fmt.Errorf("record scenes: %w", err)
	}
	if err := s.repo.CompleteRun(ctx, id, rec.VideoPath, rec.SubtitlePath, rec.Duration); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("run completed", "run_id", id, "scenes", len(rec.Scenes), "duration", rec.Duration)
	}
	return nil
}

func (s *Service) FailRun(ctx context.Context, id string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if s.logger != nil {
		s.logger.Error("run failed", "run_id", id, "error", msg)
	}
	return s.repo.UpdateRunStatus(ctx, id, RunStatusFailed, truncateStr(msg, 2048))
}

func (s *Service) GetRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.repo.ListRuns(ctx, limit)
}

func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *Service) GetRunDetail(ctx context.Context, id string) (*RunDetail, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	scenes, err := s.repo.ListScenes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RunDetail{Run: run, Lines: lines, Scenes: scenes}, nil
}

// EnsureAuthToken returns the stored preview token, creating one on first use.
func (s *Service) EnsureAuthToken(ctx context.Context) (string, error) {
	existing, err := s.repo.GetConfig(ctx, ConfigKeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := s.repo.SetConfig(ctx, ConfigKeyAuthToken, token); err != nil {
		return "", err
	}
	return token, nil
}

// truncateStr keeps the tail of s, where ffmpeg puts the useful part.
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}
