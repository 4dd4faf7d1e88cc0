package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/thinktok/thinktok/internal/logging"
)

const (
	maxStderrBytes   = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
	maxAnalysisBytes = 1 << 20  // analysis filters report on stderr
)

// ErrToolMissing is returned when ffmpeg or ffprobe cannot be found.
var ErrToolMissing = errors.New("media tool not found")

// RunResult is the structured outcome of executing a media subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	Stdout     []byte        `json:"-"`
	StderrTail string        `json:"stderr_tail,omitempty"` // last N bytes of stderr
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// ExecError describes a media subprocess that exited non-zero.
type ExecError struct {
	Tool       string
	ExitCode   int
	StderrTail string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, truncate(strings.TrimSpace(e.StderrTail), 512))
}

// RunnerConfig holds the runner's configuration.
type RunnerConfig struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration // per invocation; zero means no timeout
	Logger      *slog.Logger
	DebugPaths  bool // if true, log full argument lists unsanitised
}

// Runner executes ffmpeg and ffprobe as subprocesses with a bounded stderr tail.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a Runner. Binary lookup is deferred to the first call
// so that commands that never touch media still work without ffmpeg.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Runner{cfg: cfg}
}

// FFmpeg runs ffmpeg with args and fails with *ExecError on non-zero exit.
func (r *Runner) FFmpeg(ctx context.Context, args []string) (RunResult, error) {
	return r.run(ctx, r.cfg.FFmpegPath, withQuietFlags(args), maxStderrBytes, false)
}

// FFmpegAnalyze runs ffmpeg keeping up to 1 MB of stderr, where analysis
// filters such as volumedetect and silencedetect print their results.
func (r *Runner) FFmpegAnalyze(ctx context.Context, args []string) (RunResult, error) {
	return r.run(ctx, r.cfg.FFmpegPath, withQuietFlags(args), maxAnalysisBytes, false)
}

// FFprobe runs ffprobe and captures stdout.
func (r *Runner) FFprobe(ctx context.Context, args []string) (RunResult, error) {
	return r.run(ctx, r.cfg.FFprobePath, args, maxStderrBytes, true)
}

// exec is the core subprocess execution helper.
func (r *Runner) run(ctx context.Context, bin string, args []string, stderrLimit int, captureStdout bool) (RunResult, error) {
	start := time.Now()

	path, err := exec.LookPath(bin)
	if err != nil {
		return RunResult{ExitCode: -1}, fmt.Errorf("%w: %s", ErrToolMissing, bin)
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)

	// Capture stderr with bounded buffer
	var stderrBuf, stdoutBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: stderrLimit})
	if captureStdout {
		cmd.Stdout = &stdoutBuf
	} else {
		cmd.Stdout = io.Discard
	}

	r.cfg.Logger.Debug("executing media command",
		"tool", bin,
		"args", r.safeArgs(args),
	)

	err = cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	result := RunResult{
		ExitCode:   exitCode,
		Stdout:     stdoutBuf.Bytes(),
		StderrTail: stderrBuf.String(),
		Duration:   elapsed,
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s interrupted after %s: %w", bin, elapsed.Round(time.Millisecond), ctxErr)
	}
	if exitCode != 0 {
		r.cfg.Logger.Warn("media command failed",
			"tool", bin,
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(result.StderrTail, 512),
		)
		return result, &ExecError{Tool: bin, ExitCode: exitCode, StderrTail: result.StderrTail}
	}

	r.cfg.Logger.Debug("media command succeeded",
		"tool", bin,
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

func (r *Runner) safeArgs(args []string) []string {
	if r.cfg.DebugPaths {
		return args
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = logging.SanitizePath(a)
	}
	return out
}

func withQuietFlags(args []string) []string {
	return append([]string{"-hide_banner", "-nostdin", "-nostats"}, args...)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
