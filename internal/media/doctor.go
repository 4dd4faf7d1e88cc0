package media

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// ToolInfo reports one binary's availability.
type ToolInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Capabilities summarises the installed media tools.
type Capabilities struct {
	FFmpeg   ToolInfo  `json:"ffmpeg"`
	FFprobe  ToolInfo  `json:"ffprobe"`
	ProbedAt time.Time `json:"probed_at"`
}

// Ready reports whether both tools are usable.
func (c *Capabilities) Ready() bool {
	return c.FFmpeg.Available && c.FFprobe.Available
}

// Prober runs the version probe. *Runner implements it.
type Prober interface {
	ProbeTools(ctx context.Context) *Capabilities
}

// ProbeTools runs `-version` on ffmpeg and ffprobe.
func (r *Runner) ProbeTools(ctx context.Context) *Capabilities {
	caps := &Capabilities{ProbedAt: time.Now()}
	caps.FFmpeg = toolInfo(r.run(ctx, r.cfg.FFmpegPath, []string{"-version"}, maxStderrBytes, true))
	caps.FFprobe = toolInfo(r.run(ctx, r.cfg.FFprobePath, []string{"-version"}, maxStderrBytes, true))
	return caps
}

func toolInfo(res RunResult, err error) ToolInfo {
	if err != nil {
		return ToolInfo{Error: err.Error()}
	}
	first, _, _ := strings.Cut(string(res.Stdout), "\n")
	return ToolInfo{Available: true, Version: parseVersion(first)}
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1-3ubuntu5 Copyright ...".
func parseVersion(line string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			v := fields[i+1]
			if cut := strings.IndexAny(v, "-+~"); cut > 0 {
				v = v[:cut]
			}
			return v
		}
	}
	return ""
}

// CachedDoctor caches tool probe results with a configurable TTL.
// This avoids running the probe subprocesses on every request.
type CachedDoctor struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around tool probes.
func NewCachedDoctor(prober Prober, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		prober: prober,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) *Capabilities {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) *Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := d.prober.ProbeTools(ctx)
	d.logger.Info("media tool probe complete",
		"ffmpeg", caps.FFmpeg.Version,
		"ffprobe", caps.FFprobe.Version,
		"ready", caps.Ready(),
	)
	d.cached = caps
	return caps
}

// Require returns ErrToolMissing when either tool is unavailable.
func (d *CachedDoctor) Require(ctx context.Context) error {
	caps := d.Get(ctx)
	if caps.Ready() {
		return nil
	}
	var missing []string
	if !caps.FFmpeg.Available {
		missing = append(missing, "ffmpeg")
	}
	if !caps.FFprobe.Available {
		missing = append(missing, "ffprobe")
	}
	return errors.Join(ErrToolMissing, errors.New(strings.Join(missing, ", ")))
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
