// Package illustration generates one illustration per script line: the
// line is translated into an image prompt, rendered by a text-to-image
// service and composited onto a fixed canvas.
package illustration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/thinktok/thinktok/internal/logging"
	"github.com/thinktok/thinktok/internal/script"
	"github.com/thinktok/thinktok/internal/workspace"
)

const DefaultWorkers = 4

// Config holds the generator's tuning.
type Config struct {
	Workers  int           // concurrent lines; default DefaultWorkers
	Interval time.Duration // minimum spacing between render calls; zero disables
	Retry    Retry
	Canvas   Canvas
}

// Generator runs one task per line on a bounded pool. A failing line is
// logged and left without an illustration; it never cancels its siblings.
type Generator struct {
	translator Translator
	renderer   Renderer
	layout     workspace.Layout
	cfg        Config
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(tr Translator, r Renderer, layout workspace.Layout, cfg Config, logger *slog.Logger) *Generator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetry
	}
	if cfg.Canvas.Width == 0 || cfg.Canvas.Height == 0 {
		cfg.Canvas = DefaultCanvas
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Generator{
		translator: tr,
		renderer:   r,
		layout:     layout,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logging.WithComponent(logger, "illustration"),
	}
}

// Generate illustrates every line and returns the written paths keyed by
// line index. Only context cancellation is reported as an error.
func (g *Generator) Generate(ctx context.Context, lines []script.Line) (map[int]string, error) {
	if err := os.MkdirAll(g.layout.ImageDir(), 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	// One slot per task; no map is shared across goroutines.
	slots := make([]string, len(lines))

	eg := new(errgroup.Group)
	eg.SetLimit(g.cfg.Workers)
	for i, line := range lines {
		eg.Go(func() error {
			path, err := g.illustrate(ctx, line)
			if err != nil {
				logging.WithLine(g.logger, line.Index).Error("illustration failed", "error", err)
				return nil
			}
			slots[i] = path
			return nil
		})
	}
	_ = eg.Wait()

	out := make(map[int]string, len(lines))
	for i, path := range slots {
		if path != "" {
			out[lines[i].Index] = path
		}
	}
	g.logger.Info("illustrations generated", "ok", len(out), "failed", len(lines)-len(out))

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (g *Generator) illustrate(ctx context.Context, line script.Line) (string, error) {
	logger := logging.WithLine(g.logger, line.Index)

	prompt, err := BuildPrompt(ctx, g.translator, line.Speech(), g.cfg.Retry, logger)
	if err != nil {
		return "", err
	}
	logger.Info("image prompt ready", "prompt", prompt)

	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	rendered, err := g.renderer.Render(ctx, prompt, g.cfg.Canvas.Width, g.cfg.Canvas.Height)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	composited, err := g.cfg.Canvas.Composite(rendered)
	if err != nil {
		return "", err
	}

	path := g.layout.ImagePath(line.Index)
	if err := os.WriteFile(path, composited, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}
