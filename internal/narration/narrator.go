package narration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thinktok/thinktok/internal/logging"
	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/script"
	"github.com/thinktok/thinktok/internal/workspace"
)

// Synthesizer converts text into encoded speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// DurationProber measures media duration. media.FFmpeg satisfies it.
type DurationProber interface {
	Probe(ctx context.Context, path string) (*media.ProbeResult, error)
}

// Clip is one synthesized line.
type Clip struct {
	Index    int
	Path     string
	Duration float64 // seconds
}

// Narrator writes one audio file per script line and measures it.
type Narrator struct {
	synth  Synthesizer
	prober DurationProber
	layout workspace.Layout
	logger *slog.Logger
}

// NewNarrator creates a Narrator. synth may be nil when only Measure is used.
func NewNarrator(synth Synthesizer, prober DurationProber, layout workspace.Layout, logger *slog.Logger) *Narrator {
	return &Narrator{
		synth:  synth,
		prober: prober,
		layout: layout,
		logger: logging.WithComponent(logger, "narration"),
	}
}

// Synthesize processes lines strictly in order. Each file is fully written
// and measured before the next request; the first failure aborts the run.
func (n *Narrator) Synthesize(ctx context.Context, lines []script.Line, voice Voice) ([]Clip, error) {
	if n.synth == nil {
		return nil, fmt.Errorf("narration: no synthesizer configured")
	}
	if err := os.MkdirAll(n.layout.AudioDir(), 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	clips := make([]Clip, 0, len(lines))
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return clips, err
		}

		audio, err := n.synth.Synthesize(ctx, line.Speech(), voice)
		if err != nil {
			return clips, fmt.Errorf("synthesize line %d: %w", line.Index, err)
		}

		path := n.layout.AudioPath(line.Index)
		if err := writeFileAtomic(path, audio); err != nil {
			return clips, fmt.Errorf("write line %d audio: %w", line.Index, err)
		}

		clip, err := n.measure(ctx, line.Index, path)
		if err != nil {
			return clips, err
		}
		clips = append(clips, clip)

		logging.WithLine(n.logger, line.Index).Info("narration line ready",
			"duration_s", clip.Duration,
			"path", logging.SanitizePath(path),
		)
	}
	return clips, nil
}

// Measure probes existing audio files without synthesizing. Lines whose
// file is absent are left out; the assembler will skip them.
func (n *Narrator) Measure(ctx context.Context, lines []script.Line) ([]Clip, error) {
	clips := make([]Clip, 0, len(lines))
	for _, line := range lines {
		path := n.layout.AudioPath(line.Index)
		if !workspace.FileExists(path) {
			logging.WithLine(n.logger, line.Index).Warn("narration audio missing", "path", logging.SanitizePath(path))
			continue
		}
		clip, err := n.measure(ctx, line.Index, path)
		if err != nil {
			return clips, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (n *Narrator) measure(ctx context.Context, index int, path string) (Clip, error) {
	probe, err := n.prober.Probe(ctx, path)
	if err != nil {
		return Clip{}, fmt.Errorf("measure line %d: %w", index, err)
	}
	return Clip{Index: index, Path: path, Duration: probe.Duration}, nil
}

// Durations indexes clip durations by line.
func Durations(clips []Clip) map[int]float64 {
	out := make(map[int]float64, len(clips))
	for _, c := range clips {
		out[c.Index] = c.Duration
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".narration-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
