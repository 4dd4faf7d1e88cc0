package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/thinktok/thinktok/internal/logging"
	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/workspace"
)

// Silence detection used to find line breaks in a recording.
const (
	SplitSilenceDB  = -40.0
	SplitMinSilence = 0.3
	edgeTolerance   = 0.01
)

// SplitAudio cuts one narration recording into line_NN.mp3 files next to
// it. Cuts fall at the middle of interior silences. With lines > 0 the
// lines-1 longest silences are used and fewer is an error; otherwise every
// silence cuts. It returns the written paths in order.
func SplitAudio(ctx context.Context, ff media.FFmpeg, input string, lines int, logger *slog.Logger) ([]string, error) {
	logger = logging.WithComponent(logger, "split")

	probe, err := ff.Probe(ctx, input)
	if err != nil {
		return nil, err
	}
	stats, err := ff.AnalyzeAudio(ctx, input, media.SilenceOptions{NoiseDB: SplitSilenceDB, MinDuration: SplitMinSilence})
	if err != nil {
		return nil, err
	}

	cuts, err := CutPoints(stats.Silences, probe.Duration, lines)
	if err != nil {
		return nil, err
	}

	bounds := append(append([]float64{0}, cuts...), probe.Duration)
	dir := filepath.Dir(input)
	paths := make([]string, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		out := filepath.Join(dir, workspace.LineFileName(i+1, workspace.AudioExtension))
		if err := ff.Cut(ctx, input, out, bounds[i], bounds[i+1]); err != nil {
			return paths, err
		}
		paths = append(paths, out)
		logging.WithLine(logger, i+1).Info("line audio written",
			"start", bounds[i], "end", bounds[i+1], "path", logging.SanitizePath(out))
	}
	return paths, nil
}

// CutPoints picks cut times from detected silences. Silences touching the
// start or end of the recording never cut.
func CutPoints(silences []media.Interval, duration float64, lines int) ([]float64, error) {
	var interior []media.Interval
	for _, s := range silences {
		if s.End <= s.Start || s.Start <= edgeTolerance || s.End >= duration-edgeTolerance {
			continue
		}
		interior = append(interior, s)
	}

	if lines > 0 {
		need := lines - 1
		if len(interior) < need {
			return nil, fmt.Errorf("found %d silences, need %d for %d lines", len(interior), need, lines)
		}
		sort.SliceStable(interior, func(i, j int) bool {
			return interior[i].End-interior[i].Start > interior[j].End-interior[j].Start
		})
		interior = interior[:need]
		sort.Slice(interior, func(i, j int) bool { return interior[i].Start < interior[j].Start })
	}

	cuts := make([]float64, len(interior))
	for i, s := range interior {
		cuts[i] = (s.Start + s.End) / 2
	}
	return cuts, nil
}
