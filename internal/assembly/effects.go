package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"

	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/workspace"
)

// Sound effect mixing.
const (
	IntroEffect = "intro.mp3"

	EffectVolume    = 0.32
	EffectTargetDB  = -20.0
	EffectSilenceDB = -40.0
	effectChunk     = 0.01
)

// TransitionEffects are the candidates played between scenes.
var TransitionEffects = []string{"trans_1.mp3", "trans_2.mp3", "trans_3.mp3", "trans_4.mp3", "trans_5.mp3"}

type effectInfo struct {
	gainDB  float64
	leading float64
}

// effectScheduler places the intro and transition effects on the timeline.
type effectScheduler struct {
	ff          media.FFmpeg
	dir         string
	rng         *rand.Rand
	logger      *slog.Logger
	transitions []string
	analysed    map[string]effectInfo
}

func newEffectScheduler(ff media.FFmpeg, dir string, rng *rand.Rand, logger *slog.Logger) *effectScheduler {
	s := &effectScheduler{
		ff:       ff,
		dir:      dir,
		rng:      rng,
		logger:   logger,
		analysed: map[string]effectInfo{},
	}
	for _, name := range TransitionEffects {
		p := filepath.Join(dir, name)
		if workspace.FileExists(p) {
			s.transitions = append(s.transitions, p)
		}
	}
	if len(s.transitions) == 0 {
		logger.Debug("no transition effects found", "dir", dir)
	}
	return s
}

// intro returns the intro effect at time zero, played as recorded.
func (s *effectScheduler) intro() (media.EffectClip, bool) {
	p := filepath.Join(s.dir, IntroEffect)
	if !workspace.FileExists(p) {
		s.logger.Debug("intro effect missing", "path", p)
		return media.EffectClip{}, false
	}
	return media.EffectClip{Path: p, Volume: EffectVolume}, true
}

// transition picks a random transition effect, levels it to EffectTargetDB
// and starts it early by its leading silence so the audible onset lands on
// boundary.
func (s *effectScheduler) transition(ctx context.Context, boundary float64) (media.EffectClip, bool, error) {
	if len(s.transitions) == 0 {
		return media.EffectClip{}, false, nil
	}
	p := s.transitions[s.rng.IntN(len(s.transitions))]

	info, err := s.analyse(ctx, p)
	if err != nil {
		return media.EffectClip{}, false, err
	}

	clip := media.EffectClip{
		Path:   p,
		Start:  boundary - info.leading,
		GainDB: info.gainDB,
		Volume: EffectVolume,
	}
	if clip.Start < 0 {
		clip.TrimHead = -clip.Start
		clip.Start = 0
	}
	return clip, true, nil
}

// analyse measures mean loudness, then detects leading silence against the
// threshold as it applies after the gain correction.
func (s *effectScheduler) analyse(ctx context.Context, path string) (effectInfo, error) {
	if info, ok := s.analysed[path]; ok {
		return info, nil
	}
	opts := media.SilenceOptions{NoiseDB: EffectSilenceDB, MinDuration: effectChunk}
	stats, err := s.ff.AnalyzeAudio(ctx, path, opts)
	if err != nil {
		return effectInfo{}, fmt.Errorf("analyse effect: %w", err)
	}
	info := effectInfo{gainDB: EffectTargetDB - stats.MeanVolumeDB}
	if info.gainDB != 0 {
		opts.NoiseDB = EffectSilenceDB - info.gainDB
		if stats, err = s.ff.AnalyzeAudio(ctx, path, opts); err != nil {
			return effectInfo{}, fmt.Errorf("analyse effect: %w", err)
		}
	}
	info.leading = stats.LeadingSilence()
	s.analysed[path] = info
	return info, nil
}
