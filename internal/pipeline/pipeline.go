// Package pipeline runs every generation stage for one script: narration,
// first-pass subtitles, optional illustration, assembly and EDL export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/thinktok/thinktok/internal/assembly"
	"github.com/thinktok/thinktok/internal/config"
	"github.com/thinktok/thinktok/internal/export"
	"github.com/thinktok/thinktok/internal/illustration"
	"github.com/thinktok/thinktok/internal/logging"
	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/narration"
	"github.com/thinktok/thinktok/internal/script"
	"github.com/thinktok/thinktok/internal/subtitle"
	"github.com/thinktok/thinktok/internal/workspace"
)

// Stages reported by Status.
const (
	StageLoad       = "load"
	StageNarration  = "narration"
	StageSubtitles  = "subtitles"
	StageIllustrate = "illustration"
	StageAssembly   = "assembly"
	StageExport     = "export"
)

// DefaultRate is the narration speaking rate when none is given.
const DefaultRate = 1.2

// Options are the per-run generate flags.
type Options struct {
	OutputDir      string
	GenerateImages bool
	Fast           bool
	Mood           string
	SkipTTS        bool
	Rate           float64
	Pitch          float64
	SpeedFactor    float64
	EDL            bool
	KeepWork       bool
	Workers        int
}

// Settings are the fixed assets and tuning shared by every run.
type Settings struct {
	Style     assembly.Style
	SFXDir    string
	ImageRate time.Duration
	Rand      *rand.Rand // transition picks; nil seeds from the clock
}

// SettingsFromConfig reads asset paths and rate limits from cfg.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Style:     assembly.DefaultStyle(cfg.FontPath(), cfg.BrandFontPath(), cfg.LogoPath()),
		SFXDir:    cfg.SFXDir(),
		ImageRate: cfg.ImageRate(),
	}
}

// Result is everything one run produced.
type Result struct {
	Script   *script.Script
	Layout   workspace.Layout
	Clips    []narration.Clip
	Images   map[int]string
	Assembly *assembly.Result
	EDLPath  string
	Elapsed  time.Duration
}

// Status is the progress of an in-flight run.
type Status struct {
	Key     string    `json:"key"`
	Script  string    `json:"script"`
	Stage   string    `json:"stage"`
	Started time.Time `json:"started"`
}

// Pipeline wires the stage packages together. Runs may execute
// concurrently; each gets its own narrator, generator and assembler.
type Pipeline struct {
	ff       media.FFmpeg
	services Services
	settings Settings
	logger   *slog.Logger

	mu     sync.RWMutex
	active map[string]*Status
}

func New(ff media.FFmpeg, services Services, settings Settings, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		ff:       ff,
		services: services,
		settings: settings,
		logger:   logging.WithComponent(logger, "pipeline"),
		active:   make(map[string]*Status),
	}
}

// Run generates the video for scriptPath. key identifies the run in Status;
// the script name is used when it is empty.
func (p *Pipeline) Run(ctx context.Context, key, scriptPath string, opts Options) (*Result, error) {
	start := time.Now()

	s, err := script.Load(scriptPath)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = s.Name
	}
	p.track(key, s.Name)
	defer p.untrack(key)
	logger := p.logger.With("script", s.Name, "key", key)

	mood, err := narration.ParseMood(opts.Mood)
	if err != nil {
		return nil, err
	}
	if err := p.services.Require(!opts.SkipTTS, opts.GenerateImages); err != nil {
		return nil, err
	}

	layout := workspace.New(opts.OutputDir, s.Name)
	if err := layout.Ensure(); err != nil {
		return nil, err
	}
	res := &Result{Script: s, Layout: layout}

	p.setStage(key, StageNarration)
	narrator := narration.NewNarrator(p.services.Synthesizer(), p.ff, layout, logger)
	if opts.SkipTTS {
		logger.Info("skipping narration, measuring existing audio")
		res.Clips, err = narrator.Measure(ctx, s.Lines)
	} else {
		rate := opts.Rate
		if rate <= 0 {
			rate = DefaultRate
		}
		res.Clips, err = narrator.Synthesize(ctx, s.Lines, narration.VoiceFor(mood, rate, opts.Pitch))
	}
	if err != nil {
		return nil, fmt.Errorf("narration: %w", err)
	}
	durations := narration.Durations(res.Clips)

	p.setStage(key, StageSubtitles)
	if err := subtitle.WriteFile(layout.SubtitlePath(), subtitle.Sequential(s.Lines, durations)); err != nil {
		return nil, fmt.Errorf("write subtitles: %w", err)
	}

	if opts.GenerateImages {
		p.setStage(key, StageIllustrate)
		renderer, err := p.services.Renderer(ctx)
		if err != nil {
			return nil, err
		}
		gen := illustration.NewGenerator(p.services.Translator(), renderer, layout, illustration.Config{
			Workers:  opts.Workers,
			Interval: p.settings.ImageRate,
		}, logger)
		if res.Images, err = gen.Generate(ctx, s.Lines); err != nil {
			return nil, fmt.Errorf("illustration: %w", err)
		}
	}

	p.setStage(key, StageAssembly)
	preset := media.PresetNormal
	if opts.Fast {
		preset = media.PresetFast
	}
	asm := assembly.NewAssembler(p.ff, layout, assembly.Config{
		Preset:      preset,
		SpeedFactor: opts.SpeedFactor,
		Style:       p.settings.Style,
		SFXDir:      p.settings.SFXDir,
		KeepWork:    opts.KeepWork,
		Rand:        p.settings.Rand,
	}, logger)
	if res.Assembly, err = asm.Build(ctx, s, durations); err != nil {
		return nil, fmt.Errorf("assembly: %w", err)
	}

	if opts.EDL {
		p.setStage(key, StageExport)
		clips := export.SceneClips(res.Assembly.VideoPath, Scenes(res.Assembly, opts.SpeedFactor))
		if err := export.WriteEDL(layout.EDLPath(), clips, s.Name, float64(preset.FPS)); err != nil {
			return nil, fmt.Errorf("export edl: %w", err)
		}
		res.EDLPath = layout.EDLPath()
	}

	res.Elapsed = time.Since(start)
	logger.Info("generation complete",
		"video", logging.SanitizePath(res.Assembly.VideoPath),
		"duration_s", res.Assembly.Duration,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// Active lists in-flight runs, oldest first.
func (p *Pipeline) Active() []Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Status, 0, len(p.active))
	for _, st := range p.active {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// GetStatus reports the stage of the run with key.
func (p *Pipeline) GetStatus(key string) (Status, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.active[key]
	if !ok {
		return Status{}, errors.New("run not active")
	}
	return *st, nil
}

func (p *Pipeline) track(key, name string) {
	p.mu.Lock()
	p.active[key] = &Status{Key: key, Script: name, Stage: StageLoad, Started: time.Now()}
	p.mu.Unlock()
}

func (p *Pipeline) setStage(key, stage string) {
	p.mu.Lock()
	if st, ok := p.active[key]; ok {
		st.Stage = stage
	}
	p.mu.Unlock()
	p.logger.Debug("stage started", "key", key, "stage", stage)
}

func (p *Pipeline) untrack(key string) {
	p.mu.Lock()
	delete(p.active, key)
	p.mu.Unlock()
}
