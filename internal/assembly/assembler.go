// Package assembly turns narrated, illustrated script lines into the final
// video: lines sharing an illustration become one scene, scenes are encoded
// and joined, captions are re-timed against the scenes, and the branding,
// subtitles and sound effects are laid over the result.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/thinktok/thinktok/internal/logging"
	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/script"
	"github.com/thinktok/thinktok/internal/subtitle"
	"github.com/thinktok/thinktok/internal/workspace"
)

// ErrNoScenes is returned when no line is eligible for the video.
var ErrNoScenes = errors.New("no eligible lines to assemble")

// Skip reasons.
const (
	SkipNoAudio = "audio missing"
	SkipNoImage = "no image"
)

// Skip records a line left out of the video.
type Skip struct {
	Index  int
	Reason string
}

// Config holds assembly options.
type Config struct {
	Preset      media.EncodePreset
	SpeedFactor float64 // playback speed of the final encode; 0 means 1
	Style       Style
	SFXDir      string
	KeepWork    bool
	Rand        *rand.Rand // transition picks; seeded from the clock when nil
}

// Result describes an assembled video. Timeline and Captions are on the
// source timeline; the SRT on disk is scaled by the speed factor.
type Result struct {
	Entries      []Entry
	Skipped      []Skip
	Groups       []Group
	Timeline     []Span
	Captions     []subtitle.Caption
	Effects      []media.EffectClip
	VideoPath    string
	SubtitlePath string
	Duration     float64 // output length after the speed factor
}

// Assembler builds one script's video. It is sequential: each group is
// merged and rendered before the next, since timing accumulates.
type Assembler struct {
	ff           media.FFmpeg
	layout       workspace.Layout
	cfg          Config
	fingerprints *FingerprintCache
	logger       *slog.Logger
}

// NewAssembler creates an Assembler for layout.
func NewAssembler(ff media.FFmpeg, layout workspace.Layout, cfg Config, logger *slog.Logger) *Assembler {
	if cfg.Preset.FPS == 0 {
		cfg.Preset = media.PresetNormal
	}
	if cfg.SpeedFactor <= 0 {
		cfg.SpeedFactor = 1
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Assembler{
		ff:           ff,
		layout:       layout,
		cfg:          cfg,
		fingerprints: NewFingerprintCache(10 * time.Minute),
		logger:       logging.WithComponent(logger, "assembly"),
	}
}

// Plan resolves each line's audio and illustration. Lines with no audio
// or no resolvable image are skipped with a warning. durations supplies
// known narration lengths; missing ones are probed.
func (a *Assembler) Plan(ctx context.Context, s *script.Script, durations map[int]float64) ([]Entry, []Skip, error) {
	images, err := ScanImages(a.layout.ImageDir())
	if err != nil {
		return nil, nil, err
	}

	var entries []Entry
	var skipped []Skip
	for _, line := range s.Lines {
		logger := logging.WithLine(a.logger, line.Index)

		audio := a.layout.AudioPath(line.Index)
		if !workspace.FileExists(audio) {
			logger.Warn("skipping line", "reason", SkipNoAudio)
			skipped = append(skipped, Skip{Index: line.Index, Reason: SkipNoAudio})
			continue
		}
		img, ok := images.Resolve(line.Index)
		if !ok {
			logger.Warn("skipping line", "reason", SkipNoImage)
			skipped = append(skipped, Skip{Index: line.Index, Reason: SkipNoImage})
			continue
		}
		fp, err := a.fingerprints.Get(img)
		if err != nil {
			return nil, nil, fmt.Errorf("fingerprint line %d: %w", line.Index, err)
		}

		d, ok := durations[line.Index]
		if !ok {
			probe, err := a.ff.Probe(ctx, audio)
			if err != nil {
				return nil, nil, fmt.Errorf("probe line %d: %w", line.Index, err)
			}
			d = probe.Duration
		}

		entries = append(entries, Entry{
			Line:        line,
			AudioPath:   audio,
			ImagePath:   img,
			Fingerprint: fp,
			Duration:    d,
		})
	}
	return entries, skipped, nil
}

// Build assembles the video and its authoritative subtitle file.
func (a *Assembler) Build(ctx context.Context, s *script.Script, durations map[int]float64) (*Result, error) {
	entries, skipped, err := a.Plan(ctx, s, durations)
	if err != nil {
		return nil, err
	}
	groups := Segment(entries)
	if len(groups) == 0 {
		return nil, ErrNoScenes
	}

	if err := a.layout.Ensure(); err != nil {
		return nil, err
	}
	work := a.layout.WorkDir()
	if err := os.MkdirAll(work, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	res := &Result{
		Entries:      entries,
		Skipped:      skipped,
		VideoPath:    a.layout.VideoPath(),
		SubtitlePath: a.layout.SubtitlePath(),
	}

	sfx := newEffectScheduler(a.ff, a.cfg.SFXDir, a.cfg.Rand, a.logger)
	if intro, ok := sfx.intro(); ok {
		res.Effects = append(res.Effects, intro)
	}

	sizes := map[Fingerprint][2]int{}
	segments := make([]string, 0, len(groups))
	var current float64
	for k := range groups {
		g := &groups[k]
		logger := a.logger.With("group", g.Ordinal, "lines", g.Lines())

		merged := filepath.Join(work, fmt.Sprintf("group_%03d.wav", g.Ordinal))
		if err := a.ff.ConcatAudio(ctx, g.AudioPaths(), merged); err != nil {
			return nil, err
		}
		probe, err := a.ff.Probe(ctx, merged)
		if err != nil {
			return nil, fmt.Errorf("probe group %d: %w", g.Ordinal, err)
		}
		g.Start = current
		g.End = current + a.cfg.Preset.FrameAlign(probe.Duration)
		current = g.End

		size, ok := sizes[g.Fingerprint]
		if !ok {
			w, h, err := imageSize(g.ImagePath)
			if err != nil {
				return nil, err
			}
			size = [2]int{w, h}
			sizes[g.Fingerprint] = size
		}

		segment := filepath.Join(work, fmt.Sprintf("scene_%03d.mp4", g.Ordinal))
		if err := a.ff.RenderScene(ctx, SceneSpec(*g, size[0], size[1], merged, segment, a.cfg.Preset)); err != nil {
			return nil, err
		}
		segments = append(segments, segment)
		logger.Info("scene rendered", "start", g.Start, "end", g.End, "image", filepath.Base(g.ImagePath))

		if k < len(groups)-1 {
			clip, ok, err := sfx.transition(ctx, current)
			if err != nil {
				return nil, err
			}
			if ok {
				res.Effects = append(res.Effects, clip)
			}
		}
	}
	res.Groups = groups
	res.Timeline = Timeline(groups)

	joined := filepath.Join(work, "scenes.mp4")
	if err := a.ff.ConcatVideo(ctx, segments, joined); err != nil {
		return nil, err
	}

	res.Captions = Retime(groups)
	if err := subtitle.WriteFile(res.SubtitlePath, subtitle.Scale(res.Captions, a.cfg.SpeedFactor)); err != nil {
		return nil, fmt.Errorf("write subtitles: %w", err)
	}

	style := a.style(s.Title)
	overlays := style.Overlays(res.Captions, a.logo(style.LogoPath))
	err = a.ff.Compose(ctx, media.ComposeSpec{
		Input:       joined,
		Output:      res.VideoPath,
		WorkDir:     work,
		Boxes:       overlays.Boxes,
		Images:      overlays.Images,
		Texts:       overlays.Texts,
		Effects:     res.Effects,
		SpeedFactor: a.cfg.SpeedFactor,
		Preset:      a.cfg.Preset,
	})
	if err != nil {
		return nil, err
	}
	res.Duration = current / a.cfg.SpeedFactor

	if !a.cfg.KeepWork {
		if err := os.RemoveAll(work); err != nil {
			a.logger.Warn("failed to remove work dir", "path", logging.SanitizePath(work), "error", err)
		}
	}

	a.logger.Info("video assembled",
		"path", res.VideoPath,
		"scenes", len(groups),
		"captions", len(res.Captions),
		"skipped", len(skipped),
		"duration", res.Duration,
		"preset", a.cfg.Preset.Name,
	)
	return res, nil
}

// style applies the script title as the header and drops font files that
// do not exist so ffmpeg falls back to its default font instead of failing.
func (a *Assembler) style(title string) Style {
	st := a.cfg.Style
	if title != "" {
		st.Header = title
	}
	if st.FontFile != "" && !workspace.FileExists(st.FontFile) {
		a.logger.Warn("font not found, using default", "path", st.FontFile)
		st.FontFile = ""
	}
	if st.BrandFontFile != "" && !workspace.FileExists(st.BrandFontFile) {
		a.logger.Warn("brand font not found, using default", "path", st.BrandFontFile)
		st.BrandFontFile = ""
	}
	return st
}

func (a *Assembler) logo(path string) Logo {
	if path == "" || !workspace.FileExists(path) {
		return Logo{}
	}
	w, h, err := imageSize(path)
	if err != nil {
		a.logger.Warn("logo unreadable, omitting", "error", err)
		return Logo{}
	}
	return Logo{Width: w, Height: h}
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read image %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}
