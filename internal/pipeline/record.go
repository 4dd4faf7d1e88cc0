package pipeline

import (
	"context"

	"github.com/thinktok/thinktok/internal/assembly"
	"github.com/thinktok/thinktok/internal/catalog"
	"github.com/thinktok/thinktok/internal/export"
)

// OptionsFromRun maps stored run options onto pipeline options.
func OptionsFromRun(run *catalog.Run) Options {
	o := run.Options
	return Options{
		OutputDir:      run.OutputDir,
		GenerateImages: o.GenerateImages,
		Fast:           o.Fast,
		Mood:           o.Mood,
		SkipTTS:        o.SkipTTS,
		Rate:           o.Rate,
		Pitch:          o.Pitch,
		SpeedFactor:    o.SpeedFactor,
		EDL:            o.EDL,
		KeepWork:       o.KeepWork,
		Workers:        o.Workers,
	}
}

// RunOptions is the inverse of OptionsFromRun, minus the output dir.
func (o Options) RunOptions() catalog.RunOptions {
	return catalog.RunOptions{
		GenerateImages: o.GenerateImages,
		Fast:           o.Fast,
		Mood:           o.Mood,
		SkipTTS:        o.SkipTTS,
		Rate:           o.Rate,
		Pitch:          o.Pitch,
		SpeedFactor:    o.SpeedFactor,
		EDL:            o.EDL,
		KeepWork:       o.KeepWork,
		Workers:        o.Workers,
	}
}

// Execute runs a queued catalog run; it makes Pipeline a catalog.Executor.
func (p *Pipeline) Execute(ctx context.Context, run *catalog.Run) (*catalog.RunRecord, error) {
	opts := OptionsFromRun(run)
	res, err := p.Run(ctx, run.ID, run.ScriptPath, opts)
	if err != nil {
		return nil, err
	}
	return Record(res, opts.SpeedFactor), nil
}

// Scenes converts assembled groups to output-timeline scenes.
func Scenes(res *assembly.Result, speed float64) []export.Scene {
	speed = normSpeed(speed)
	out := make([]export.Scene, len(res.Groups))
	for i, g := range res.Groups {
		out[i] = export.Scene{
			Ordinal: g.Ordinal,
			Lines:   g.Lines(),
			Start:   g.Start / speed,
			End:     g.End / speed,
		}
	}
	return out
}

// Record summarises a run for the catalog. Times are on the output
// timeline, matching the written SRT.
func Record(res *Result, speed float64) *catalog.RunRecord {
	speed = normSpeed(speed)
	a := res.Assembly

	durations := make(map[int]float64, len(res.Clips))
	for _, c := range res.Clips {
		durations[c.Index] = c.Duration
	}
	skips := make(map[int]string, len(a.Skipped))
	for _, s := range a.Skipped {
		skips[s.Index] = s.Reason
	}
	// Captions are emitted one per entry, in entry order.
	captions := make(map[int]int, len(a.Entries))
	for i, e := range a.Entries {
		if i < len(a.Captions) {
			captions[e.Line.Index] = i
		}
	}

	rec := &catalog.RunRecord{
		VideoPath:    a.VideoPath,
		SubtitlePath: a.SubtitlePath,
		Duration:     a.Duration,
	}
	for _, line := range res.Script.Lines {
		rl := &catalog.RunLine{
			Index:      line.Index,
			Text:       line.Text,
			Duration:   durations[line.Index],
			SkipReason: skips[line.Index],
		}
		if i, ok := captions[line.Index]; ok {
			start := a.Captions[i].Start / speed
			end := a.Captions[i].End / speed
			rl.CaptionStart, rl.CaptionEnd = &start, &end
		}
		rec.Lines = append(rec.Lines, rl)
	}
	for _, g := range a.Groups {
		rec.Scenes = append(rec.Scenes, &catalog.RunScene{
			Ordinal:     g.Ordinal,
			Fingerprint: g.Fingerprint.String(),
			ImagePath:   g.ImagePath,
			Lines:       g.Lines(),
			Start:       g.Start / speed,
			End:         g.End / speed,
		})
	}
	return rec
}

func normSpeed(f float64) float64 {
	if f <= 0 {
		return 1
	}
	return f
}
