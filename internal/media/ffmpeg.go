package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpeg is the media surface the pipeline depends on.
type FFmpeg interface {
	// Probe returns duration and stream information for a media file.
	Probe(ctx context.Context, path string) (*ProbeResult, error)

	// ConcatAudio joins audio files in order into a single PCM WAV track.
	ConcatAudio(ctx context.Context, inputs []string, output string) error

	// RenderScene encodes one still-image scene segment.
	RenderScene(ctx context.Context, spec SceneSpec) error

	// ConcatVideo joins encoded segments with identical parameters.
	ConcatVideo(ctx context.Context, segments []string, output string) error

	// AnalyzeAudio measures loudness and detects silent intervals.
	AnalyzeAudio(ctx context.Context, path string, opts SilenceOptions) (*AudioStats, error)

	// Compose applies overlays and sound effects and writes the final encode.
	Compose(ctx context.Context, spec ComposeSpec) error

	// Cut copies [start, end) of an audio file into output, re-encoding to MP3.
	Cut(ctx context.Context, input, output string, start, end float64) error
}

// CLI implements FFmpeg by building filter graphs with ffmpeg-go and
// executing them through a Runner.
type CLI struct {
	runner *Runner
	logger *slog.Logger
}

// NewCLI creates a CLI backed by runner.
func NewCLI(runner *Runner, logger *slog.Logger) *CLI {
	return &CLI{runner: runner, logger: logger}
}

type probeJSON struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (c *CLI) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	res, err := c.runner.FFprobe(ctx, []string{
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height",
		"-of", "json",
		path,
	})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}
	return parseProbe(res.Stdout)
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var pj probeJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}
	out := &ProbeResult{}
	if pj.Format.Duration != "" && pj.Format.Duration != "N/A" {
		d, err := strconv.ParseFloat(pj.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", pj.Format.Duration, err)
		}
		out.Duration = d
	}
	for _, s := range pj.Streams {
		switch s.CodecType {
		case "audio":
			out.HasAudio = true
		case "video":
			out.HasVideo = true
			if out.Width == 0 {
				out.Width, out.Height = s.Width, s.Height
			}
		}
	}
	return out, nil
}

func (c *CLI) ConcatAudio(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat audio: no inputs")
	}
	list, err := writeConcatList(output+".txt", inputs)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	args := ffmpeg.Input(list, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(output, ffmpeg.KwArgs{"c:a": "pcm_s16le", "ar": "44100", "ac": "2"}).
		OverWriteOutput().
		GetArgs()

	if _, err := c.runner.FFmpeg(ctx, args); err != nil {
		return fmt.Errorf("concat audio: %w", err)
	}
	return nil
}

func (c *CLI) RenderScene(ctx context.Context, spec SceneSpec) error {
	args := sceneArgs(spec)
	if _, err := c.runner.FFmpeg(ctx, args); err != nil {
		return fmt.Errorf("render scene %s: %w", filepath.Base(spec.Output), err)
	}
	return nil
}

func sceneArgs(spec SceneSpec) []string {
	dur := seconds(spec.Duration)
	fps := strconv.Itoa(spec.Preset.FPS)

	bg := ffmpeg.Input(
		fmt.Sprintf("color=c=%s:s=%dx%d:r=%s:d=%s", spec.Background, spec.FrameWidth, spec.FrameHeight, fps, dur),
		ffmpeg.KwArgs{"f": "lavfi"},
	)
	img := ffmpeg.Input(spec.ImagePath, ffmpeg.KwArgs{"loop": "1", "t": dur}).
		Filter("scale", ffmpeg.Args{strconv.Itoa(spec.Image.W), strconv.Itoa(spec.ScaledHeight)}).
		Filter("crop", ffmpeg.Args{
			strconv.Itoa(spec.Image.W),
			strconv.Itoa(spec.Image.H),
			"0",
			strconv.Itoa(spec.CropTop),
		})

	video := bg.
		Filter("drawbox", nil, rectArgs(spec.Shadow, spec.ShadowColor)).
		Overlay(img, "repeat", ffmpeg.KwArgs{"x": strconv.Itoa(spec.Image.X), "y": strconv.Itoa(spec.Image.Y)}).
		Filter("format", ffmpeg.Args{"yuv420p"})
	audio := ffmpeg.Input(spec.AudioPath).Audio().Filter("apad", nil)

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, spec.Output, encodeArgs(spec.Preset, ffmpeg.KwArgs{"t": dur})).
		OverWriteOutput().
		GetArgs()
}

func (c *CLI) ConcatVideo(ctx context.Context, segments []string, output string) error {
	if len(segments) == 0 {
		return fmt.Errorf("concat video: no segments")
	}
	list, err := writeConcatList(output+".txt", segments)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	args := ffmpeg.Input(list, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(output, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().
		GetArgs()

	if _, err := c.runner.FFmpeg(ctx, args); err != nil {
		return fmt.Errorf("concat video: %w", err)
	}
	return nil
}

func (c *CLI) AnalyzeAudio(ctx context.Context, path string, opts SilenceOptions) (*AudioStats, error) {
	args := ffmpeg.Input(path).Audio().
		Filter("silencedetect", nil, ffmpeg.KwArgs{
			"noise": fmt.Sprintf("%gdB", opts.NoiseDB),
			"d":     seconds(opts.MinDuration),
		}).
		Filter("volumedetect", nil).
		Output("-", ffmpeg.KwArgs{"f": "null"}).
		GetArgs()

	res, err := c.runner.FFmpegAnalyze(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", filepath.Base(path), err)
	}
	return ParseAudioStats(res.StderrTail)
}

func (c *CLI) Compose(ctx context.Context, spec ComposeSpec) error {
	args, err := composeArgs(spec)
	if err != nil {
		return err
	}
	if _, err := c.runner.FFmpeg(ctx, args); err != nil {
		return fmt.Errorf("compose %s: %w", filepath.Base(spec.Output), err)
	}
	return nil
}

func composeArgs(spec ComposeSpec) ([]string, error) {
	base := ffmpeg.Input(spec.Input)
	video := base.Video()

	for _, b := range spec.Boxes {
		video = video.Filter("drawbox", nil, rectArgs(b.Rect, b.Color))
	}
	for _, ov := range spec.Images {
		logo := ffmpeg.Input(ov.Path).Filter("scale", ffmpeg.Args{"-1", strconv.Itoa(ov.Height)})
		if b := ov.Brightness; b > 0 && b < 1 {
			k := strconv.FormatFloat(b, 'f', -1, 64)
			logo = logo.Filter("colorchannelmixer", nil, ffmpeg.KwArgs{"rr": k, "gg": k, "bb": k})
		}
		video = video.Overlay(logo, "repeat", ffmpeg.KwArgs{"x": strconv.Itoa(ov.X), "y": strconv.Itoa(ov.Y)})
	}
	for i, t := range spec.Texts {
		textFile := filepath.Join(spec.WorkDir, fmt.Sprintf("text_%03d.txt", i))
		if err := os.WriteFile(textFile, []byte(t.Text), 0644); err != nil {
			return nil, fmt.Errorf("write overlay text: %w", err)
		}
		video = video.Filter("drawtext", nil, drawtextArgs(t, textFile))
	}

	audio := base.Audio()
	if len(spec.Effects) > 0 {
		streams := []*ffmpeg.Stream{audio}
		for _, e := range spec.Effects {
			streams = append(streams, effectStream(e))
		}
		audio = ffmpeg.Filter(streams, "amix", nil, ffmpeg.KwArgs{
			"inputs":             strconv.Itoa(len(streams)),
			"duration":           "first",
			"dropout_transition": "0",
			"normalize":          "0",
		})
	}

	if f := spec.SpeedFactor; f > 0 && f != 1 {
		video = video.Filter("setpts", ffmpeg.Args{"PTS/" + strconv.FormatFloat(f, 'f', -1, 64)})
		for _, step := range AtempoChain(f) {
			audio = audio.Filter("atempo", ffmpeg.Args{strconv.FormatFloat(step, 'f', -1, 64)})
		}
	}
	video = video.Filter("format", ffmpeg.Args{"yuv420p"})

	extra := ffmpeg.KwArgs{"b:a": "192k", "movflags": "+faststart"}
	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, spec.Output, encodeArgs(spec.Preset, extra)).
		OverWriteOutput().
		GetArgs(), nil
}

func effectStream(e EffectClip) *ffmpeg.Stream {
	s := ffmpeg.Input(e.Path).Audio()
	if e.TrimHead > 0 {
		s = s.Filter("atrim", nil, ffmpeg.KwArgs{"start": seconds(e.TrimHead)}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
	}
	s = s.Filter("volume", ffmpeg.Args{fmt.Sprintf("%.2fdB", e.GainDB)}).
		Filter("volume", ffmpeg.Args{strconv.FormatFloat(e.Volume, 'f', -1, 64)})
	if delay := int(e.Start*1000 + 0.5); delay > 0 {
		s = s.Filter("adelay", nil, ffmpeg.KwArgs{"delays": strconv.Itoa(delay), "all": "1"})
	}
	return s
}

func drawtextArgs(t TextOverlay, textFile string) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"textfile":  textFile,
		"fontsize":  strconv.Itoa(t.FontSize),
		"fontcolor": t.Color,
		"x":         t.X,
		"y":         t.Y,
	}
	if t.FontFile != "" {
		kw["fontfile"] = t.FontFile
	}
	if t.BorderWidth > 0 {
		kw["borderw"] = strconv.Itoa(t.BorderWidth)
		kw["bordercolor"] = t.BorderColor
	}
	if t.LineSpacing != 0 {
		kw["line_spacing"] = strconv.Itoa(t.LineSpacing)
	}
	if t.Timed() {
		kw["enable"] = fmt.Sprintf("between(t,%s,%s)", seconds(t.Start), seconds(t.End))
		if t.Fade > 0 {
			kw["alpha"] = FadeExpr(t.Start, t.End, t.Fade)
		}
	}
	return kw
}

// FadeExpr returns a drawtext alpha expression fading in over the first and
// out over the last fade seconds of [start, end].
func FadeExpr(start, end, fade float64) string {
	if half := (end - start) / 2; fade > half {
		fade = half
	}
	if fade <= 0 {
		return "1"
	}
	s, e, f := seconds(start), seconds(end), seconds(fade)
	return fmt.Sprintf("if(lt(t,%s+%s),(t-%s)/%s,if(gt(t,%s-%s),(%s-t)/%s,1))", s, f, s, f, e, f, e, f)
}

// AtempoChain splits a speed factor into atempo steps within [0.5, 2].
func AtempoChain(factor float64) []float64 {
	if factor <= 0 {
		return nil
	}
	var steps []float64
	for factor > 2 {
		steps = append(steps, 2)
		factor /= 2
	}
	for factor < 0.5 {
		steps = append(steps, 0.5)
		factor /= 0.5
	}
	return append(steps, factor)
}

func (c *CLI) Cut(ctx context.Context, input, output string, start, end float64) error {
	if end <= start {
		return fmt.Errorf("cut %s: empty range %.3f-%.3f", filepath.Base(input), start, end)
	}
	args := ffmpeg.Input(input, ffmpeg.KwArgs{"ss": seconds(start), "to": seconds(end)}).
		Output(output, ffmpeg.KwArgs{"c:a": "libmp3lame", "q:a": "2"}).
		OverWriteOutput().
		GetArgs()
	if _, err := c.runner.FFmpeg(ctx, args); err != nil {
		return fmt.Errorf("cut %s: %w", filepath.Base(output), err)
	}
	return nil
}

func encodeArgs(p EncodePreset, extra ffmpeg.KwArgs) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"preset":  p.Preset,
		"r":       strconv.Itoa(p.FPS),
		"pix_fmt": "yuv420p",
		"c:a":     "aac",
		"ar":      "44100",
	}
	if p.Threads > 0 {
		kw["threads"] = strconv.Itoa(p.Threads)
	}
	for k, v := range extra {
		kw[k] = v
	}
	return kw
}

func rectArgs(r Rect, color string) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"x":     strconv.Itoa(r.X),
		"y":     strconv.Itoa(r.Y),
		"w":     strconv.Itoa(r.W),
		"h":     strconv.Itoa(r.H),
		"color": color,
		"t":     "fill",
	}
}

// writeConcatList writes an ffmpeg concat demuxer list file.
func writeConcatList(path string, files []string) (string, error) {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", f, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return path, nil
}

func seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
