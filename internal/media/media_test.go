package media

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLimitedWriter(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		writes []string
		want   string
	}{
		{"under limit", 100, []string{"hello", " world"}, "hello world"},
		{"exact limit", 5, []string{"abcde"}, "abcde"},
		{"over limit single", 5, []string{"abcdefgh"}, "defgh"},
		{"over limit multi", 8, []string{"aaaa", "bbbb", "cccc"}, "bbbbcccc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			lw := &limitedWriter{w: &buf, limit: tt.limit}
			for _, s := range tt.writes {
				n, err := lw.Write([]byte(s))
				if err != nil {
					t.Fatalf("Write error: %v", err)
				}
				if n != len(s) {
					t.Errorf("Write returned %d, want %d", n, len(s))
				}
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("buffer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789", 4); got != "...6789" {
		t.Errorf("truncate = %q", got)
	}
}

func TestRunResult_IsSuccess(t *testing.T) {
	if !(RunResult{ExitCode: 0}).IsSuccess() {
		t.Error("exit 0 should be success")
	}
	if (RunResult{ExitCode: 1}).IsSuccess() {
		t.Error("exit 1 should not be success")
	}
}

func TestRunner_MissingTool(t *testing.T) {
	r := NewRunner(RunnerConfig{FFmpegPath: filepath.Join(t.TempDir(), "no-such-ffmpeg")})
	_, err := r.FFmpeg(t.Context(), []string{"-version"})
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("error = %v, want ErrToolMissing", err)
	}
}

func TestExecError(t *testing.T) {
	err := &ExecError{Tool: "ffmpeg", ExitCode: 1, StderrTail: "  Invalid argument\n"}
	if got := err.Error(); got != "ffmpeg exited 1: Invalid argument" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "width": 1080, "height": 1920},
			{"codec_type": "audio"}
		],
		"format": {"duration": "12.345000"}
	}`)
	got, err := parseProbe(data)
	if err != nil {
		t.Fatalf("parseProbe error: %v", err)
	}
	if got.Duration != 12.345 {
		t.Errorf("Duration = %v, want 12.345", got.Duration)
	}
	if !got.HasAudio || !got.HasVideo {
		t.Errorf("streams = audio:%v video:%v", got.HasAudio, got.HasVideo)
	}
	if got.Width != 1080 || got.Height != 1920 {
		t.Errorf("size = %dx%d", got.Width, got.Height)
	}
}

func TestParseProbe_Invalid(t *testing.T) {
	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := parseProbe([]byte(`{"format":{"duration":"abc"}}`)); err == nil {
		t.Error("expected error for invalid duration")
	}
	got, err := parseProbe([]byte(`{"format":{"duration":"N/A"}}`))
	if err != nil || got.Duration != 0 {
		t.Errorf("N/A duration: got %+v, %v", got, err)
	}
}

const sampleStderr = `Input #0, mp3, from 'trans_1.mp3':
[silencedetect @ 0x5600] silence_start: 0
[silencedetect @ 0x5600] silence_end: 0.084 | silence_duration: 0.084
[silencedetect @ 0x5600] silence_start: 1.52
[silencedetect @ 0x5600] silence_end: 1.9 | silence_duration: 0.38
size=N/A time=00:00:02.10 bitrate=N/A speed= 180x
[Parsed_volumedetect_1 @ 0x5700] n_samples: 185220
[Parsed_volumedetect_1 @ 0x5700] mean_volume: -27.3 dB
[Parsed_volumedetect_1 @ 0x5700] max_volume: -6.1 dB
`

func TestParseAudioStats(t *testing.T) {
	stats, err := ParseAudioStats(sampleStderr)
	if err != nil {
		t.Fatalf("ParseAudioStats error: %v", err)
	}
	if stats.MeanVolumeDB != -27.3 {
		t.Errorf("MeanVolumeDB = %v, want -27.3", stats.MeanVolumeDB)
	}
	if stats.MaxVolumeDB != -6.1 {
		t.Errorf("MaxVolumeDB = %v, want -6.1", stats.MaxVolumeDB)
	}
	want := []Interval{{0, 0.084}, {1.52, 1.9}}
	if len(stats.Silences) != len(want) {
		t.Fatalf("Silences = %v, want %v", stats.Silences, want)
	}
	for i := range want {
		if stats.Silences[i] != want[i] {
			t.Errorf("Silences[%d] = %v, want %v", i, stats.Silences[i], want[i])
		}
	}
	if got := stats.LeadingSilence(); got != 0.084 {
		t.Errorf("LeadingSilence() = %v, want 0.084", got)
	}
}

func TestParseAudioStats_EdgeCases(t *testing.T) {
	t.Run("digital silence", func(t *testing.T) {
		stats, err := ParseAudioStats("silence_start: 0\nmean_volume: -inf dB\nmax_volume: -inf dB\n")
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if stats.MeanVolumeDB != silentDB {
			t.Errorf("MeanVolumeDB = %v, want %v", stats.MeanVolumeDB, silentDB)
		}
		if got := stats.LeadingSilence(); got != 0 {
			t.Errorf("LeadingSilence() = %v, want 0 for unterminated silence", got)
		}
	})
	t.Run("no leading silence", func(t *testing.T) {
		stats, err := ParseAudioStats("silence_start: 0.5\nsilence_end: 0.9\nmean_volume: -20.0 dB\n")
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if got := stats.LeadingSilence(); got != 0 {
			t.Errorf("LeadingSilence() = %v, want 0", got)
		}
	})
	t.Run("missing volumedetect", func(t *testing.T) {
		if _, err := ParseAudioStats("silence_start: 0\n"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestAtempoChain(t *testing.T) {
	tests := []struct {
		in   float64
		want []float64
	}{
		{1.25, []float64{1.25}},
		{2, []float64{2}},
		{3, []float64{2, 1.5}},
		{0.25, []float64{0.5, 0.5}},
		{0, nil},
	}
	for _, tt := range tests {
		got := AtempoChain(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("AtempoChain(%v) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		product := 1.0
		for i := range got {
			if math.Abs(got[i]-tt.want[i]) > 1e-9 {
				t.Errorf("AtempoChain(%v) = %v, want %v", tt.in, got, tt.want)
			}
			product *= got[i]
		}
		if tt.in > 0 && math.Abs(product-tt.in) > 1e-9 {
			t.Errorf("AtempoChain(%v) product = %v", tt.in, product)
		}
	}
}

func TestFadeExpr(t *testing.T) {
	got := FadeExpr(1, 3, 0.2)
	want := "if(lt(t,1.000+0.200),(t-1.000)/0.200,if(gt(t,3.000-0.200),(3.000-t)/0.200,1))"
	if got != want {
		t.Errorf("FadeExpr = %q, want %q", got, want)
	}
	if got := FadeExpr(1, 1.2, 0.2); !strings.Contains(got, "0.100") {
		t.Errorf("short caption fade not clamped to half duration: %q", got)
	}
	if got := FadeExpr(1, 1, 0.2); got != "1" {
		t.Errorf("zero-length caption = %q, want \"1\"", got)
	}
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	list, err := writeConcatList(filepath.Join(dir, "list.txt"), []string{
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "it's.wav"),
	})
	if err != nil {
		t.Fatalf("writeConcatList error: %v", err)
	}
	data, err := os.ReadFile(list)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "file '") || !strings.HasSuffix(lines[0], "a.wav'") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.Contains(lines[1], `it'\''s.wav`) {
		t.Errorf("quote not escaped: %q", lines[1])
	}
}

func TestSceneArgs(t *testing.T) {
	spec := SceneSpec{
		ImagePath:    "img.png",
		AudioPath:    "group.wav",
		Duration:     5,
		Output:       "scene.mp4",
		FrameWidth:   1080,
		FrameHeight:  1920,
		Background:   "black",
		Image:        Rect{X: 0, Y: 528, W: 1080, H: 864},
		ScaledHeight: 1080,
		CropTop:      108,
		Shadow:       Rect{X: 15, Y: 543, W: 1080, H: 864},
		ShadowColor:  "black@0.5",
		Preset:       PresetFast,
	}
	args := strings.Join(sceneArgs(spec), " ")
	for _, want := range []string{"lavfi", "img.png", "group.wav", "scene.mp4", "libx264", "ultrafast", "drawbox", "overlay", "crop", "apad"} {
		if !strings.Contains(args, want) {
			t.Errorf("scene args missing %q: %s", want, args)
		}
	}
}

func TestComposeArgs(t *testing.T) {
	dir := t.TempDir()
	spec := ComposeSpec{
		Input:   "main.mp4",
		Output:  "final.mp4",
		WorkDir: dir,
		Boxes:   []Box{{Rect: Rect{0, 1600, 1080, 345}, Color: "0xF0C8A0"}},
		Texts: []TextOverlay{
			{Text: "header", FontSize: 76, Color: "white", X: "(w-text_w)/2", Y: "200"},
			{Text: "caption", FontSize: 50, Color: "white", X: "(w-text_w)/2", Y: "1412", Start: 1, End: 3, Fade: 0.2},
		},
		Effects:     []EffectClip{{Path: "intro.mp3", Start: 0, GainDB: 3, Volume: 0.32}},
		SpeedFactor: 1.5,
		Preset:      PresetNormal,
	}
	got, err := composeArgs(spec)
	if err != nil {
		t.Fatalf("composeArgs error: %v", err)
	}
	args := strings.Join(got, " ")
	for _, want := range []string{"main.mp4", "intro.mp3", "final.mp4", "drawtext", "amix", "atempo", "setpts", "medium"} {
		if !strings.Contains(args, want) {
			t.Errorf("compose args missing %q: %s", want, args)
		}
	}
	for i, want := range []string{"header", "caption"} {
		data, err := os.ReadFile(filepath.Join(dir, []string{"text_000.txt", "text_001.txt"}[i]))
		if err != nil {
			t.Fatalf("text file %d: %v", i, err)
		}
		if string(data) != want {
			t.Errorf("text file %d = %q, want %q", i, data, want)
		}
	}
}

func TestEncodePreset_FrameAlign(t *testing.T) {
	tests := []struct {
		name   string
		preset EncodePreset
		in     float64
		want   float64
	}{
		{"whole frames unchanged", PresetNormal, 5, 5},
		{"rounds up at 30fps", PresetNormal, 6.09, 183.0 / 30},
		{"rounds up at 12fps", PresetFast, 2.03, 25.0 / 12},
		{"float noise snaps down", PresetFast, 0.1 + 0.2 + 1.2 - 1e-12, 1.5},
		{"zero fps", EncodePreset{}, 1.234, 1.234},
		{"zero duration", PresetNormal, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.preset.FrameAlign(tt.in)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("FrameAlign(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if n := got * float64(tt.preset.FPS); tt.preset.FPS > 0 && math.Abs(n-math.Round(n)) > 1e-9 {
				t.Errorf("FrameAlign(%v) = %v is not a whole number of frames", tt.in, got)
			}
		})
	}
}
