// Package media renders and inspects audio and video through the ffmpeg
// and ffprobe command-line tools.
package media

import "math"

// EncodePreset selects frame rate and x264 speed for every encode of a run.
type EncodePreset struct {
	Name    string
	FPS     int
	Preset  string
	Threads int // zero leaves the choice to ffmpeg
}

var (
	PresetNormal = EncodePreset{Name: "normal", FPS: 30, Preset: "medium"}
	PresetFast   = EncodePreset{Name: "fast", FPS: 12, Preset: "ultrafast", Threads: 8}
)

// FrameAlign rounds d up to a whole number of frames at the preset rate.
// Values within a microsecond of a frame boundary snap to it.
func (p EncodePreset) FrameAlign(d float64) float64 {
	if p.FPS <= 0 || d <= 0 {
		return d
	}
	fps := float64(p.FPS)
	return math.Ceil(d*fps-1e-6) / fps
}

// Rect is a pixel rectangle in frame coordinates.
type Rect struct {
	X, Y, W, H int
}

// ProbeResult holds what the pipeline needs to know about a media file.
type ProbeResult struct {
	Duration float64 // seconds
	Width    int
	Height   int
	HasAudio bool
	HasVideo bool
}

// SceneSpec describes one scene segment: a still illustration over a solid
// background with a drop shadow, carrying the merged narration of its group.
type SceneSpec struct {
	ImagePath string
	AudioPath string
	Duration  float64 // whole frames; the audio is padded with silence to match
	Output    string

	FrameWidth  int
	FrameHeight int
	Background  string // ffmpeg color, e.g. "black"

	// The illustration is scaled to Image.W x ScaledHeight, then CropTop rows
	// are trimmed from the top and Image.H rows kept.
	Image        Rect
	ScaledHeight int
	CropTop      int

	Shadow      Rect
	ShadowColor string // e.g. "black@0.5"

	Preset EncodePreset
}

// Box is a filled rectangle drawn for the whole video.
type Box struct {
	Rect  Rect
	Color string
}

// TextOverlay is a drawtext layer. X and Y are ffmpeg expressions.
// A zero End means the text is visible for the whole video.
type TextOverlay struct {
	Text        string
	FontFile    string
	FontSize    int
	Color       string
	BorderWidth int
	BorderColor string
	LineSpacing int
	X, Y        string
	Start, End  float64
	Fade        float64 // seconds of fade in and fade out, timed text only
}

// Timed reports whether the overlay is limited to [Start, End].
func (t TextOverlay) Timed() bool { return t.End > t.Start }

// ImageOverlay is a still image scaled to Height and placed at X, Y.
// A Brightness between 0 and 1 darkens the image's color channels.
type ImageOverlay struct {
	Path       string
	Height     int
	X, Y       int
	Brightness float64
}

// EffectClip is a sound effect mixed over the main audio.
type EffectClip struct {
	Path     string
	Start    float64 // seconds on the output timeline
	TrimHead float64 // seconds cut from the start of the effect
	GainDB   float64 // loudness correction
	Volume   float64 // linear mix volume
}

// ComposeSpec describes the final pass: overlays, effects and encode.
type ComposeSpec struct {
	Input       string
	Output      string
	WorkDir     string // scratch space for drawtext text files
	Boxes       []Box
	Images      []ImageOverlay
	Texts       []TextOverlay
	Effects     []EffectClip
	SpeedFactor float64
	Preset      EncodePreset
}

// Interval is a span of seconds.
type Interval struct {
	Start, End float64
}

// AudioStats is the result of loudness and silence analysis.
type AudioStats struct {
	MeanVolumeDB float64
	MaxVolumeDB  float64
	Silences     []Interval
}

// LeadingSilence returns the length of silence at the very start, if any.
func (s AudioStats) LeadingSilence() float64 {
	if len(s.Silences) == 0 {
		return 0
	}
	first := s.Silences[0]
	if first.Start > 0.001 {
		return 0
	}
	return first.End
}

// SilenceOptions configures silencedetect.
type SilenceOptions struct {
	NoiseDB     float64 // threshold, e.g. -40
	MinDuration float64 // seconds
}
