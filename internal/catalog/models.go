// Package catalog records generation runs: what was rendered, from which
// script, how its lines were grouped into scenes and where the outputs are.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ConfigKeyAuthToken holds the preview server's bearer token.
const ConfigKeyAuthToken = "auth_token"

// RunOptions are the generate flags a run was started with.
type RunOptions struct {
	GenerateImages bool    `json:"generate_images"`
	Fast           bool    `json:"fast"`
	Mood           string  `json:"mood"`
	SkipTTS        bool    `json:"skip_tts"`
	Rate           float64 `json:"rate"`
	Pitch          float64 `json:"pitch"`
	SpeedFactor    float64 `json:"speed_factor"`
	EDL            bool    `json:"edl"`
	KeepWork       bool    `json:"keep_work"`
	Workers        int     `json:"workers"`
}

type Run struct {
	ID           string     `json:"id"`
	ScriptName   string     `json:"script_name"`
	ScriptPath   string     `json:"script_path"`
	OutputDir    string     `json:"output_dir"`
	Status       string     `json:"status"`
	Options      RunOptions `json:"options"`
	VideoPath    string     `json:"video_path,omitempty"`
	SubtitlePath string     `json:"subtitle_path,omitempty"`
	Duration     float64    `json:"duration_s"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// RunLine is one script line of a run. SkipReason is set for lines left
// out of the video; caption times are nil for them.
type RunLine struct {
	RunID        string   `json:"run_id"`
	Index        int      `json:"index"`
	Text         string   `json:"text"`
	Duration     float64  `json:"duration_s"`
	SkipReason   string   `json:"skip_reason,omitempty"`
	CaptionStart *float64 `json:"caption_start_s,omitempty"`
	CaptionEnd   *float64 `json:"caption_end_s,omitempty"`
}

// RunScene is one scene group of a completed run.
type RunScene struct {
	RunID       string  `json:"run_id"`
	Ordinal     int     `json:"ordinal"`
	Fingerprint string  `json:"fingerprint"`
	ImagePath   string  `json:"image_path"`
	Lines       []int   `json:"lines"`
	Start       float64 `json:"start_s"`
	End         float64 `json:"end_s"`
}

// RunDetail is a run with its lines and scenes.
type RunDetail struct {
	Run    *Run        `json:"run"`
	Lines  []*RunLine  `json:"lines"`
	Scenes []*RunScene `json:"scenes"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewID returns a random run identifier.
func NewID() string {
	return uuid.NewString()
}
