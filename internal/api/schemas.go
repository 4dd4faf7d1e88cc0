package api

import (
	"time"

	"github.com/thinktok/thinktok/internal/catalog"
	"github.com/thinktok/thinktok/internal/subtitle"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State       string         `json:"state"`
	LastError   string         `json:"last_error,omitempty"`
	PendingRuns int            `json:"pending_runs"`
	ActiveRuns  []ActiveRun    `json:"active_runs"`
	Tools       *ToolsResponse `json:"tools,omitempty"`
}

type ActiveRun struct {
	Key     string `json:"key"`
	Script  string `json:"script"`
	Stage   string `json:"stage"`
	Started string `json:"started"`
}

type ToolsResponse struct {
	Ready          bool   `json:"ready"`
	FFmpegVersion  string `json:"ffmpeg_version,omitempty"`
	FFprobeVersion string `json:"ffprobe_version,omitempty"`
	LastProbeAt    string `json:"last_probe_at,omitempty"`
}

type CreateRunRequest struct {
	ScriptPath string             `json:"script_path"`
	OutputDir  string             `json:"output_dir,omitempty"`
	Options    catalog.RunOptions `json:"options"`
}

type CreateRunResponse struct {
	RunID string `json:"run_id"`
}

type RunResponse struct {
	ID           string             `json:"id"`
	ScriptName   string             `json:"script_name"`
	ScriptPath   string             `json:"script_path"`
	OutputDir    string             `json:"output_dir"`
	Status       string             `json:"status"`
	Options      catalog.RunOptions `json:"options"`
	VideoPath    string             `json:"video_path,omitempty"`
	SubtitlePath string             `json:"subtitle_path,omitempty"`
	DurationS    float64            `json:"duration_s"`
	Error        string             `json:"error,omitempty"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type RunDetailResponse struct {
	Run    RunResponse         `json:"run"`
	Lines  []*catalog.RunLine  `json:"lines"`
	Scenes []*catalog.RunScene `json:"scenes"`
}

type CaptionResponse struct {
	Index  int     `json:"index"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
	Text   string  `json:"text"`
}

type CaptionsResponse struct {
	Captions []CaptionResponse `json:"captions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RunToResponse(r *catalog.Run) RunResponse {
	return RunResponse{
		ID:           r.ID,
		ScriptName:   r.ScriptName,
		ScriptPath:   r.ScriptPath,
		OutputDir:    r.OutputDir,
		Status:       r.Status,
		Options:      r.Options,
		VideoPath:    r.VideoPath,
		SubtitlePath: r.SubtitlePath,
		DurationS:    r.Duration,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

func CaptionToResponse(c subtitle.Caption) CaptionResponse {
	return CaptionResponse{Index: c.Index, StartS: c.Start, EndS: c.End, Text: c.Text}
}
