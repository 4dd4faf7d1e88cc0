package export

// Scene is one scene group on the output timeline, in seconds.
type Scene struct {
	Ordinal int
	Lines   []int
	Start   float64
	End     float64
}

// Clip is one EDL event: a millisecond range of a media file.
type Clip struct {
	Name      string
	MediaPath string
	StartMs   int
	EndMs     int
}

// Request is the body of an EDL export request for a run.
type Request struct {
	FrameRate float64 `json:"frame_rate"`
	OutputDir string  `json:"output_dir,omitempty"`
}

type Response struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}
