// Package export writes CMX3600 edit decision lists of a rendered video's
// scene groups, for finishing the cut in an NLE.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFrameRate matches the normal encode preset.
const DefaultFrameRate = 30.0

// SceneClips turns scene groups into one clip per group over mediaPath.
// Groups with no positive extent are dropped.
func SceneClips(mediaPath string, scenes []Scene) []Clip {
	clips := make([]Clip, 0, len(scenes))
	for _, s := range scenes {
		start := int(math.Round(s.Start * 1000))
		end := int(math.Round(s.End * 1000))
		if end <= start {
			continue
		}
		clips = append(clips, Clip{
			Name:      sceneName(s),
			MediaPath: mediaPath,
			StartMs:   start,
			EndMs:     end,
		})
	}
	return clips
}

func sceneName(s Scene) string {
	switch len(s.Lines) {
	case 0:
		return fmt.Sprintf("Scene %02d", s.Ordinal)
	case 1:
		return fmt.Sprintf("Scene %02d (line %d)", s.Ordinal, s.Lines[0])
	default:
		return fmt.Sprintf("Scene %02d (lines %d-%d)", s.Ordinal, s.Lines[0], s.Lines[len(s.Lines)-1])
	}
}

// GenerateEDL renders clips as consecutive events on the record timeline.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	fcm := "NON-DROP FRAME"
	if math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01 {
		fcm = "DROP FRAME"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\nFCM: %s\n\n", title, fcm)

	record := 0
	for i, c := range clips {
		length := c.EndMs - c.StartMs
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, "AX", "B",
			msToTimecode(c.StartMs, fps), msToTimecode(c.EndMs, fps),
			msToTimecode(record, fps), msToTimecode(record+length, fps))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", c.Name)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", c.MediaPath)
		record += length
	}
	return b.String()
}

// WriteEDL writes the list to path through a temp file in the same directory.
func WriteEDL(path string, clips []Clip, title string, frameRate float64) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to export")
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".edl-*")
	if err != nil {
		return fmt.Errorf("create temp edl: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(GenerateEDL(clips, title, frameRate)); err != nil {
		tmp.Close()
		return fmt.Errorf("write edl: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func msToTimecode(ms int, fps int) string {
	frames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	ff := frames % fps
	secs := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, secs/60%60, secs%60, ff)
}
