// Package workspace fixes where each pipeline stage reads and writes its
// files for one script, so stages can be re-run independently.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// ImageExtensions lists illustration extensions in lookup preference order.
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

// AudioExtension is the narration file extension.
const AudioExtension = ".mp3"

// Layout resolves per-script paths under an output root:
//
//	<root>/audio/<name>/line_NN.mp3
//	<root>/images/<name>/line_NN.png
//	<root>/subtitles/<name>.srt
//	<root>/video/<name>.mp4
type Layout struct {
	Root string
	Name string
}

// New returns the layout for the script name under root.
func New(root, name string) Layout {
	if root == "" {
		root = "."
	}
	return Layout{Root: root, Name: name}
}

// LineFileName returns "line_NN<ext>" for a 1-based line index.
func LineFileName(index int, ext string) string {
	return fmt.Sprintf("line_%02d%s", index, ext)
}

func (l Layout) AudioDir() string { return filepath.Join(l.Root, "audio", l.Name) }
func (l Layout) ImageDir() string { return filepath.Join(l.Root, "images", l.Name) }

// AudioPath is the narration file for a line.
func (l Layout) AudioPath(index int) string {
	return filepath.Join(l.AudioDir(), LineFileName(index, AudioExtension))
}

// ImagePath is the PNG illustration path written by the image stage.
func (l Layout) ImagePath(index int) string {
	return filepath.Join(l.ImageDir(), LineFileName(index, ".png"))
}

func (l Layout) SubtitlePath() string {
	return filepath.Join(l.Root, "subtitles", l.Name+".srt")
}

func (l Layout) VideoPath() string {
	return filepath.Join(l.Root, "video", l.Name+".mp4")
}

func (l Layout) EDLPath() string {
	return filepath.Join(l.Root, "video", l.Name+".edl")
}

// WorkDir holds intermediate merged audio and scene segments.
func (l Layout) WorkDir() string {
	return filepath.Join(l.Root, "video", l.Name+".work")
}

// Ensure creates every output directory of the layout.
func (l Layout) Ensure() error {
	dirs := []string{
		l.AudioDir(),
		l.ImageDir(),
		filepath.Dir(l.SubtitlePath()),
		filepath.Dir(l.VideoPath()),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
