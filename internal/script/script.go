// Package script loads narration scripts: one utterance per line, with an
// optional leading "#" title used as the video header.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TitleMarker prefixes the optional header line.
const TitleMarker = "#"

// lineBreak is the escape sequence a script author writes for a forced break.
const lineBreak = `\n`

// ErrEmptyScript is returned when a script has no narration lines.
var ErrEmptyScript = errors.New("script has no lines")

// Line is one narration utterance. Index is 1-based and is the only
// ordering key used downstream.
type Line struct {
	Index int
	Text  string
}

// Speech returns the text sent to the speech synthesizer.
func (l Line) Speech() string {
	return strings.Join(strings.Fields(strings.ReplaceAll(l.Text, lineBreak, " ")), " ")
}

// Caption returns the text burned into the video as a subtitle.
func (l Line) Caption() string {
	return strings.ReplaceAll(l.Text, lineBreak, "\n")
}

// Script is a parsed narration script.
type Script struct {
	Name  string
	Title string
	Lines []Line
}

// Load reads and parses the script at path. Name is derived from the
// file's base name.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	s.Name = NameFromPath(path)
	return s, nil
}

// Parse reads a script from r. Blank lines are dropped; a first line
// starting with TitleMarker becomes the title.
func Parse(r io.Reader) (*Script, error) {
	var raw []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		text := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if text != "" {
			raw = append(raw, text)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	s := &Script{}
	if len(raw) > 0 && strings.HasPrefix(raw[0], TitleMarker) {
		title := strings.TrimSpace(strings.TrimPrefix(raw[0], TitleMarker))
		s.Title = strings.ReplaceAll(title, lineBreak, "\n")
		raw = raw[1:]
	}
	if len(raw) == 0 {
		return nil, ErrEmptyScript
	}

	s.Lines = make([]Line, len(raw))
	for i, text := range raw {
		s.Lines[i] = Line{Index: i + 1, Text: text}
	}
	return s, nil
}

// NameFromPath returns the script base name without extension, made safe
// for use as a directory and file name.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := SanitizeName(base, 120)
	if name == "" {
		return "script"
	}
	return name
}
