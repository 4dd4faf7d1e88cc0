package assembly

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/thinktok/thinktok/internal/workspace"
)

var lineFileRe = regexp.MustCompile(`^line_(\d+)(\.[A-Za-z]+)$`)

// ImageIndex maps line index to the illustration stored for that line.
type ImageIndex map[int]string

// ScanImages reads dir once. When a line has several images the extension
// earliest in workspace.ImageExtensions wins. A missing dir is empty.
func ScanImages(dir string) (ImageIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ImageIndex{}, nil
		}
		return nil, fmt.Errorf("scan images: %w", err)
	}

	index := ImageIndex{}
	rank := map[int]int{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		m := lineFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		r := extRank(m[2])
		if r < 0 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		if prev, ok := rank[n]; ok && prev <= r {
			continue
		}
		rank[n] = r
		index[n] = filepath.Join(dir, e.Name())
	}
	return index, nil
}

func extRank(ext string) int {
	ext = strings.ToLower(ext)
	for i, e := range workspace.ImageExtensions {
		if e == ext {
			return i
		}
	}
	return -1
}

// Resolve returns the image of the nearest line at or before index that
// has one.
func (ix ImageIndex) Resolve(index int) (string, bool) {
	for i := index; i >= 1; i-- {
		if p, ok := ix[i]; ok {
			return p, true
		}
	}
	return "", false
}
