// Package subtitle builds caption timelines and reads and writes them in
// SubRip (SRT) format.
package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Caption is one subtitle entry. Times are seconds from the video start.
type Caption struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns End - Start.
func (c Caption) Duration() float64 { return c.End - c.Start }

// Timestamp formats seconds as HH:MM:SS,mmm, rounded to the nearest millisecond.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp is the inverse of Timestamp. A '.' separator is accepted.
func ParseTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(strings.Replace(ts, ".", ",", 1))
	clock, frac, ok := strings.Cut(ts, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", ts)
		}
		total = total*60 + n
	}
	ms, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || ms < 0 || len(frac) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	return float64(total) + float64(ms)/1000, nil
}

// Format writes captions as SRT, renumbering them from 1 in order.
func Format(w io.Writer, captions []Caption) error {
	bw := bufio.NewWriter(w)
	for i, c := range captions {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, Timestamp(c.Start), Timestamp(c.End), c.Text)
	}
	return bw.Flush()
}

// WriteFile replaces path with the SRT rendering of captions.
func WriteFile(path string, captions []Caption) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create subtitle dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Format(&buf, captions); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace subtitles: %w", err)
	}
	return nil
}

// Parse reads SRT captions. Malformed blocks are an error.
func Parse(r io.Reader) ([]Caption, error) {
	sc := bufio.NewScanner(r)
	var (
		captions []Caption
		block    []string
	)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		c, err := parseBlock(block)
		if err != nil {
			return err
		}
		captions = append(captions, c)
		block = block[:0]
		return nil
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if len(captions) == 0 && len(block) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return captions, nil
}

// ReadFile parses the SRT file at path.
func ReadFile(path string) ([]Caption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func parseBlock(block []string) (Caption, error) {
	if len(block) < 2 {
		return Caption{}, fmt.Errorf("incomplete subtitle block %q", strings.Join(block, " | "))
	}
	idx, err := strconv.Atoi(strings.TrimSpace(block[0]))
	if err != nil {
		return Caption{}, fmt.Errorf("invalid subtitle index %q", block[0])
	}
	from, to, ok := strings.Cut(block[1], "-->")
	if !ok {
		return Caption{}, fmt.Errorf("subtitle %d: missing time range", idx)
	}
	start, err := ParseTimestamp(from)
	if err != nil {
		return Caption{}, fmt.Errorf("subtitle %d: %w", idx, err)
	}
	end, err := ParseTimestamp(to)
	if err != nil {
		return Caption{}, fmt.Errorf("subtitle %d: %w", idx, err)
	}
	return Caption{
		Index: idx,
		Start: start,
		End:   end,
		Text:  strings.Join(block[2:], "\n"),
	}, nil
}
