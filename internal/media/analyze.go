package media

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	meanVolumeRe   = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+|-inf) dB`)
	maxVolumeRe    = regexp.MustCompile(`max_volume:\s*(-?[\d.]+|-inf) dB`)
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// silentDB stands in for -inf reported on digital silence.
const silentDB = -91.0

// ParseAudioStats extracts volumedetect and silencedetect results from
// ffmpeg's stderr. A silence still open at end of input is closed at its
// own start, since its end is unknown.
func ParseAudioStats(stderr string) (*AudioStats, error) {
	stats := &AudioStats{}
	var (
		sawMean bool
		open    = -1.0
	)

	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := sc.Text()
		if m := meanVolumeRe.FindStringSubmatch(line); m != nil {
			v, err := parseDB(m[1])
			if err != nil {
				return nil, err
			}
			stats.MeanVolumeDB = v
			sawMean = true
		}
		if m := maxVolumeRe.FindStringSubmatch(line); m != nil {
			v, err := parseDB(m[1])
			if err != nil {
				return nil, err
			}
			stats.MaxVolumeDB = v
		}
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid silence_start %q", m[1])
			}
			if v < 0 {
				v = 0
			}
			open = v
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && open >= 0 {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid silence_end %q", m[1])
			}
			stats.Silences = append(stats.Silences, Interval{Start: open, End: v})
			open = -1
		}
	}
	if open >= 0 {
		stats.Silences = append(stats.Silences, Interval{Start: open, End: open})
	}
	if !sawMean {
		return nil, fmt.Errorf("volumedetect output not found")
	}
	return stats, nil
}

func parseDB(s string) (float64, error) {
	if s == "-inf" {
		return silentDB, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q", s)
	}
	return v, nil
}
