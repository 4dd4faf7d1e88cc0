package assembly

import "github.com/thinktok/thinktok/internal/script"

// Entry is an eligible line: its narration exists and an illustration
// resolved for it.
type Entry struct {
	Line        script.Line
	AudioPath   string
	ImagePath   string
	Fingerprint Fingerprint
	Duration    float64 // own narration length in seconds
}

// Group is a maximal run of consecutive entries sharing one fingerprint.
// Start and End are filled in when the group is flushed.
type Group struct {
	Ordinal     int
	Fingerprint Fingerprint
	ImagePath   string
	Entries     []Entry
	Start, End  float64
}

// Duration is the measured length of the merged narration.
func (g Group) Duration() float64 { return g.End - g.Start }

// AudioPaths returns the member narration files in order.
func (g Group) AudioPaths() []string {
	out := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.AudioPath
	}
	return out
}

// Lines returns the member line indices in order.
func (g Group) Lines() []int {
	out := make([]int, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.Line.Index
	}
	return out
}

// OwnDuration sums the members' own narration lengths.
func (g Group) OwnDuration() float64 {
	var total float64
	for _, e := range g.Entries {
		total += e.Duration
	}
	return total
}

// Segment splits entries into scene groups. The first entry opens a group,
// an equal fingerprint extends it and a different one starts the next.
func Segment(entries []Entry) []Group {
	var groups []Group
	for _, e := range entries {
		if n := len(groups); n > 0 && groups[n-1].Fingerprint == e.Fingerprint {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, Group{
			Ordinal:     len(groups) + 1,
			Fingerprint: e.Fingerprint,
			ImagePath:   e.ImagePath,
			Entries:     []Entry{e},
		})
	}
	return groups
}
