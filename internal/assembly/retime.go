package assembly

import "github.com/thinktok/thinktok/internal/subtitle"

// Span is one timeline entry in seconds.
type Span struct {
	Start, End float64
}

// Duration returns End - Start.
func (s Span) Duration() float64 { return s.End - s.Start }

// Retime derives captions from flushed groups. Each group's measured span
// is split among its own entries in proportion to their narration lengths,
// or equally when those are all zero. The merged track may be longer or
// shorter than the sum of its members; the difference is spread the same
// way and the last caption ends exactly at the group end, so captions tile
// every group and never cross into the next one.
func Retime(groups []Group) []subtitle.Caption {
	var captions []subtitle.Caption
	for _, g := range groups {
		if len(g.Entries) == 0 {
			continue
		}
		length := g.Duration()
		total := g.OwnDuration()

		t := g.Start
		for i, e := range g.Entries {
			share := length / float64(len(g.Entries))
			if total > 0 {
				share = length * e.Duration / total
			}
			end := t + share
			if i == len(g.Entries)-1 {
				end = g.End
			}
			captions = append(captions, subtitle.Caption{
				Index: len(captions) + 1,
				Start: t,
				End:   end,
				Text:  e.Line.Caption(),
			})
			t = end
		}
	}
	return captions
}

// Timeline returns the spans of flushed groups.
func Timeline(groups []Group) []Span {
	out := make([]Span, len(groups))
	for i, g := range groups {
		out[i] = Span{Start: g.Start, End: g.End}
	}
	return out
}
