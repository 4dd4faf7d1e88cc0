package subtitle

import "github.com/thinktok/thinktok/internal/script"

// Sequential lays captions back to back: each line starts where the
// previous one ended and lasts exactly its own narration duration.
// Lines missing from durations are omitted and do not advance time.
func Sequential(lines []script.Line, durations map[int]float64) []Caption {
	captions := make([]Caption, 0, len(lines))
	var elapsed float64
	for _, line := range lines {
		d, ok := durations[line.Index]
		if !ok {
			continue
		}
		captions = append(captions, Caption{
			Index: line.Index,
			Start: elapsed,
			End:   elapsed + d,
			Text:  line.Caption(),
		})
		elapsed += d
	}
	return captions
}

// Scale divides every timestamp by factor, matching a video played back
// factor times faster. A factor <= 0 or equal to 1 returns the input.
func Scale(captions []Caption, factor float64) []Caption {
	if factor <= 0 || factor == 1 {
		return captions
	}
	out := make([]Caption, len(captions))
	for i, c := range captions {
		c.Start /= factor
		c.End /= factor
		out[i] = c
	}
	return out
}
