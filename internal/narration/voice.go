// Package narration turns script lines into per-line speech audio files.
package narration

import (
	"fmt"
	"strings"
)

// Mood selects the narrator's voice.
type Mood string

const (
	MoodHappy Mood = "happy"
	MoodAngry Mood = "angry"

	DefaultMood         = MoodAngry
	DefaultLanguageCode = "ko-KR"
	DefaultRate         = 1.0
	DefaultPitch        = 0.0
)

var moodVoices = map[Mood]string{
	MoodHappy: "ko-KR-Chirp3-HD-Achird",
	MoodAngry: "ko-KR-Chirp3-HD-Schedar",
}

// ParseMood validates a mood name.
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return DefaultMood, nil
	}
	if _, ok := moodVoices[m]; !ok {
		return "", fmt.Errorf("unknown mood %q: want %q or %q", s, MoodHappy, MoodAngry)
	}
	return m, nil
}

// Voice is the synthesis configuration for a run.
type Voice struct {
	Name         string
	LanguageCode string
	Rate         float64 // speaking rate, 1.0 is normal
	Pitch        float64 // semitones
}

// VoiceFor returns the voice for a mood with the given rate and pitch.
func VoiceFor(m Mood, rate, pitch float64) Voice {
	name, ok := moodVoices[m]
	if !ok {
		name = moodVoices[DefaultMood]
	}
	return Voice{
		Name:         name,
		LanguageCode: DefaultLanguageCode,
		Rate:         rate,
		Pitch:        pitch,
	}
}
