package subtitle

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thinktok/thinktok/internal/script"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{2.0004, "00:00:02,000"},
		{2.0006, "00:00:02,001"},
		{61.25, "00:01:01,250"},
		{3725.007, "01:02:05,007"},
		{-3, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := Timestamp(tt.in); got != tt.want {
			t.Errorf("Timestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:00:01,500", 1.5, false},
		{"01:02:05,007", 3725.007, false},
		{"00:00:01.250", 1.25, false},
		{"1.5", 0, true},
		{"00:01,000", 0, true},
		{"00:00:01,5", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	captions := []Caption{
		{Index: 4, Start: 0, End: 2, Text: "첫 줄"},
		{Index: 7, Start: 2, End: 5.5, Text: "둘째\n줄"},
	}
	var buf bytes.Buffer
	if err := Format(&buf, captions); err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,000\n첫 줄\n\n" +
		"2\n00:00:02,000 --> 00:00:05,500\n둘째\n줄\n\n"
	if buf.String() != want {
		t.Errorf("Format() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestParse(t *testing.T) {
	in := "\ufeff1\r\n00:00:00,000 --> 00:00:02,000\r\nhello\r\n\r\n" +
		"2\n00:00:02,000 --> 00:00:04,250\nmulti\nline\n"

	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d captions, want 2", len(got))
	}
	if got[0].Text != "hello" || got[0].End != 2 {
		t.Errorf("caption 1 = %+v", got[0])
	}
	if got[1].Text != "multi\nline" || got[1].End != 4.25 {
		t.Errorf("caption 2 = %+v", got[1])
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"x\n00:00:00,000 --> 00:00:01,000\ntext\n",
		"1\n00:00:00,000 00:00:01,000\ntext\n",
		"1\n",
	}
	for _, in := range tests {
		if _, err := Parse(strings.NewReader(in)); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs", "ep.srt")

	if err := WriteFile(path, []Caption{{Start: 0, End: 1, Text: "old"}, {Start: 1, End: 2, Text: "old2"}}); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := WriteFile(path, []Caption{{Start: 0, End: 3, Text: "new"}}); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(got) != 1 || got[0].Text != "new" || got[0].End != 3 {
		t.Errorf("ReadFile() = %+v", got)
	}
}

func TestSequential(t *testing.T) {
	lines := []script.Line{
		{Index: 1, Text: "a"},
		{Index: 2, Text: "b\\nc"},
		{Index: 3, Text: "missing"},
		{Index: 4, Text: "d"},
	}
	durations := map[int]float64{1: 2.0, 2: 3.0, 4: 1.5}

	got := Sequential(lines, durations)
	want := []Caption{
		{Index: 1, Start: 0, End: 2, Text: "a"},
		{Index: 2, Start: 2, End: 5, Text: "b\nc"},
		{Index: 4, Start: 5, End: 6.5, Text: "d"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d captions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("caption %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestScale(t *testing.T) {
	in := []Caption{{Start: 2, End: 4}}
	if got := Scale(in, 1); got[0].End != 4 {
		t.Errorf("factor 1 changed captions: %+v", got)
	}
	got := Scale(in, 2)
	if got[0].Start != 1 || got[0].End != 2 {
		t.Errorf("Scale(2) = %+v", got)
	}
	if in[0].End != 4 {
		t.Error("Scale mutated its input")
	}
}
