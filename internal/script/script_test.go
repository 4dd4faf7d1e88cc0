package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_TitleAndBlankLines(t *testing.T) {
	in := "# 뇌 깨우기\\n퀴즈\n\n첫 번째 줄\n   \n두 번째\\n줄\n"

	s, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != "뇌 깨우기\n퀴즈" {
		t.Errorf("Title = %q", s.Title)
	}
	if len(s.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(s.Lines))
	}
	if s.Lines[0].Index != 1 || s.Lines[0].Text != "첫 번째 줄" {
		t.Errorf("line 1 = %+v", s.Lines[0])
	}
	if s.Lines[1].Index != 2 {
		t.Errorf("line 2 index = %d, want 2", s.Lines[1].Index)
	}
	if got := s.Lines[1].Caption(); got != "두 번째\n줄" {
		t.Errorf("Caption() = %q", got)
	}
	if got := s.Lines[1].Speech(); got != "두 번째 줄" {
		t.Errorf("Speech() = %q", got)
	}
}

func TestParse_NoTitle(t *testing.T) {
	s, err := Parse(strings.NewReader("a\nb\nc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != "" {
		t.Errorf("Title = %q, want empty", s.Title)
	}
	if len(s.Lines) != 3 {
		t.Errorf("got %d lines, want 3", len(s.Lines))
	}
}

func TestParse_Empty(t *testing.T) {
	tests := []string{"", "\n\n  \n", "# only a title\n"}
	for _, in := range tests {
		if _, err := Parse(strings.NewReader(in)); !errors.Is(err, ErrEmptyScript) {
			t.Errorf("Parse(%q) error = %v, want ErrEmptyScript", in, err)
		}
	}
}

func TestLoad_Name(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz: day 1.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "quiz_ day 1" {
		t.Errorf("Name = %q", s.Name)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"episode_01", 0, "episode_01"},
		{"a/b\\c", 0, "a_b_c"},
		{"..hidden", 0, "hidden"},
		{"한글 제목", 0, "한글 제목"},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("SanitizeName(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
