package playback

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServeFile(t *testing.T) {
	path := writeFile(t, "ep.mp4", "0123456789")
	srv := NewServer(nil)

	tests := []struct {
		name       string
		rangeHdr   string
		wantStatus int
		wantBody   string
		wantRange  string
	}{
		{"whole file", "", http.StatusOK, "0123456789", ""},
		{"prefix", "bytes=0-3", http.StatusPartialContent, "0123", "bytes 0-3/10"},
		{"open end", "bytes=7-", http.StatusPartialContent, "789", "bytes 7-9/10"},
		{"suffix", "bytes=-2", http.StatusPartialContent, "89", "bytes 8-9/10"},
		{"malformed is ignored", "items=0-1", http.StatusOK, "0123456789", ""},
		{"unsatisfiable", "bytes=20-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/video", nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rr := httptest.NewRecorder()

			if err := srv.ServeFile(rr, req, path); err != nil {
				t.Fatalf("ServeFile() error = %v", err)
			}
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
			if got := rr.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if rr.Code != http.StatusRequestedRangeNotSatisfiable && rr.Header().Get("Content-Type") != "video/mp4" {
				t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServeFile_NotFound(t *testing.T) {
	srv := NewServer(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/video", nil)

	if err := srv.ServeFile(rr, req, filepath.Join(t.TempDir(), "missing.mp4")); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestServeFile_Head(t *testing.T) {
	path := writeFile(t, "ep.srt", "1\n00:00:00,000 --> 00:00:01,000\nhi\n\n")
	srv := NewServer(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/subtitles", nil)

	if err := srv.ServeFile(rr, req, path); err != nil {
		t.Fatal(err)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("HEAD wrote %d body bytes", rr.Body.Len())
	}
	if rr.Header().Get("Content-Length") != "36" {
		t.Errorf("Content-Length = %q", rr.Header().Get("Content-Length"))
	}
}

func TestServeFile_SubtitleSuffix(t *testing.T) {
	last := "2\n00:00:01,000 --> 00:00:02,500\nlast\n\n"
	content := "1\n00:00:00,000 --> 00:00:01,000\nfirst\n\n" + last
	path := writeFile(t, "ep.srt", content)
	srv := NewServer(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/subtitles", nil)
	req.Header.Set("Range", fmt.Sprintf("bytes=-%d", len(last)))

	if err := srv.ServeFile(rr, req, path); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rr.Code)
	}
	if rr.Body.String() != last {
		t.Errorf("body = %q, want %q", rr.Body.String(), last)
	}
	wantRange := fmt.Sprintf("bytes %d-%d/%d", len(content)-len(last), len(content)-1, len(content))
	if got := rr.Header().Get("Content-Range"); got != wantRange {
		t.Errorf("Content-Range = %q, want %q", got, wantRange)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/x-subrip; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a/ep.mp4":  "video/mp4",
		"a/ep.SRT":  "application/x-subrip; charset=utf-8",
		"a/ep.edl":  "text/plain; charset=utf-8",
		"a/unknown": "application/octet-stream",
	}
	for path, want := range tests {
		if got := ContentType(path); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", path, got, want)
		}
	}
}
