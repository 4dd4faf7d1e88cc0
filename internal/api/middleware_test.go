package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thinktok/thinktok/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		w.WriteHeader(http.StatusOK)
	})
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"https://127.0.0.1:8443", true},
		{"http://[::1]:3000", true},
		{"http://example.com", false},
		{"http://localhost.example.com", false},
		{"file://localhost", false},
		{"http://localhost:5173/app", false},
		{"http://localhost:99999", false},
		{"http://user@localhost", false},
		{"null", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := isAllowedOrigin(tt.origin); got != tt.want {
				t.Errorf("isAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestIsLoopbackRemoteAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:1234", true},
		{"[::1]:1234", true},
		{"127.0.0.1", true},
		{"192.168.1.5:80", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLoopbackRemoteAddr(tt.addr); got != tt.want {
			t.Errorf("isLoopbackRemoteAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestCORSAllowlist(t *testing.T) {
	handler := CORSAllowlist()(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("Allow-Origin = %q", got)
		}
		vary := rr.Header().Values("Vary")
		if len(vary) != 2 || vary[0] != "Origin" {
			t.Errorf("Vary = %v, want Origin kept alongside handler values", vary)
		}
	})

	t.Run("denied origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("status = %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
		req.Header.Set("Origin", "http://127.0.0.1:3000")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
			t.Errorf("Allow-Headers = %q", got)
		}
		if got := rr.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
			t.Errorf("Allow-Methods = %q", got)
		}
	})

	t.Run("denied preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rr.Code)
		}
	})

	t.Run("no origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Values("Vary"); len(got) != 1 {
			t.Errorf("Vary = %v", got)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
