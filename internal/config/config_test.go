package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	for _, env := range []string{EnvPort, EnvFFmpegTimeout, EnvImageProvider, EnvImageRate} {
		os.Unsetenv(env)
	}

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.FFmpegTimeout() != DefaultFFmpegTimeout {
		t.Errorf("FFmpegTimeout() = %v, want %v", cfg.FFmpegTimeout(), DefaultFFmpegTimeout)
	}
	if cfg.ImageProvider() != ProviderStability {
		t.Errorf("ImageProvider() = %q, want %q", cfg.ImageProvider(), ProviderStability)
	}
	if cfg.ImageRate() != DefaultImageRate {
		t.Errorf("ImageRate() = %v, want %v", cfg.ImageRate(), DefaultImageRate)
	}
}

func TestNew_InvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"zero", "0"},
		{"too large", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPort, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should fail", EnvPort, tt.value)
			}
		})
	}
}

func TestNew_DurationOverrides(t *testing.T) {
	t.Setenv(EnvFFmpegTimeout, "90s")
	t.Setenv(EnvImageRate, "500ms")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FFmpegTimeout() != 90*time.Second {
		t.Errorf("FFmpegTimeout() = %v, want 90s", cfg.FFmpegTimeout())
	}
	if cfg.ImageRate() != 500*time.Millisecond {
		t.Errorf("ImageRate() = %v, want 500ms", cfg.ImageRate())
	}
}

func TestNew_InvalidDuration(t *testing.T) {
	t.Setenv(EnvImageRate, "-1s")
	if _, err := New(); err == nil {
		t.Error("negative duration should be rejected")
	}
}

func TestNew_ImageProvider(t *testing.T) {
	t.Setenv(EnvImageProvider, "GEMINI")
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ImageProvider() != ProviderGemini {
		t.Errorf("ImageProvider() = %q, want %q", cfg.ImageProvider(), ProviderGemini)
	}

	t.Setenv(EnvImageProvider, "dalle")
	if _, err := New(); err == nil {
		t.Error("unknown provider should be rejected")
	}
}

func TestRequireCredentials(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		narration    bool
		illustration bool
		wantMissing  []string
	}{
		{
			name:      "narration without key",
			narration: true,
			wantMissing: []string{
				EnvGoogleTTSKey,
			},
		},
		{
			name:      "narration with key",
			env:       map[string]string{EnvGoogleTTSKey: "k"},
			narration: true,
		},
		{
			name:         "illustration stability",
			env:          map[string]string{EnvOpenAIKey: "k"},
			illustration: true,
			wantMissing:  []string{EnvStabilityKey},
		},
		{
			name:         "illustration gemini",
			env:          map[string]string{EnvImageProvider: ProviderGemini},
			illustration: true,
			wantMissing:  []string{EnvOpenAIKey, EnvGeminiKey},
		},
		{
			name: "nothing enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, env := range []string{EnvGoogleTTSKey, EnvOpenAIKey, EnvStabilityKey, EnvGeminiKey, EnvImageProvider} {
				t.Setenv(env, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := New()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			err = RequireCredentials(cfg, tt.narration, tt.illustration)
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var mce *MissingCredentialError
			if !errors.As(err, &mce) {
				t.Fatalf("error = %v, want *MissingCredentialError", err)
			}
			if len(mce.Vars) != len(tt.wantMissing) {
				t.Fatalf("missing = %v, want %v", mce.Vars, tt.wantMissing)
			}
			for i := range mce.Vars {
				if mce.Vars[i] != tt.wantMissing[i] {
					t.Errorf("missing[%d] = %q, want %q", i, mce.Vars[i], tt.wantMissing[i])
				}
			}
		})
	}
}
