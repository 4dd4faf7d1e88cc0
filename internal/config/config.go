// Package config provides configuration management for thinktok.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".thinktok"

	// Environment variable names
	EnvPort     = "THINKTOK_PORT"
	EnvLogLevel = "THINKTOK_LOG_LEVEL"
	EnvDataDir  = "THINKTOK_DATA_DIR"

	// Media tool environment variable names
	EnvFFmpegPath    = "THINKTOK_FFMPEG_PATH"
	EnvFFprobePath   = "THINKTOK_FFPROBE_PATH"
	EnvFFmpegTimeout = "THINKTOK_FFMPEG_TIMEOUT"

	// Asset environment variable names
	EnvFontPath      = "THINKTOK_FONT_PATH"
	EnvBrandFontPath = "THINKTOK_BRAND_FONT_PATH"
	EnvSFXDir        = "THINKTOK_SFX_DIR"
	EnvLogoPath      = "THINKTOK_LOGO_PATH"

	// Illustration environment variable names
	EnvImageProvider  = "THINKTOK_IMAGE_PROVIDER"
	EnvImageRate      = "THINKTOK_IMAGE_RATE"
	EnvTranslateModel = "THINKTOK_TRANSLATE_MODEL"
	EnvImagenModel    = "THINKTOK_IMAGEN_MODEL"

	// Credentials
	EnvGoogleTTSKey = "GOOGLE_TTS_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvStabilityKey = "STABILITY_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"

	// Database filename
	DBFilename = "thinktok.db"

	DefaultFFmpegPath     = "ffmpeg"
	DefaultFFprobePath    = "ffprobe"
	DefaultFFmpegTimeout  = 30 * time.Minute
	DefaultFontPath       = "fonts/title_2.otf"
	DefaultBrandFontPath  = "fonts/design.otf"
	DefaultSFXDir         = "sfx"
	DefaultLogoPath       = "images/logo.png"
	DefaultImageRate      = 2 * time.Second
	DefaultTranslateModel = "gpt-4o-mini"
	DefaultImagenModel    = "imagen-3.0-generate-002"

	ProviderStability = "stability"
	ProviderGemini    = "gemini"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string

	FFmpegPath() string
	FFprobePath() string
	FFmpegTimeout() time.Duration

	FontPath() string
	BrandFontPath() string
	SFXDir() string
	LogoPath() string

	ImageProvider() string
	ImageRate() time.Duration
	TranslateModel() string
	ImagenModel() string

	GoogleTTSKey() string
	OpenAIKey() string
	StabilityKey() string
	GeminiKey() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	ffmpegPath    string
	ffprobePath   string
	ffmpegTimeout time.Duration

	fontPath      string
	brandFontPath string
	sfxDir        string
	logoPath      string

	imageProvider  string
	imageRate      time.Duration
	translateModel string
	imagenModel    string

	googleTTSKey string
	openAIKey    string
	stabilityKey string
	geminiKey    string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		ffmpegPath:     DefaultFFmpegPath,
		ffprobePath:    DefaultFFprobePath,
		ffmpegTimeout:  DefaultFFmpegTimeout,
		fontPath:       DefaultFontPath,
		brandFontPath:  DefaultBrandFontPath,
		sfxDir:         DefaultSFXDir,
		logoPath:       DefaultLogoPath,
		imageProvider:  ProviderStability,
		imageRate:      DefaultImageRate,
		translateModel: DefaultTranslateModel,
		imagenModel:    DefaultImagenModel,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	overrideString(&cfg.ffmpegPath, EnvFFmpegPath)
	overrideString(&cfg.ffprobePath, EnvFFprobePath)
	overrideString(&cfg.fontPath, EnvFontPath)
	overrideString(&cfg.brandFontPath, EnvBrandFontPath)
	overrideString(&cfg.sfxDir, EnvSFXDir)
	overrideString(&cfg.logoPath, EnvLogoPath)
	overrideString(&cfg.translateModel, EnvTranslateModel)
	overrideString(&cfg.imagenModel, EnvImagenModel)

	if err := overrideDuration(&cfg.ffmpegTimeout, EnvFFmpegTimeout); err != nil {
		return nil, err
	}
	if err := overrideDuration(&cfg.imageRate, EnvImageRate); err != nil {
		return nil, err
	}

	if ip := os.Getenv(EnvImageProvider); ip != "" {
		ip = strings.ToLower(ip)
		if ip != ProviderStability && ip != ProviderGemini {
			return nil, fmt.Errorf("invalid %s: must be %q or %q", EnvImageProvider, ProviderStability, ProviderGemini)
		}
		cfg.imageProvider = ip
	}

	cfg.googleTTSKey = os.Getenv(EnvGoogleTTSKey)
	cfg.openAIKey = os.Getenv(EnvOpenAIKey)
	cfg.stabilityKey = os.Getenv(EnvStabilityKey)
	cfg.geminiKey = os.Getenv(EnvGeminiKey)

	return cfg, nil
}

// Port returns the preview server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite run catalog
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

func (c *EnvConfig) FFmpegPath() string  { return c.ffmpegPath }
func (c *EnvConfig) FFprobePath() string { return c.ffprobePath }

// FFmpegTimeout bounds every single ffmpeg invocation.
func (c *EnvConfig) FFmpegTimeout() time.Duration { return c.ffmpegTimeout }

func (c *EnvConfig) FontPath() string      { return c.fontPath }
func (c *EnvConfig) BrandFontPath() string { return c.brandFontPath }
func (c *EnvConfig) SFXDir() string        { return c.sfxDir }
func (c *EnvConfig) LogoPath() string      { return c.logoPath }

// ImageProvider returns the text-to-image backend: stability or gemini.
func (c *EnvConfig) ImageProvider() string { return c.imageProvider }

// ImageRate is the minimum interval between two render requests.
func (c *EnvConfig) ImageRate() time.Duration { return c.imageRate }

func (c *EnvConfig) TranslateModel() string { return c.translateModel }
func (c *EnvConfig) ImagenModel() string    { return c.imagenModel }

func (c *EnvConfig) GoogleTTSKey() string { return c.googleTTSKey }
func (c *EnvConfig) OpenAIKey() string    { return c.openAIKey }
func (c *EnvConfig) StabilityKey() string { return c.stabilityKey }
func (c *EnvConfig) GeminiKey() string    { return c.geminiKey }

// MissingCredentialError reports required API keys absent from the environment.
type MissingCredentialError struct {
	Vars []string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing required credentials: %s", strings.Join(e.Vars, ", "))
}

// RequireCredentials checks the keys needed by the enabled stages.
// Narration needs the TTS key; illustration needs the translation key and
// the key of the configured image provider.
func RequireCredentials(c Config, narration, illustration bool) error {
	var missing []string
	if narration && c.GoogleTTSKey() == "" {
		missing = append(missing, EnvGoogleTTSKey)
	}
	if illustration {
		if c.OpenAIKey() == "" {
			missing = append(missing, EnvOpenAIKey)
		}
		switch c.ImageProvider() {
		case ProviderGemini:
			if c.GeminiKey() == "" {
				missing = append(missing, EnvGeminiKey)
			}
		default:
			if c.StabilityKey() == "" {
				missing = append(missing, EnvStabilityKey)
			}
		}
	}
	if len(missing) > 0 {
		return &MissingCredentialError{Vars: missing}
	}
	return nil
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", env)
	}
	*dst = d
	return nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
