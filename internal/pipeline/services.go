package pipeline

import (
	"context"
	"log/slog"

	"github.com/thinktok/thinktok/internal/config"
	"github.com/thinktok/thinktok/internal/illustration"
	"github.com/thinktok/thinktok/internal/narration"
)

// Services supplies the external collaborators of a run.
type Services interface {
	// Require fails with *config.MissingCredentialError when a needed key is absent.
	Require(speech, images bool) error
	Synthesizer() narration.Synthesizer
	Translator() illustration.Translator
	Renderer(ctx context.Context) (illustration.Renderer, error)
}

// EnvServices builds the production clients from configuration.
type EnvServices struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewEnvServices(cfg config.Config, logger *slog.Logger) *EnvServices {
	return &EnvServices{cfg: cfg, logger: logger}
}

func (s *EnvServices) Require(speech, images bool) error {
	return config.RequireCredentials(s.cfg, speech, images)
}

func (s *EnvServices) Synthesizer() narration.Synthesizer {
	return narration.NewGoogleTTS(s.cfg.GoogleTTSKey(), s.logger)
}

func (s *EnvServices) Translator() illustration.Translator {
	return illustration.NewOpenAITranslator(s.cfg.OpenAIKey(), s.cfg.TranslateModel())
}

func (s *EnvServices) Renderer(ctx context.Context) (illustration.Renderer, error) {
	if s.cfg.ImageProvider() == config.ProviderGemini {
		return illustration.NewImagenRenderer(ctx, s.cfg.GeminiKey(), s.cfg.ImagenModel())
	}
	return illustration.NewStabilityRenderer(s.cfg.StabilityKey()), nil
}
