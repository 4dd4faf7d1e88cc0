package illustration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// StyleSuffix is appended to every translated prompt.
const StyleSuffix = "simple flat Simpson cartoon style, yellow background, unnecessary elements excluded"

const (
	translateSystemPrompt = "You are an assistant that translates a Korean instruction into an English DALL·E prompt."
	translateUserPrompt   = `Translate the following into an English prompt for DALL·E: "%s"`
)

// Translator turns a script line into an English image prompt.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// OpenAITranslator asks a chat model for the prompt.
type OpenAITranslator struct {
	client openai.Client
	model  string
}

// NewOpenAITranslator creates a translator for the given chat model.
func NewOpenAITranslator(apiKey, model string, opts ...option.RequestOption) *OpenAITranslator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAITranslator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(translateSystemPrompt),
			openai.UserMessage(fmt.Sprintf(translateUserPrompt, text)),
		},
		Model:       t.model,
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(60),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translation returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Retry configures prompt translation attempts.
type Retry struct {
	Attempts int
	Backoff  time.Duration // doubled after each failed attempt
}

// DefaultRetry is three attempts starting with a one second pause.
var DefaultRetry = Retry{Attempts: 3, Backoff: time.Second}

// BuildPrompt translates text with retries and appends StyleSuffix.
// An empty translation counts as a failed attempt.
func BuildPrompt(ctx context.Context, tr Translator, text string, retry Retry, logger *slog.Logger) (string, error) {
	attempts := max(retry.Attempts, 1)
	wait := retry.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		base, err := tr.Translate(ctx, text)
		if err == nil {
			base = cleanPrompt(base)
			if base != "" {
				return base + " " + StyleSuffix, nil
			}
			err = errors.New("empty translation")
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		logger.Warn("prompt translation failed, retrying",
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return "", fmt.Errorf("translate prompt after %d attempts: %w", attempts, lastErr)
}

func cleanPrompt(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'“”`)
}
