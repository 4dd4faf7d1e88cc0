package narration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultGoogleEndpoint is the Cloud Text-to-Speech synthesize endpoint.
const DefaultGoogleEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// APIError represents a non-2xx response from the speech service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("speech synthesis failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
// Other client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// GoogleTTS synthesizes MP3 speech through the Cloud Text-to-Speech REST API.
type GoogleTTS struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGoogleTTS creates a client authenticated with an API key.
func NewGoogleTTS(apiKey string, logger *slog.Logger) *GoogleTTS {
	return &GoogleTTS{
		endpoint: DefaultGoogleEndpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// WithEndpoint overrides the API endpoint. Used by tests.
func (c *GoogleTTS) WithEndpoint(endpoint string) *GoogleTTS {
	c.endpoint = endpoint
	return c
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns MP3 bytes for text spoken with voice.
func (c *GoogleTTS) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	var payload synthesizeRequest
	payload.Input.Text = text
	payload.Voice.LanguageCode = voice.LanguageCode
	payload.Voice.Name = voice.Name
	payload.AudioConfig.AudioEncoding = "MP3"
	payload.AudioConfig.SpeakingRate = voice.Rate
	payload.AudioConfig.Pitch = voice.Pitch

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesize request: %w", err)
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode synthesize response: %w", err)
	}
	if result.AudioContent == "" {
		return nil, fmt.Errorf("synthesize response has no audio content")
	}
	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}

	c.logger.Debug("speech synthesized",
		"voice", voice.Name,
		"chars", len([]rune(text)),
		"bytes", len(audio),
	)
	return audio, nil
}
