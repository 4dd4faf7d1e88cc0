package illustration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// Renderer produces an encoded raster image for a prompt.
type Renderer interface {
	Render(ctx context.Context, prompt string, width, height int) ([]byte, error)
}

const (
	DefaultStabilityHost   = "https://api.stability.ai"
	DefaultStabilityEngine = "stable-diffusion-v1-6"
)

// RenderError represents a non-2xx response from an image service.
type RenderError struct {
	StatusCode int
	Body       string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("image render failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
func (e *RenderError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// StabilityRenderer calls the Stability AI text-to-image REST API.
type StabilityRenderer struct {
	host       string
	engine     string
	apiKey     string
	httpClient *http.Client
}

// NewStabilityRenderer creates a renderer for the default engine.
func NewStabilityRenderer(apiKey string) *StabilityRenderer {
	return &StabilityRenderer{
		host:   DefaultStabilityHost,
		engine: DefaultStabilityEngine,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithHost overrides the API host. Used by tests.
func (r *StabilityRenderer) WithHost(host string) *StabilityRenderer {
	r.host = host
	return r
}

type stabilityTextPrompt struct {
	Text string `json:"text"`
}

type stabilityRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	CFGScale    float64               `json:"cfg_scale"`
	Samples     int                   `json:"samples"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Steps       int                   `json:"steps"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

func (r *StabilityRenderer) Render(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	body, err := json.Marshal(stabilityRequest{
		TextPrompts: []stabilityTextPrompt{{Text: prompt}},
		CFGScale:    7,
		Samples:     1,
		Width:       width,
		Height:      height,
		Steps:       30,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", r.host, r.engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RenderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result stabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if len(result.Artifacts) == 0 {
		return nil, errors.New("render response has no artifacts")
	}
	data, err := base64.StdEncoding.DecodeString(result.Artifacts[0].Base64)
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return data, nil
}

// ImagenRenderer generates images with Imagen through the Gemini API.
type ImagenRenderer struct {
	client *genai.Client
	model  string
}

// NewImagenRenderer creates a Gemini API client for model.
func NewImagenRenderer(ctx context.Context, apiKey, model string) (*ImagenRenderer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &ImagenRenderer{client: client, model: model}, nil
}

// Render ignores width and height beyond their aspect: Imagen picks the
// pixel size, the canvas compositor centers whatever comes back.
func (r *ImagenRenderer) Render(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	resp, err := r.client.Models.GenerateImages(ctx, r.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio(width, height),
	})
	if err != nil {
		return nil, fmt.Errorf("generate images: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("imagen returned no image")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// aspectRatio maps a canvas to the closest ratio Imagen accepts.
func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	r := float64(width) / float64(height)
	candidates := []struct {
		name  string
		ratio float64
	}{
		{"1:1", 1}, {"3:4", 0.75}, {"4:3", 4.0 / 3}, {"9:16", 9.0 / 16}, {"16:9", 16.0 / 9},
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if abs(r-c.ratio) < abs(r-best.ratio) {
			best = c
		}
	}
	return best.name
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
