package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Defaults for the Gemini image model.
const (
	DefaultModel       = "gemini-3-pro-image-preview"
	DefaultTimeout     = 55 * time.Second
	DefaultAspectRatio = "3:4"
	DefaultImageSize   = "2K"
)

// GeminiConfig configures a GeminiGenerator. Zero values take the defaults above.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string // overrides the API endpoint, used by tests
}

// GeminiGenerator generates images with the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator creates a Gemini-backed generator.
// PRE: cfg.APIKey is non-empty
// POST: Returns a generator with model and timeout defaulted
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	g := &GeminiGenerator{client: client, model: cfg.Model, timeout: cfg.Timeout}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	return g, nil
}

// Generate asks the model for one image. The first inline image part wins.
// PRE: prompt is non-blank
// POST: Image.Base64 non-empty on success; errors are ErrTimeout, ErrNoImage or *UpstreamError
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return Image{}, ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
			ImageConfig: &genai.ImageConfig{
				AspectRatio: DefaultAspectRatio,
				ImageSize:   DefaultImageSize,
			},
		})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("imagegen_event", "event", "timeout", "model", g.model, "elapsed", time.Since(start))
			return Image{}, ErrTimeout
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			slog.Error("imagegen_event", "event", "upstream_error", "model", g.model, "code", apiErr.Code, "message", apiErr.Message)
			msg := apiErr.Message
			if msg == "" {
				msg = fmt.Sprintf("API error: %d", apiErr.Code)
			}
			return Image{}, &UpstreamError{Status: apiErr.Code, Message: msg}
		}
		return Image{}, fmt.Errorf("generate content: %w", err)
	}

	img, ok := firstInlineImage(resp)
	if !ok {
		slog.Error("imagegen_event", "event", "no_image", "model", g.model)
		return Image{}, ErrNoImage
	}
	slog.Info("imagegen_event", "event", "image_generated", "model", g.model,
		"mime_type", img.MIMEType, "elapsed", time.Since(start))
	return img, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) (Image, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Image{}, false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = DefaultMIMEType
		}
		return Image{Base64: base64.StdEncoding.EncodeToString(part.InlineData.Data), MIMEType: mime}, true
	}
	return Image{}, false
}
