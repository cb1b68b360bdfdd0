package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMIMEType is used when the provider does not report one.
const DefaultMIMEType = "image/png"

// Errors returned by generators. Use StatusCode to map them onto HTTP.
var (
	ErrEmptyPrompt   = errors.New("Prompt is required")
	ErrNotConfigured = errors.New("API key not configured")
	ErrNoImage       = errors.New("이미지 생성 결과가 없습니다.")
	ErrTimeout       = errors.New("이미지 생성 시간이 초과되었습니다.")
)

// UpstreamError is a non-success response from the image provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Image is a generated picture, base64 encoded.
type Image struct {
	Base64   string `json:"imageBase64"`
	MIMEType string `json:"mimeType"`
}

// Generator turns a prompt into an image.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// StatusCode maps a generator error onto the HTTP status the proxy responds with.
// INVARIANT: upstream errors keep the provider's status when it is a valid error status
func StatusCode(err error) int {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &upstream):
		if upstream.Status >= 400 && upstream.Status <= 599 {
			return upstream.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Disabled is the generator used when no API key is configured.
type Disabled struct{}

// Generate validates the prompt and then reports the missing key.
func (Disabled) Generate(_ context.Context, prompt string) (Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return Image{}, ErrEmptyPrompt
	}
	return Image{}, ErrNotConfigured
}

// Static returns the same image for every prompt. Used in development and tests.
type Static struct {
	Image Image
	Err   error
	Calls int
}

// Generate returns the configured image or error.
func (s *Static) Generate(_ context.Context, prompt string) (Image, error) {
	s.Calls++
	if strings.TrimSpace(prompt) == "" {
		return Image{}, ErrEmptyPrompt
	}
	if s.Err != nil {
		return Image{}, fmt.Errorf("static generator: %w", s.Err)
	}
	return s.Image, nil
}
