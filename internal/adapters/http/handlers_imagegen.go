package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"firesim/internal/adapters/imagegen"
)

// maxPromptBytes bounds the proxy request body.
const maxPromptBytes = 64 << 10

// GenerateImageRequest is the body of POST /api/generate-image.
type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateImageResponse is the success body of POST /api/generate-image.
type GenerateImageResponse struct {
	Success     bool   `json:"success"`
	ImageBase64 string `json:"imageBase64"`
	MIMEType    string `json:"mimeType"`
}

// handleGenerateImage proxies a prompt to the image generator (/api/generate-image).
// PRE: POST with {"prompt": "..."}
// POST: 200 {success, imageBase64, mimeType} or {error} with the generator's status mapping
func handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateImageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptBytes)).Decode(&req); err != nil {
		sendJSONError(w, imagegen.ErrEmptyPrompt.Error(), http.StatusBadRequest)
		return
	}

	gen := services.Generator
	if gen == nil {
		gen = imagegen.Disabled{}
	}
	img, err := gen.Generate(r.Context(), req.Prompt)
	if err != nil {
		status := imagegen.StatusCode(err)
		slog.Warn("imagegen_event", "event", "generate_failed", "status", status, "error", err)
		sendJSONError(w, generatorMessage(err), status)
		return
	}

	writeJSON(w, http.StatusOK, GenerateImageResponse{
		Success:     true,
		ImageBase64: img.Base64,
		MIMEType:    img.MIMEType,
	})
}

// isGeneratorError reports whether err came from the image generator rather than storage.
func isGeneratorError(err error) bool {
	var upstream *imagegen.UpstreamError
	return errors.Is(err, imagegen.ErrEmptyPrompt) ||
		errors.Is(err, imagegen.ErrNotConfigured) ||
		errors.Is(err, imagegen.ErrNoImage) ||
		errors.Is(err, imagegen.ErrTimeout) ||
		errors.As(err, &upstream)
}

// generatorMessage returns the text shown to the client. Upstream errors keep
// the provider's message; unknown errors are not echoed.
func generatorMessage(err error) string {
	var upstream *imagegen.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream.Message
	case isGeneratorError(err):
		for _, known := range []error{imagegen.ErrEmptyPrompt, imagegen.ErrNotConfigured, imagegen.ErrNoImage, imagegen.ErrTimeout} {
			if errors.Is(err, known) {
				return known.Error()
			}
		}
	}
	return "알 수 없는 오류"
}
