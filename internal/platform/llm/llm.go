// Package llm adapts vision-capable chat models to one request shape.
package llm

import (
	"context"
	"errors"
	"strings"
)

var ErrNotConfigured = errors.New("llm client not configured")

// VisionRequest is a single-turn prompt with one image.
type VisionRequest struct {
	SystemPrompt string
	UserText     string
	Image        []byte
	// MIME of Image, e.g. "image/jpeg".
	MIME        string
	Temperature float64
	MaxTokens   int
	// JSON asks the model for a JSON object response.
	JSON bool
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// VisionResponse carries the raw text content. Content may be empty.
type VisionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

type VisionClient interface {
	Complete(ctx context.Context, req VisionRequest) (*VisionResponse, error)
	Model() string
}

// stripCodeFence removes a surrounding ```json fence some models add even in JSON mode.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
