package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
)

// Vertex sends vision prompts to a Gemini model on Vertex AI.
type Vertex struct {
	client *genai.Client
	model  string
	log    *zap.SugaredLogger
}

func NewVertex(ctx context.Context, cfg cfgpkg.VertexConfig, log *zap.SugaredLogger) (*Vertex, error) {
	if cfg.Project == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}
	client, err := genai.NewClient(ctx, cfg.Project, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-pro"
	}
	return &Vertex{client: client, model: model, log: log}, nil
}

func (v *Vertex) Model() string { return v.model }

func (v *Vertex) Close() error { return v.client.Close() }

func (v *Vertex) Complete(ctx context.Context, req VisionRequest) (*VisionResponse, error) {
	start := time.Now()
	m := v.client.GenerativeModel(v.model)
	m.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	format := strings.TrimPrefix(req.MIME, "image/")
	if format == "" {
		format = "jpeg"
	}
	resp, err := m.GenerateContent(ctx, genai.Text(req.UserText), genai.ImageData(format, req.Image))
	if err != nil {
		return nil, fmt.Errorf("vertex generate content failed: %w", err)
	}

	out := &VisionResponse{Model: v.model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int64(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int64(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		out.Content = stripCodeFence(sb.String())
	}

	logctx.FromCtx(ctx, v.log).Infow("vertex completion",
		"model", v.model,
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
