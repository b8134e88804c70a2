package analyzer

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/imaging"
	"github.com/tcmtongue/server/internal/platform/llm"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
)

const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
	ProviderMock   = "mock"
)

// Strategy turns an image data URL into the model's raw JSON text.
type Strategy interface {
	Name() string
	Model() string
	Analyze(ctx context.Context, image string) (string, error)
}

type mockStrategy struct{}

func (mockStrategy) Name() string  { return ProviderMock }
func (mockStrategy) Model() string { return ProviderMock }

func (mockStrategy) Analyze(context.Context, string) (string, error) {
	return string(mockResult), nil
}

// unconfigured is selected in production when no provider credentials exist.
type unconfigured struct{}

func (unconfigured) Name() string  { return "none" }
func (unconfigured) Model() string { return "" }

func (unconfigured) Analyze(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// visionStrategy sends the image to a live vision model.
type visionStrategy struct {
	name   string
	client llm.VisionClient
	log    *zap.SugaredLogger
}

func (v *visionStrategy) Name() string  { return v.name }
func (v *visionStrategy) Model() string { return v.client.Model() }

func (v *visionStrategy) Close() error {
	if c, ok := v.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (v *visionStrategy) Analyze(ctx context.Context, image string) (string, error) {
	data, mime, err := imaging.DecodeDataURL(image)
	if err != nil {
		return "", err
	}
	if res, err := imaging.Compress(data, imaging.OptimalOptions(int64(len(data)))); err == nil {
		data, mime = res.Data, "image/jpeg"
		logctx.FromCtx(ctx, v.log).Debugw("image normalized",
			"original_size", res.OriginalSize, "compressed_size", res.CompressedSize,
			"width", res.Width, "height", res.Height)
	} else {
		logctx.FromCtx(ctx, v.log).Infow("image not decodable, sending as is", "error", err)
	}

	resp, err := v.client.Complete(ctx, llm.VisionRequest{
		SystemPrompt: systemPrompt,
		UserText:     userInstruction,
		Image:        data,
		MIME:         mime,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		JSON:         true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Select picks the strategy once at startup. An explicit provider must be
// usable; auto mode takes the first configured credential and only falls
// back to the mock outside production.
func Select(ctx context.Context, cfg *cfgpkg.Config, log *zap.SugaredLogger) (Strategy, error) {
	switch cfg.Analyzer.Provider {
	case ProviderMock:
		if cfg.Env == cfgpkg.EnvProd {
			log.Warn("mock analyzer explicitly enabled in production")
		}
		return mockStrategy{}, nil
	case ProviderOpenAI:
		return newOpenAIStrategy(cfg, log)
	case ProviderVertex:
		return newVertexStrategy(ctx, cfg, log)
	case "":
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Analyzer.Provider)
	}

	switch {
	case cfg.OpenAI.APIKey != "":
		return newOpenAIStrategy(cfg, log)
	case cfg.Vertex.Project != "":
		return newVertexStrategy(ctx, cfg, log)
	case cfg.Env != cfgpkg.EnvProd:
		log.Warn("no analysis provider configured, returning mock data for development")
		return mockStrategy{}, nil
	default:
		log.Error("no analysis provider configured")
		return unconfigured{}, nil
	}
}

func newOpenAIStrategy(cfg *cfgpkg.Config, log *zap.SugaredLogger) (Strategy, error) {
	c, err := llm.NewOpenAI(cfg.OpenAI, log)
	if err != nil {
		return nil, fmt.Errorf("openai analyzer: %w", err)
	}
	return &visionStrategy{name: ProviderOpenAI, client: c, log: log}, nil
}

func newVertexStrategy(ctx context.Context, cfg *cfgpkg.Config, log *zap.SugaredLogger) (Strategy, error) {
	c, err := llm.NewVertex(ctx, cfg.Vertex, log)
	if err != nil {
		return nil, fmt.Errorf("vertex analyzer: %w", err)
	}
	return &visionStrategy{name: ProviderVertex, client: c, log: log}, nil
}
