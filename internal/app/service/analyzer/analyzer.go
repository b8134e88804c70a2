// Package analyzer forwards tongue photos to a vision model and enforces the
// JSON shape of the answer.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/analysis"
	"github.com/tcmtongue/server/internal/app/service/analytics"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/metrics"
)

var (
	ErrNoImage       = errors.New("No image provided")
	ErrEmptyResponse = errors.New("model returned no content")
	ErrInvalidFormat = errors.New("Failed to parse response")
	ErrNotConfigured = errors.New("analysis provider not configured")
)

// Output is a stamped analysis. Document keeps every key the model returned.
type Output struct {
	Document map[string]any
	Result   *analysis.Result
	Strategy string
	Model    string
}

type Service struct {
	strategy  Strategy
	timeout   time.Duration
	analytics *analytics.Service
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewService(strategy Strategy, cfg *cfgpkg.Config, a *analytics.Service, log *zap.SugaredLogger) *Service {
	return &Service{strategy: strategy, timeout: cfg.Analyzer.Timeout, analytics: a, log: log, now: time.Now}
}

func (s *Service) StrategyName() string { return s.strategy.Name() }

// Analyze runs the selected strategy on a data URL or bare base64 image.
func (s *Service) Analyze(ctx context.Context, image string) (*Output, error) {
	if strings.TrimSpace(image) == "" {
		return nil, ErrNoImage
	}
	start := time.Now()
	l := logctx.FromCtx(ctx, s.log)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	content, err := s.strategy.Analyze(callCtx, image)
	if err != nil {
		l.Errorw("analysis failed", "strategy", s.strategy.Name(), "error", err)
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil || doc == nil {
		l.Errorw("failed to parse analysis JSON", "error", err)
		return nil, ErrInvalidFormat
	}
	stamp(doc, s.strategy.Model(), s.now())

	out := &Output{Document: doc, Strategy: s.strategy.Name(), Model: s.strategy.Model()}
	if r, err := analysis.FromMap(doc); err == nil {
		out.Result = r
		if len(r.Dropped) > 0 {
			l.Warnw("analysis sections skipped", "sections", r.Dropped)
		}
	} else {
		l.Warnw("analysis document does not match known shapes", "error", err)
	}

	metrics.ObserveBusinessProcess("analyze", s.strategy.Name(), start)
	s.trackComplete(ctx, out, time.Since(start))
	return out, nil
}

func (s *Service) trackComplete(ctx context.Context, out *Output, elapsed time.Duration) {
	if s.analytics == nil {
		return
	}
	p := analytics.AnalysisComplete{
		Identity:   analytics.Identity{UserID: logctx.UserID(ctx)},
		DurationMs: elapsed.Milliseconds(),
	}
	if out.Result != nil {
		n := out.Result.Normalize()
		p.PrimaryPattern = n.PrimaryPattern.Name
		if n.PrimaryPattern.Confidence != nil {
			c := analysis.ClampConfidence(float64(*n.PrimaryPattern.Confidence))
			p.ConfidenceScore = &c
		}
	}
	s.analytics.TrackAnalysisComplete(ctx, p)
}

// stamp overwrites version, timestamp and model in analysisMetadata and keeps
// whatever else the model put there.
func stamp(doc map[string]any, model string, now time.Time) {
	meta, _ := doc["analysisMetadata"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["version"] = analysis.CurrentVersion
	meta["analysisTimestamp"] = now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	meta["model"] = model
	doc["analysisMetadata"] = meta
}

func provideStrategy(lc fx.Lifecycle, cfg *cfgpkg.Config, log *zap.SugaredLogger) (Strategy, error) {
	st, err := Select(context.Background(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("select analyzer: %w", err)
	}
	log.Infow("analyzer selected", "strategy", st.Name(), "model", st.Model())
	if c, ok := st.(io.Closer); ok {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return c.Close() }})
	}
	return st, nil
}

var Module = fx.Options(
	fx.Provide(provideStrategy),
	fx.Provide(NewService),
)
