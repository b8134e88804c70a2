package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/platform/ga4"
	"github.com/tcmtongue/server/pkg/logctx"
)

// MaxBatchEvents is the Measurement Protocol limit per request.
const MaxBatchEvents = 25

var ErrEmptyBatch = errors.New("No events provided")

// UnknownEventError rejects a relayed event outside the catalog.
type UnknownEventError struct{ Name string }

func (e *UnknownEventError) Error() string { return "Unknown event: " + e.Name }

// Identity ties an event to a GA client and an app user. Both are optional.
type Identity struct {
	ClientID string
	UserID   string
}

type ClientEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Service sends server-side events. Tracking never fails the caller: send
// errors are logged and dropped.
type Service struct {
	sender ga4.Sender
	log    *zap.SugaredLogger
	wg     sync.WaitGroup
}

func NewService(sender ga4.Sender, log *zap.SugaredLogger) *Service {
	return &Service{sender: sender, log: log}
}

// Wait blocks until every in-flight async send has finished.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) send(ctx context.Context, id Identity, events []ga4.Event) {
	l := logctx.FromCtx(ctx, s.log)
	if !s.sender.Enabled() {
		l.Debugw("ga4 not configured, event skipped", "events", events)
		return
	}
	if err := s.sender.Send(ctx, id.ClientID, id.UserID, events); err != nil {
		l.Warnw("ga4 tracking failed", "error", err, "count", len(events))
	}
}

// Track sends one event in the background.
func (s *Service) Track(ctx context.Context, name Event, params map[string]any, id Identity) {
	events := []ga4.Event{{Name: string(name), Params: compact(params)}}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.send(ctx, id, events)
	}()
}

type AnalysisComplete struct {
	Identity
	ScanID          string
	ConfidenceScore *float64
	PrimaryPattern  string
	DurationMs      int64
	HasError        bool
}

func (s *Service) TrackAnalysisComplete(ctx context.Context, p AnalysisComplete) {
	params := map[string]any{
		"primary_pattern":      p.PrimaryPattern,
		"analysis_duration_ms": p.DurationMs,
		"has_error":            p.HasError,
		"event_category":       "analysis",
	}
	if p.ScanID != "" {
		params["scan_id"] = p.ScanID
	}
	if p.ConfidenceScore != nil {
		params["confidence_score"] = *p.ConfidenceScore
	}
	s.Track(ctx, EventAnalysisComplete, params, p.Identity)
}

type SubscriptionEvent struct {
	Identity
	SubscriptionID string
	Tier           string
	Value          *float64
	Currency       string
}

func (s *Service) TrackSubscriptionEvent(ctx context.Context, kind SubscriptionEventKind, p SubscriptionEvent) {
	name, ok := subscriptionEvents[kind]
	if !ok {
		logctx.FromCtx(ctx, s.log).Warnw("unknown subscription event kind", "kind", kind)
		return
	}
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}
	params := map[string]any{
		"subscription_id":   p.SubscriptionID,
		"subscription_tier": p.Tier,
		"currency":          currency,
		"event_category":    "subscription",
	}
	if p.Value != nil {
		params["value"] = *p.Value
	}
	s.Track(ctx, name, params, p.Identity)
}

type AffiliateClick struct {
	Identity
	ProductID   string
	ProductName string
	Category    string
	Retailer    string
	Value       *float64
}

func (s *Service) TrackAffiliateClick(ctx context.Context, p AffiliateClick) {
	params := map[string]any{
		"product_id":       p.ProductID,
		"product_name":     p.ProductName,
		"product_category": p.Category,
		"retailer":         p.Retailer,
		"event_category":   "affiliate",
	}
	if p.Value != nil {
		params["estimated_value"] = *p.Value
	}
	s.Track(ctx, EventAffiliateLinkClick, params, p.Identity)
}

func (s *Service) TrackScanLimitReached(ctx context.Context, id Identity, currentPlan string, limit int) {
	s.Track(ctx, EventScanLimitReached, map[string]any{
		"current_plan":   currentPlan,
		"limit_reached":  limit,
		"event_category": "limitations",
	}, id)
}

func (s *Service) TrackSignup(ctx context.Context, id Identity, method string) {
	if method == "" {
		method = "email"
	}
	s.Track(ctx, EventSignUp, map[string]any{
		"method":         method,
		"event_category": "user_lifecycle",
	}, id)
}

// ValidateBatch checks a client batch before it is relayed.
func ValidateBatch(events []ClientEvent) error {
	if len(events) == 0 {
		return ErrEmptyBatch
	}
	if len(events) > MaxBatchEvents {
		return fmt.Errorf("Too many events: maximum is %d", MaxBatchEvents)
	}
	for _, e := range events {
		if !Known(e.Name) {
			return &UnknownEventError{Name: e.Name}
		}
	}
	return nil
}

// TrackBatch validates and sends client events as one request. It returns
// the number of accepted events.
func (s *Service) TrackBatch(ctx context.Context, events []ClientEvent, id Identity) (int, error) {
	if err := ValidateBatch(events); err != nil {
		return 0, err
	}
	out := make([]ga4.Event, 0, len(events))
	for _, e := range events {
		out = append(out, ga4.Event{Name: e.Name, Params: compact(e.Params)})
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.send(ctx, id, out)
	}()
	return len(out), nil
}

// compact drops nil values so they are omitted from the payload.
func compact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func registerFlush(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				s.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(registerFlush),
)
