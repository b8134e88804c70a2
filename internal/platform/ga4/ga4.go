// Package ga4 sends server-side events through the GA4 Measurement Protocol.
package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
)

var ErrNotConfigured = errors.New("ga4 not configured")

type Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type payload struct {
	ClientID        string  `json:"client_id"`
	UserID          string  `json:"user_id,omitempty"`
	TimestampMicros int64   `json:"timestamp_micros"`
	Events          []Event `json:"events"`
}

// Sender is implemented by Client and by test fakes.
type Sender interface {
	Send(ctx context.Context, clientID, userID string, events []Event) error
	Enabled() bool
}

type Client struct {
	cfg    cfgpkg.GA4Config
	client *http.Client
	log    *zap.SugaredLogger
	now    func() time.Time
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	return NewWithHTTPClient(cfg.GA4, &http.Client{Timeout: 10 * time.Second}, log)
}

func NewWithHTTPClient(cfg cfgpkg.GA4Config, hc *http.Client, log *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, client: hc, log: log, now: time.Now}
}

func (c *Client) Enabled() bool { return c.cfg.Enabled() }

// NewClientID mimics the gtag client id format: "<unix_ms>.<random base36>".
func NewClientID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "." + strconv.FormatUint(rand.Uint64()>>28, 36)
}

// Send posts events in one request. Every event gets engagement_time_msec so
// GA4 counts it as an engaged session.
func (c *Client) Send(ctx context.Context, clientID, userID string, events []Event) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if len(events) == 0 {
		return nil
	}
	now := c.now()
	if clientID == "" {
		clientID = NewClientID(now)
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		params := make(map[string]any, len(e.Params)+1)
		for k, v := range e.Params {
			params[k] = v
		}
		params["engagement_time_msec"] = "1"
		out = append(out, Event{Name: e.Name, Params: params})
	}
	body, err := json.Marshal(payload{
		ClientID:        clientID,
		UserID:          userID,
		TimestampMicros: now.UnixMicro(),
		Events:          out,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal ga4 payload: %w", err)
	}

	q := url.Values{}
	q.Set("measurement_id", c.cfg.MeasurementID)
	q.Set("api_secret", c.cfg.APISecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ga4 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ga4 request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ga4 returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(c *Client) Sender { return c }),
)
