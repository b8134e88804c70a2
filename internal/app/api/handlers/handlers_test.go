package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/analytics"
	"github.com/tcmtongue/server/internal/app/service/analyzer"
	"github.com/tcmtongue/server/internal/app/service/billing"
	nh "github.com/tcmtongue/server/internal/app/service/notification_handler"
	notificationlog "github.com/tcmtongue/server/internal/app/service/notification_log"
	"github.com/tcmtongue/server/internal/app/service/quota"
	"github.com/tcmtongue/server/internal/app/service/scanhistory"
	"github.com/tcmtongue/server/internal/app/service/statistics"
	"github.com/tcmtongue/server/internal/app/service/subscription"
	"github.com/tcmtongue/server/internal/platform/blob"
	"github.com/tcmtongue/server/internal/platform/db/dbtest"
	"github.com/tcmtongue/server/internal/platform/ga4"
	"github.com/tcmtongue/server/internal/platform/stripeapi"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
)

const (
	testSecret = "handler-test-secret"
	validSig   = "t=1,v1=valid"
)

func init() { gin.SetMode(gin.TestMode) }

type stubStrategy struct {
	content string
	err     error
}

func (s *stubStrategy) Name() string  { return "stub" }
func (s *stubStrategy) Model() string { return "stub-model" }
func (s *stubStrategy) Analyze(context.Context, string) (string, error) {
	return s.content, s.err
}

type fakeCounter struct {
	allowance *quota.Allowance
	record    *quota.RecordResult
	err       error
}

func (f *fakeCounter) CanScan(context.Context, string, int) (*quota.Allowance, error) {
	return f.allowance, f.err
}

func (f *fakeCounter) Record(context.Context, string, int) (*quota.RecordResult, error) {
	return f.record, f.err
}

type stubStripe struct {
	err error
}

func (s *stubStripe) CreateCustomer(context.Context, string, string) (string, error) {
	return "cus_new", s.err
}

func (s *stubStripe) CreateCheckoutSession(context.Context, stripeapi.CheckoutParams) (*stripeapi.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stripeapi.Session{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
}

func (s *stubStripe) CreatePortalSession(context.Context, string, string) (*stripeapi.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stripeapi.Session{ID: "bps_1", URL: "https://billing.stripe.test/p"}, nil
}

func (s *stubStripe) GetSubscription(context.Context, string) (*stripe.Subscription, error) {
	return nil, errors.New("no such subscription")
}

func (s *stubStripe) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature != validSig {
		return stripe.Event{}, errors.New("no signatures found matching the expected signature")
	}
	var ev stripe.Event
	err := json.Unmarshal(payload, &ev)
	return ev, err
}

func (s *stubStripe) WebhookConfigured() bool { return true }

type nopSender struct{}

func (nopSender) Enabled() bool                                           { return false }
func (nopSender) Send(context.Context, string, string, []ga4.Event) error { return nil }

type harness struct {
	engine   *gin.Engine
	strategy *stubStrategy
	counter  *fakeCounter
	stripe   *stubStripe
	subs     *subscription.Service
	scans    *scanhistory.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop().Sugar()
	gdb := dbtest.SQLite(t)
	cfg := &cfgpkg.Config{
		Auth:   cfgpkg.AuthConfig{JWTSecret: testSecret},
		App:    cfgpkg.AppConfig{URL: "https://app.example.com"},
		Stripe: cfgpkg.StripeConfig{PremiumPriceID: "price_premium_monthly"},
		Quota:  cfgpkg.QuotaConfig{FreeDailyLimit: 1},
	}
	h := &harness{
		strategy: &stubStrategy{},
		counter:  &fakeCounter{},
		stripe:   &stubStripe{},
	}

	a := analytics.NewService(nopSender{}, log)
	notif := notificationlog.New(gdb, log)
	h.subs = subscription.NewService(gdb, log)
	store, err := blob.NewStore(cfg, log)
	require.NoError(t, err)
	h.scans = scanhistory.NewService(gdb, store, log)
	t.Cleanup(func() {
		a.Wait()
		notif.Wait()
		h.subs.Wait()
	})

	r := gin.New()
	r.Use(middleware.OptionalAuth(middleware.NewAuthenticator(cfg, log)))
	api := r.Group("/api")
	RegisterAnalyzeRoutes(api, analyzer.NewService(h.strategy, cfg, a, log), log)
	RegisterScanLimitRoutes(api, quota.NewGate(h.counter, cfg, a, log), log)
	RegisterSubscriptionRoutes(api, h.subs)
	RegisterScanRoutes(api, h.scans, h.subs, log)
	RegisterReportRoutes(api)
	RegisterAnalyticsRoutes(api, a)
	stripeGroup := api.Group("/stripe")
	RegisterPaymentRoutes(stripeGroup, billing.NewService(cfg, h.stripe, h.subs, a, log), log)
	RegisterPaymentWebhookRoutes(stripeGroup, nh.NewNotificationHandler(h.stripe, notif, h.subs, a, log))
	RegisterAdminRoutes(api.Group("/admin"), h.scans, statistics.New(gdb), h.subs, notif)
	h.engine = r
	return h
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := middleware.Claims{
		Email: userID + "@example.com",
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (h *harness) request(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

// do sends a request; a non-empty userID signs it in.
func (h *harness) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw string
	switch b := body.(type) {
	case nil:
	case string:
		raw = b
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		raw = string(buf)
	}
	req := h.request(method, path, raw)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	return h.serve(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
