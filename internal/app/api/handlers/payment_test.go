package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcmtongue/server/internal/app/service/subscription"
	"github.com/tcmtongue/server/pkg/response"
	"github.com/tcmtongue/server/pkg/types"
)

func grantPremium(t *testing.T, h *harness, userID string) {
	t.Helper()
	start := time.Now().Add(-time.Hour)
	end := start.Add(30 * 24 * time.Hour)
	err := h.subs.UpsertPremium(context.Background(), userID, subscription.Mirror{
		CustomerID:     "cus_" + userID,
		SubscriptionID: "sub_" + userID,
		PriceID:        "price_premium_monthly",
		Status:         types.SubscriptionStatusActive,
		PeriodStart:    &start,
		PeriodEnd:      &end,
	}, types.SubscriptionChangeReasonPurchase)
	require.NoError(t, err)
}

func TestCheckout(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/stripe/checkout", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, response.Err("Unauthorized - Please sign in"), decode[response.Error](t, w))

	// no body falls back to the configured price
	w = h.do(t, http.MethodPost, "/api/stripe/checkout", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"sessionId":"cs_1","url":"https://checkout.stripe.test/cs_1"}`, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/stripe/checkout", "user-1", CheckoutRequest{PriceID: "price_premium_monthly"})
	require.Equal(t, http.StatusOK, w.Code)

	// only configured prices can be bought
	w = h.do(t, http.MethodPost, "/api/stripe/checkout", "user-1", CheckoutRequest{PriceID: "price_one_cent"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, response.Err("Invalid price ID"), decode[response.Error](t, w))

	h.stripe.err = errors.New("card_declined")
	w = h.do(t, http.MethodPost, "/api/stripe/checkout", "user-2", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, response.Err("Failed to create checkout session"), decode[response.Error](t, w))
}

func TestPortal(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/stripe/portal", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/api/stripe/portal", "user-1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, response.Err("No subscription found"), decode[response.Error](t, w))

	grantPremium(t, h, "user-1")
	w = h.do(t, http.MethodPost, "/api/stripe/portal", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"url":"https://billing.stripe.test/p"}`, w.Body.String())

	h.stripe.err = errors.New("stripe down")
	w = h.do(t, http.MethodPost, "/api/stripe/portal", "user-1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, response.Err("Failed to create portal session"), decode[response.Error](t, w))
}

func TestStripeWebhook(t *testing.T) {
	h := newHarness(t)

	send := func(sig, body string) (int, string) {
		req := h.request(http.MethodPost, "/api/stripe/webhook", body)
		if sig != "" {
			req.Header.Set(HeaderStripeSignature, sig)
		}
		w := h.serve(req)
		return w.Code, w.Body.String()
	}

	code, body := send("", `{}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.JSONEq(t, `{"error":"Missing signature or webhook secret"}`, body)

	code, body = send("t=1,v1=forged", `{}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.JSONEq(t, `{"error":"Invalid signature"}`, body)

	code, body = send(validSig, `{"id":"evt_1","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"received":true}`, body)

	// the stub cannot retrieve subscriptions
	code, body = send(validSig, `{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_1","subscription":"sub_1","metadata":{"supabaseUserId":"user-1"}}}}`)
	require.Equal(t, http.StatusInternalServerError, code)
	require.JSONEq(t, `{"error":"Webhook handler failed"}`, body)
}
