package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcmtongue/server/internal/app/service/quota"
	"github.com/tcmtongue/server/pkg/response"
	"github.com/tcmtongue/server/pkg/types"
)

func TestScanLimit_Check(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/scan-limit", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"canScan":true,"tier":"anonymous","scansToday":0,"scansRemaining":1,"message":"Anonymous user - limited scan available"}`, w.Body.String())

	h.counter.allowance = &quota.Allowance{CanScan: false, Tier: quota.TierFree, ScansToday: 1, ScansRemaining: 0}
	w = h.do(t, http.MethodGet, "/api/scan-limit", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"canScan":false,"tier":"free","scansToday":1,"scansRemaining":0}`, w.Body.String())

	h.counter.err = errors.New("connection refused")
	w = h.do(t, http.MethodGet, "/api/scan-limit", "user-1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, response.Err("Failed to check scan availability"), decode[response.Error](t, w))
}

func TestScanLimit_Record(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/scan-limit", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, response.Err("Unauthorized - Please sign in to save scans"), decode[response.Error](t, w))

	h.counter.record = &quota.RecordResult{Success: true, ScansRemaining: quota.Unlimited}
	w = h.do(t, http.MethodPost, "/api/scan-limit", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"scans_remaining":-1}`, w.Body.String())

	h.counter.err = errors.New("connection refused")
	w = h.do(t, http.MethodPost, "/api/scan-limit", "user-1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, response.Err("Failed to record scan"), decode[response.Error](t, w))
}

func TestSubscriptionStatus(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/subscription/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"tier":"free","status":"active","hasPremium":false}`, w.Body.String())

	grantPremium(t, h, "user-1")
	w = h.do(t, http.MethodGet, "/api/subscription/status", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[types.SubscriptionInfo](t, w)
	require.True(t, info.HasPremium)
	require.Equal(t, types.TierPremium, info.Tier)
	require.NotNil(t, info.CurrentPeriodEnd)
}
