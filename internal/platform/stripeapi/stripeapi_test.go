package stripeapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
)

func sign(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructEvent(t *testing.T) {
	c := NewWithBackends(cfgpkg.StripeConfig{WebhookSecret: "whsec_test"}, nil, zap.NewNop().Sugar())
	require.True(t, c.WebhookConfigured())
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.deleted","api_version":"2020-08-27","data":{"object":{"id":"sub_1","object":"subscription"}}}`)

	ev, err := c.ConstructEvent(payload, sign("whsec_test", payload, time.Now()))
	require.NoError(t, err)
	require.Equal(t, "evt_1", ev.ID)
	require.Equal(t, stripe.EventType("customer.subscription.deleted"), ev.Type)

	_, err = c.ConstructEvent(payload, sign("whsec_other", payload, time.Now()))
	require.Error(t, err)

	_, err = c.ConstructEvent(payload, sign("whsec_test", payload, time.Now().Add(-time.Hour)))
	require.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	c := NewWithBackends(cfgpkg.StripeConfig{}, nil, zap.NewNop().Sugar())
	require.False(t, c.WebhookConfigured())

	_, err := c.ConstructEvent([]byte("{}"), "t=1,v1=00")
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.CreateCustomer(context.Background(), "a@b.c", "u1")
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.CreateCheckoutSession(context.Background(), CheckoutParams{})
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.CreatePortalSession(context.Background(), "cus_1", "http://x")
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.GetSubscription(context.Background(), "sub_1")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateCustomer_SendsMetadata(t *testing.T) {
	var form string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/customers"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm.Encode()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	}))
	defer srv.Close()

	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(srv.URL),
			MaxNetworkRetries: stripe.Int64(0),
		}),
	}
	c := NewWithBackends(cfgpkg.StripeConfig{SecretKey: "sk_test_x"}, backends, zap.NewNop().Sugar())

	id, err := c.CreateCustomer(context.Background(), "user@example.com", "user-1")
	require.NoError(t, err)
	require.Equal(t, "cus_123", id)
	require.Contains(t, form, "metadata%5BsupabaseUserId%5D=user-1")
	require.Contains(t, form, "email=user%40example.com")
}

func TestPriceID(t *testing.T) {
	require.Equal(t, "", PriceID(nil))
	require.Equal(t, "", PriceID(&stripe.Subscription{}))
	sub := &stripe.Subscription{Items: &stripe.SubscriptionItemList{
		Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: "price_1"}}},
	}}
	require.Equal(t, "price_1", PriceID(sub))
}
