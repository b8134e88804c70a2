package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, EnvDev, c.Env)
	require.Equal(t, 8888, c.Server.Port)
	require.Equal(t, 1, c.Quota.FreeDailyLimit)
	require.Equal(t, QuotaBackendPostgres, c.Quota.Backend)
	require.Equal(t, "gpt-4o", c.OpenAI.Model)
	require.Empty(t, c.Stripe.PremiumPriceID)
	require.Empty(t, c.Stripe.ExtraPriceIDs)
	require.Equal(t, time.Duration(0), c.Analyzer.Timeout)
	require.False(t, c.GA4.Enabled())
	require.False(t, c.Blob.Enabled())
}

func TestNew_BareEnvAliases(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")
	t.Setenv("OPENAI_API_KEY", "sk-bare")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_bare")
	t.Setenv("NEXT_PUBLIC_APP_URL", "https://tongue.example")
	t.Setenv("APP_QUOTA_FREE_DAILY_LIMIT", "3")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "sk-bare", c.OpenAI.APIKey)
	require.Equal(t, "whsec_bare", c.Stripe.WebhookSecret)
	require.Equal(t, "https://tongue.example", c.App.URL)
	require.Equal(t, 3, c.Quota.FreeDailyLimit)
}

func TestNew_PriceIDsFromEnv(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")
	t.Setenv("STRIPE_PREMIUM_PRICE_ID", "price_monthly")
	t.Setenv("APP_STRIPE_EXTRA_PRICE_IDS", "price_yearly,price_family")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "price_monthly", c.Stripe.PremiumPriceID)
	require.Equal(t, []string{"price_yearly", "price_family"}, c.Stripe.ExtraPriceIDs)
}

func TestNew_PrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")
	t.Setenv("OPENAI_API_KEY", "sk-bare")
	t.Setenv("APP_OPENAI_API_KEY", "sk-prefixed")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "sk-prefixed", c.OpenAI.APIKey)
}

func TestNew_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prod.yaml")
	require.NoError(t, os.WriteFile(file, []byte("env: prod\nadmin:\n  api_key: secret\nquota:\n  backend: redis\n"), 0o600))
	t.Setenv("APP_CONFIG_FILE", file)

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, EnvProd, c.Env)
	require.Equal(t, "secret", c.Admin.APIKey)
	require.Equal(t, QuotaBackendRedis, c.Quota.Backend)
}
