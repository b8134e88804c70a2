package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	models "github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/internal/platform/db/dbtest"
	types "github.com/tcmtongue/server/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(dbtest.SQLite(t), zap.NewNop().Sugar())
	t.Cleanup(svc.Wait)
	return svc
}

func premiumMirror(start time.Time) Mirror {
	end := start.Add(30 * 24 * time.Hour)
	return Mirror{
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		PriceID:        "price_premium_monthly",
		Status:         types.SubscriptionStatusActive,
		PeriodStart:    &start,
		PeriodEnd:      &end,
	}
}

func TestStatus_NoRowIsFree(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	info := svc.Status(ctx, "nobody")
	require.Equal(t, types.TierFree, info.Tier)
	require.Equal(t, types.SubscriptionStatusActive, info.Status)
	require.False(t, info.HasPremium)

	require.Equal(t, types.TierFree, svc.Status(ctx, "").Tier)

	sub, err := svc.Get(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, sub)
}

func TestSaveCustomerID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.GetCustomerID(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, id)

	require.NoError(t, svc.SaveCustomerID(ctx, "u1", "cus_1"))
	id, err = svc.GetCustomerID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "cus_1", id)

	sub, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, types.TierFree, sub.Tier)
	require.Equal(t, types.SubscriptionStatusActive, sub.Status)
	require.False(t, sub.HasPremium())
}

func TestUpsertPremium_ThenDowngradeIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, svc.SaveCustomerID(ctx, "u1", "cus_1"))
	require.NoError(t, svc.UpsertPremium(ctx, "u1", premiumMirror(start), types.SubscriptionChangeReasonPurchase))

	sub, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, sub.HasPremium())
	require.Equal(t, "sub_1", *sub.StripeSubscriptionID)
	require.Equal(t, "price_premium_monthly", *sub.StripePriceID)
	require.True(t, sub.CurrentPeriodEnd.Equal(start.Add(30*24*time.Hour)))

	premium, err := svc.HasPremium(ctx, "u1")
	require.NoError(t, err)
	require.True(t, premium)

	found, err := svc.DowngradeBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	require.True(t, found)
	first, err := svc.Get(ctx, "u1")
	require.NoError(t, err)

	found, err = svc.DowngradeBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	require.False(t, found)
	second, err := svc.Get(ctx, "u1")
	require.NoError(t, err)

	require.Equal(t, types.TierFree, second.Tier)
	require.Equal(t, types.SubscriptionStatusCanceled, second.Status)
	require.Nil(t, second.StripeSubscriptionID)
	require.Nil(t, second.StripePriceID)
	require.Nil(t, second.CurrentPeriodEnd)
	require.Equal(t, "cus_1", *second.StripeCustomerID)
	require.Equal(t, first.Tier, second.Tier)
	require.Equal(t, first.Status, second.Status)
	require.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
}

func TestUpsertPremium_ReplayKeepsOneRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.UpsertPremium(ctx, "u1", premiumMirror(start), types.SubscriptionChangeReasonRenew))
	}
	var count int64
	require.NoError(t, svc.db.Model(&models.Subscription{}).Where("user_id = ?", "u1").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpsert_ConcurrentFirstWriteUpdatesExistingRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SaveCustomerID(ctx, "u1", "cus_1"))
	existing, err := svc.Get(ctx, "u1")
	require.NoError(t, err)

	// a writer that read no row before the first insert committed
	subID := "sub_9"
	m := &models.Subscription{UserID: "u1", Tier: types.TierPremium, Status: types.SubscriptionStatusActive, StripeSubscriptionID: &subID}
	_, err = svc.upsertSubscription(ctx, svc.db, nil, m, types.SubscriptionChangeReasonPurchase)
	require.NoError(t, err)
	require.Equal(t, existing.ID, m.ID)

	var rows []models.Subscription
	require.NoError(t, svc.db.Where("user_id = ?", "u1").Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, existing.ID, rows[0].ID)
	require.Equal(t, types.TierPremium, rows[0].Tier)
	require.Equal(t, "sub_9", *rows[0].StripeSubscriptionID)
}

func TestMirrorBySubscriptionID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.UpsertPremium(ctx, "u1", premiumMirror(start), types.SubscriptionChangeReasonPurchase))

	found, err := svc.MirrorBySubscriptionID(ctx, "sub_unknown", Mirror{Status: types.SubscriptionStatusActive})
	require.NoError(t, err)
	require.False(t, found)

	m := premiumMirror(start.Add(30 * 24 * time.Hour))
	m.Status = types.SubscriptionStatusUnpaid
	m.CancelAtPeriodEnd = true
	found, err = svc.MirrorBySubscriptionID(ctx, "sub_1", m)
	require.NoError(t, err)
	require.True(t, found)

	info := svc.Status(ctx, "u1")
	require.Equal(t, types.TierFree, info.Tier)
	require.Equal(t, types.SubscriptionStatusUnpaid, info.Status)
	require.False(t, info.HasPremium)
	require.True(t, *info.CancelAtPeriodEnd)

	m.Status = types.SubscriptionStatusActive
	_, err = svc.MirrorBySubscriptionID(ctx, "sub_1", m)
	require.NoError(t, err)
	require.True(t, svc.Status(ctx, "u1").HasPremium)
}

func TestMarkPastDue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.UpsertPremium(ctx, "u1", premiumMirror(time.Now()), types.SubscriptionChangeReasonPurchase))

	found, err := svc.MarkPastDue(ctx, "sub_1")
	require.NoError(t, err)
	require.True(t, found)

	sub, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusPastDue, sub.Status)
	require.Equal(t, types.TierPremium, sub.Tier)
	require.False(t, sub.HasPremium())

	found, err = svc.MarkPastDue(ctx, "")
	require.NoError(t, err)
	require.False(t, found)
}

func TestChangeLogs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SaveCustomerID(ctx, "u1", "cus_1"))
	require.NoError(t, svc.UpsertPremium(ctx, "u1", premiumMirror(time.Now()), types.SubscriptionChangeReasonPurchase))
	svc.Wait()

	logs, err := svc.ListLogs(ctx, "u1", 20)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	reasons := []types.SubscriptionChangeReason{logs[0].Reason, logs[1].Reason}
	require.ElementsMatch(t, []types.SubscriptionChangeReason{
		types.SubscriptionChangeReasonCustomerCreated,
		types.SubscriptionChangeReasonPurchase,
	}, reasons)
	for _, l := range logs {
		if l.Reason == types.SubscriptionChangeReasonCustomerCreated {
			require.Nil(t, l.Before.Data())
			require.Equal(t, types.TierFree, l.After.Data().Tier)
		} else {
			require.Equal(t, types.TierFree, l.Before.Data().Tier)
			require.Equal(t, types.TierPremium, l.After.Data().Tier)
		}
	}
}
