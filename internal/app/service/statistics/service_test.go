package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tcmtongue/server/internal/analysis"
	"github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/internal/platform/db/dbtest"
	"github.com/tcmtongue/server/pkg/types"
)

func whereSQL(t *testing.T, db *gorm.DB, req *StatisticRequest) string {
	t.Helper()
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []models.TongueScan
		return tx.Table("t").Where(clause.Where{Exprs: []clause.Expression{req}}).Find(&rows)
	})
}

func TestGetFilters_DropsInapplicable(t *testing.T) {
	req := &StatisticRequest{Filters: []*types.CommonFilter{
		{Field: "format", Operator: types.CommonFilterOperatorEq, Values: []any{"current"}},
		{Field: "created_at", Operator: types.CommonFilterOperatorDateRange, Values: []any{"2025-01-01", "2025-01-31"}},
	}}

	scans := req.GetFilters(StatisticTypeDailyScanCount)
	require.Len(t, scans.Filters, 2)

	premium := req.GetFilters(StatisticTypeTotalPremiumCount)
	require.Len(t, premium.Filters, 1)
	require.Equal(t, "created_at", premium.Filters[0].Field)

	require.Equal(t, "usage_date", req.GetFilters(StatisticTypeDailyQuotaUsage).dateColumn)
}

func TestBuild(t *testing.T) {
	db := dbtest.SQLite(t)

	sql := whereSQL(t, db, &StatisticRequest{})
	require.Contains(t, sql, "1=1")

	sql = whereSQL(t, db, &StatisticRequest{Filters: []*types.CommonFilter{
		{Field: "has_image", Operator: types.CommonFilterOperatorEq, Values: []any{true}},
		{Field: "format", Operator: types.CommonFilterOperatorEq, Values: []any{"legacy"}},
	}})
	require.Contains(t, sql, "image_url IS NOT NULL AND")
	require.Contains(t, sql, "`format` = \"legacy\"")

	quota := (&StatisticRequest{Filters: []*types.CommonFilter{
		{Field: "created_at", Operator: types.CommonFilterOperatorDateRange, Values: []any{"2025-01-01", "2025-01-31"}},
	}}).GetFilters(StatisticTypeDailyQuotaUsage)
	sql = whereSQL(t, db, quota)
	require.Contains(t, sql, "`usage_date` >= \"2025-01-01\"")
	require.Contains(t, sql, "`usage_date` < \"2025-02-01\"")
	require.NotContains(t, sql, "created_at")
}

func TestValidate(t *testing.T) {
	req := &StatisticRequest{Filters: []*types.CommonFilter{{Field: "user_id; --", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}}}
	require.Error(t, req.Validate())
	_, err := New(nil).GetStatistics(context.Background(), req)
	require.Error(t, err)
}

func TestGetStatistics_PortableItems(t *testing.T) {
	db := dbtest.SQLite(t)
	now := time.Now().UTC()
	for i, p := range []string{"Damp-Heat", "Damp-Heat", "Blood Deficiency", ""} {
		require.NoError(t, db.Create(&models.TongueScan{
			ID:             "scan-" + string(rune('a'+i)),
			UserID:         "u1",
			Format:         analysis.FormatLegacy,
			PrimaryPattern: p,
			Result:         datatypes.JSON(`{}`),
			CreatedAt:      now,
		}).Error)
	}
	for i, tier := range []types.Tier{types.TierPremium, types.TierPremium, types.TierFree} {
		require.NoError(t, db.Create(&models.Subscription{
			ID:     "sub-" + string(rune('a'+i)),
			UserID: "user-" + string(rune('a'+i)),
			Tier:   tier,
			Status: types.SubscriptionStatusActive,
		}).Error)
	}

	res, err := New(db).GetStatistics(context.Background(), &StatisticRequest{
		Filters: []*types.CommonFilter{{Field: "format", Operator: types.CommonFilterOperatorEq, Values: []any{"legacy"}}},
		DataItems: []*StatisticDataItem{
			{ID: StatisticTypePatternDistribution},
			{ID: StatisticTypeDailyScanCount},
			// the format filter is dropped for items that are not about scans
			{ID: StatisticTypeTotalPremiumCount},
			{ID: StatisticTypeDailyQuotaUsage},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []StatisticResponseDataItem{
		{Label: "Damp-Heat", Value: 2},
		{Label: "Blood Deficiency", Value: 1},
	}, res.DataItems[StatisticTypePatternDistribution])
	require.Equal(t, []StatisticResponseDataItem{
		{Date: now.Format("2006-01-02"), Value: 4, Value2: 1},
	}, res.DataItems[StatisticTypeDailyScanCount])
	require.Equal(t, []StatisticResponseDataItem{{Value: 2}}, res.DataItems[StatisticTypeTotalPremiumCount])
	v, ok := res.DataItems[StatisticTypeDailyQuotaUsage]
	require.True(t, ok)
	require.Empty(t, v)
}

func TestGetStatistics_DailyQuotaUsage(t *testing.T) {
	db := dbtest.SQLite(t)
	for _, u := range []models.ScanUsage{
		{UserID: "u1", UsageDate: "2025-01-02", ScanCount: 1},
		{UserID: "u2", UsageDate: "2025-01-02", ScanCount: 3},
		{UserID: "u1", UsageDate: "2025-01-03", ScanCount: 1},
	} {
		require.NoError(t, db.Create(&u).Error)
	}

	res, err := New(db).GetStatistics(context.Background(), &StatisticRequest{
		Filters: []*types.CommonFilter{
			{Field: "created_at", Operator: types.CommonFilterOperatorDateRange, Values: []any{"2025-01-02", "2025-01-02"}},
			{Field: "has_image", Operator: types.CommonFilterOperatorEq, Values: []any{true}},
		},
		DataItems: []*StatisticDataItem{{ID: StatisticTypeDailyQuotaUsage}},
	})
	require.NoError(t, err)
	require.Equal(t, []StatisticResponseDataItem{
		{Date: "2025-01-02", Value: 4, Value2: 2},
	}, res.DataItems[StatisticTypeDailyQuotaUsage])
}

func TestGetStatistics_UnknownItem(t *testing.T) {
	_, err := New(dbtest.SQLite(t)).GetStatistics(context.Background(), &StatisticRequest{
		DataItems: []*StatisticDataItem{{ID: "daily_gmv"}},
	})
	require.ErrorContains(t, err, "invalid data item id")
}
