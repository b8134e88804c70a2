package notification_log

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/internal/platform/db/dbtest"
	"github.com/tcmtongue/server/pkg/types"
)

func TestSaveAndListByUser(t *testing.T) {
	svc := New(dbtest.SQLite(t), zap.NewNop().Sugar())
	ctx := context.Background()

	svc.Save(ctx, nil)
	svc.Save(ctx, &models.PaymentNotificationLog{
		ProviderID:       types.PaymentProviderStripe,
		UserID:           lo.ToPtr("u1"),
		EventID:          "evt_1",
		EventType:        "invoice.payment_succeeded",
		NotificationTime: time.Now(),
		Data:             datatypes.JSON(`{"id":"evt_1"}`),
		Status:           models.PaymentNotificationLogStatusReceived,
	})
	svc.Save(ctx, &models.PaymentNotificationLog{
		ProviderID:       types.PaymentProviderStripe,
		EventID:          "evt_2",
		NotificationTime: time.Now(),
		Data:             datatypes.JSON(`{}`),
		Status:           models.PaymentNotificationLogStatusReceived,
	})
	svc.Wait()

	logs, err := svc.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "evt_1", logs[0].EventID)
	require.NotEmpty(t, logs[0].ID)
}
