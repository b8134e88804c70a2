package notification_handler

import (
	"context"
	"time"

	"github.com/tcmtongue/server/pkg/types"
)

// NotificationParser exposes the provider-neutral fields logged for every
// received webhook.
type NotificationParser interface {
	GetProvider(ctx context.Context) types.PaymentProvider
	GetNotificationTime(ctx context.Context) time.Time
	GetEventID(ctx context.Context) string
	GetEventType(ctx context.Context) string
	GetUserID(ctx context.Context) string
	GetData(ctx context.Context) any
	// IsLivemode is false for test-mode events.
	IsLivemode(ctx context.Context) bool
}
