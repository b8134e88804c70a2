package models

import (
	"time"

	"github.com/tcmtongue/server/pkg/types"
	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

// PaymentNotificationLog is one row per webhook delivery and stage. Stripe
// redelivers the same event id on failure, so event_id is not unique.
type PaymentNotificationLog struct {
	ID               string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProviderID       types.PaymentProvider        `gorm:"column:provider_id;type:varchar(64);not null" json:"provider_id"`
	UserID           *string                      `gorm:"column:user_id;type:varchar(64);index:idx_pnl_user_created,priority:1" json:"user_id"`
	TraceID          string                       `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	EventID          string                       `gorm:"column:event_id;type:varchar(128);index:idx_pnl_event" json:"event_id"`
	EventType        string                       `gorm:"column:event_type;type:varchar(128)" json:"event_type"`
	Livemode         bool                         `gorm:"column:livemode;not null;default:false" json:"livemode"`
	NotificationTime time.Time                    `gorm:"column:notification_time" json:"notification_time"`
	Data             datatypes.JSON               `gorm:"column:data;type:jsonb" json:"data"`
	Result           *datatypes.JSON              `gorm:"column:result;type:jsonb" json:"result"`
	Status           PaymentNotificationLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt        time.Time                    `gorm:"index:idx_pnl_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
