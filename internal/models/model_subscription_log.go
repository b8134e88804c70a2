package models

import (
	"time"

	"github.com/tcmtongue/server/pkg/types"
	"gorm.io/datatypes"
)

// SubscriptionLog records every change to a subscription row, for troubleshooting.
type SubscriptionLog struct {
	ID     string                         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                         `gorm:"column:user_id;type:varchar(64);index:idx_subscription_log_user_id_id,priority:1;not null" json:"user_id"`
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	// Before and After are full row snapshots; Before is null on creation.
	Before datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	After  datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	// Extra holds the trigger, e.g. the Stripe event id.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
