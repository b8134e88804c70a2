package models

import (
	"time"

	"github.com/tcmtongue/server/pkg/types"
)

// Subscription mirrors the user's Stripe subscription. One row per user.
// A free user may still have a row holding only the Stripe customer id.
type Subscription struct {
	ID                   string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	StripeCustomerID     *string                  `gorm:"column:stripe_customer_id;type:varchar(128);index" json:"stripe_customer_id"`
	StripeSubscriptionID *string                  `gorm:"column:stripe_subscription_id;type:varchar(128);index" json:"stripe_subscription_id"`
	StripePriceID        *string                  `gorm:"column:stripe_price_id;type:varchar(128)" json:"stripe_price_id"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	Tier                 types.Tier               `gorm:"column:tier;type:varchar(32);not null;default:'free'" json:"tier"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start;default:null" json:"current_period_start"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// HasPremium is the single entitlement check: premium tier with an active status.
func (s *Subscription) HasPremium() bool {
	return s != nil && s.Tier == types.TierPremium && s.Status == types.SubscriptionStatusActive
}

// Info returns the public status view. A nil row is a free, active user.
func (s *Subscription) Info() types.SubscriptionInfo {
	if s == nil {
		return types.SubscriptionInfo{Tier: types.TierFree, Status: types.SubscriptionStatusActive}
	}
	cancel := s.CancelAtPeriodEnd
	return types.SubscriptionInfo{
		Tier:              s.Tier,
		Status:            s.Status,
		HasPremium:        s.HasPremium(),
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		CancelAtPeriodEnd: &cancel,
	}
}
