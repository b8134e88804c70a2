package types

import "time"

// Tier is the product level a user is entitled to.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// SubscriptionStatus mirrors the Stripe subscription status.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCustomerCreated SubscriptionChangeReason = "customerCreated"
	SubscriptionChangeReasonPurchase        SubscriptionChangeReason = "purchase"
	SubscriptionChangeReasonRenew           SubscriptionChangeReason = "renew"
	SubscriptionChangeReasonUpdate          SubscriptionChangeReason = "update"
	SubscriptionChangeReasonCancel          SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonPaymentFailed   SubscriptionChangeReason = "paymentFailed"
)

// SubscriptionInfo is the public status view of a subscription.
type SubscriptionInfo struct {
	Tier              Tier               `json:"tier"`
	Status            SubscriptionStatus `json:"status"`
	HasPremium        bool               `json:"hasPremium"`
	CurrentPeriodEnd  *time.Time         `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd *bool              `json:"cancelAtPeriodEnd,omitempty"`
}
