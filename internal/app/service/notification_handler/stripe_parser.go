package notification_handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/tcmtongue/server/internal/platform/stripeapi"
	"github.com/tcmtongue/server/pkg/types"
)

var (
	ErrMissingSignature = errors.New("Missing signature or webhook secret")
	ErrInvalidSignature = errors.New("Invalid signature")
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type StripeNotificationParser struct {
	ReceivedAt time.Time
	Event      stripe.Event
	// userID is filled from the event object when it carries one.
	userID string
}

// GetStripeNotificationParser verifies the signature and decodes the event.
func GetStripeNotificationParser(api stripeapi.API, payload []byte, signature string, now time.Time) (*StripeNotificationParser, error) {
	if signature == "" || !api.WebhookConfigured() {
		return nil, ErrMissingSignature
	}
	event, err := api.ConstructEvent(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	p := &StripeNotificationParser{ReceivedAt: now, Event: event}
	p.userID = p.metadataUserID()
	return p, nil
}

func (p *StripeNotificationParser) GetProvider(ctx context.Context) types.PaymentProvider {
	return types.PaymentProviderStripe
}

func (p *StripeNotificationParser) GetNotificationTime(ctx context.Context) time.Time {
	if p.Event.Created > 0 {
		return time.Unix(p.Event.Created, 0)
	}
	return p.ReceivedAt
}

func (p *StripeNotificationParser) GetEventID(ctx context.Context) string { return p.Event.ID }

func (p *StripeNotificationParser) GetEventType(ctx context.Context) string {
	return string(p.Event.Type)
}

func (p *StripeNotificationParser) GetUserID(ctx context.Context) string { return p.userID }

func (p *StripeNotificationParser) IsLivemode(ctx context.Context) bool { return p.Event.Livemode }

func (p *StripeNotificationParser) GetData(ctx context.Context) any {
	if p.Event.Data == nil {
		return nil
	}
	return p.Event.Data.Raw
}

// object decodes the event's data object into v.
func (p *StripeNotificationParser) object(v any) error {
	if p.Event.Data == nil || len(p.Event.Data.Raw) == 0 {
		return fmt.Errorf("event %s has no data object", p.Event.ID)
	}
	if err := json.Unmarshal(p.Event.Data.Raw, v); err != nil {
		return fmt.Errorf("failed to decode %s object: %w", p.Event.Type, err)
	}
	return nil
}

// metadataUserID reads supabaseUserId from whatever metadata the object has.
func (p *StripeNotificationParser) metadataUserID() string {
	var obj struct {
		Metadata            map[string]string `json:"metadata"`
		SubscriptionDetails *struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	}
	if p.object(&obj) != nil {
		return ""
	}
	if id := obj.Metadata[stripeapi.MetadataUserID]; id != "" {
		return id
	}
	if obj.SubscriptionDetails != nil {
		return obj.SubscriptionDetails.Metadata[stripeapi.MetadataUserID]
	}
	return ""
}
