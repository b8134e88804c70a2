package notification_handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tcmtongue/server/internal/app/service/analytics"
	notificationlog "github.com/tcmtongue/server/internal/app/service/notification_log"
	"github.com/tcmtongue/server/internal/app/service/subscription"
	models "github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/internal/platform/stripeapi"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/metrics"
	"github.com/tcmtongue/server/pkg/types"
)

// defaultPeriod is assumed when Stripe omits the current period bounds.
const defaultPeriod = 30 * 24 * time.Hour

type NotificationHandler struct {
	stripe    stripeapi.API
	notifSvc  *notificationlog.Service
	subSvc    *subscription.Service
	analytics *analytics.Service
	Logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewNotificationHandler(api stripeapi.API, notif *notificationlog.Service, sub *subscription.Service, a *analytics.Service, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{stripe: api, notifSvc: notif, subSvc: sub, analytics: a, Logger: log, now: time.Now}
}

// outcome is what reconciliation did, recorded in the notification log.
type outcome struct {
	Action         string `json:"action"`
	UserID         string `json:"user_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Matched        *bool  `json:"matched,omitempty"`
}

// HandleNotification verifies and reconciles one webhook delivery. Signature
// errors are returned before anything is logged.
func (h *NotificationHandler) HandleNotification(ctx context.Context, provider types.PaymentProvider, payload []byte, signature string) (resErr error) {
	var parser *StripeNotificationParser
	var err error
	switch provider {
	case types.PaymentProviderStripe:
		parser, err = GetStripeNotificationParser(h.stripe, payload, signature, h.now())
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported provider: %s", provider)
	}

	start := time.Now()
	eventType := parser.GetEventType(ctx)
	defer metrics.ObserveBusinessProcess("webhook", eventType, start)

	log := logctx.FromCtx(ctx, h.Logger).With("event_id", parser.GetEventID(ctx), "event_type", eventType)
	dataBytes, _ := json.Marshal(parser.GetData(ctx))

	h.notifSvc.Save(ctx, h.newLog(ctx, parser, parser.GetUserID(ctx), dataBytes, nil, models.PaymentNotificationLogStatusReceived))

	var res *outcome
	defer func() {
		resMap := map[string]any{"outcome": res}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := models.PaymentNotificationLogStatusHandled
		if resErr != nil {
			status = models.PaymentNotificationLogStatusHandleFailed
		}
		userID := parser.GetUserID(ctx)
		if res != nil && res.UserID != "" {
			userID = res.UserID
		}
		metrics.Inc(metrics.MetricsWebhookEvents, eventType, string(status))
		entry := h.newLog(ctx, parser, userID, dataBytes, lo.ToPtr(datatypes.JSON(resBytes)), status)
		entry.NotificationTime = h.now()
		h.notifSvc.Save(ctx, entry)
	}()

	res, resErr = h.reconcile(ctx, parser)
	if resErr != nil {
		log.Errorw("failed to reconcile webhook", "error", resErr)
		return resErr
	}
	log.Infow("webhook reconciled", "action", res.Action, "user_id", res.UserID, "subscription_id", res.SubscriptionID)
	return nil
}

func (h *NotificationHandler) newLog(ctx context.Context, p NotificationParser, userID string, data []byte, result *datatypes.JSON, status models.PaymentNotificationLogStatus) *models.PaymentNotificationLog {
	return &models.PaymentNotificationLog{
		ProviderID:       p.GetProvider(ctx),
		UserID:           lo.EmptyableToPtr(userID),
		TraceID:          logctx.TraceID(ctx),
		EventID:          p.GetEventID(ctx),
		EventType:        p.GetEventType(ctx),
		Livemode:         p.IsLivemode(ctx),
		NotificationTime: p.GetNotificationTime(ctx),
		Data:             datatypes.JSON(data),
		Result:           result,
		Status:           status,
	}
}

func (h *NotificationHandler) reconcile(ctx context.Context, p *StripeNotificationParser) (*outcome, error) {
	switch p.GetEventType(ctx) {
	case EventCheckoutCompleted:
		return h.onCheckoutCompleted(ctx, p)
	case EventInvoicePaid:
		return h.onInvoicePaid(ctx, p)
	case EventSubscriptionUpdated:
		return h.onSubscriptionUpdated(ctx, p)
	case EventSubscriptionDeleted:
		return h.onSubscriptionDeleted(ctx, p)
	case EventInvoiceFailed:
		return h.onInvoiceFailed(ctx, p)
	default:
		logctx.FromCtx(ctx, h.Logger).Infow("unhandled stripe event type", "event_type", p.GetEventType(ctx))
		return &outcome{Action: "ignored"}, nil
	}
}

func (h *NotificationHandler) onCheckoutCompleted(ctx context.Context, p *StripeNotificationParser) (*outcome, error) {
	var session stripe.CheckoutSession
	if err := p.object(&session); err != nil {
		return nil, err
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return &outcome{Action: "ignored: no subscription"}, nil
	}
	sub, err := h.stripe.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return nil, err
	}
	userID := lo.CoalesceOrEmpty(sub.Metadata[stripeapi.MetadataUserID], session.Metadata[stripeapi.MetadataUserID])
	if userID == "" {
		return &outcome{Action: "ignored: no user", SubscriptionID: sub.ID}, nil
	}

	customerID := customerIDOf(session.Customer, sub.Customer)
	if err := h.subSvc.UpsertPremium(ctx, userID, h.mirrorOf(sub, customerID), types.SubscriptionChangeReasonPurchase); err != nil {
		return nil, err
	}
	h.analytics.TrackSubscriptionEvent(ctx, analytics.SubscriptionCreated, analytics.SubscriptionEvent{
		Identity:       analytics.Identity{UserID: userID},
		SubscriptionID: sub.ID,
		Tier:           string(types.TierPremium),
		Value:          lo.ToPtr(float64(session.AmountTotal) / 100),
		Currency:       strings.ToUpper(string(session.Currency)),
	})
	return &outcome{Action: "premium_granted", UserID: userID, SubscriptionID: sub.ID}, nil
}

func (h *NotificationHandler) onInvoicePaid(ctx context.Context, p *StripeNotificationParser) (*outcome, error) {
	var inv stripe.Invoice
	if err := p.object(&inv); err != nil {
		return nil, err
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return &outcome{Action: "ignored: no subscription"}, nil
	}
	sub, err := h.stripe.GetSubscription(ctx, inv.Subscription.ID)
	if err != nil {
		return nil, err
	}
	userID := sub.Metadata[stripeapi.MetadataUserID]
	if userID == "" {
		return &outcome{Action: "ignored: no user", SubscriptionID: sub.ID}, nil
	}

	customerID := customerIDOf(inv.Customer, sub.Customer)
	if err := h.subSvc.UpsertPremium(ctx, userID, h.mirrorOf(sub, customerID), types.SubscriptionChangeReasonRenew); err != nil {
		return nil, err
	}
	h.analytics.TrackSubscriptionEvent(ctx, analytics.SubscriptionPaymentSucceeded, analytics.SubscriptionEvent{
		Identity:       analytics.Identity{UserID: userID},
		SubscriptionID: sub.ID,
		Tier:           string(types.TierPremium),
		Value:          lo.ToPtr(float64(inv.AmountPaid) / 100),
		Currency:       strings.ToUpper(string(inv.Currency)),
	})
	return &outcome{Action: "premium_renewed", UserID: userID, SubscriptionID: sub.ID}, nil
}

func (h *NotificationHandler) onSubscriptionUpdated(ctx context.Context, p *StripeNotificationParser) (*outcome, error) {
	var sub stripe.Subscription
	if err := p.object(&sub); err != nil {
		return nil, err
	}
	userID := sub.Metadata[stripeapi.MetadataUserID]
	if userID == "" {
		return &outcome{Action: "ignored: no user", SubscriptionID: sub.ID}, nil
	}
	found, err := h.subSvc.MirrorBySubscriptionID(ctx, sub.ID, h.mirrorOf(&sub, ""))
	if err != nil {
		return nil, err
	}
	return &outcome{Action: "mirrored", UserID: userID, SubscriptionID: sub.ID, Matched: &found}, nil
}

func (h *NotificationHandler) onSubscriptionDeleted(ctx context.Context, p *StripeNotificationParser) (*outcome, error) {
	var sub stripe.Subscription
	if err := p.object(&sub); err != nil {
		return nil, err
	}
	found, err := h.subSvc.DowngradeBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	userID := sub.Metadata[stripeapi.MetadataUserID]
	if userID != "" {
		h.analytics.TrackSubscriptionEvent(ctx, analytics.SubscriptionCancelled, analytics.SubscriptionEvent{
			Identity:       analytics.Identity{UserID: userID},
			SubscriptionID: sub.ID,
			Tier:           string(types.TierFree),
		})
	}
	return &outcome{Action: "downgraded", UserID: userID, SubscriptionID: sub.ID, Matched: &found}, nil
}

func (h *NotificationHandler) onInvoiceFailed(ctx context.Context, p *StripeNotificationParser) (*outcome, error) {
	var inv stripe.Invoice
	if err := p.object(&inv); err != nil {
		return nil, err
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return &outcome{Action: "ignored: no subscription"}, nil
	}
	found, err := h.subSvc.MarkPastDue(ctx, inv.Subscription.ID)
	if err != nil {
		return nil, err
	}
	userID := p.GetUserID(ctx)
	if userID != "" {
		h.analytics.TrackSubscriptionEvent(ctx, analytics.SubscriptionPaymentFailed, analytics.SubscriptionEvent{
			Identity:       analytics.Identity{UserID: userID},
			SubscriptionID: inv.Subscription.ID,
			Tier:           string(types.TierPremium),
			Value:          lo.ToPtr(float64(inv.AmountDue) / 100),
			Currency:       strings.ToUpper(string(inv.Currency)),
		})
	}
	return &outcome{Action: "past_due", UserID: userID, SubscriptionID: inv.Subscription.ID, Matched: &found}, nil
}

// mirrorOf copies the Stripe subscription onto a Mirror. Missing period
// bounds default to now and now+30 days.
func (h *NotificationHandler) mirrorOf(sub *stripe.Subscription, customerID string) subscription.Mirror {
	now := h.now()
	start, end := now, now.Add(defaultPeriod)
	if sub.CurrentPeriodStart > 0 {
		start = time.Unix(sub.CurrentPeriodStart, 0)
	}
	if sub.CurrentPeriodEnd > 0 {
		end = time.Unix(sub.CurrentPeriodEnd, 0)
	}
	return subscription.Mirror{
		CustomerID:        customerID,
		SubscriptionID:    sub.ID,
		PriceID:           stripeapi.PriceID(sub),
		Status:            types.SubscriptionStatus(sub.Status),
		PeriodStart:       &start,
		PeriodEnd:         &end,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
}

func customerIDOf(candidates ...*stripe.Customer) string {
	for _, c := range candidates {
		if c != nil && c.ID != "" {
			return c.ID
		}
	}
	return ""
}

var Module = fx.Options(
	fx.Provide(NewNotificationHandler),
)
