// Package stripeapi wraps the Stripe calls the billing flows need.
package stripeapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
)

// MetadataUserID is the metadata key that links Stripe objects to a Supabase user.
const MetadataUserID = "supabaseUserId"

var ErrNotConfigured = errors.New("stripe not configured")

type Session struct {
	ID  string
	URL string
}

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// API is the subset of Stripe used by billing and webhook reconciliation.
type API interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
	WebhookConfigured() bool
}

type Client struct {
	sc            *client.API
	webhookSecret string
	log           *zap.SugaredLogger
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	return NewWithBackends(cfg.Stripe, nil, log)
}

// NewWithBackends lets tests point the client at a fake API server.
func NewWithBackends(cfg cfgpkg.StripeConfig, backends *stripe.Backends, log *zap.SugaredLogger) *Client {
	c := &Client{webhookSecret: cfg.WebhookSecret, log: log}
	if cfg.SecretKey != "" {
		c.sc = &client.API{}
		c.sc.Init(cfg.SecretKey, backends)
	} else {
		log.Warn("stripe secret key not set, billing calls will fail")
	}
	return c
}

func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if c.sc == nil {
		return "", ErrNotConfigured
	}
	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata(MetadataUserID, userID)
	params.Context = ctx
	cus, err := c.sc.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return cus.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error) {
	if c.sc == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(p.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserID: p.UserID},
		},
	}
	params.AddMetadata(MetadataUserID, p.UserID)
	params.Context = ctx
	s, err := c.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	if c.sc == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := c.sc.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if c.sc == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.sc.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve subscription %s: %w", id, err)
	}
	return sub, nil
}

func (c *Client) WebhookConfigured() bool { return c.webhookSecret != "" }

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c.webhookSecret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	return webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// PriceID returns the price of the first subscription item.
func PriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return ""
	}
	return sub.Items.Data[0].Price.ID
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(c *Client) API { return c }),
)
