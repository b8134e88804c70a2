// Package billing opens Stripe Checkout and Billing Portal sessions.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/service/analytics"
	"github.com/tcmtongue/server/internal/app/service/subscription"
	"github.com/tcmtongue/server/internal/platform/stripeapi"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/metrics"
)

var (
	// ErrNoCustomer means the user has never been linked to a Stripe customer.
	ErrNoCustomer = errors.New("No subscription found")
	ErrNoPrice    = errors.New("Price ID is required")
	// ErrUnknownPrice rejects a price that is not one of the configured
	// premium prices.
	ErrUnknownPrice = errors.New("Invalid price ID")
)

// Customer identifies the signed-in user starting a checkout.
type Customer struct {
	UserID string
	Email  string
}

type Service struct {
	stripe    stripeapi.API
	subs      *subscription.Service
	analytics *analytics.Service
	appURL    string
	priceID   string
	prices    map[string]struct{}
	log       *zap.SugaredLogger
}

func NewService(cfg *cfgpkg.Config, api stripeapi.API, subs *subscription.Service, a *analytics.Service, log *zap.SugaredLogger) *Service {
	prices := lo.SliceToMap(
		lo.Compact(lo.Map(append([]string{cfg.Stripe.PremiumPriceID}, cfg.Stripe.ExtraPriceIDs...), func(id string, _ int) string {
			return strings.TrimSpace(id)
		})),
		func(id string) (string, struct{}) { return id, struct{}{} },
	)
	return &Service{
		stripe:    api,
		subs:      subs,
		analytics: a,
		appURL:    strings.TrimRight(cfg.App.URL, "/"),
		priceID:   strings.TrimSpace(cfg.Stripe.PremiumPriceID),
		prices:    prices,
		log:       log,
	}
}

// Checkout returns a subscription-mode Checkout Session for the user,
// creating and linking a Stripe customer on first use. An empty priceID
// means the premium price; any other value must be a configured price.
func (s *Service) Checkout(ctx context.Context, cus Customer, priceID string) (*stripeapi.Session, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("checkout", "session", start)

	if priceID == "" {
		priceID = s.priceID
	}
	if priceID == "" {
		return nil, ErrNoPrice
	}
	if _, ok := s.prices[priceID]; !ok {
		logctx.FromCtx(ctx, s.log).Warnw("checkout price rejected", "price_id", priceID)
		return nil, ErrUnknownPrice
	}
	customerID, err := s.customerFor(ctx, cus)
	if err != nil {
		return nil, err
	}
	session, err := s.stripe.CreateCheckoutSession(ctx, stripeapi.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     cus.UserID,
		SuccessURL: s.appURL + "/dashboard?success=true&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.appURL + "/pricing?canceled=true",
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("checkout session created", "session_id", session.ID, "price_id", priceID)
	s.analytics.Track(ctx, analytics.EventBeginCheckout, map[string]any{
		"currency":       "USD",
		"items":          []map[string]any{{"item_id": priceID, "item_name": "premium", "quantity": 1}},
		"event_category": "ecommerce",
	}, analytics.Identity{UserID: cus.UserID})
	return session, nil
}

// Portal returns the Billing Portal URL for the user's customer.
func (s *Service) Portal(ctx context.Context, userID string) (string, error) {
	customerID, err := s.subs.GetCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		return "", ErrNoCustomer
	}
	session, err := s.stripe.CreatePortalSession(ctx, customerID, s.appURL+"/dashboard?portal=closed")
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (s *Service) customerFor(ctx context.Context, cus Customer) (string, error) {
	customerID, err := s.subs.GetCustomerID(ctx, cus.UserID)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}
	customerID, err = s.stripe.CreateCustomer(ctx, cus.Email, cus.UserID)
	if err != nil {
		return "", err
	}
	if err := s.subs.SaveCustomerID(ctx, cus.UserID, customerID); err != nil {
		return "", fmt.Errorf("failed to save customer id: %w", err)
	}
	return customerID, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
