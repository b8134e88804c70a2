package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/tool"
	types "github.com/tcmtongue/server/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	// wg tracks async change-log writes.
	wg sync.WaitGroup
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Wait blocks until pending subscription logs are written.
func (s *Service) Wait() { s.wg.Wait() }

// Mirror is the Stripe-side state copied onto a subscription row.
type Mirror struct {
	CustomerID        string
	SubscriptionID    string
	PriceID           string
	Status            types.SubscriptionStatus
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

// Get returns the user's row, or nil when the user never subscribed.
func (s *Service) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// Status never fails: lookup errors are logged and reported as free.
func (s *Service) Status(ctx context.Context, userID string) types.SubscriptionInfo {
	if userID == "" {
		return (*models.Subscription)(nil).Info()
	}
	sub, err := s.Get(ctx, userID)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("subscription status lookup failed", "error", err)
		return (*models.Subscription)(nil).Info()
	}
	return sub.Info()
}

func (s *Service) HasPremium(ctx context.Context, userID string) (bool, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.HasPremium(), nil
}

// GetCustomerID returns the stored Stripe customer id, or "".
func (s *Service) GetCustomerID(ctx context.Context, userID string) (string, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil || sub == nil || sub.StripeCustomerID == nil {
		return "", err
	}
	return *sub.StripeCustomerID, nil
}

// SaveCustomerID links a Stripe customer to the user, creating a free row if needed.
func (s *Service) SaveCustomerID(ctx context.Context, userID, customerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.getWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		m := &models.Subscription{UserID: userID, Status: types.SubscriptionStatusActive, Tier: types.TierFree}
		if original != nil {
			cp := *original
			m = &cp
		}
		m.StripeCustomerID = &customerID
		_, err = s.upsertSubscription(ctx, tx, original, m, types.SubscriptionChangeReasonCustomerCreated)
		return err
	})
}

// UpsertPremium grants premium to userID with the mirrored Stripe state.
func (s *Service) UpsertPremium(ctx context.Context, userID string, mirror Mirror, reason types.SubscriptionChangeReason) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.getWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		m := &models.Subscription{UserID: userID}
		if original != nil {
			cp := *original
			m = &cp
		}
		m.Tier = types.TierPremium
		m.Status = mirror.Status
		if m.Status == "" {
			m.Status = types.SubscriptionStatusActive
		}
		if mirror.CustomerID != "" {
			m.StripeCustomerID = &mirror.CustomerID
		}
		m.StripeSubscriptionID = nilIfEmpty(mirror.SubscriptionID)
		m.StripePriceID = nilIfEmpty(mirror.PriceID)
		m.CurrentPeriodStart = mirror.PeriodStart
		m.CurrentPeriodEnd = mirror.PeriodEnd
		m.CancelAtPeriodEnd = mirror.CancelAtPeriodEnd

		changed, err := s.upsertSubscription(ctx, tx, original, m, reason)
		if err != nil {
			return err
		}
		logctx.FromCtx(ctx, s.log).Infof("upsert premium subscription, user_id=%s, subscription_id=%s, reason=%s, premium_changed=%t",
			userID, mirror.SubscriptionID, reason, changed)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to UpsertPremium: %w", err)
	}
	return nil
}

// MirrorBySubscriptionID copies status, period and cancel flag onto the row
// holding subscriptionID. Tier follows status: active is premium, anything
// else is free. It reports false when no row matches.
func (s *Service) MirrorBySubscriptionID(ctx context.Context, subscriptionID string, mirror Mirror) (bool, error) {
	return s.updateBySubscriptionID(ctx, subscriptionID, types.SubscriptionChangeReasonUpdate, func(m *models.Subscription) {
		m.Status = mirror.Status
		if m.Status == types.SubscriptionStatusActive {
			m.Tier = types.TierPremium
		} else {
			m.Tier = types.TierFree
		}
		if mirror.PriceID != "" {
			m.StripePriceID = &mirror.PriceID
		}
		m.CurrentPeriodStart = mirror.PeriodStart
		m.CurrentPeriodEnd = mirror.PeriodEnd
		m.CancelAtPeriodEnd = mirror.CancelAtPeriodEnd
	})
}

// DowngradeBySubscriptionID ends the subscription: the row goes back to free
// and forgets the Stripe subscription. A replay finds no row and is a no-op.
func (s *Service) DowngradeBySubscriptionID(ctx context.Context, subscriptionID string) (bool, error) {
	return s.updateBySubscriptionID(ctx, subscriptionID, types.SubscriptionChangeReasonCancel, func(m *models.Subscription) {
		m.Status = types.SubscriptionStatusCanceled
		m.Tier = types.TierFree
		m.StripeSubscriptionID = nil
		m.StripePriceID = nil
		m.CurrentPeriodEnd = nil
		m.CancelAtPeriodEnd = false
	})
}

func (s *Service) MarkPastDue(ctx context.Context, subscriptionID string) (bool, error) {
	return s.updateBySubscriptionID(ctx, subscriptionID, types.SubscriptionChangeReasonPaymentFailed, func(m *models.Subscription) {
		m.Status = types.SubscriptionStatusPastDue
	})
}

// ListLogs returns the newest change logs of a user.
func (s *Service) ListLogs(ctx context.Context, userID string, limit int) ([]*models.SubscriptionLog, error) {
	var logs []*models.SubscriptionLog
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscription logs: %w", err)
	}
	return logs, nil
}

// Data access helpers.

// forUpdate row-locks the read on postgres so concurrent webhooks for one
// user apply in turn. Other dialects run the plain read.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return tx
}

func (s *Service) getWithTx(ctx context.Context, tx *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := forUpdate(tx.WithContext(ctx)).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get original subscription: %w", err)
	}
	return &sub, nil
}

func (s *Service) updateBySubscriptionID(ctx context.Context, subscriptionID string, reason types.SubscriptionChangeReason, mutate func(*models.Subscription)) (bool, error) {
	if subscriptionID == "" {
		return false, nil
	}
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original models.Subscription
		if err := forUpdate(tx.WithContext(ctx)).Where("stripe_subscription_id = ?", subscriptionID).First(&original).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get subscription by stripe id: %w", err)
		}
		found = true
		m := original
		mutate(&m)
		_, err := s.upsertSubscription(ctx, tx, &original, &m, reason)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to update subscription %s: %w", subscriptionID, err)
	}
	if !found {
		logctx.FromCtx(ctx, s.log).Infow("no subscription row for stripe subscription", "subscription_id", subscriptionID, "reason", reason)
	}
	return found, nil
}

// upsertSubscription saves m inside tx and logs the change asynchronously.
// It reports whether premium entitlement changed.
func (s *Service) upsertSubscription(ctx context.Context, tx *gorm.DB, original, m *models.Subscription, reason types.SubscriptionChangeReason) (bool, error) {
	if original != nil {
		m.ID = original.ID
		m.CreatedAt = original.CreatedAt
		if err := tx.WithContext(ctx).Save(m).Error; err != nil {
			return false, fmt.Errorf("failed to upsert subscription: %w", err)
		}
	} else {
		if m.ID == "" {
			m.ID = tool.GenerateUUIDV7()
		}
		// a concurrent first write for the same user lands on the unique
		// user_id and turns into an update of that row
		err := tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).Create(m).Error
		if err != nil {
			return false, fmt.Errorf("failed to upsert subscription: %w", err)
		}
		var stored models.Subscription
		if err := tx.WithContext(ctx).Select("id").Where("user_id = ?", m.UserID).Take(&stored).Error; err != nil {
			return false, fmt.Errorf("failed to reload subscription id: %w", err)
		}
		m.ID = stored.ID
	}

	updated := original.HasPremium() != m.HasPremium()

	after := *m
	s.wg.Add(1)
	go func(b *models.Subscription, a *models.Subscription) {
		defer s.wg.Done()
		log := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: a.UserID,
			Reason: reason,
			Before: datatypes.NewJSONType(b),
			After:  datatypes.NewJSONType(a),
			Extra:  datatypes.JSONMap{"trace_id": logctx.TraceID(ctx)},
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}(original, &after)

	return updated, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
