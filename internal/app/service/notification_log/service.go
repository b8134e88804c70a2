package notification_log

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	wg  sync.WaitGroup
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a payment notification log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	if log == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if log.ID == "" {
			log.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.WithContext(ctx).Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
		}
	}()
}

// Wait blocks until pending logs are written.
func (s *Service) Wait() { s.wg.Wait() }

// ListByUser returns the newest notifications attributed to userID.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*models.PaymentNotificationLog, error) {
	var logs []*models.PaymentNotificationLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	return logs, nil
}

func registerFlush(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		s.Wait()
		return nil
	}})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerFlush),
)
