package quota

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tcmtongue/server/internal/app/service/subscription"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
)

// newCounter picks the counter backend from config. The redis backend is
// pinged at startup so a bad address fails fast.
func newCounter(lc fx.Lifecycle, cfg *cfgpkg.Config, db *gorm.DB, rdb *redis.Client, subs *subscription.Service, log *zap.SugaredLogger) (Counter, error) {
	switch cfg.Quota.Backend {
	case cfgpkg.QuotaBackendRedis:
		lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			return nil
		}})
		log.Infow("scan quota backend", "backend", "redis")
		return NewRedisCounter(rdb, subs), nil
	case cfgpkg.QuotaBackendPostgres, "":
		log.Infow("scan quota backend", "backend", "postgres")
		return NewPostgresCounter(db), nil
	default:
		return nil, fmt.Errorf("unknown quota backend %q", cfg.Quota.Backend)
	}
}

var Module = fx.Options(
	fx.Provide(newCounter),
	fx.Provide(NewGate),
)
