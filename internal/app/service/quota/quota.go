// Package quota is the scan admission gate. Counting is delegated to an
// atomic counter in the store; the gate only authorizes and shapes responses.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/app/service/analytics"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/metrics"
)

const (
	TierAnonymous = "anonymous"
	TierFree      = "free"
	TierPremium   = "premium"

	// Unlimited is reported as scansRemaining for premium users.
	Unlimited = -1
)

var ErrUnauthenticated = errors.New("Unauthorized - Please sign in to save scans")

type Allowance struct {
	CanScan        bool   `json:"canScan"`
	Tier           string `json:"tier"`
	ScansToday     int    `json:"scansToday"`
	ScansRemaining int    `json:"scansRemaining"`
	Message        string `json:"message,omitempty"`
}

type RecordResult struct {
	Success        bool `json:"success"`
	ScansRemaining int  `json:"scans_remaining"`
}

// AnonymousAllowance is a fixed policy answer; anonymous scans are not tracked.
func AnonymousAllowance() *Allowance {
	return &Allowance{
		CanScan:        true,
		Tier:           TierAnonymous,
		ScansToday:     0,
		ScansRemaining: 1,
		Message:        "Anonymous user - limited scan available",
	}
}

// Counter checks and advances a user's daily scan count atomically.
type Counter interface {
	CanScan(ctx context.Context, userID string, dailyLimit int) (*Allowance, error)
	Record(ctx context.Context, userID string, dailyLimit int) (*RecordResult, error)
}

type Gate struct {
	counter   Counter
	limit     int
	analytics *analytics.Service
	log       *zap.SugaredLogger
}

func NewGate(counter Counter, cfg *cfgpkg.Config, a *analytics.Service, log *zap.SugaredLogger) *Gate {
	return &Gate{counter: counter, limit: cfg.Quota.FreeDailyLimit, analytics: a, log: log}
}

func (g *Gate) DailyLimit() int { return g.limit }

// Check reports the caller's allowance without side effects.
func (g *Gate) Check(ctx context.Context, userID string) (*Allowance, error) {
	if userID == "" {
		metrics.Inc(metrics.MetricsScanQuota, TierAnonymous, "allowed")
		return AnonymousAllowance(), nil
	}
	a, err := g.counter.CanScan(ctx, userID, g.limit)
	if err != nil {
		return nil, fmt.Errorf("check scan availability: %w", err)
	}
	metrics.Inc(metrics.MetricsScanQuota, a.Tier, lo.Ternary(a.CanScan, "allowed", "refused"))
	return a, nil
}

// Record advances the counter for an authenticated user. A refused record is
// reported to analytics as scan_limit_reached.
func (g *Gate) Record(ctx context.Context, userID string) (*RecordResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	r, err := g.counter.Record(ctx, userID, g.limit)
	if err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}
	tier := lo.Ternary(r.ScansRemaining == Unlimited, TierPremium, TierFree)
	metrics.Inc(metrics.MetricsScanQuota, tier, lo.Ternary(r.Success, "recorded", "refused"))
	if !r.Success {
		logctx.FromCtx(ctx, g.log).Infow("scan not recorded, daily limit reached", "limit", g.limit)
		if g.analytics != nil {
			g.analytics.TrackScanLimitReached(ctx, analytics.Identity{UserID: userID}, TierFree, g.limit)
		}
	}
	return r, nil
}
