package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// recordScript increments the day's counter unless the free limit is reached.
// ARGV: limit, ttl seconds, premium flag.
const recordScript = `
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local premium = tonumber(ARGV[3]) == 1

local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if not premium and count >= limit then
  return {0, count}
end

count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], ttl)
end
return {1, count}
`

// keyTTL outlives the UTC day the key belongs to.
const keyTTL = 48 * time.Hour

// PremiumChecker answers whether a user has an active premium subscription.
type PremiumChecker interface {
	HasPremium(ctx context.Context, userID string) (bool, error)
}

// RedisCounter keeps one counter key per user per UTC day.
type RedisCounter struct {
	client  *redis.Client
	script  *redis.Script
	premium PremiumChecker
	now     func() time.Time
}

func NewRedisCounter(client *redis.Client, premium PremiumChecker) *RedisCounter {
	return &RedisCounter{
		client:  client,
		script:  redis.NewScript(recordScript),
		premium: premium,
		now:     time.Now,
	}
}

func (r *RedisCounter) key(userID string) string {
	return fmt.Sprintf("scan_quota:%s:%s", userID, r.now().UTC().Format(time.DateOnly))
}

func (r *RedisCounter) CanScan(ctx context.Context, userID string, dailyLimit int) (*Allowance, error) {
	premium, err := r.premium.HasPremium(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := r.client.Get(ctx, r.key(userID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if premium {
		return &Allowance{CanScan: true, Tier: TierPremium, ScansToday: count, ScansRemaining: Unlimited}, nil
	}
	return &Allowance{
		CanScan:        count < dailyLimit,
		Tier:           TierFree,
		ScansToday:     count,
		ScansRemaining: max(dailyLimit-count, 0),
	}, nil
}

func (r *RedisCounter) Record(ctx context.Context, userID string, dailyLimit int) (*RecordResult, error) {
	premium, err := r.premium.HasPremium(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !premium && dailyLimit <= 0 {
		return &RecordResult{Success: false, ScansRemaining: 0}, nil
	}
	flag := 0
	if premium {
		flag = 1
	}
	res, err := r.script.Run(ctx, r.client, []string{r.key(userID)}, dailyLimit, int64(keyTTL/time.Second), flag).Slice()
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, errors.New("invalid quota script response")
	}
	ok := castToInt(res[0]) == 1
	count := int(castToInt(res[1]))
	switch {
	case !ok:
		return &RecordResult{Success: false, ScansRemaining: 0}, nil
	case premium:
		return &RecordResult{Success: true, ScansRemaining: Unlimited}, nil
	default:
		return &RecordResult{Success: true, ScansRemaining: max(dailyLimit-count, 0)}, nil
	}
}

func castToInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
