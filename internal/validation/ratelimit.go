package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitResult reports the outcome of a rate-limit check.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	Window     string        `json:"window,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// RateLimiter enforces fixed submission windows per player, counted in
// Redis so limits hold across instances.
type RateLimiter struct {
	rdb       *redis.Client
	PerMinute int
	PerDay    int
}

const rlKeyPrefix = "lightsout:rl:"

func NewRateLimiter(rdb *redis.Client, perMinute, perDay int) *RateLimiter {
	return &RateLimiter{rdb: rdb, PerMinute: perMinute, PerDay: perDay}
}

// Allow counts one submission attempt against both windows. The count
// is consumed even when denied, so hammering does not help.
func (rl *RateLimiter) Allow(ctx context.Context, playerID string, now time.Time) (RateLimitResult, error) {
	minuteKey := fmt.Sprintf("%smin:%s:%d", rlKeyPrefix, playerID, now.Unix()/60)
	dayKey := fmt.Sprintf("%sday:%s:%s", rlKeyPrefix, playerID, now.UTC().Format("2006-01-02"))

	minuteCount, err := rl.rdb.Incr(ctx, minuteKey).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("counting minute window: %w", err)
	}
	if minuteCount == 1 {
		rl.rdb.Expire(ctx, minuteKey, 2*time.Minute)
	}

	dayCount, err := rl.rdb.Incr(ctx, dayKey).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("counting day window: %w", err)
	}
	if dayCount == 1 {
		rl.rdb.Expire(ctx, dayKey, 48*time.Hour)
	}

	if int(minuteCount) > rl.PerMinute {
		nextMinute := now.Truncate(time.Minute).Add(time.Minute)
		return RateLimitResult{
			Allowed:    false,
			Window:     "minute",
			RetryAfter: nextMinute.Sub(now),
		}, nil
	}
	if int(dayCount) > rl.PerDay {
		nextDay := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		return RateLimitResult{
			Allowed:    false,
			Window:     "day",
			RetryAfter: nextDay.Sub(now.UTC()),
		}, nil
	}

	remaining := rl.PerMinute - int(minuteCount)
	if dayRemaining := rl.PerDay - int(dayCount); dayRemaining < remaining {
		remaining = dayRemaining
	}
	return RateLimitResult{Allowed: true, Remaining: remaining}, nil
}
