package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// KeyPrefix namespaces all leaderboard keys in Redis.
const KeyPrefix = "lightsout:lb:"

// Period is the ranking window a score is compared within.
type Period string

const (
	PeriodDaily   = Period("daily")
	PeriodWeekly  = Period("weekly")
	PeriodAllTime = Period("alltime")
)

// AllPeriods lists every period a submission is indexed under.
var AllPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodAllTime}

// Rolling boards outlive their window slightly so a "yesterday" view
// stays queryable; all-time never expires.
const (
	dailyTTL  = 48 * time.Hour
	weeklyTTL = 8 * 24 * time.Hour
)

// GlobalScope ranks every player together. Community boards partition
// by the community a score was submitted under.
const GlobalScope = "global"

func CommunityScope(community string) string {
	return "community:" + community
}

// InitRedisClient connects to Redis, retrying with exponential backoff.
func InitRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.Warnf("redis not ready at %s: %v", addr, err)
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	logrus.Infof("connected to redis at %s", addr)
	return client, nil
}

// Entry is one ranked score.
type Entry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"playerId"`
	ReactionMs int    `json:"reactionMs"`
}

// Board maintains best-time rankings in Redis sorted sets, one set per
// scope and period bucket. Lower scores rank higher.
type Board struct {
	rdb *redis.Client
}

func NewBoard(rdb *redis.Client) *Board {
	return &Board{rdb: rdb}
}

func key(scope string, period Period, now time.Time) string {
	switch period {
	case PeriodDaily:
		return fmt.Sprintf("%s%s:daily:%s", KeyPrefix, scope, now.UTC().Format("2006-01-02"))
	case PeriodWeekly:
		year, week := now.UTC().ISOWeek()
		return fmt.Sprintf("%s%s:weekly:%d-W%02d", KeyPrefix, scope, year, week)
	default:
		return fmt.Sprintf("%s%s:alltime", KeyPrefix, scope)
	}
}

// Submit indexes a validated time under every period of the scope,
// keeping only each player's best. Returns the periods the submission
// improved.
func (b *Board) Submit(ctx context.Context, scope, playerID string, reactionMs int, now time.Time) ([]Period, error) {
	var improved []Period
	for _, period := range AllPeriods {
		k := key(scope, period, now)

		// ZADD LT CH updates only when the new score is lower and
		// reports whether it did, in one round trip, so concurrent
		// submissions cannot regress a player's stored best.
		changed, err := b.rdb.ZAddArgs(ctx, k, redis.ZAddArgs{
			LT:      true,
			Ch:      true,
			Members: []redis.Z{{Score: float64(reactionMs), Member: playerID}},
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("submitting score: %w", err)
		}
		if changed == 0 {
			continue
		}
		switch period {
		case PeriodDaily:
			b.rdb.Expire(ctx, k, dailyTTL)
		case PeriodWeekly:
			b.rdb.Expire(ctx, k, weeklyTTL)
		}
		improved = append(improved, period)
	}
	return improved, nil
}

// Top returns the fastest n entries for a scope and period.
func (b *Board) Top(ctx context.Context, scope string, period Period, n int, now time.Time) ([]Entry, error) {
	zs, err := b.rdb.ZRangeWithScores(ctx, key(scope, period, now), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, Entry{
			Rank:       i + 1,
			PlayerID:   member,
			ReactionMs: int(z.Score),
		})
	}
	return entries, nil
}

// Rank returns a player's 1-based position, or ok=false if unranked.
func (b *Board) Rank(ctx context.Context, scope string, period Period, playerID string, now time.Time) (int, bool, error) {
	rank, err := b.rdb.ZRank(ctx, key(scope, period, now), playerID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading rank: %w", err)
	}
	return int(rank) + 1, true, nil
}

// Percentile reports what fraction of the all-time board a time beats,
// as a percentage. A board of one (or empty) scores 100.
func (b *Board) Percentile(ctx context.Context, scope string, reactionMs int, now time.Time) (float64, error) {
	k := key(scope, PeriodAllTime, now)

	total, err := b.rdb.ZCard(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("counting board: %w", err)
	}
	if total <= 1 {
		return 100, nil
	}

	slower, err := b.rdb.ZCount(ctx, k, fmt.Sprintf("(%d", reactionMs), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("counting slower entries: %w", err)
	}
	return float64(slower) / float64(total-1) * 100, nil
}

// RebuildEvent is one valid historical score used to warm the index.
type RebuildEvent struct {
	PlayerID   string
	ReactionMs int
	Community  string
	RecordedAt time.Time
}

// Rebuild repopulates boards from the durable score log after a cold
// start. Daily and weekly entries are bucketed by their original time,
// so stale buckets simply expire unqueried.
func (b *Board) Rebuild(ctx context.Context, events []RebuildEvent) error {
	for _, ev := range events {
		scopes := []string{GlobalScope}
		if ev.Community != "" {
			scopes = append(scopes, CommunityScope(ev.Community))
		}
		for _, scope := range scopes {
			if _, err := b.Submit(ctx, scope, ev.PlayerID, ev.ReactionMs, ev.RecordedAt); err != nil {
				return fmt.Errorf("rebuilding board: %w", err)
			}
		}
	}
	logrus.Infof("rebuilt leaderboards from %d historical scores", len(events))
	return nil
}
