package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"social-autopost-platform/internal/logger"
)

var ErrQuotaExceeded = errors.New("daily caption quota exceeded")

type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd
}

// DailyQuota counts on-demand Gemini requests per client per calendar day.
type DailyQuota struct {
	store counterStore
	limit int
	loc   *time.Location
	now   func() time.Time
}

// NewDailyQuota returns nil when limit is 0 or no redis client is given; a
// nil quota allows everything.
func NewDailyQuota(rdb *redis.Client, limit int, loc *time.Location) *DailyQuota {
	if rdb == nil || limit <= 0 {
		return nil
	}
	return newDailyQuota(rdb, limit, loc)
}

func newDailyQuota(store counterStore, limit int, loc *time.Location) *DailyQuota {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyQuota{store: store, limit: limit, loc: loc, now: time.Now}
}

// Consume takes one request from clientID's allowance for today. Redis
// errors let the request through.
func (q *DailyQuota) Consume(ctx context.Context, clientID string) error {
	if q == nil {
		return nil
	}

	now := q.now().In(q.loc)
	key := fmt.Sprintf("quota:regenerate:%s:%s", clientID, now.Format("20060102"))

	count, err := q.store.Incr(ctx, key).Result()
	if err != nil {
		logger.Warn("Quota store unavailable", "client_id", clientID, "error", err)
		return nil
	}
	// Refreshed on every call so one failed expire does not leave the key
	// without a TTL.
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, q.loc)
	if err := q.store.ExpireAt(ctx, key, midnight).Err(); err != nil {
		logger.Warn("Quota expiry not set", "client_id", clientID, "key", key, "error", err)
	}

	if count > int64(q.limit) {
		return fmt.Errorf("%w: %d of %d used", ErrQuotaExceeded, count-1, q.limit)
	}
	return nil
}
