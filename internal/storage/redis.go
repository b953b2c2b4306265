package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/notify"
)

const (
	prefCacheTTL       = 5 * time.Minute
	deliveryCounterTTL = 30 * 24 * time.Hour
)

// PrefCache is a read-through cache for notification preferences, keeping
// the hot dispatch path off Postgres. Entries expire on their own; a miss
// just means the dispatcher falls back to the stored device prefs.
type PrefCache struct {
	client *redis.Client
}

func NewPrefCache(client *redis.Client) *PrefCache {
	return &PrefCache{client: client}
}

func prefKey(userID int) string {
	return fmt.Sprintf("prefs:%d", userID)
}

func (c *PrefCache) GetPrefs(ctx context.Context, userID int) (*domain.NotificationPrefs, bool) {
	raw, err := c.client.Get(ctx, prefKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var prefs domain.NotificationPrefs
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, false
	}
	return &prefs, true
}

func (c *PrefCache) SetPrefs(ctx context.Context, userID int, prefs domain.NotificationPrefs) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, prefKey(userID), raw, prefCacheTTL).Err()
}

// DeliveryAnalytics keeps rolling daily delivery counters in sorted sets,
// one key per day, member "<category>:<channel>:<outcome>".
type DeliveryAnalytics struct {
	client *redis.Client
}

func NewDeliveryAnalytics(client *redis.Client) *DeliveryAnalytics {
	return &DeliveryAnalytics{client: client}
}

func deliveryKey(day time.Time) string {
	return "delivery:daily:" + day.Format("2006-01-02")
}

func (a *DeliveryAnalytics) IncrDelivery(ctx context.Context, category domain.NotificationCategory, channel string, outcome string, n int) {
	if n <= 0 {
		return
	}
	key := deliveryKey(time.Now())
	member := fmt.Sprintf("%s:%s:%s", category, channel, outcome)
	if err := a.client.ZIncrBy(ctx, key, float64(n), member).Err(); err != nil {
		log.Printf("[analytics] incr %s %s: %v", key, member, err)
		return
	}
	a.client.Expire(ctx, key, deliveryCounterTTL)
}

// TopDeliveries returns the day's counters ordered by volume, for the
// operator analytics endpoint.
func (a *DeliveryAnalytics) TopDeliveries(ctx context.Context, day time.Time, limit int) ([]redis.Z, error) {
	if limit <= 0 {
		limit = 20
	}
	return a.client.ZRevRangeWithScores(ctx, deliveryKey(day), 0, int64(limit-1)).Result()
}

var (
	_ notify.PreferenceCache  = (*PrefCache)(nil)
	_ notify.DeliveryCounters = (*DeliveryAnalytics)(nil)
)
