package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client used for the event queue and the daily
// presence counter cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func presenceKey(date string) string { return "manabitrack:presence:" + date }

// BumpPresence increments the per-day check-in counter shown on the
// dashboard. Keys expire after two days; the dataset stays authoritative.
func (r *Redis) BumpPresence(ctx context.Context, date string) error {
	key := presenceKey(date)
	if err := r.Client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return r.Client.Expire(ctx, key, 48*time.Hour).Err()
}

// PresenceCount reads the cached per-day check-in counter, 0 when unset.
func (r *Redis) PresenceCount(ctx context.Context, date string) (int64, error) {
	n, err := r.Client.Get(ctx, presenceKey(date)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
