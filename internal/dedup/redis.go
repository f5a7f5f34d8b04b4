package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard backs the idempotency check with Redis. SET NX with a TTL gives
// the atomic check-and-mark across instances, and key expiry makes ids
// reusable without an explicit sweep.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard creates a guard on the given client.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// CheckAndMark implements Guard via SET NX EX.
func (g *RedisGuard) CheckAndMark(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	set, err := g.client.SetNX(ctx, "dedup:"+eventID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	// set=true means the key was newly created, so the id was not seen.
	return !set, nil
}

// Cleanup is a no-op: Redis expires marks natively.
func (g *RedisGuard) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}
