package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown implements domain.CooldownGuard with SET NX EX: the first Allow
// for a market claims the key and passes; repeats are blocked until the TTL
// expires. Totals survive restarts because the state lives in Redis, not in
// the process.
type Cooldown struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCooldown creates a Cooldown with the given per-market TTL.
func NewCooldown(c *Client, ttl time.Duration) *Cooldown {
	return &Cooldown{rdb: c.Underlying(), ttl: ttl}
}

func cooldownKey(marketID string) string {
	return "cooldown:" + marketID
}

// Allow reports whether the market may emit a bundle right now. It claims
// the cooldown slot atomically; a true result means this caller owns the
// next emission for the TTL window.
func (cd *Cooldown) Allow(ctx context.Context, marketID string) (bool, error) {
	ok, err := cd.rdb.SetNX(ctx, cooldownKey(marketID), "1", cd.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: cooldown %s: %w", marketID, err)
	}
	return ok, nil
}
