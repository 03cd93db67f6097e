package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/config"
)

const keyOrderIngest = "orders:ingest:client:%s"

// OrderIngestLimiter throttles order events per client. Disabled (nil
// limiter) when no redis address is configured; ingestion then runs
// unthrottled.
type OrderIngestLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewOrderIngestLimiter(cfg config.Config, client *RedisClient) *OrderIngestLimiter {
	if client == nil || client.Client == nil {
		return nil
	}
	if cfg.OrderRateLimitPerMin <= 0 || cfg.OrderRateBurst <= 0 {
		return nil
	}
	return &OrderIngestLimiter{
		bucket: NewTokenBucket(client.Client),
		rate:   float64(cfg.OrderRateLimitPerMin) / 60.0,
		burst:  cfg.OrderRateBurst,
	}
}

func (l *OrderIngestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *OrderIngestLimiter) Allow(ctx context.Context, clientID snowflake.ID) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyOrderIngest, clientID.String()), l.rate, l.burst)
}

// LockTTL is how long a settlement-generation lock may be held before it
// expires on its own.
const LockTTL = 30 * time.Second
