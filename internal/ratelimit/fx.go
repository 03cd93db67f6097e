package ratelimit

import (
	"strings"

	"github.com/netlift/netlift/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// RedisClient wraps the shared connection so fx can provide a nil value
// when redis is not configured.
type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg config.Config) *RedisClient {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &RedisClient{}
	}
	return &RedisClient{Client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
	})}
}

func NewSettlementLocker(client *RedisClient) *Locker {
	if client == nil {
		return nil
	}
	return NewLocker(client.Client)
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewOrderIngestLimiter),
	fx.Provide(NewSettlementLocker),
)
