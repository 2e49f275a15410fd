// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"content-testing-workers/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPool = 10

// RedisClient holds the connection behind the problem XML cache.
type RedisClient struct {
	Client *redis.Client
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	pool := cfg.PoolSize
	if pool <= 0 {
		pool = defaultRedisPool
	}
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     pool,
		MinIdleConns: pool / 5,
	}
}

// NewRedis does not dial; call Ping to find out whether the cache is usable.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	return &RedisClient{Client: redis.NewClient(redisOptions(cfg))}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
