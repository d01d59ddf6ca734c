package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formationhub/contentd/internal/logging"
)

const (
	// keyPrefix namespaces rendered bodies in Redis.
	keyPrefix = "contentd:html:"

	// DefaultTTL is how long a rendered body stays cached.
	DefaultTTL = 10 * time.Minute
)

// Connect creates a Redis client and verifies the connection with a ping.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache returns a cache using client. A zero ttl uses DefaultTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("render cache get error", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return val, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, html []byte) {
	if err := c.client.Set(ctx, keyPrefix+key, html, c.ttl).Err(); err != nil {
		c.logger.Warn("render cache set error", slog.String("key", key), slog.String("error", err.Error()))
	}
}
