package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/movie-rating/internal/config"
	"github.com/oggyb/movie-rating/internal/metrics"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// Consume atomically reads and deletes key. ok is false when the key was absent.
func (c *RedisCache) Consume(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetJSON stores v encoded as JSON.
func (c *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.Client.Set(ctx, key, b, ttl).Err()
}

// GetJSON decodes the value at key into dst. hit is false on a miss.
// name labels the cache in metrics.
func (c *RedisCache) GetJSON(ctx context.Context, name, key string, dst any) (bool, error) {
	b, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(name, false)
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.Client.Del(ctx, key).Err()
		metrics.RecordCacheLookup(name, false)
		return false, nil
	}
	metrics.RecordCacheLookup(name, true)
	return true, nil
}

// KeyForSearch generates Redis key for a catalog title search page.
func KeyForSearch(query string, page int) string {
	return fmt.Sprintf("catalog:search:%s:%d", strings.ToLower(strings.TrimSpace(query)), page)
}

// KeyForPopular generates Redis key for a popular-movies page.
func KeyForPopular(page int) string {
	return fmt.Sprintf("catalog:popular:%d", page)
}

// KeyForResetToken generates Redis key for an unused password reset token.
func KeyForResetToken(jti string) string {
	return "auth:reset:" + jti
}
