package urlcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "picstash:url:"

// RedisCache is a Cache backed by Redis, shared across instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed URL cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	url, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("URL cache read failed")
		}
		return "", false
	}
	return url, true
}

func (c *RedisCache) Set(ctx context.Context, key, url string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, url, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("URL cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("URL cache invalidation failed")
	}
}
