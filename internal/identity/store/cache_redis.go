package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credledger/internal/identity/metrics"
	"credledger/internal/sentinel"
	"credledger/pkg/domain"
)

const redisKeyPrefix = "credledger:pubkey:"

// RedisCache shares cached keys between gateway replicas.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache builds a cache over client. A zero ttl stores entries without expiry.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns sentinel.ErrNotFound on a miss and wraps sentinel.ErrUnavailable
// when Redis cannot be reached.
func (c *RedisCache) Get(ctx context.Context, identity domain.Address) (domain.PublicKey, error) {
	start := time.Now()
	val, err := c.client.Get(ctx, redisKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.ObserveMiss("redis", start)
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("get public key cache: %w: %w", sentinel.ErrUnavailable, err)
	}
	metrics.ObserveHit("redis", start)
	return domain.PublicKey(val), nil
}

func (c *RedisCache) Set(ctx context.Context, identity domain.Address, key domain.PublicKey) error {
	if err := c.client.Set(ctx, redisKey(identity), key.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("save public key cache: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func redisKey(identity domain.Address) string {
	return redisKeyPrefix + identity.Key()
}
