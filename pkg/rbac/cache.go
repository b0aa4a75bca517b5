package rbac

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores authorization verdicts in Redis. Entries are tiny
// ("1"/"0") and expire on their own; invalidation exists for role
// mutations that must not wait out the TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a decision cache over an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements DecisionCache.
func (c *RedisCache) Get(ctx context.Context, key string) (bool, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return value == "1", true, nil
}

// Set implements DecisionCache.
func (c *RedisCache) Set(ctx context.Context, key string, allowed bool, ttl time.Duration) error {
	value := "0"
	if allowed {
		value = "1"
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// InvalidateUser implements DecisionCache: drops every verdict cached for
// the user, across all domains and capabilities.
func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) error {
	pattern := DecisionKeyPrefix(userID) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
