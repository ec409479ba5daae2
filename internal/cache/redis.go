package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ContactsGo/internal/domain"
)

// RedisCache implements UserCache with JSON values under user:<id>.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed user cache.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached summary or ErrMiss.
func (c *RedisCache) Get(ctx context.Context, id int64) (u *domain.UserSummary, err error) {
	defer func() { recordLookup("redis", err) }()

	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get user: %w", err)
	}

	var summary domain.UserSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal user summary: %w", err)
	}
	return &summary, nil
}

// Set stores u with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, u *domain.UserSummary) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user summary: %w", err)
	}
	if err := c.client.Set(ctx, userKey(u.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set user: %w", err)
	}
	return nil
}

// Invalidate deletes the entry for id. Deleting a missing key is not an error.
func (c *RedisCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del user: %w", err)
	}
	return nil
}
