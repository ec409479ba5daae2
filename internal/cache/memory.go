package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/utafrali/ContactsGo/internal/domain"
)

// MemoryCache implements UserCache with an in-process expirable LRU. It is
// used when no Redis is configured.
type MemoryCache struct {
	lru *expirable.LRU[int64, domain.UserSummary]
}

// NewMemoryCache creates an LRU holding at most size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[int64, domain.UserSummary](size, nil, ttl)}
}

// Get returns ErrMiss for absent or expired entries.
func (c *MemoryCache) Get(_ context.Context, id int64) (*domain.UserSummary, error) {
	u, ok := c.lru.Get(id)
	if !ok {
		recordLookup("memory", ErrMiss)
		return nil, ErrMiss
	}
	recordLookup("memory", nil)
	return &u, nil
}

// Set stores a copy of u for the cache TTL.
func (c *MemoryCache) Set(_ context.Context, u *domain.UserSummary) error {
	c.lru.Add(u.ID, *u)
	return nil
}

// Invalidate drops the entry for id, if any.
func (c *MemoryCache) Invalidate(_ context.Context, id int64) error {
	c.lru.Remove(id)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
