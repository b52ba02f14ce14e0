package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"Signalist/internal/ports"
)

// MemoryCache is an in-process cache used when Redis is not configured.
// Every entry shares the TTL given at construction.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

var _ ports.NewsCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding up to size entries for ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 64
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

// Set ignores ttl; the construction TTL applies.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}
