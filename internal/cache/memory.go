package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/todmy/faers-signals/internal/signal"
)

// MemoryCache is an in-process LRU of recent results
type MemoryCache struct {
	lru *lru.Cache[string, *signal.Result]
}

// NewMemoryCache creates a memory cache holding at most size results
func NewMemoryCache(size int) (*MemoryCache, error) {
	c, err := lru.New[string, *signal.Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{lru: c}, nil
}

// Get retrieves a result from memory
func (c *MemoryCache) Get(ctx context.Context, key string) (*signal.Result, bool, error) {
	result, ok := c.lru.Get(key)
	return result, ok, nil
}

// Set stores a result in memory
func (c *MemoryCache) Set(ctx context.Context, key string, result *signal.Result) error {
	c.lru.Add(key, result)
	return nil
}

// Len returns the number of cached results
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
