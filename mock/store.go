package mock

import (
	"context"
	"sync"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var (
	_ mergeguard.DecisionStore = (*DecisionStore)(nil)
	_ mergeguard.Cache         = (*Cache)(nil)
)

// DecisionStore is a mock implementation of mergeguard.DecisionStore.
type DecisionStore struct {
	RecentFn func(ctx context.Context, limit int) ([]mergeguard.Decision, error)
}

func (s *DecisionStore) Recent(ctx context.Context, limit int) ([]mergeguard.Decision, error) {
	return s.RecentFn(ctx, limit)
}

// Cache is an in-memory mergeguard.Cache, safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte

	Gets int
	Sets int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sets++
	c.entries[key] = append([]byte(nil), value...)
	return nil
}
