// Package store holds the read-through cache implementations for the
// identity directory. Keys are write-once on the ledger, so entries never
// go stale and carry no expiry.
package store

import (
	"context"
	"sync"
	"time"

	"credledger/internal/identity/metrics"
	"credledger/internal/sentinel"
	"credledger/pkg/domain"
)

type InMemoryCache struct {
	mu   sync.RWMutex
	keys map[string]domain.PublicKey
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{keys: make(map[string]domain.PublicKey)}
}

func (c *InMemoryCache) Get(_ context.Context, identity domain.Address) (domain.PublicKey, error) {
	start := time.Now()
	c.mu.RLock()
	key, ok := c.keys[identity.Key()]
	c.mu.RUnlock()
	if !ok {
		metrics.ObserveMiss("memory", start)
		return "", sentinel.ErrNotFound
	}
	metrics.ObserveHit("memory", start)
	return key, nil
}

func (c *InMemoryCache) Set(_ context.Context, identity domain.Address, key domain.PublicKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[identity.Key()] = key
	return nil
}

func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}
