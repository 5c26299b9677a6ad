package access

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ PrivilegeCache = (*MemoryPrivilegeCache)(nil)

// MemoryPrivilegeCache señal de privilegio en memoria del proceso (sin REDIS_URL).
type MemoryPrivilegeCache struct {
	lru *expirable.LRU[string, struct{}]
}

// NewMemoryPrivilegeCache construye la caché con tamaño y vigencia.
func NewMemoryPrivilegeCache(size int, ttl time.Duration) *MemoryPrivilegeCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryPrivilegeCache{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (c *MemoryPrivilegeCache) Remember(_ context.Context, principalID string) error {
	c.lru.Add(principalID, struct{}{})
	return nil
}

func (c *MemoryPrivilegeCache) IsPrivileged(_ context.Context, principalID string) (bool, error) {
	return c.lru.Contains(principalID), nil
}

func (c *MemoryPrivilegeCache) Forget(_ context.Context, principalID string) error {
	c.lru.Remove(principalID)
	return nil
}
