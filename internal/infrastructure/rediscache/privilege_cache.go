// Package rediscache comparte la señal de privilegio entre réplicas de la API.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
)

var _ access.PrivilegeCache = (*PrivilegeCache)(nil)

const keyPrefix = "prospectos:privileged:"

// PrivilegeCache recuerda en Redis qué Principals se observaron con rol privilegiado.
type PrivilegeCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPrivilegeCache construye la caché. ttl <= 0 usa 12 horas.
func NewPrivilegeCache(client redis.UniversalClient, ttl time.Duration) *PrivilegeCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &PrivilegeCache{client: client, ttl: ttl}
}

// Remember marca al Principal como privilegiado y renueva el TTL.
func (c *PrivilegeCache) Remember(ctx context.Context, principalID string) error {
	if principalID == "" {
		return errors.New("principal id vacío")
	}
	if err := c.client.Set(ctx, keyPrefix+principalID, "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsPrivileged indica si existe la señal vigente.
func (c *PrivilegeCache) IsPrivileged(ctx context.Context, principalID string) (bool, error) {
	if principalID == "" {
		return false, nil
	}
	n, err := c.client.Exists(ctx, keyPrefix+principalID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Forget elimina la señal (cierre de sesión, cambio de rol o degradación observada).
func (c *PrivilegeCache) Forget(ctx context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	if err := c.client.Del(ctx, keyPrefix+principalID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// NewClient crea el cliente desde una URL redis:// y verifica la conexión.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
