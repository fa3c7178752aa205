// Package cache abstrae un KV con TTL para datos de lectura frecuente del
// control plane (schema mappings). Backends: memory (go-cache) y redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound: la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// Client define las operaciones de cache.
type Client interface {
	// Get retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda con TTL; 0 usa el default del backend.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config para New.
type Config struct {
	Kind       string // memory | redis
	Prefix     string
	DefaultTTL time.Duration
	Redis      *redis.Client // requerido si Kind=redis; se comparte con el rate limiter
}

// New crea el backend pedido.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	case "redis":
		if cfg.Redis == nil {
			return nil, errors.New("cache: redis client is required")
		}
		return NewRedis(cfg.Redis, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unknown kind %q", cfg.Kind)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + k
}
