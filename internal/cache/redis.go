package cache

import (
	"fmt"
	"strings"

	"github.com/pinmart/pinmart/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a redis client from config. Returns nil when redis
// is disabled; callers fall back to the in-memory intent store.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// KeyPrefix normalizes the configured key prefix.
func KeyPrefix(cfg *config.RedisConfig) string {
	prefix := ""
	if cfg != nil {
		prefix = strings.TrimSpace(cfg.Prefix)
	}
	if prefix == "" {
		prefix = "pm"
	}
	return prefix
}
