// Package ratelimit builds the storage behind the fiber limiters.
package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
)

// RedisConfig selects the Redis instance and database for limiter state.
type RedisConfig struct {
	Addr string
	DB   int
}

// NewStore returns Redis-backed storage so limits are shared between
// instances, or in-memory storage when Redis is not configured or cannot be
// reached. It never returns nil.
func NewStore(cfg RedisConfig) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.Addr == "" {
		logging.Info("Using in-memory rate limit store")
		return store
	}

	// The redis storage pings on construction and panics when that fails.
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Addr},
		Database: cfg.DB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	return store
}
