package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/hairai_backend/config"
)

const (
	defaultLimitMax    = 20
	defaultLimitWindow = 30 * time.Second
)

// NewLimiterWithRedis builds a sliding-window limiter whose counters live in
// Redis so every replica shares them.
func NewLimiterWithRedis(rdb *redis.Client, cfg config.RateLimitConfig) fiber.Handler {
	max, window := defaultLimitMax, defaultLimitWindow
	if cfg.Max > 0 {
		max = cfg.Max
	}
	if cfg.WindowSeconds > 0 {
		window = time.Duration(cfg.WindowSeconds) * time.Second
	}

	storage := fiberredis.NewFromConnection(rdb)
	return limiter.New(limiter.Config{
		Storage: storage,

		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
