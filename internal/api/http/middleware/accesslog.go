package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
)

var quietPaths = map[string]bool{
	healthcheck.LivenessEndpoint:  true,
	healthcheck.ReadinessEndpoint: true,
	healthcheck.StartupEndpoint:   true,
	"/metrics":                    true,
}

// AccessLog writes one record per request through the application logger so
// request and caller ids land on the line. Probe and scrape traffic logs at debug.
func AccessLog(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case quietPaths[c.Path()]:
			level = slog.LevelDebug
		}

		logger.Log(c.Context(), level, "http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		)
		return err
	}
}
