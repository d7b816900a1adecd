package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/hairai_backend/internal/api/http/router"
	"github.com/Alijeyrad/hairai_backend/internal/result"
	"github.com/Alijeyrad/hairai_backend/pkg/observability"
)

var Module = fx.Module("http", fx.Provide(NewServer))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Logger    *slog.Logger
	Redis     *redis.Client
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      p.Cfg.Observability.ServiceName,
		BodyLimit:    bodyLimit(p.Cfg.Server.BodyLimitMB),
		ErrorHandler: errorHandler(p.Logger),
	})

	if p.OTel != nil && p.OTel.Tracer != nil {
		app.Use(observability.FiberMiddleware(p.Cfg.Observability.ServiceName))
	}

	useGlobalMiddleware(app, p.Cfg, p.Redis, p.Logger)

	p.Router.Register(app)

	addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
					p.Logger.Error("http: server stopped", "error", err)
				}
			}()
			p.Logger.Info("http: listening", "addr", addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

// bodyLimit leaves headroom above the 10 MB image cap for the other form fields.
func bodyLimit(mb int) int {
	if mb <= 0 {
		mb = 12
	}
	return mb << 20
}

// errorHandler renders errors that escaped a handler, mostly middleware
// rejections, in the same envelope the handlers use.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.ErrorContext(c.Context(), "http: unhandled error", "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(result.Result[any]{Message: msg})
	}
}

func useGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client, logger *slog.Logger) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New())
		if cfg.Server.CORS.Enabled {
			app.Use(cors.New(cors.Config{
				AllowOrigins:     cfg.Server.CORS.AllowOrigins,
				AllowMethods:     cfg.Server.CORS.AllowMethods,
				AllowHeaders:     cfg.Server.CORS.AllowHeaders,
				AllowCredentials: cfg.Server.CORS.AllowCredentials,
				MaxAge:           cfg.Server.CORS.MaxAgeSeconds,
			}))
		}
		if rdb != nil {
			app.Use(middleware.NewLimiterWithRedis(rdb, cfg.Server.RateLimit))
		}
	}

	app.Use(middleware.AccessLog(logger))
}
