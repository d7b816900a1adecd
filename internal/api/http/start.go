package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/internal/api/http/router"
	"github.com/Alijeyrad/hairai_backend/internal/app"
)

// Start builds the dependency graph and serves until SIGINT or SIGTERM.
// Graph errors are returned before anything starts listening.
func Start(cfg *config.Config, stopTimeout time.Duration) error {
	fxApp := fx.New(
		fx.Supply(cfg),
		app.InfraModule,
		app.ServiceModule,
		app.WorkerModule,
		router.Module,
		Module,
		fx.Invoke(func(*fiber.App) {}),
		fx.StopTimeout(stopTimeout),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			fl := &fxevent.SlogLogger{Logger: l.With("component", "fx")}
			fl.UseLogLevel(slog.LevelDebug)
			return fl
		}),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}
	fxApp.Run()
	return nil
}
