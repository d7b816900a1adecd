package router

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/internal/api/http/handler"
	"github.com/Alijeyrad/hairai_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/hairai_backend/internal/service/intake"
	"github.com/Alijeyrad/hairai_backend/internal/service/job"
	"github.com/Alijeyrad/hairai_backend/internal/service/report"
	"github.com/Alijeyrad/hairai_backend/internal/service/session"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/hairai_backend/pkg/paseto"
	"github.com/Alijeyrad/hairai_backend/pkg/queue"
	"github.com/Alijeyrad/hairai_backend/pkg/storage"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg        *config.Config
	Logger     *slog.Logger
	Redis      *redis.Client
	Auth       authorize.IAuthorization
	Gate       tenancy.Gate
	Objects    storage.ObjectStore
	Queue      *queue.Dispatcher `optional:"true"`
	Tokens     *pasetotoken.Verifier
	IntakeSvc  intake.Service
	SessionSvc session.Service
	ReportSvc  report.Service
	JobSvc     job.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Middlewares
	authRequired := middleware.AuthRequired(r.p.Tokens, r.p.Redis)
	callerClinic := middleware.CallerClinic(r.p.Gate)

	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	var uploadLimit fiber.Handler
	if r.p.Cfg.Server.UploadRateLimit.Max > 0 && r.p.Redis != nil {
		uploadLimit = middleware.NewLimiterWithRedis(r.p.Redis, r.p.Cfg.Server.UploadRateLimit)
	}

	// 3. Handlers
	sessionH := handler.NewSessionHandler(r.p.SessionSvc, r.p.ReportSvc)
	jobH := handler.NewJobHandler(r.p.IntakeSvc, r.p.JobSvc, r.p.Objects, r.p.Logger)

	api := app.Group("/api/v1")

	RegisterAnalysisRoutes(api, sessionH, jobH, []fiber.Handler{authRequired, callerClinic}, requirePerm, uploadLimit)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if r.p.Cfg.Authorization.HealthCheckEnabled && !authorize.IsPolicyHealthy() {
				return false
			}
			return r.p.Queue == nil || r.p.Queue.Healthy()
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
