package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
	"github.com/Alijeyrad/hairai_backend/pkg/database"
	"github.com/Alijeyrad/hairai_backend/pkg/email"
	"github.com/Alijeyrad/hairai_backend/pkg/logs"
	"github.com/Alijeyrad/hairai_backend/pkg/metrics"
	"github.com/Alijeyrad/hairai_backend/pkg/observability"
	pasetotoken "github.com/Alijeyrad/hairai_backend/pkg/paseto"
	"github.com/Alijeyrad/hairai_backend/pkg/queue"
	redispkg "github.com/Alijeyrad/hairai_backend/pkg/redis"
	"github.com/Alijeyrad/hairai_backend/pkg/storage"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideDB),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideTokenVerifier),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideObjectStore),
	fx.Provide(ProvideMetrics),
	fx.Provide(ProvideDispatcher),
	fx.Provide(ProvideOTel),
)

func ProvideLogger(lc fx.Lifecycle, cfg *config.Config) (*slog.Logger, error) {
	logger, flush, err := logs.New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			flush()
			return nil
		},
	})
	return logger, nil
}

func ProvideDB(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := database.NewSQLX(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debug("closing main database connection")
			return db.Close()
		},
	})
	return db, nil
}

// ProvideStore exposes the Postgres store through every narrow interface the
// services depend on.
func ProvideStore(db *sqlx.DB) (store.Store, store.TenantLookup, store.SessionStore, store.JobStore) {
	s := store.NewPostgres(db)
	return s, s, s, s
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	rdb, err := redispkg.New(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (authorize.IAuthorization, error) {
	dsn := database.NewDSN(cfg.CasbinDatabase)
	enforcer, cleanup, err := authorize.NewEnforcer(context.Background(), cfg.Authorization.CasbinModelPath, dsn, logger)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer)
	if err != nil {
		cleanup(context.Background())
		return nil, err
	}
	if !cfg.Authorization.SuperadminBypass {
		auth = authorize.WithoutSuperAdminBypass(auth)
	}
	if cfg.Authorization.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, logger)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debug("cleaning up Casbin enforcer")
			cleanup(ctx)
			return nil
		},
	})
	return auth, nil
}

func ProvideTokenVerifier(cfg *config.Config) (*pasetotoken.Verifier, error) {
	return pasetotoken.NewFromConfig(cfg)
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Nats.URL, nats.Name("hairai-api"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvideObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return storage.New(ctx, cfg.Storage)
}

func ProvideMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideDispatcher connects to RabbitMQ on start. A broker that is down at
// boot is not fatal: jobs are still persisted and Publish reconnects lazily.
func ProvideDispatcher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *queue.Dispatcher {
	heartbeat := time.Duration(cfg.Queue.HeartbeatSeconds) * time.Second
	d := queue.NewDispatcher(queue.FromCentralConfig(cfg.Queue), queue.AMQPDialer(cfg.Queue.URL, heartbeat), logger, m)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := d.Start(ctx); err != nil {
				logger.Warn("queue: broker unavailable at startup", "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Debug("closing queue dispatcher")
			return d.Close()
		},
	})
	return d
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.Setup(context.Background(), cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	logger.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
