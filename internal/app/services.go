package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/hairai_backend/internal/events"
	"github.com/Alijeyrad/hairai_backend/internal/service/intake"
	"github.com/Alijeyrad/hairai_backend/internal/service/job"
	"github.com/Alijeyrad/hairai_backend/internal/service/report"
	"github.com/Alijeyrad/hairai_backend/internal/service/session"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
	"github.com/Alijeyrad/hairai_backend/pkg/metrics"
	"github.com/Alijeyrad/hairai_backend/pkg/queue"
	"github.com/Alijeyrad/hairai_backend/pkg/storage"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideEventPublisher,
		ProvideTenancyGate,
		ProvideIntakeService,
		ProvideSessionService,
		ProvideReportService,
		ProvideJobService,
	),
)

func ProvideEventPublisher(nc *nats.Conn, logger *slog.Logger) events.Publisher {
	return events.NewPublisher(nc, logger)
}

func ProvideTenancyGate(lookup store.TenantLookup, authz authorize.IAuthorization, logger *slog.Logger, m *metrics.Metrics) tenancy.Gate {
	return tenancy.New(lookup, authz, logger, m)
}

func ProvideIntakeService(
	sessions store.SessionStore,
	jobs store.JobStore,
	gate tenancy.Gate,
	dispatcher *queue.Dispatcher,
	ev events.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) intake.Service {
	return intake.New(sessions, jobs, gate, dispatcher, ev, logger, m)
}

func ProvideSessionService(sessions store.SessionStore, jobs store.JobStore, gate tenancy.Gate, logger *slog.Logger) session.Service {
	return session.New(sessions, jobs, gate, logger)
}

func ProvideReportService(
	sessions store.SessionStore,
	jobs store.JobStore,
	gate tenancy.Gate,
	ev events.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) report.Service {
	return report.New(sessions, jobs, gate, ev, logger, m)
}

func ProvideJobService(jobs store.JobStore, gate tenancy.Gate, objects storage.ObjectStore, logger *slog.Logger) job.Service {
	return job.New(jobs, gate, objects, logger)
}
