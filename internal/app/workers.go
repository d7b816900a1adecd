package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buger/jsonparser"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/hairai_backend/internal/events"
	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/email"
	"github.com/Alijeyrad/hairai_backend/pkg/metrics"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

const workerTimeout = 30 * time.Second

type WorkerParams struct {
	fx.In

	Lc     fx.Lifecycle
	NC     *nats.Conn
	Store  store.Store
	Mail    *email.Client
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func RegisterWorkers(p WorkerParams) {
	var subs []*nats.Subscription

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			mailer := &reportMailer{
				store:   p.Store,
				mail:    p.Mail,
				appName: p.Mail.AppName(),
				baseURL: p.Mail.BaseURL(),
				logger:  p.Logger,
			}
			subs = append(subs, startReportMailWorker(p.NC, mailer, p.Logger)...)
			subs = append(subs, startJobAuditWorker(p.NC, &jobAuditor{metrics: p.Metrics, logger: p.Logger}, p.Logger)...)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Drain of the connection is handled by ProvideNatsClient.
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// report_mail_worker
// ---------------------------------------------------------------------------

func startReportMailWorker(nc *nats.Conn, mailer *reportMailer, logger *slog.Logger) []*nats.Subscription {
	sub, err := nc.Subscribe(events.ReportGeneratedSubject+".*", func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
		defer cancel()

		if err := mailer.handle(ctx, msg.Subject); err != nil {
			logger.Warn("report_mail_worker: notification not sent", "subject", msg.Subject, "err", err)
		}
	})
	if err != nil {
		logger.Error("report_mail_worker: subscribe report.generated failed", "err", err)
		return nil
	}

	logger.Info("report_mail_worker: started")
	return []*nats.Subscription{sub}
}

type reportMailer struct {
	store   store.Store
	mail    email.Sender
	appName string
	baseURL string
	logger  *slog.Logger
}

// handle emails the session creator once the session's final report exists.
func (m *reportMailer) handle(ctx context.Context, subject string) error {
	sessionID, err := events.ParseSubjectID(subject)
	if err != nil {
		return err
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session.FinalReportData == nil {
		return fmt.Errorf("session %s has no final report", sessionID)
	}

	user, err := m.store.GetUser(ctx, session.CreatedByUserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", session.CreatedByUserID, err)
	}
	if user.Email == "" {
		m.logger.Debug("report_mail_worker: creator has no email", "user_id", user.ID)
		return nil
	}

	var patientName string
	if p, err := m.store.GetPatient(ctx, session.PatientID); err == nil {
		patientName = p.FullName()
	}

	areas, _ := jsonparser.GetInt([]byte(*session.FinalReportData), "totalAnalyzedAreas")

	msg := email.BuildReportReadyEmail(email.ReportReadyEmailData{
		Email:              user.Email,
		FirstName:          user.FirstName,
		PatientName:        patientName,
		SessionDate:        session.SessionDate.Format(time.DateOnly),
		TotalAnalyzedAreas: int(areas),
		ReportURL:          email.ReportURL(m.baseURL, sessionID.String()),
		AppName:            m.appName,
	})

	if err := m.mail.Send(ctx, msg); err != nil {
		if errors.Is(err, email.ErrDisabled) {
			m.logger.Debug("report_mail_worker: email disabled", "session_id", sessionID)
			return nil
		}
		return err
	}

	m.logger.Info("report_mail_worker: report notification sent", "session_id", sessionID, "user_id", user.ID)
	return nil
}

// ---------------------------------------------------------------------------
// job_audit_worker
// ---------------------------------------------------------------------------

func startJobAuditWorker(nc *nats.Conn, auditor *jobAuditor, logger *slog.Logger) []*nats.Subscription {
	sub, err := nc.Subscribe(events.JobCreatedSubject+".*", func(msg *nats.Msg) {
		auditor.handle(msg.Subject, msg.Data)
	})
	if err != nil {
		logger.Error("job_audit_worker: subscribe job.created failed", "err", err)
		return nil
	}

	logger.Info("job_audit_worker: started")
	return []*nats.Subscription{sub}
}

type jobAuditor struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// handle records one job.created event and counts events whose subject or
// payload cannot be parsed.
func (a *jobAuditor) handle(subject string, data []byte) {
	sessionID, err := events.ParseSubjectID(subject)
	if err != nil {
		a.metrics.IncJobEvent("malformed")
		a.logger.Warn("job_audit_worker: malformed subject", "subject", subject, "err", err)
		return
	}
	jobID, err := events.ParsePayloadID(data)
	if err != nil {
		a.metrics.IncJobEvent("malformed")
		a.logger.Warn("job_audit_worker: malformed payload", "session_id", sessionID, "err", err)
		return
	}

	a.metrics.IncJobEvent("recorded")
	a.logger.Info("job_audit_worker: job created", "session_id", sessionID, "job_id", jobID)
}
