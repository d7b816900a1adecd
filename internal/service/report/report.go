// Package report aggregates the completed jobs of an analysis session into
// its final report.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
	"github.com/Alijeyrad/hairai_backend/internal/events"
	"github.com/Alijeyrad/hairai_backend/internal/result"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/internal/store"
	"github.com/Alijeyrad/hairai_backend/pkg/metrics"
	"github.com/Alijeyrad/hairai_backend/pkg/observability"
)

const (
	MaxCompletedJobs   = 1000
	MaxReportLocations = 500

	maxHairCount     = 10_000
	maxDensity       = 1000.0
	locationTagChars = 100
	notesChars       = 1000
)

var errAggregationPanic = errors.New("report: aggregation panicked")

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Report is persisted as compact JSON in the session's final report column.
type Report struct {
	SessionID          uuid.UUID  `json:"sessionId"`
	PatientID          uuid.UUID  `json:"patientId"`
	SessionDate        string     `json:"sessionDate"`
	TotalAnalyzedAreas int        `json:"totalAnalyzedAreas"`
	TotalHairCount     int        `json:"totalHairCount"`
	AverageDensity     float64    `json:"averageDensity"`
	AnalyzedLocations  []Location `json:"analyzedLocations"`
	GeneratedAt        time.Time  `json:"generatedAt"`
}

type Location struct {
	Location    string  `json:"location"`
	HairCount   int     `json:"hairCount"`
	Density     float64 `json:"density"`
	DoctorNotes *string `json:"doctorNotes,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	GenerateFinalReport(ctx context.Context, sessionID, callerID uuid.UUID) result.Result[*Report]
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type reportService struct {
	sessions store.SessionStore
	jobs     store.JobStore
	gate     tenancy.Gate
	events   events.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	parse    func(*string) (parsedResult, skipReason)
}

func New(sessions store.SessionStore, jobs store.JobStore, gate tenancy.Gate, ev events.Publisher, logger *slog.Logger, m *metrics.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportService{
		sessions: sessions,
		jobs:     jobs,
		gate:     gate,
		events:   ev,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		parse:    parseResult,
	}
}

func (s *reportService) GenerateFinalReport(ctx context.Context, sessionID, callerID uuid.UUID) (res result.Result[*Report]) {
	ctx, span := observability.Tracer().Start(ctx, "report.GenerateFinalReport")
	defer span.End()
	defer result.Recover(&res, s.logger, "report.GenerateFinalReport", "Failed to generate final report", nil)

	start := time.Now()
	span.SetAttributes(attribute.String("session.id", sessionID.String()))
	log := s.logger.With("session_id", sessionID, "user_id", callerID)
	log.InfoContext(ctx, "report: generating")

	if sessionID == uuid.Nil || callerID == uuid.Nil {
		return result.Fail[*Report]("Session and user are required.", ErrInvalidRequest)
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		log.WarnContext(ctx, "report: session not found")
		return result.Fail[*Report]("Analysis session not found", ErrSessionNotFound)
	}
	if err != nil {
		log.ErrorContext(ctx, "report: load session failed", "error", err)
		return result.Fail[*Report]("Failed to generate final report", ErrPersistenceFailed)
	}

	if !s.gate.CanAccessPatient(ctx, sess.PatientID, callerID) {
		log.WarnContext(ctx, "report: access denied", "patient_id", sess.PatientID)
		return result.Fail[*Report]("Access denied. You cannot generate reports for this session.", ErrSessionAccessDenied)
	}

	completed := domain.JobStatusCompleted
	count, err := s.jobs.CountJobs(ctx, store.JobFilter{SessionID: sessionID, Status: &completed})
	if err != nil {
		log.ErrorContext(ctx, "report: count jobs failed", "error", err)
		return result.Fail[*Report]("Failed to generate final report", ErrPersistenceFailed)
	}
	if count == 0 {
		log.WarnContext(ctx, "report: no completed jobs")
		return result.Fail[*Report]("No completed analysis jobs found for this session", ErrNoCompletedJobs)
	}
	if count > MaxCompletedJobs {
		log.WarnContext(ctx, "report: too many completed jobs", "job_count", count)
		return result.Fail[*Report]("Too many analysis jobs. Please contact administrator.", ErrJobLimitExceeded)
	}

	jobs, err := s.jobs.ListJobs(ctx, store.JobFilter{SessionID: sessionID, Status: &completed, Limit: MaxCompletedJobs})
	if err != nil {
		log.ErrorContext(ctx, "report: list jobs failed", "error", err)
		return result.Fail[*Report]("Failed to generate final report", ErrPersistenceFailed)
	}
	span.SetAttributes(attribute.Int("jobs.completed", len(jobs)))

	rep, err := s.aggregate(ctx, log, jobs)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, "report: cancelled", "error", err)
		return result.Fail[*Report]("Report generation was cancelled.", ErrCancelled)
	case err != nil:
		log.ErrorContext(ctx, "report: aggregation failed", "error", err)
		return result.Fail[*Report]("Report generation failed. Please contact administrator.", ErrAggregationFailed)
	}

	rep.SessionID = sess.ID
	rep.PatientID = sess.PatientID
	rep.SessionDate = sess.SessionDate.Format(time.DateOnly)
	rep.GeneratedAt = s.now().UTC()

	payload, err := json.Marshal(rep)
	if err != nil {
		log.ErrorContext(ctx, "report: encode failed", "error", err)
		return result.Fail[*Report]("Report generation failed. Please contact administrator.", ErrAggregationFailed)
	}

	if err := s.sessions.SaveFinalReport(ctx, sess.ID, string(payload)); err != nil {
		log.ErrorContext(ctx, "report: save failed", "error", err)
		return result.Fail[*Report]("Failed to save final report", ErrPersistenceFailed)
	}

	s.metrics.ObserveReport(start)
	if s.events != nil {
		_ = s.events.ReportGenerated(ctx, sess.ID)
	}

	log.InfoContext(ctx, "report: generated", "job_count", len(jobs), "locations", len(rep.AnalyzedLocations))
	return result.OK("Final report generated successfully", rep)
}

// aggregate folds the completed jobs into a report. One bad job never aborts
// the loop; a panic anywhere inside is returned as errAggregationPanic.
func (s *reportService) aggregate(ctx context.Context, log *slog.Logger, jobs []domain.AnalysisJob) (rep *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			rep, err = nil, fmt.Errorf("%w: %v", errAggregationPanic, r)
		}
	}()

	rep = &Report{
		TotalAnalyzedAreas: len(jobs),
		AnalyzedLocations:  make([]Location, 0, min(len(jobs), MaxReportLocations)),
	}
	var densitySum float64
	var densityCount int

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, reason := s.parse(j.AnalysisResult)
		if reason != skipNone {
			log.WarnContext(ctx, "report: skipping job result", "job_id", j.ID, "reason", string(reason))
			s.metrics.IncReportSkip(string(reason))
			continue
		}

		rep.TotalHairCount += clamp(p.HairCount, 0, maxHairCount)
		if p.HasDensity && p.Density >= 0 && p.Density <= maxDensity {
			densitySum += p.Density
			densityCount++
		}

		if len(rep.AnalyzedLocations) < MaxReportLocations {
			rep.AnalyzedLocations = append(rep.AnalyzedLocations, Location{
				Location:    domain.Truncate(j.LocationTag, locationTagChars),
				HairCount:   p.HairCount,
				Density:     round2(p.Density),
				DoctorNotes: domain.TruncatePtr(j.DoctorNotes, notesChars),
			})
		}
	}

	if densityCount > 0 {
		rep.AverageDensity = round2(densitySum / float64(densityCount))
	}
	return rep, nil
}
