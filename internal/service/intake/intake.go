// Package intake records uploaded analysis images as jobs and hands them to
// the analysis queue.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

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

// Dispatcher queues a persisted job for the analysis worker.
type Dispatcher interface {
	Publish(ctx context.Context, jobID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type UploadRequest struct {
	SessionID            uuid.UUID
	PatientID            uuid.UUID
	CalibrationProfileID uuid.UUID
	ImageStorageKey      string
	LocationTag          string
	CreatedByUserID      uuid.UUID
}

type UploadResponse struct {
	JobID uuid.UUID `json:"jobId"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// Precheck runs the tenant and session checks of Upload without writing
	// anything. Callers use it to refuse an upload before storing the image.
	Precheck(ctx context.Context, req UploadRequest) result.Result[*UploadResponse]
	Upload(ctx context.Context, req UploadRequest) result.Result[*UploadResponse]
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type intakeService struct {
	sessions store.SessionStore
	jobs     store.JobStore
	gate     tenancy.Gate
	queue    Dispatcher
	events   events.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(sessions store.SessionStore, jobs store.JobStore, gate tenancy.Gate, queue Dispatcher, ev events.Publisher, logger *slog.Logger, m *metrics.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &intakeService{
		sessions: sessions,
		jobs:     jobs,
		gate:     gate,
		queue:    queue,
		events:   ev,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *intakeService) Upload(ctx context.Context, req UploadRequest) (res result.Result[*UploadResponse]) {
	ctx, span := observability.Tracer().Start(ctx, "intake.Upload")
	defer span.End()
	defer result.Recover(&res, s.logger, "intake.Upload", "Failed to create analysis job.", nil)
	defer func() { s.metrics.IncUpload(outcome(res)) }()

	span.SetAttributes(
		attribute.String("session.id", req.SessionID.String()),
		attribute.String("patient.id", req.PatientID.String()),
	)
	log := s.logger.With("session_id", req.SessionID, "patient_id", req.PatientID, "user_id", req.CreatedByUserID)

	if denied, ok := s.admit(ctx, req, log); !ok {
		return denied
	}

	if !ValidStorageKey(req.ImageStorageKey) {
		log.WarnContext(ctx, "intake: invalid image storage key", "image_storage_key", req.ImageStorageKey)
		return result.Fail[*UploadResponse]("Invalid image storage key format.", ErrInvalidStorageKey)
	}

	if !ValidLocationTag(req.LocationTag) {
		log.WarnContext(ctx, "intake: invalid location tag")
		return result.Fail[*UploadResponse]("Invalid location tag. Must be between 1 and 100 characters.", ErrInvalidLocationTag)
	}

	job := &domain.AnalysisJob{
		ID:                   uuid.New(),
		SessionID:            req.SessionID,
		PatientID:            req.PatientID,
		CalibrationProfileID: req.CalibrationProfileID,
		CreatedByUserID:      req.CreatedByUserID,
		LocationTag:          req.LocationTag,
		ImageStorageKey:      req.ImageStorageKey,
		Status:               domain.JobStatusPending,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		log.ErrorContext(ctx, "intake: persist job failed", "error", err)
		return result.Fail[*UploadResponse]("Failed to create analysis job.", ErrPersistenceFailed)
	}
	log = log.With("job_id", job.ID)
	log.InfoContext(ctx, "intake: job created")
	span.SetAttributes(attribute.String("job.id", job.ID.String()))

	if s.events != nil {
		_ = s.events.JobCreated(ctx, job.SessionID, job.ID)
	}

	data := &UploadResponse{JobID: job.ID}
	if err := s.queue.Publish(ctx, job.ID); err != nil {
		log.ErrorContext(ctx, "intake: queue publish failed", "error", err)
		return result.Degraded("Analysis job created but failed to queue for processing. Please contact administrator.", data, ErrDispatchFailed)
	}

	log.InfoContext(ctx, "intake: job queued")
	return result.OK("Analysis job created and queued successfully", data)
}

func (s *intakeService) Precheck(ctx context.Context, req UploadRequest) (res result.Result[*UploadResponse]) {
	defer result.Recover(&res, s.logger, "intake.Precheck", "Failed to create analysis job.", nil)

	log := s.logger.With("session_id", req.SessionID, "patient_id", req.PatientID, "user_id", req.CreatedByUserID)
	if denied, ok := s.admit(ctx, req, log); !ok {
		return denied
	}
	return result.OK[*UploadResponse]("Upload permitted", nil)
}

// admit checks required ids, then patient access, then the session/patient
// pairing, then calibration profile access.
func (s *intakeService) admit(ctx context.Context, req UploadRequest, log *slog.Logger) (result.Result[*UploadResponse], bool) {
	if req.SessionID == uuid.Nil || req.PatientID == uuid.Nil || req.CalibrationProfileID == uuid.Nil || req.CreatedByUserID == uuid.Nil {
		return result.Fail[*UploadResponse]("Session, patient, calibration profile and user are required.", ErrInvalidRequest), false
	}

	if !s.gate.CanAccessPatient(ctx, req.PatientID, req.CreatedByUserID) {
		log.WarnContext(ctx, "intake: patient access denied")
		return result.Fail[*UploadResponse]("Access denied. You cannot upload images for this patient.", ErrPatientAccessDenied), false
	}

	session, err := s.sessions.GetSession(ctx, req.SessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.ErrorContext(ctx, "intake: load session failed", "error", err)
		return result.Fail[*UploadResponse]("Failed to create analysis job.", ErrPersistenceFailed), false
	}
	if session == nil || session.PatientID != req.PatientID {
		log.WarnContext(ctx, "intake: invalid session or patient mismatch")
		return result.Fail[*UploadResponse]("Invalid session or patient mismatch.", ErrSessionPatientMismatch), false
	}

	if !s.gate.CanAccessCalibrationProfile(ctx, req.CalibrationProfileID, req.CreatedByUserID) {
		log.WarnContext(ctx, "intake: calibration profile access denied", "calibration_profile_id", req.CalibrationProfileID)
		return result.Fail[*UploadResponse]("Access denied. Invalid calibration profile.", ErrProfileAccessDenied), false
	}
	return result.Result[*UploadResponse]{}, true
}

// ValidStorageKey rejects empty or overlong keys and anything that could walk
// out of the upload prefix.
func ValidStorageKey(key string) bool {
	if key == "" || utf8.RuneCountInString(key) > domain.MaxStorageKeyLength {
		return false
	}
	return !strings.Contains(key, "..") && !strings.Contains(key, `\`)
}

func ValidLocationTag(tag string) bool {
	n := utf8.RuneCountInString(tag)
	return n >= 1 && n <= domain.MaxLocationTagLength
}

func outcome(r result.Result[*UploadResponse]) string {
	switch {
	case !r.Success:
		return "rejected"
	case len(r.Warnings) > 0:
		return "unqueued"
	default:
		return "queued"
	}
}
