// Package job answers per-job status and result queries and records doctor
// notes.
package job

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
	"github.com/Alijeyrad/hairai_backend/internal/result"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/internal/store"
)

// Presigner issues time-limited download links for stored images.
type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type Status struct {
	JobID            uuid.UUID        `json:"jobId"`
	Status           domain.JobStatus `json:"status"`
	StartedAt        *time.Time       `json:"startedAt,omitempty"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	ErrorMessage     *string          `json:"errorMessage,omitempty"`
	ProcessingTimeMs *int             `json:"processingTimeMs,omitempty"`
}

type Result struct {
	JobID             uuid.UUID `json:"jobId"`
	AnalysisResult    *string   `json:"analysisResult,omitempty"`
	DoctorNotes       *string   `json:"doctorNotes,omitempty"`
	AnnotatedImageKey *string   `json:"annotatedImageKey,omitempty"`
	AnnotatedImageURL string    `json:"annotatedImageUrl,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	GetJobStatus(ctx context.Context, jobID, callerID uuid.UUID) result.Result[*Status]
	GetJobResult(ctx context.Context, jobID, callerID uuid.UUID) result.Result[*Result]
	AddDoctorNotes(ctx context.Context, jobID uuid.UUID, notes string, callerID uuid.UUID) result.Result[struct{}]
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type jobService struct {
	jobs    store.JobStore
	gate    tenancy.Gate
	presign Presigner
	logger  *slog.Logger
}

func New(jobs store.JobStore, gate tenancy.Gate, presign Presigner, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobService{jobs: jobs, gate: gate, presign: presign, logger: logger}
}

// load returns the job only when the caller may see its patient. A job the
// caller cannot see is reported exactly like a missing one.
func (s *jobService) load(ctx context.Context, jobID, callerID uuid.UUID) (*domain.AnalysisJob, error) {
	j, err := s.jobs.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "job: load failed", "job_id", jobID, "error", err)
		return nil, ErrPersistenceFailed
	}
	if !s.gate.CanAccessPatient(ctx, j.PatientID, callerID) {
		s.logger.WarnContext(ctx, "job: access denied", "job_id", jobID, "user_id", callerID)
		return nil, ErrJobNotFound
	}
	return j, nil
}

func (s *jobService) GetJobStatus(ctx context.Context, jobID, callerID uuid.UUID) (res result.Result[*Status]) {
	defer result.Recover(&res, s.logger, "job.GetJobStatus", "Failed to retrieve job status.", nil)

	j, err := s.load(ctx, jobID, callerID)
	if err != nil {
		return result.Fail[*Status](failMessage(err), err)
	}

	return result.OK("Job status retrieved successfully", &Status{
		JobID:            j.ID,
		Status:           j.Status,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		ErrorMessage:     j.ErrorMessage,
		ProcessingTimeMs: j.ProcessingTimeMs,
	})
}

func (s *jobService) GetJobResult(ctx context.Context, jobID, callerID uuid.UUID) (res result.Result[*Result]) {
	defer result.Recover(&res, s.logger, "job.GetJobResult", "Failed to retrieve analysis result.", nil)

	j, err := s.load(ctx, jobID, callerID)
	if err != nil {
		return result.Fail[*Result](failMessage(err), err)
	}
	if j.Status != domain.JobStatusCompleted {
		return result.Fail[*Result]("Analysis job is not completed yet", ErrJobNotCompleted)
	}

	out := &Result{
		JobID:             j.ID,
		AnalysisResult:    j.AnalysisResult,
		DoctorNotes:       j.DoctorNotes,
		AnnotatedImageKey: j.AnnotatedImageKey,
	}
	if j.AnnotatedImageKey != nil && *j.AnnotatedImageKey != "" && s.presign != nil {
		url, err := s.presign.PresignGet(ctx, *j.AnnotatedImageKey)
		if err != nil {
			s.logger.WarnContext(ctx, "job: presign annotated image failed", "job_id", j.ID, "error", err)
			return result.Degraded("Analysis result retrieved; annotated image link unavailable", out, ErrPresignFailed)
		}
		out.AnnotatedImageURL = url
	}

	return result.OK("Analysis result retrieved successfully", out)
}

func (s *jobService) AddDoctorNotes(ctx context.Context, jobID uuid.UUID, notes string, callerID uuid.UUID) (res result.Result[struct{}]) {
	defer result.Recover(&res, s.logger, "job.AddDoctorNotes", "Failed to save doctor notes", nil)

	if _, err := s.load(ctx, jobID, callerID); err != nil {
		return result.Fail[struct{}](failMessage(err), err)
	}
	if utf8.RuneCountInString(notes) > domain.MaxDoctorNotesLength {
		return result.Fail[struct{}]("Doctor notes exceed maximum length of 5000 characters", ErrNotesTooLong)
	}

	if err := s.jobs.UpdateDoctorNotes(ctx, jobID, notes); err != nil {
		s.logger.ErrorContext(ctx, "job: save notes failed", "job_id", jobID, "error", err)
		return result.Fail[struct{}]("Failed to save doctor notes", ErrPersistenceFailed)
	}

	s.logger.InfoContext(ctx, "job: doctor notes saved", "job_id", jobID, "user_id", callerID)
	return result.OK("Doctor notes added successfully", struct{}{})
}

func failMessage(err error) string {
	if errors.Is(err, ErrJobNotFound) {
		return "Analysis job not found"
	}
	return "Failed to load analysis job"
}
