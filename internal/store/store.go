// Package store persists clinics, patients, calibration profiles, analysis
// sessions and jobs. Relationships are resolved by id through one-directional
// lookups; no entity embeds another.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
)

var ErrNotFound = errors.New("store: not found")

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sort fields accepted by ListSessions. Matching is case-insensitive.
const (
	SortSessionDate = "sessiondate"
	SortCreatedAt   = "createdat"
	SortPatientName = "patientname"
	SortStatus      = "status"
)

// TenantLookup resolves the owning clinic of a resource. Every method returns
// ErrNotFound when the resource, or its clinic, does not exist.
type TenantLookup interface {
	UserClinicID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	PatientClinicID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
	SessionClinicID(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error)
	CalibrationProfileClinicID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
	ClinicIDs(ctx context.Context) ([]uuid.UUID, error)
}

type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*domain.AnalysisSession, error)
	CreateSession(ctx context.Context, s *domain.AnalysisSession) error
	ListSessions(ctx context.Context, f SessionFilter) ([]domain.SessionSummary, int, error)
	// SaveFinalReport writes the serialized report and marks the session completed.
	SaveFinalReport(ctx context.Context, sessionID uuid.UUID, report string) error
}

type JobStore interface {
	CreateJob(ctx context.Context, j *domain.AnalysisJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error)
	CountJobs(ctx context.Context, f JobFilter) (int, error)
	ListJobs(ctx context.Context, f JobFilter) ([]domain.AnalysisJob, error)
	UpdateDoctorNotes(ctx context.Context, jobID uuid.UUID, notes string) error
}

type PatientStore interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Store is everything the analysis services need from persistence.
type Store interface {
	TenantLookup
	SessionStore
	JobStore
	PatientStore
	UserStore
}

// SessionFilter narrows ListSessions. ClinicID is the tenant scope and is set
// by the caller after authorization.
type SessionFilter struct {
	ClinicID  *uuid.UUID
	PatientID *uuid.UUID
	Status    *domain.SessionStatus
	FromDate  *time.Time
	ToDate    *time.Time

	SortBy        string
	SortDirection string

	Page     int
	PageSize int
}

type JobFilter struct {
	SessionID   uuid.UUID
	Status      *domain.JobStatus
	Limit       int
	NewestFirst bool
}

// NormalizePage clamps page to >= 1 and size to [1, MaxPageSize].
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// NormalizeSort maps a requested sort onto the whitelist. Anything outside it
// falls back to session date descending.
func NormalizeSort(sortBy, direction string) (field string, desc bool) {
	desc = !strings.EqualFold(direction, "asc")
	switch f := strings.ToLower(strings.TrimSpace(sortBy)); f {
	case SortSessionDate, SortCreatedAt, SortPatientName, SortStatus:
		return f, desc
	default:
		return SortSessionDate, true
	}
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
