// Package session lists, creates and inspects analysis sessions within the
// caller's tenant.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/domain"
	"github.com/Alijeyrad/hairai_backend/internal/result"
	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	"github.com/Alijeyrad/hairai_backend/internal/store"
)

const (
	MaxDetailJobs    = 2000
	DetailJobsLoaded = 1000

	maxFutureDays = 30
)

// Truncation limits applied to the session detail view.
const (
	detailReportChars   = 50000
	detailResultChars   = 25000
	detailNotesChars    = 2000
	detailErrorChars    = 500
	detailLocationChars = 100
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type ListRequest struct {
	PatientID *uuid.UUID
	ClinicID  *uuid.UUID
	Status    *string
	FromDate  *time.Time
	ToDate    *time.Time

	PageNumber    int
	PageSize      int
	SortBy        string
	SortDirection string

	CallerID uuid.UUID
}

type Page struct {
	Sessions    []domain.SessionSummary `json:"sessions"`
	TotalCount  int                     `json:"totalCount"`
	PageSize    int                     `json:"pageSize"`
	CurrentPage int                     `json:"currentPage"`
	TotalPages  int                     `json:"totalPages"`
	HasNext     bool                    `json:"hasNext"`
	HasPrevious bool                    `json:"hasPrevious"`
}

type CreateRequest struct {
	PatientID   uuid.UUID
	SessionDate time.Time
	CallerID    uuid.UUID
}

type CreateResponse struct {
	SessionID uuid.UUID `json:"sessionId"`
}

type Details struct {
	ID              uuid.UUID            `json:"id"`
	PatientID       uuid.UUID            `json:"patientId"`
	CreatedByUserID uuid.UUID            `json:"createdByUserId"`
	SessionDate     string               `json:"sessionDate"`
	Status          domain.SessionStatus `json:"status"`
	FinalReportData *string              `json:"finalReportData,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	Jobs            []JobView            `json:"analysisJobs"`
}

type JobView struct {
	ID                   uuid.UUID        `json:"id"`
	SessionID            uuid.UUID        `json:"sessionId"`
	PatientID            uuid.UUID        `json:"patientId"`
	CalibrationProfileID uuid.UUID        `json:"calibrationProfileId"`
	CreatedByUserID      uuid.UUID        `json:"createdByUserId"`
	LocationTag          string           `json:"locationTag"`
	ImageStorageKey      string           `json:"imageStorageKey"`
	AnnotatedImageKey    *string          `json:"annotatedImageKey,omitempty"`
	Status               domain.JobStatus `json:"status"`
	AnalysisResult       *string          `json:"analysisResult,omitempty"`
	DoctorNotes          *string          `json:"doctorNotes,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	StartedAt            *time.Time       `json:"startedAt,omitempty"`
	CompletedAt          *time.Time       `json:"completedAt,omitempty"`
	ErrorMessage         *string          `json:"errorMessage,omitempty"`
	ProcessingTimeMs     *int             `json:"processingTimeMs,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	ListSessions(ctx context.Context, req ListRequest) result.Result[*Page]
	CreateSession(ctx context.Context, req CreateRequest) result.Result[*CreateResponse]
	GetSessionDetails(ctx context.Context, sessionID, callerID uuid.UUID) result.Result[*Details]
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type sessionService struct {
	sessions store.SessionStore
	jobs     store.JobStore
	gate     tenancy.Gate
	logger   *slog.Logger
	now      func() time.Time
}

func New(sessions store.SessionStore, jobs store.JobStore, gate tenancy.Gate, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{sessions: sessions, jobs: jobs, gate: gate, logger: logger, now: time.Now}
}

func (s *sessionService) ListSessions(ctx context.Context, req ListRequest) (res result.Result[*Page]) {
	defer result.Recover(&res, s.logger, "session.ListSessions", "Failed to retrieve analysis sessions.", nil)

	filter, problem := buildFilter(req)
	if problem != "" {
		return result.Fail[*Page](problem, ErrInvalidRequest)
	}
	page, size := store.NormalizePage(req.PageNumber, req.PageSize)
	filter.Page, filter.PageSize = page, size

	if !s.gate.IsSuperAdmin(ctx, req.CallerID) {
		id, ok := s.gate.GetUserClinicID(ctx, req.CallerID).ClinicID()
		if !ok {
			s.logger.WarnContext(ctx, "session: caller has no clinic", "user_id", req.CallerID)
			return result.OK("No analysis sessions found", newPage(nil, 0, page, size))
		}
		filter.ClinicID = &id
	}

	rows, total, err := s.sessions.ListSessions(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "session: list failed", "user_id", req.CallerID, "error", err)
		return result.Fail[*Page]("Failed to retrieve analysis sessions.", ErrPersistenceFailed)
	}

	return result.OK("Analysis sessions retrieved successfully", newPage(rows, total, page, size))
}

// buildFilter validates the request and returns a user-facing problem when it
// is rejected.
func buildFilter(req ListRequest) (store.SessionFilter, string) {
	f := store.SessionFilter{
		PatientID: req.PatientID,
		ClinicID:  req.ClinicID,
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
		SortBy:    req.SortBy,
	}

	if req.Status != nil {
		st := domain.SessionStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.IsValid() {
			return f, "Status must be one of: in_progress, completed, cancelled."
		}
		f.Status = &st
	}

	if req.FromDate != nil && req.ToDate != nil && store.DateOnly(*req.FromDate).After(store.DateOnly(*req.ToDate)) {
		return f, "From date must be on or before to date."
	}

	switch dir := strings.ToLower(strings.TrimSpace(req.SortDirection)); dir {
	case "", "asc", "desc":
		f.SortDirection = dir
	default:
		return f, "Sort direction must be asc or desc."
	}
	return f, ""
}

func newPage(rows []domain.SessionSummary, total, page, size int) *Page {
	if rows == nil {
		rows = []domain.SessionSummary{}
	}
	pages := (total + size - 1) / size
	return &Page{
		Sessions:    rows,
		TotalCount:  total,
		PageSize:    size,
		CurrentPage: page,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, req CreateRequest) (res result.Result[*CreateResponse]) {
	defer result.Recover(&res, s.logger, "session.CreateSession", "Failed to create analysis session. Please try again.", nil)

	log := s.logger.With("patient_id", req.PatientID, "user_id", req.CallerID)

	if req.PatientID == uuid.Nil || req.CallerID == uuid.Nil || req.SessionDate.IsZero() {
		return result.Fail[*CreateResponse]("Patient and session date are required.", ErrInvalidRequest)
	}

	if !s.gate.CanAccessPatient(ctx, req.PatientID, req.CallerID) {
		log.WarnContext(ctx, "session: create denied")
		return result.Fail[*CreateResponse]("Access denied. You cannot create analysis sessions for this patient.", ErrPatientAccessDenied)
	}

	now := s.now().UTC()
	today := store.DateOnly(now)
	date := store.DateOnly(req.SessionDate)
	if date.After(today.AddDate(0, 0, maxFutureDays)) {
		log.WarnContext(ctx, "session: date too far in the future", "session_date", date)
		return result.Fail[*CreateResponse]("Session date cannot be more than 30 days in the future.", ErrInvalidSessionDate)
	}
	if date.Before(today.AddDate(-1, 0, 0)) {
		log.WarnContext(ctx, "session: date too far in the past", "session_date", date)
		return result.Fail[*CreateResponse]("Session date cannot be more than 1 year in the past.", ErrInvalidSessionDate)
	}

	sess := &domain.AnalysisSession{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		CreatedByUserID: req.CallerID,
		SessionDate:     date,
		Status:          domain.SessionStatusInProgress,
		CreatedAt:       now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		log.ErrorContext(ctx, "session: create failed", "error", err)
		return result.Fail[*CreateResponse]("Failed to create analysis session. Please try again.", ErrPersistenceFailed)
	}

	log.InfoContext(ctx, "session: created", "session_id", sess.ID)
	return result.OK("Analysis session created successfully", &CreateResponse{SessionID: sess.ID})
}

func (s *sessionService) GetSessionDetails(ctx context.Context, sessionID, callerID uuid.UUID) (res result.Result[*Details]) {
	defer result.Recover(&res, s.logger, "session.GetSessionDetails", "Failed to retrieve analysis session.", nil)

	log := s.logger.With("session_id", sessionID, "user_id", callerID)

	if !s.gate.CanAccessSession(ctx, sessionID, callerID) {
		log.WarnContext(ctx, "session: details denied")
		return result.Fail[*Details]("Access denied. You cannot access this analysis session.", ErrSessionAccessDenied)
	}

	count, err := s.jobs.CountJobs(ctx, store.JobFilter{SessionID: sessionID})
	if err != nil {
		log.ErrorContext(ctx, "session: count jobs failed", "error", err)
		return result.Fail[*Details]("Failed to retrieve analysis session.", ErrPersistenceFailed)
	}
	if count > MaxDetailJobs {
		log.WarnContext(ctx, "session: too many jobs to display", "job_count", count)
		return result.Fail[*Details]("Session has too many analysis jobs. Please contact administrator.", ErrTooManyJobs)
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return result.Fail[*Details]("Analysis session not found", ErrSessionNotFound)
	}
	if err != nil {
		log.ErrorContext(ctx, "session: load failed", "error", err)
		return result.Fail[*Details]("Failed to retrieve analysis session.", ErrPersistenceFailed)
	}

	jobs, err := s.jobs.ListJobs(ctx, store.JobFilter{SessionID: sessionID, Limit: DetailJobsLoaded, NewestFirst: true})
	if err != nil {
		log.ErrorContext(ctx, "session: list jobs failed", "error", err)
		return result.Fail[*Details]("Failed to retrieve analysis session.", ErrPersistenceFailed)
	}

	d := &Details{
		ID:              sess.ID,
		PatientID:       sess.PatientID,
		CreatedByUserID: sess.CreatedByUserID,
		SessionDate:     sess.SessionDate.Format(time.DateOnly),
		Status:          sess.Status,
		FinalReportData: domain.TruncatePtr(sess.FinalReportData, detailReportChars),
		CreatedAt:       sess.CreatedAt,
		Jobs:            make([]JobView, 0, len(jobs)),
	}
	for _, j := range jobs {
		d.Jobs = append(d.Jobs, jobView(j))
	}

	log.InfoContext(ctx, "session: details retrieved", "job_count", len(d.Jobs))
	return result.OK("Analysis session details retrieved successfully", d)
}

func jobView(j domain.AnalysisJob) JobView {
	return JobView{
		ID:                   j.ID,
		SessionID:            j.SessionID,
		PatientID:            j.PatientID,
		CalibrationProfileID: j.CalibrationProfileID,
		CreatedByUserID:      j.CreatedByUserID,
		LocationTag:          domain.Truncate(j.LocationTag, detailLocationChars),
		ImageStorageKey:      j.ImageStorageKey,
		AnnotatedImageKey:    j.AnnotatedImageKey,
		Status:               j.Status,
		AnalysisResult:       domain.TruncatePtr(j.AnalysisResult, detailResultChars),
		DoctorNotes:          domain.TruncatePtr(j.DoctorNotes, detailNotesChars),
		CreatedAt:            j.CreatedAt,
		StartedAt:            j.StartedAt,
		CompletedAt:          j.CompletedAt,
		ErrorMessage:         domain.TruncatePtr(j.ErrorMessage, detailErrorChars),
		ProcessingTimeMs:     j.ProcessingTimeMs,
	}
}
