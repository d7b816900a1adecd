// Package domain holds the persisted entities of the analysis pipeline.
// Relationships are carried as identifiers only; callers resolve them
// through the store.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusProcessing JobStatus = "Processing"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusError      JobStatus = "Error"
)

type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
)

// IsValid reports whether s is one of the known session statuses.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

const (
	MaxLocationTagLength   = 100
	MaxStorageKeyLength    = 255
	MaxDoctorNotesLength   = 5000
	MaxSessionLocationTags = 50
)

type Clinic struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

type User struct {
	ID        uuid.UUID  `db:"id"`
	ClinicID  *uuid.UUID `db:"clinic_id"`
	Email     string     `db:"email"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
}

func (u User) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

type Patient struct {
	ID        uuid.UUID `db:"id"`
	ClinicID  uuid.UUID `db:"clinic_id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	CreatedAt time.Time `db:"created_at"`
}

func (p Patient) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

type CalibrationProfile struct {
	ID          uuid.UUID `db:"id"`
	ClinicID    uuid.UUID `db:"clinic_id"`
	ProfileName string    `db:"profile_name"`
	Version     int       `db:"version"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

type AnalysisSession struct {
	ID              uuid.UUID     `db:"id"`
	PatientID       uuid.UUID     `db:"patient_id"`
	CreatedByUserID uuid.UUID     `db:"created_by_user_id"`
	SessionDate     time.Time     `db:"session_date"`
	Status          SessionStatus `db:"status"`
	FinalReportData *string       `db:"final_report_data"`
	CreatedAt       time.Time     `db:"created_at"`
}

type AnalysisJob struct {
	ID                   uuid.UUID  `db:"id"`
	SessionID            uuid.UUID  `db:"session_id"`
	PatientID            uuid.UUID  `db:"patient_id"`
	CalibrationProfileID uuid.UUID  `db:"calibration_profile_id"`
	CreatedByUserID      uuid.UUID  `db:"created_by_user_id"`
	LocationTag          string     `db:"location_tag"`
	ImageStorageKey      string     `db:"image_storage_key"`
	AnnotatedImageKey    *string    `db:"annotated_image_key"`
	Status               JobStatus  `db:"status"`
	AnalysisResult       *string    `db:"analysis_result"`
	DoctorNotes          *string    `db:"doctor_notes"`
	CreatedAt            time.Time  `db:"created_at"`
	StartedAt            *time.Time `db:"started_at"`
	CompletedAt          *time.Time `db:"completed_at"`
	ErrorMessage         *string    `db:"error_message"`
	ProcessingTimeMs     *int       `db:"processing_time_ms"`
}

// SessionSummary is one row of the paginated session listing. The job counts
// and location tags come from subqueries against analysis_jobs.
type SessionSummary struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	PatientID         uuid.UUID     `db:"patient_id" json:"patientId"`
	PatientName       string        `db:"patient_name" json:"patientName"`
	CreatedByUserID   uuid.UUID     `db:"created_by_user_id" json:"createdByUserId"`
	CreatedByUserName string        `db:"created_by_user_name" json:"createdByUserName"`
	SessionDate       time.Time     `db:"session_date" json:"sessionDate"`
	Status            SessionStatus `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	TotalJobs         int           `db:"total_jobs" json:"totalJobs"`
	CompletedJobs     int           `db:"completed_jobs" json:"completedJobs"`
	PendingJobs       int           `db:"pending_jobs" json:"pendingJobs"`
	LocationTags      []string      `db:"-" json:"locationTags"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// TruncatePtr is Truncate for optional columns.
func TruncatePtr(s *string, n int) *string {
	if s == nil {
		return nil
	}
	t := Truncate(*s, n)
	return &t
}
