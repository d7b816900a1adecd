package session

import "github.com/Alijeyrad/hairai_backend/internal/result"

var (
	ErrInvalidRequest      = result.NewError(result.KindValidation, "invalid_request")
	ErrInvalidSessionDate  = result.NewError(result.KindValidation, "invalid_session_date")
	ErrPatientAccessDenied = result.NewError(result.KindAuthorization, "patient_access_denied")
	ErrSessionAccessDenied = result.NewError(result.KindAuthorization, "session_access_denied")
	ErrSessionNotFound     = result.NewError(result.KindNotFound, "session_not_found")
	ErrTooManyJobs         = result.NewError(result.KindLimitExceeded, "too_many_jobs")
	ErrPersistenceFailed   = result.NewError(result.KindPersistence, "persistence_failed")
)
