package report

import "github.com/Alijeyrad/hairai_backend/internal/result"

var (
	ErrInvalidRequest      = result.NewError(result.KindValidation, "invalid_request")
	ErrSessionNotFound     = result.NewError(result.KindNotFound, "session_not_found")
	ErrSessionAccessDenied = result.NewError(result.KindAuthorization, "session_access_denied")
	ErrNoCompletedJobs     = result.NewError(result.KindValidation, "no_completed_jobs")
	ErrJobLimitExceeded    = result.NewError(result.KindLimitExceeded, "job_limit_exceeded")
	ErrCancelled           = result.NewError(result.KindCancelled, "cancelled")
	ErrAggregationFailed   = result.NewError(result.KindInternal, "aggregation_failed")
	ErrPersistenceFailed   = result.NewError(result.KindPersistence, "persistence_failed")
)
