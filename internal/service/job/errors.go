package job

import "github.com/Alijeyrad/hairai_backend/internal/result"

var (
	ErrJobNotFound       = result.NewError(result.KindNotFound, "job_not_found")
	ErrJobNotCompleted   = result.NewError(result.KindValidation, "job_not_completed")
	ErrNotesTooLong      = result.NewError(result.KindValidation, "notes_too_long")
	ErrPersistenceFailed = result.NewError(result.KindPersistence, "persistence_failed")
	ErrPresignFailed     = result.NewError(result.KindInternal, "presign_failed")
)
