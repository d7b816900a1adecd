package intake

import "github.com/Alijeyrad/hairai_backend/internal/result"

var (
	ErrInvalidRequest         = result.NewError(result.KindValidation, "invalid_request")
	ErrPatientAccessDenied    = result.NewError(result.KindAuthorization, "patient_access_denied")
	ErrSessionPatientMismatch = result.NewError(result.KindNotFound, "session_patient_mismatch")
	ErrProfileAccessDenied    = result.NewError(result.KindAuthorization, "calibration_profile_access_denied")
	ErrInvalidStorageKey      = result.NewError(result.KindValidation, "invalid_storage_key")
	ErrInvalidLocationTag     = result.NewError(result.KindValidation, "invalid_location_tag")
	ErrPersistenceFailed      = result.NewError(result.KindPersistence, "persistence_failed")
	ErrDispatchFailed         = result.NewError(result.KindDispatch, "dispatch_failed")
)
