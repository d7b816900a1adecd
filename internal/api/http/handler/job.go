package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/result"
	"github.com/Alijeyrad/hairai_backend/internal/service/intake"
	"github.com/Alijeyrad/hairai_backend/internal/service/job"
	"github.com/Alijeyrad/hairai_backend/pkg/storage"
)

// MaxImageBytes caps a single uploaded analysis image.
const MaxImageBytes = 10 << 20

var errStorageFailed = result.NewError(result.KindPersistence, "storage_failed")

type JobHandler struct {
	intake  intake.Service
	jobs    job.Service
	objects storage.ObjectStore
	logger  *slog.Logger
}

func NewJobHandler(in intake.Service, jobs job.Service, objects storage.ObjectStore, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{intake: in, jobs: jobs, objects: objects, logger: logger}
}

func formUUID(c fiber.Ctx, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.FormValue(field))
	return id, err == nil
}

// POST /analysis/jobs
// Multipart: image, sessionId, patientId, calibrationProfileId, locationTag.
func (h *JobHandler) Upload(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}

	sessionID, valid := formUUID(c, "sessionId")
	if !valid {
		return badRequest(c, "invalid sessionId")
	}
	patientID, valid := formUUID(c, "patientId")
	if !valid {
		return badRequest(c, "invalid patientId")
	}
	profileID, valid := formUUID(c, "calibrationProfileId")
	if !valid {
		return badRequest(c, "invalid calibrationProfileId")
	}
	locationTag := c.FormValue("locationTag")
	if !intake.ValidLocationTag(locationTag) {
		return badRequest(c, "locationTag is required and must be at most 100 characters")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "image field is required")
	}
	if fh.Size <= 0 || fh.Size > MaxImageBytes {
		return badRequest(c, "image must be between 1 byte and 10 MB")
	}

	key, contentType, err := storage.ImageKey(fh.Filename)
	if err != nil {
		return badRequest(c, "image must be a jpg, jpeg or png file")
	}

	ctx := c.Context()
	req := intake.UploadRequest{
		SessionID:            sessionID,
		PatientID:            patientID,
		CalibrationProfileID: profileID,
		LocationTag:          locationTag,
		CreatedByUserID:      caller,
	}
	// Nothing reaches the bucket for callers outside the patient's clinic.
	if pre := h.intake.Precheck(ctx, req); !pre.Success {
		return respond(c, pre)
	}

	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "image could not be read")
	}
	defer f.Close()

	if err := h.objects.Put(ctx, key, contentType, f, fh.Size); err != nil {
		h.logger.ErrorContext(ctx, "handler: store analysis image failed", "key", key, "error", err)
		return respond(c, result.Fail[any]("Failed to store the uploaded image.", errStorageFailed))
	}

	req.ImageStorageKey = key
	res := h.intake.Upload(ctx, req)
	if !res.Success {
		h.discard(ctx, key)
	}

	return respond(c, res)
}

// discard removes an image whose job was never created.
func (h *JobHandler) discard(ctx context.Context, key string) {
	if err := h.objects.Delete(context.WithoutCancel(ctx), key); err != nil {
		h.logger.WarnContext(ctx, "handler: discard orphaned image failed", "key", key, "error", err)
	}
}

// GET /analysis/jobs/:id/status
func (h *JobHandler) Status(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid job id")
	}

	return respond(c, h.jobs.GetJobStatus(c.Context(), id, caller))
}

// GET /analysis/jobs/:id/result
func (h *JobHandler) Result(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid job id")
	}

	return respond(c, h.jobs.GetJobResult(c.Context(), id, caller))
}

// POST /analysis/jobs/:id/notes
func (h *JobHandler) AddNotes(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid job id")
	}

	var body struct {
		Notes *string `json:"notes"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Notes == nil {
		return badRequest(c, "notes is required")
	}

	return respond(c, h.jobs.AddDoctorNotes(c.Context(), id, *body.Notes, caller))
}
