package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	pasetotoken "github.com/Alijeyrad/hairai_backend/pkg/paseto"

	"github.com/Alijeyrad/hairai_backend/internal/result"
)

// StatusClientClosedRequest is returned when the caller went away mid-request.
const StatusClientClosedRequest = 499

var errInvalidRequest = result.NewError(result.KindValidation, "invalid_request")

// statusFor maps a result onto an HTTP status. Authorization failures share
// 404 with missing resources so callers cannot probe other tenants.
func statusFor(kind result.Kind, success bool) int {
	if success {
		return fiber.StatusOK
	}
	switch kind {
	case result.KindValidation:
		return fiber.StatusBadRequest
	case result.KindAuthorization, result.KindNotFound:
		return fiber.StatusNotFound
	case result.KindLimitExceeded:
		return fiber.StatusUnprocessableEntity
	case result.KindCancelled:
		return StatusClientClosedRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func respond[T any](c fiber.Ctx, res result.Result[T]) error {
	return c.Status(statusFor(res.Kind, res.Success)).JSON(res)
}

func badRequest(c fiber.Ctx, msg string) error {
	return respond(c, result.Fail[any](msg, errInvalidRequest))
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(result.Result[any]{Message: "unauthorized"})
}

// callerID returns the authenticated user set by the auth middleware.
func callerID(c fiber.Ctx) (uuid.UUID, bool) {
	claims, ok := pasetotoken.ClaimsFromFiber(c)
	if !ok || claims.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func uuidParam(c fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil && id != uuid.Nil
}
