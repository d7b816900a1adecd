package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/hairai_backend/internal/service/tenancy"
	pasetotoken "github.com/Alijeyrad/hairai_backend/pkg/paseto"
)

const LocalsClinicID = "clinic_id"

// CallerClinic resolves the authenticated user's clinic through the tenancy
// gate and stores it in Locals for RequirePermission. Callers without a clinic
// (platform staff) are left in the sys domain.
func CallerClinic(gate tenancy.Gate) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := pasetotoken.ClaimsFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		if id, ok := gate.GetUserClinicID(c.Context(), claims.UserID).ClinicID(); ok {
			c.Locals(LocalsClinicID, id.String())
		}
		return c.Next()
	}
}
