package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	pasetotoken "github.com/Alijeyrad/hairai_backend/pkg/paseto"
	redispkg "github.com/Alijeyrad/hairai_backend/pkg/redis"
	"github.com/Alijeyrad/hairai_backend/pkg/reqctx"
)

// AuthRequired validates a Bearer PASETO access token and, when the token is
// bound to a login session, checks that the session is still alive in Redis.
// Claims go to Locals for the handlers and to the request context for logging.
func AuthRequired(v *pasetotoken.Verifier, rdb *redis.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, err := v.VerifyAccess(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		if claims.SessionID != nil && rdb != nil {
			alive, err := redispkg.SessionAlive(c.Context(), rdb, claims.SessionID.String())
			if err != nil || !alive {
				return fiber.ErrUnauthorized
			}
		}

		c.Locals(pasetotoken.CtxKeyClaims, claims)
		c.SetContext(reqctx.WithClaims(c.Context(), claims))
		return c.Next()
	}
}
