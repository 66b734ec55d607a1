package middleware

import (
	"github.com/gofiber/fiber/v2"

	"filevault/internal/auth"
	"filevault/internal/model"
)

const (
	// IdentityLocalKey holds the verified model.Identity.
	IdentityLocalKey = "identity"
	// TokenLocalKey holds the raw bearer token, needed to revoke it on logout.
	TokenLocalKey = "bearer_token"
)

// Authenticate verifies the bearer token before any handler runs.
// Rejected requests end with a 401 fiber.Error, so no store is touched.
func Authenticate(v auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearer(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or malformed bearer token")
		}

		id, err := v.Verify(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(IdentityLocalKey, id)
		c.Locals(TokenLocalKey, token)
		return c.Next()
	}
}

// IdentityFromCtx returns the identity stored by Authenticate.
func IdentityFromCtx(c *fiber.Ctx) (model.Identity, bool) {
	id, ok := c.Locals(IdentityLocalKey).(model.Identity)
	return id, ok && id.SubjectID != ""
}

// TokenFromCtx returns the bearer token stored by Authenticate.
func TokenFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(TokenLocalKey).(string)
	return s
}
