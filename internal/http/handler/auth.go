package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"filevault/internal/auth"
	"filevault/internal/http/middleware"
)

var validate = validator.New()

type loginRequest struct {
	Token string `json:"token" validate:"required"`
}

// Login verifies an identity token and echoes the identity it carries.
//
// @Summary Verify a token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "identity token"
// @Success 200 {object} model.Identity
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /auth/login [post]
func Login(v auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "TOKEN_REQUIRED", "token is required")
		}

		id, err := v.Verify(c.UserContext(), req.Token)
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
		}
		return c.JSON(id)
	}
}

// Logout revokes the presented token. Without a revocation list it only acknowledges.
//
// @Summary Revoke the current token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} messageResponse
// @Failure 401 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /auth/logout [post]
func Logout(r auth.Revoker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		}
		if r != nil {
			if err := r.Revoke(c.UserContext(), middleware.TokenFromCtx(c), id.ExpiresAt); err != nil {
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(messageResponse{Message: "Logged out"})
	}
}
