package handlers

import (
	"aurum/internal/models"
	"aurum/internal/services/auth"
	"aurum/internal/utils"
	"aurum/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	authService auth.Service
}

func NewUserHandler(authService auth.Service) *UserHandler {
	return &UserHandler{authService: authService}
}

// Register creates a credential account. Registration implies login: the
// response carries a live session.
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var input models.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	v := validation.New()
	v.Username("username", input.Username)
	v.Required("email", input.Email)
	v.Email("email", input.Email)
	v.Password("password", input.Password)
	if !v.Valid() {
		// Get first error from the map
		for field, msg := range v.Errors {
			return utils.BadRequest(c, field+" "+msg)
		}
	}

	result, err := h.authService.Register(c.Context(), input)
	if err != nil {
		return respondAuthError(c, err)
	}

	SetSessionCookie(c, result.Session)
	return utils.Created(c, fiber.Map{
		"authenticated": result.Identity.Public(),
		"session_token": result.Session.Token,
		"expires_at":    result.Session.ExpiresAt,
	})
}

// Me returns the authenticated identity's public view.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	identity, ok := c.Locals("identity").(*models.Identity)
	if !ok {
		return utils.Unauthorized(c, "Not authenticated")
	}
	return utils.Success(c, fiber.Map{
		"user": identity.Public(),
	})
}
