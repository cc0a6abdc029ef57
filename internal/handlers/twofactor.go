package handlers

import (
	"aurum/internal/services/auth"
	"aurum/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// TwoFactorHandler manages TOTP enrollment for the authenticated identity.
type TwoFactorHandler struct {
	authService auth.Service
}

func NewTwoFactorHandler(authService auth.Service) *TwoFactorHandler {
	return &TwoFactorHandler{authService: authService}
}

// Setup generates a fresh TOTP secret. The secret stays inert until one
// valid code is submitted to Enable.
func (h *TwoFactorHandler) Setup(c *fiber.Ctx) error {
	identityID := c.Locals("identityID").(uint)

	setup, err := h.authService.SetupSecondFactor(c.Context(), identityID)
	if err != nil {
		return respondAuthError(c, err)
	}
	return utils.Success(c, setup)
}

// Enable turns the pending secret on after verifying one code against it.
func (h *TwoFactorHandler) Enable(c *fiber.Ctx) error {
	identityID := c.Locals("identityID").(uint)

	var input struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Code == "" {
		return utils.BadRequest(c, "Code is required")
	}

	if err := h.authService.EnableSecondFactor(c.Context(), identityID, input.Code); err != nil {
		return respondAuthError(c, err)
	}
	return utils.Success(c, fiber.Map{"enabled": true})
}

// Disable clears the secret and flag. The session is the only guard here.
func (h *TwoFactorHandler) Disable(c *fiber.Ctx) error {
	identityID := c.Locals("identityID").(uint)

	if err := h.authService.DisableSecondFactor(c.Context(), identityID); err != nil {
		return respondAuthError(c, err)
	}
	return utils.Success(c, fiber.Map{"enabled": false})
}
