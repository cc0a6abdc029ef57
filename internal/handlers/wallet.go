package handlers

import (
	"aurum/internal/services/auth"
	"aurum/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// WalletHandler serves the sign-in-with-Ethereum flow: challenge issuance
// and signed-message verification.
type WalletHandler struct {
	authService auth.Service
}

func NewWalletHandler(authService auth.Service) *WalletHandler {
	return &WalletHandler{authService: authService}
}

// Challenge issues a sign-in message for the given address.
func (h *WalletHandler) Challenge(c *fiber.Ctx) error {
	address := c.Query("address")
	if address == "" {
		return utils.BadRequest(c, "Address is required")
	}

	challenge, err := h.authService.WalletChallenge(c.Context(), address)
	if err != nil {
		return respondAuthError(c, err)
	}
	return utils.Success(c, challenge)
}

// Verify checks a signed challenge and logs the wallet in. A first-time
// address is registered implicitly; the response reports that with
// registered=true and a 201.
func (h *WalletHandler) Verify(c *fiber.Ctx) error {
	var input struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
		Message   string `json:"message"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Address == "" || input.Signature == "" || input.Message == "" {
		return utils.BadRequest(c, "Address, signature and message are required")
	}

	result, err := h.authService.SubmitWalletSignature(c.Context(), input.Address, input.Signature, input.Message)
	if err != nil {
		return respondAuthError(c, err)
	}

	SetSessionCookie(c, result.Session)
	payload := fiber.Map{
		"authenticated": result.Identity.Public(),
		"session_token": result.Session.Token,
		"expires_at":    result.Session.ExpiresAt,
		"registered":    result.Registered,
	}
	if result.Registered {
		return utils.Created(c, payload)
	}
	return utils.Success(c, payload)
}
