package handlers

import (
	"errors"
	"log"

	"aurum/internal/services/auth"
	"aurum/internal/services/oauth"
	"aurum/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// OAuthHandler drives the provider redirect dance and exchanges the
// resulting profile for a session.
type OAuthHandler struct {
	oauthService *oauth.Service
	authService  auth.Service
}

func NewOAuthHandler(oauthService *oauth.Service, authService auth.Service) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService, authService: authService}
}

// Redirect sends the browser to the provider's consent page with a
// single-use state parameter.
func (h *OAuthHandler) Redirect(c *fiber.Ctx) error {
	provider := c.Params("provider")

	url, err := h.oauthService.AuthURL(c.Context(), provider)
	if err != nil {
		return respondOAuthError(c, err)
	}
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// Callback completes the flow: the state is consumed, the code exchanged,
// the profile fetched and the identity logged in (registering on first
// contact).
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return utils.BadRequest(c, "Code and state are required")
	}

	profile, err := h.oauthService.HandleCallback(c.Context(), provider, code, state)
	if err != nil {
		return respondOAuthError(c, err)
	}

	result, err := h.authService.SubmitExternalProfile(c.Context(), profile)
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

func respondOAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, oauth.ErrUnknownProvider):
		return utils.BadRequest(c, "Unknown provider")
	case errors.Is(err, oauth.ErrStateMismatch):
		return utils.Unauthorized(c, "State mismatch")
	case errors.Is(err, oauth.ErrExchangeFailed):
		return utils.Unauthorized(c, "Code exchange failed")
	case errors.Is(err, oauth.ErrProfileIncomplete):
		return utils.Unauthorized(c, "Provider profile is incomplete")
	default:
		log.Printf("OAuth callback failed: %v", err)
		return utils.InternalError(c, "Sign-in failed")
	}
}
