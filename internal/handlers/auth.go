package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"aurum/internal/config"
	"aurum/internal/services/auth"
	"aurum/internal/services/session"
	"aurum/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie the browser flow stores the bearer token in.
// API clients may send the same token as a Bearer header instead.
const SessionCookie = "session_token"

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login runs the first step of a credential login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Username == "" || input.Password == "" {
		return utils.BadRequest(c, "Username and password are required")
	}

	result, err := h.authService.SubmitCredentials(c.Context(), input.Username, input.Password)
	if err != nil {
		return respondAuthError(c, err)
	}

	if result.State == auth.StateAwaitingSecondFactor {
		return utils.Success(c, fiber.Map{
			"requires_second_factor": true,
			"pending_ref":            result.PendingRef,
		})
	}

	SetSessionCookie(c, result.Session)
	return utils.Success(c, fiber.Map{
		"authenticated": result.Identity.Public(),
		"session_token": result.Session.Token,
		"expires_at":    result.Session.ExpiresAt,
	})
}

// LoginSecondFactor completes a login halted at the TOTP gate.
func (h *AuthHandler) LoginSecondFactor(c *fiber.Ctx) error {
	var input struct {
		PendingRef string `json:"pending_ref"`
		Code       string `json:"code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.PendingRef == "" || input.Code == "" {
		return utils.BadRequest(c, "Pending reference and code are required")
	}

	result, err := h.authService.SubmitSecondFactor(c.Context(), input.PendingRef, input.Code)
	if err != nil {
		return respondAuthError(c, err)
	}

	SetSessionCookie(c, result.Session)
	return utils.Success(c, fiber.Map{
		"authenticated": result.Identity.Public(),
		"session_token": result.Session.Token,
		"expires_at":    result.Session.ExpiresAt,
	})
}

// Logout revokes the current session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := SessionToken(c)
	if err := h.authService.Logout(c.Context(), token); err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			log.Printf("Logout failed: %v", err)
			return utils.InternalError(c, "Failed to logout")
		}
	}

	ClearSessionCookie(c)
	return utils.Success(c, fiber.Map{
		"message": "Successfully logged out",
	})
}

// ChangePassword handles password change requests
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	identityID, ok := c.Locals("identityID").(uint)
	if !ok {
		return utils.Unauthorized(c, "Not authenticated")
	}

	if err := h.authService.ChangePassword(c.Context(), identityID, input.OldPassword, input.NewPassword); err != nil {
		log.Printf("Password change failed for identity %d: %v", identityID, err)
		return respondAuthError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "Password changed successfully",
	})
}

// SessionToken extracts the bearer token from the cookie or the
// Authorization header.
func SessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// SetSessionCookie installs the session token for browser clients.
func SetSessionCookie(c *fiber.Ctx, sess *session.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		Path:     "/",
		SameSite: "Strict",
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		Path:     "/",
		SameSite: "Strict",
	})
}

// respondAuthError maps the auth service's terminal failures to HTTP
// statuses. Anything outside the domain kinds is a 500.
func respondAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return utils.Unauthorized(c, "Invalid username or password")
	case errors.Is(err, auth.ErrInvalidCode):
		return utils.Unauthorized(c, "Invalid second-factor code")
	case errors.Is(err, auth.ErrSignatureInvalid):
		return utils.Unauthorized(c, "Invalid wallet signature")
	case errors.Is(err, auth.ErrExpired):
		return utils.Unauthorized(c, "Challenge expired, request a new one")
	case errors.Is(err, auth.ErrMalformedMessage):
		return utils.BadRequest(c, "Malformed sign-in message")
	case errors.Is(err, auth.ErrInvalidState):
		return utils.BadRequest(c, "Invalid state for this step")
	case errors.Is(err, auth.ErrPasswordPolicy):
		return utils.BadRequest(c, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		return utils.Conflict(c, "Username or email already taken")
	case errors.Is(err, auth.ErrNotAuthenticated):
		return utils.Unauthorized(c, "Not authenticated")
	default:
		log.Printf("Auth operation failed: %v", err)
		return utils.InternalError(c, "Authentication failed")
	}
}
