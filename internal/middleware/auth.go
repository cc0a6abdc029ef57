// Package middleware provides HTTP middleware components for the application.
// It includes session authentication, admin authorization, and request
// instrumentation for use with the fiber web framework.
package middleware

import (
	"errors"
	"log"
	"strings"

	"aurum/internal/models"
	"aurum/internal/services/auth"

	"github.com/gofiber/fiber/v2"
)

// SessionMiddleware resolves the caller's session token and loads the
// matching identity into the request context.
type SessionMiddleware struct {
	authService auth.Service
}

func NewSessionMiddleware(authService auth.Service) *SessionMiddleware {
	return &SessionMiddleware{
		authService: authService,
	}
}

// Handler authenticates the request. The token comes from the session
// cookie first, then from a Bearer Authorization header. On success the
// identity, the session and the identity id are stored in the request
// context for downstream handlers.
func (m *SessionMiddleware) Handler(c *fiber.Ctx) error {
	token := sessionToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing session token"})
	}

	identity, sess, err := m.authService.ResolveSession(c.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			log.Printf("Session resolution error: %v", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
	}

	c.Locals("identity", identity)
	c.Locals("session", sess)
	c.Locals("identityID", identity.ID)

	return c.Next()
}

// RequireAdmin verifies that the resolved identity holds the admin role.
// It must run after Handler.
func RequireAdmin(c *fiber.Ctx) error {
	identity, ok := c.Locals("identity").(*models.Identity)
	if !ok {
		log.Println("Identity not found in context")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	if !identity.IsAdmin() {
		log.Printf("Access denied: identity %d holds role %s, not admin", identity.ID, identity.Role)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	}

	return c.Next()
}

func sessionToken(c *fiber.Ctx) string {
	if cookie := c.Cookies("session_token"); cookie != "" {
		return cookie
	}
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
