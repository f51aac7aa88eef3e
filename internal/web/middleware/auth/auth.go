package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

const (
	// LoginPath is where anonymous requests are sent.
	LoginPath = "/login"

	// LocalSession holds the *session.Data of the request.
	LocalSession = "session"
)

// PublicPrefixes are served without a session.
var PublicPrefixes = []string{"/static", "/logout", "/auth/oidc", "/checkalive", "/metrics"}

// New returns the session middleware.
func New(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if IsPublic(c) {
			return c.Next()
		}

		data, err := sessions.Read(c)
		if err != nil {
			// the login page itself is reachable without a session
			if IsLoginPage(c) {
				return c.Next()
			}

			if IsAPI(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
			}

			return c.Redirect(LoginPath)
		}

		if IsLoginPage(c) {
			return c.Redirect(handler.HomePath)
		}

		c.Locals(auth.LocalUserID, data.UserID)
		c.Locals(LocalSession, data)
		c.Locals("CurrentUser", data)

		return c.Next()
	}
}

// IsPublic reports whether the path is served without a session.
func IsPublic(c *fiber.Ctx) bool {
	p := strings.ToLower(c.Path())
	for _, prefix := range PublicPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	return false
}

// IsLoginPage checks if the current request is for the login page.
func IsLoginPage(c *fiber.Ctx) bool {
	p := strings.ToLower(c.Path())

	return p == LoginPath || strings.HasPrefix(p, LoginPath+"/")
}

// IsAPI reports JSON endpoints, which get 401 instead of a redirect.
func IsAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Path()), "/api/")
}

// SessionFromContext returns the session set by the middleware.
func SessionFromContext(c *fiber.Ctx) (*session.Data, bool) {
	data, ok := c.Locals(LocalSession).(*session.Data)

	return data, ok
}
