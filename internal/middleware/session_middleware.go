package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookie is the cookie the login endpoint sets.
	SessionCookie = "sessionId"
	// SessionTokenKey is the Fiber locals key holding the extracted token.
	SessionTokenKey = "session_token"
)

// SessionRequired is a Fiber middleware that extracts the session token from
// the sessionId cookie, or from a Bearer Authorization header, and rejects
// requests that carry none. Resolving the token is left to the services.
func SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			if parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				token = strings.TrimSpace(parts[1])
			}
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized.",
			})
		}

		c.Locals(SessionTokenKey, token)
		return c.Next()
	}
}

// SessionToken returns the token stored by SessionRequired, or "".
func SessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(SessionTokenKey).(string)
	return token
}
