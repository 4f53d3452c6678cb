package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Secure bool
}

// Set writes the token cookie, expiring together with the token.
func (s SessionCookie) Set(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		Secure:   s.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Clear deletes the token cookie on the client.
func (s SessionCookie) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   s.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Read returns the raw token from the request, or "".
func (s SessionCookie) Read(c *fiber.Ctx) string {
	return c.Cookies(s.Name)
}
