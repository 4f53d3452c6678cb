package auth

import "github.com/gofiber/fiber/v2"

const (
	claimsKey  = "auth_claims"
	sessionKey = "auth_session"
)

// ClaimsFromContext retrieves the claims the gate verified for this request.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
