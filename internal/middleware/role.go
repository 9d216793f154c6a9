package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireRoles gates a route to the listed roles. Mount after JWTAuth.
func RequireRoles(allowed ...string) fiber.Handler {
	allowedSet := map[string]bool{}
	for _, r := range allowed {
		allowedSet[strings.ToLower(r)] = true
	}

	return func(c *fiber.Ctx) error {
		claims, ok := tokenClaims(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if !allowedSet[strings.ToLower(strings.TrimSpace(claims.Role))] {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
		}
		return c.Next()
	}
}
