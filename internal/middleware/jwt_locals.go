package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/freelancehub/freelancehub-backend/internal/utils"
)

// tokenClaims digs the verified claims out of the "user" local set by
// JWTAuth. Absent or foreign values mean the route was mounted without it.
func tokenClaims(c *fiber.Ctx) (*utils.Claims, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(*utils.Claims)
	return claims, ok
}

// AttachJWTLocals lifts the verified claims into plain locals so handlers
// never touch the raw token.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := tokenClaims(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		uid := strings.TrimSpace(claims.UserID)
		if uid == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))

		return c.Next()
	}
}
