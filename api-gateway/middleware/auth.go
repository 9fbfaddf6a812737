package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tair/storefront/pkg/auth"
)

// Locals keys set by the auth middlewares
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalRole     = "role"
)

// AuthMiddleware validates the bearer JWT and forwards the identity to
// backend services as X-User-* headers.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.BearerToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header required",
			})
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid token",
			})
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

// AdminMiddleware requires AuthMiddleware to have run with an admin token
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(string)
		if role != auth.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Admin access required",
			})
		}
		return c.Next()
	}
}

// OptionalAuthMiddleware records the identity of a valid token, if any.
// Public catalog routes use it so rate limits are per user when possible.
func OptionalAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, err := auth.BearerToken(c.Get("Authorization")); err == nil {
			if claims, err := auth.ValidateToken(token); err == nil {
				setIdentity(c, claims)
			}
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, claims *auth.Claims) {
	c.Locals(LocalUserID, claims.Subject())
	c.Locals(LocalUsername, claims.Username)
	c.Locals(LocalRole, claims.Role)

	c.Request().Header.Set("X-User-ID", claims.Subject())
	c.Request().Header.Set("X-Username", claims.Username)
	c.Request().Header.Set("X-User-Role", claims.Role)
}
