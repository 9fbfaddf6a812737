package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/tair/storefront/pkg/breaker"
	"github.com/tair/storefront/pkg/logger"
)

// CircuitBreakerMiddleware rejects requests to a service whose breaker is
// open and counts 5xx answers as failures. resolve maps a path to a service
// name; paths that resolve to "" are not guarded.
func CircuitBreakerMiddleware(manager *breaker.Manager, resolve func(path string) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		serviceName := resolve(c.Path())
		if serviceName == "" {
			return c.Next()
		}

		cb := manager.Get(serviceName)
		if !cb.Allow() {
			logger.Warn(c.UserContext()).
				Str("target", serviceName).
				Str("path", c.Path()).
				Msg("Circuit breaker is open - request blocked")

			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success":     false,
				"error":       "Service temporarily unavailable",
				"service":     serviceName,
				"retry_after": 30,
			})
		}

		err := c.Next()

		if status := c.Response().StatusCode(); err != nil || status >= fiber.StatusInternalServerError {
			cb.Record(fmt.Errorf("downstream %s answered %d: %v", serviceName, status, err))
		} else {
			cb.Record(nil)
		}
		return err
	}
}
