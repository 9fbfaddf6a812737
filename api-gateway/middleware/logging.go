package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/storefront/pkg/logger"
)

// StructuredLoggingMiddleware logs one line per request with the session
// and user it belongs to.
func StructuredLoggingMiddleware(sessionCookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		traceID := "no-trace"
		if span := trace.SpanFromContext(c.UserContext()); span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		}
		requestID := c.GetRespHeader(fiber.HeaderXRequestID, c.Get(fiber.HeaderXRequestID))

		err := c.Next()

		duration := time.Since(start)
		statusCode := c.Response().StatusCode()

		log := logger.WithContext(c.UserContext())
		event := log.Info()
		switch {
		case statusCode >= 500:
			event = log.Error()
		case statusCode >= 400:
			event = log.Warn()
		}

		userID, _ := c.Locals(LocalUserID).(string)
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", statusCode).
			Dur("duration", duration).
			Int("response_size", len(c.Response().Body())).
			Str("ip", c.IP()).
			Str("trace_id", traceID).
			Str("request_id", requestID).
			Str("session_id", c.Cookies(sessionCookie)).
			Str("user_id", userID).
			Err(err).
			Msg("Gateway request completed")

		return err
	}
}
