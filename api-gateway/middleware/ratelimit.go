package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tair/storefront/pkg/logger"
)

// RateLimiter is a Redis sorted-set sliding window limiter
type RateLimiter struct {
	redis         *redis.Client
	name          string
	maxRequests   int
	window        time.Duration
	sessionCookie string
}

// NewRateLimiter creates a limiter; name separates the key spaces of
// limiters sharing one Redis.
func NewRateLimiter(redisClient *redis.Client, name string, maxRequests int, window time.Duration, sessionCookie string) *RateLimiter {
	return &RateLimiter{
		redis:         redisClient,
		name:          name,
		maxRequests:   maxRequests,
		window:        window,
		sessionCookie: sessionCookie,
	}
}

// identify picks the user, then the session, then the client IP.
func (rl *RateLimiter) identify(c *fiber.Ctx) string {
	if userID, ok := c.Locals(LocalUserID).(string); ok && userID != "" {
		return "user:" + userID
	}
	if sid := c.Cookies(rl.sessionCookie); sid != "" {
		return "session:" + sid
	}
	return "ip:" + c.IP()
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := rl.identify(c)

		allowed, remaining, resetTime, err := rl.checkLimit(c.UserContext(), identifier)
		if err != nil {
			// fails open
			logger.Error(c.UserContext()).
				Err(err).
				Str("identifier", identifier).
				Msg("Rate limiter error")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			logger.Warn(c.UserContext()).
				Str("identifier", identifier).
				Str("limiter", rl.name).
				Int("limit", rl.maxRequests).
				Msg("Rate limit exceeded")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Rate limit exceeded",
				"retry_after": time.Until(resetTime).Seconds(),
			})
		}

		return c.Next()
	}
}

// checkLimit records the request and reports whether it fits the window
func (rl *RateLimiter) checkLimit(ctx context.Context, identifier string) (bool, int, time.Time, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", rl.name, identifier)
	now := time.Now()
	windowStart := now.Add(-rl.window)

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, rl.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := countCmd.Val()
	remaining := rl.maxRequests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}

	return count < int64(rl.maxRequests), remaining, now.Add(rl.window), nil
}

// GlobalRateLimiter allows 100 requests per minute per caller
func GlobalRateLimiter(redisClient *redis.Client, sessionCookie string) fiber.Handler {
	return NewRateLimiter(redisClient, "global", 100, time.Minute, sessionCookie).Middleware()
}

// SessionMutationRateLimiter guards cart and favorites writes, which fan out
// to the cart service in authenticated mode.
func SessionMutationRateLimiter(redisClient *redis.Client, sessionCookie string) fiber.Handler {
	limiter := NewRateLimiter(redisClient, "session", 60, time.Minute, sessionCookie)
	mw := limiter.Middleware()
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			return c.Next()
		}
		return mw(c)
	}
}
