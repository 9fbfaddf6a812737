package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tair/storefront/pkg/logger"
)

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL       time.Duration
	CacheableMethods []string
	CacheableStatus  []int
	// Prefixes lists the only paths that are cached. Session and per-user
	// routes must never be listed.
	Prefixes []string
}

// DefaultCacheConfig caches public catalog reads
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:       5 * time.Minute,
		CacheableMethods: []string{fiber.MethodGet, fiber.MethodHead},
		CacheableStatus:  []int{200, 203, 404},
		Prefixes:         []string{"/api/products", "/api/categories", "/api/fabrics"},
	}
}

// CacheMiddleware serves cached catalog responses from Redis
func CacheMiddleware(redisClient *redis.Client, config CacheConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if redisClient == nil || !isCacheable(c, config) {
			return c.Next()
		}

		ctx := c.UserContext()
		cacheKey := generateCacheKey(c)

		cachedResponse, err := redisClient.Get(ctx, cacheKey).Bytes()
		if err == nil && len(cachedResponse) > 0 {
			logger.Debug(ctx).
				Str("path", c.Path()).
				Str("cache_key", cacheKey).
				Msg("Cache hit")

			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cachedResponse)
		}

		err = c.Next()

		if containsInt(config.CacheableStatus, c.Response().StatusCode()) {
			responseBody := c.Response().Body()
			if setErr := redisClient.Set(ctx, cacheKey, responseBody, config.DefaultTTL).Err(); setErr != nil {
				logger.Warn(ctx).
					Err(setErr).
					Str("cache_key", cacheKey).
					Msg("Failed to cache response")
			}
			c.Set("X-Cache", "MISS")
		}

		return err
	}
}

func isCacheable(c *fiber.Ctx, config CacheConfig) bool {
	if !containsString(config.CacheableMethods, c.Method()) {
		return false
	}
	path := c.Path()
	for _, prefix := range config.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// generateCacheKey hashes method, path, query and authorization
func generateCacheKey(c *fiber.Ctx) string {
	keyComponents := fmt.Sprintf("%s:%s:%s:%s",
		c.Method(),
		c.Path(),
		string(c.Request().URI().QueryString()),
		c.Get("Authorization"),
	)

	hash := sha256.Sum256([]byte(keyComponents))
	return "cache:" + hex.EncodeToString(hash[:])
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// InvalidateCatalogCache drops every cached response. The catalog admin
// routes call it after a successful write.
func InvalidateCatalogCache(redisClient *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if redisClient == nil || c.Method() == fiber.MethodGet || c.Response().StatusCode() >= 300 {
			return err
		}

		ctx := c.UserContext()
		iter := redisClient.Scan(ctx, 0, "cache:*", 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if scanErr := iter.Err(); scanErr != nil {
			logger.Warn(ctx).Err(scanErr).Msg("Failed to scan cache keys")
			return err
		}
		if len(keys) > 0 {
			if delErr := redisClient.Del(ctx, keys...).Err(); delErr != nil {
				logger.Warn(ctx).Err(delErr).Msg("Failed to invalidate cache")
				return err
			}
			logger.Info(ctx).Int("count", len(keys)).Msg("Catalog cache invalidated")
		}
		return err
	}
}
