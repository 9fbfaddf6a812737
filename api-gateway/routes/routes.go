package routes

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tair/storefront/api-gateway/health"
	"github.com/tair/storefront/api-gateway/middleware"
	"github.com/tair/storefront/api-gateway/proxy"
	storefronthttp "github.com/tair/storefront/internal/storefront/delivery/http"
	"github.com/tair/storefront/pkg/breaker"
)

// Access describes who may call a proxied route
type Access string

const (
	AccessPublic      Access = "public"
	AccessUser        Access = "user"
	AccessAdminWrites Access = "admin-writes" // reads public, writes admin only
)

// RouteDefinition defines a route mapping. Segments starting with ':' in
// Prefix match any single path segment.
type RouteDefinition struct {
	Prefix      string `json:"prefix"`
	ServiceName string `json:"service"`
	Description string `json:"description"`
	Access      Access `json:"access"`
}

// Routes holds all route definitions. More specific prefixes come first,
// both for fiber's registration order and for ServiceFor.
var Routes = []RouteDefinition{
	{
		Prefix:      "/api/auth",
		ServiceName: "user",
		Description: "Registration and login",
		Access:      AccessPublic,
	},
	{
		Prefix:      "/api/users/:user_id/cart",
		ServiceName: "cart",
		Description: "Remote cart lines of a signed-in user",
		Access:      AccessUser,
	},
	{
		Prefix:      "/api/users/:user_id/favorites",
		ServiceName: "cart",
		Description: "Remote favorites of a signed-in user",
		Access:      AccessUser,
	},
	{
		Prefix:      "/api/users",
		ServiceName: "user",
		Description: "Profile and user administration",
		Access:      AccessUser,
	},
	{
		Prefix:      "/api/products",
		ServiceName: "catalog",
		Description: "Product catalog and back-office",
		Access:      AccessAdminWrites,
	},
	{
		Prefix:      "/api/categories",
		ServiceName: "catalog",
		Description: "Fixed category enumeration",
		Access:      AccessPublic,
	},
	{
		Prefix:      "/api/fabrics",
		ServiceName: "catalog",
		Description: "Fabric reference data",
		Access:      AccessAdminWrites,
	},
	{
		Prefix:      "/api/orders",
		ServiceName: "order",
		Description: "Checkout and order history",
		Access:      AccessUser,
	},
}

// ServiceFor returns the service a path is proxied to, or "" when the path
// is served by the edge itself.
func ServiceFor(path string) string {
	for _, route := range Routes {
		if matchPrefix(route.Prefix, path) {
			return route.ServiceName
		}
	}
	return ""
}

func matchPrefix(prefix, path string) bool {
	want := strings.Split(strings.Trim(prefix, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(got) < len(want) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

// Dependencies are the components the routes are served by
type Dependencies struct {
	Proxy    *proxy.ReverseProxy
	Health   *health.HealthChecker
	Sessions *storefronthttp.SessionHandler
	Breakers *breaker.Manager
	Redis    *redis.Client // nil disables cache invalidation and session rate limiting

	SessionCookie string
}

// SetupRoutes configures all routes in the gateway
func SetupRoutes(app *fiber.App, deps Dependencies) {
	// Gateway quick health check (no downstream checks)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(deps.Health.QuickCheck())
	})

	// Liveness probe (for Kubernetes)
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "alive",
		})
	})

	// Readiness probe (checks downstream services)
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		healthStatus := deps.Health.CheckAllServices(ctx)

		statusCode := fiber.StatusOK
		if healthStatus.Status == "unhealthy" {
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(healthStatus)
	})

	app.Get("/health/services", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		return c.JSON(deps.Health.CheckAllServices(ctx))
	})

	app.Get("/health/breakers", func(c *fiber.Ctx) error {
		return c.JSON(deps.Breakers.Stats())
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Storefront edge",
			"version": "1.0.0",
			"routes":  Routes,
		})
	})

	// Session state lives on the edge itself
	if deps.Redis != nil {
		app.Use("/api/session", middleware.SessionMutationRateLimiter(deps.Redis, deps.SessionCookie))
	}
	deps.Sessions.RegisterRoutes(app)

	for _, route := range Routes {
		registerServiceRoutes(app, route, deps)
	}
}

// registerServiceRoutes registers all HTTP methods for a service prefix
func registerServiceRoutes(app *fiber.App, route RouteDefinition, deps Dependencies) {
	handler := func(c *fiber.Ctx) error {
		return deps.Proxy.ProxyRequest(c, route.ServiceName)
	}

	switch route.Access {
	case AccessUser:
		chain := []fiber.Handler{middleware.AuthMiddleware(), handler}
		app.All(route.Prefix, chain...)
		app.All(route.Prefix+"/*", chain...)

	case AccessAdminWrites:
		for _, path := range []string{route.Prefix, route.Prefix + "/*"} {
			app.Get(path, handler)

			writes := []fiber.Handler{
				middleware.AuthMiddleware(),
				middleware.AdminMiddleware(),
				middleware.InvalidateCatalogCache(deps.Redis),
				handler,
			}
			for _, method := range []string{fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete} {
				app.Add(method, path, writes...)
			}
		}

	default:
		app.All(route.Prefix, handler)
		app.All(route.Prefix+"/*", handler)
	}
}
