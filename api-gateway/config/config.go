package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	appconfig "github.com/tair/storefront/pkg/config"
)

// ServiceConfig holds configuration for a backend service
type ServiceConfig struct {
	Name        string
	Instances   []string
	Timeout     time.Duration
	HealthCheck string
}

// BaseURL returns the first instance, used for display and health checks
func (s ServiceConfig) BaseURL() string {
	if len(s.Instances) == 0 {
		return ""
	}
	return s.Instances[0]
}

// GatewayConfig holds the main gateway configuration
type GatewayConfig struct {
	Port         string
	Services     map[string]ServiceConfig
	SessionTTL   time.Duration
	CookieSecure bool
	AllowOrigins string
	Currency     string
}

// LoadConfig derives the gateway configuration from the shared one.
func LoadConfig(app appconfig.Config) *GatewayConfig {
	service := func(name, urls string) ServiceConfig {
		return ServiceConfig{
			Name:        name,
			Instances:   appconfig.SplitURLs(urls),
			Timeout:     30 * time.Second,
			HealthCheck: "/health",
		}
	}

	return &GatewayConfig{
		Port: getEnv("GATEWAY_PORT", "8000"),
		Services: map[string]ServiceConfig{
			"user":    service("user-service", app.Services.User),
			"catalog": service("catalog-service", app.Services.Catalog),
			"cart":    service("cart-service", app.Services.Cart),
			"order":   service("order-service", app.Services.Order),
		},
		SessionTTL:   getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		CookieSecure: !app.IsDevelopment(),
		AllowOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		Currency:     app.Payment.Currency,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
