// Package config loads service settings from an optional TOML file and the
// environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/tair/storefront/pkg/database"
)

// RedisConfig locates the Redis instance
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig locates the Kafka cluster
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// ServiceURLs are the base URLs of the storefront services. Comma separated
// values list several instances of the same service.
type ServiceURLs struct {
	Catalog string
	Cart    string
	Order   string
	User    string
}

// PaymentConfig configures the payment gateway client
type PaymentConfig struct {
	GatewayURL string
	APIKey     string
	Currency   string
}

// TracingConfig locates the Jaeger collector
type TracingConfig struct {
	JaegerEndpoint string
	ServiceVersion string
	// SampleRatio is the share of new traces recorded, between 0 and 1
	SampleRatio    float64
}

// Config is the merged configuration for one binary
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
	HTTPPort    string
	JWTSecret   string
	Database    database.Config
	Redis       RedisConfig
	Kafka       KafkaConfig
	Services    ServiceURLs
	Payment     PaymentConfig
	Tracing     TracingConfig
	// StateDir, when set, keeps guest session state in files under it
	StateDir    string
}

// IsDevelopment reports whether pretty console logging should be used
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

type fileConfig struct {
	Environment string `toml:"environment"`
	LogLevel    string `toml:"log_level"`
	JWTSecret   string `toml:"jwt_secret"`
	StateDir    string `toml:"state_dir"`
	Database    struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
		SSLMode  string `toml:"sslmode"`
	} `toml:"database"`
	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
	Kafka struct {
		Brokers []string `toml:"brokers"`
	} `toml:"kafka"`
	Services struct {
		Catalog string `toml:"catalog"`
		Cart    string `toml:"cart"`
		Order   string `toml:"order"`
		User    string `toml:"user"`
	} `toml:"services"`
	Payment struct {
		GatewayURL string `toml:"gateway_url"`
		APIKey     string `toml:"api_key"`
		Currency   string `toml:"currency"`
	} `toml:"payment"`
	Tracing struct {
		JaegerEndpoint string   `toml:"jaeger_endpoint"`
		ServiceVersion string   `toml:"service_version"`
		SampleRatio    *float64 `toml:"sample_ratio"`
	} `toml:"tracing"`
	Ports map[string]string `toml:"ports"`
}

// Load builds the configuration for serviceName. path may be empty or point
// at a missing file, in which case only defaults and the environment apply.
func Load(path, serviceName, defaultPort string) (Config, error) {
	cfg := defaults(serviceName, defaultPort)

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			var fc fileConfig
			if err := toml.Unmarshal(raw, &fc); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
			applyFile(&cfg, fc)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults(serviceName, defaultPort string) Config {
	return Config{
		ServiceName: serviceName,
		Environment: "development",
		LogLevel:    "info",
		HTTPPort:    defaultPort,
		Database: database.Config{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "storefront",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: serviceName},
		Services: ServiceURLs{
			Catalog: "http://localhost:8081",
			Cart:    "http://localhost:8082",
			Order:   "http://localhost:8083",
			User:    "http://localhost:8080",
		},
		Payment: PaymentConfig{Currency: "USD"},
		Tracing: TracingConfig{
			JaegerEndpoint: "http://localhost:14268/api/traces",
			ServiceVersion: "1.0.0",
			SampleRatio:    1,
		},
	}
}

func applyFile(cfg *Config, fc fileConfig) {
	set(&cfg.Environment, fc.Environment)
	set(&cfg.LogLevel, fc.LogLevel)
	set(&cfg.JWTSecret, fc.JWTSecret)
	set(&cfg.Database.Host, fc.Database.Host)
	set(&cfg.Database.Port, fc.Database.Port)
	set(&cfg.Database.User, fc.Database.User)
	set(&cfg.Database.Password, fc.Database.Password)
	set(&cfg.Database.DBName, fc.Database.Name)
	set(&cfg.Database.SSLMode, fc.Database.SSLMode)
	set(&cfg.Redis.Addr, fc.Redis.Addr)
	set(&cfg.Redis.Password, fc.Redis.Password)
	if fc.Redis.DB != 0 {
		cfg.Redis.DB = fc.Redis.DB
	}
	if brokers := cleanList(fc.Kafka.Brokers); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	set(&cfg.Services.Catalog, fc.Services.Catalog)
	set(&cfg.Services.Cart, fc.Services.Cart)
	set(&cfg.Services.Order, fc.Services.Order)
	set(&cfg.Services.User, fc.Services.User)
	set(&cfg.Payment.GatewayURL, fc.Payment.GatewayURL)
	set(&cfg.Payment.APIKey, fc.Payment.APIKey)
	set(&cfg.Payment.Currency, fc.Payment.Currency)
	set(&cfg.Tracing.JaegerEndpoint, fc.Tracing.JaegerEndpoint)
	set(&cfg.Tracing.ServiceVersion, fc.Tracing.ServiceVersion)
	if fc.Tracing.SampleRatio != nil {
		cfg.Tracing.SampleRatio = *fc.Tracing.SampleRatio
	}
	set(&cfg.StateDir, fc.StateDir)
	if port, ok := fc.Ports[cfg.ServiceName]; ok {
		set(&cfg.HTTPPort, port)
	}
}

func applyEnv(cfg *Config) {
	set(&cfg.ServiceName, os.Getenv("OTEL_SERVICE_NAME"))
	set(&cfg.Environment, os.Getenv("ENVIRONMENT"))
	set(&cfg.LogLevel, os.Getenv("LOG_LEVEL"))
	set(&cfg.HTTPPort, os.Getenv("HTTP_PORT"))
	set(&cfg.JWTSecret, os.Getenv("JWT_SECRET"))
	set(&cfg.Database.Host, os.Getenv("DB_HOST"))
	set(&cfg.Database.Port, os.Getenv("DB_PORT"))
	set(&cfg.Database.User, os.Getenv("DB_USER"))
	set(&cfg.Database.Password, os.Getenv("DB_PASSWORD"))
	set(&cfg.Database.DBName, os.Getenv("DB_NAME"))
	set(&cfg.Database.SSLMode, os.Getenv("DB_SSLMODE"))
	set(&cfg.Redis.Addr, os.Getenv("REDIS_ADDR"))
	set(&cfg.Redis.Password, os.Getenv("REDIS_PASSWORD"))
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.Redis.DB = db
	}
	if brokers := cleanList(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	set(&cfg.Kafka.GroupID, os.Getenv("KAFKA_GROUP_ID"))
	set(&cfg.Services.Catalog, os.Getenv("CATALOG_SERVICE_URL"))
	set(&cfg.Services.Cart, os.Getenv("CART_SERVICE_URL"))
	set(&cfg.Services.Order, os.Getenv("ORDER_SERVICE_URL"))
	set(&cfg.Services.User, os.Getenv("USER_SERVICE_URL"))
	set(&cfg.Payment.GatewayURL, os.Getenv("PAYMENT_GATEWAY_URL"))
	set(&cfg.Payment.APIKey, os.Getenv("PAYMENT_API_KEY"))
	set(&cfg.Payment.Currency, os.Getenv("CURRENCY"))
	set(&cfg.Tracing.JaegerEndpoint, os.Getenv("JAEGER_ENDPOINT"))
	set(&cfg.Tracing.ServiceVersion, os.Getenv("SERVICE_VERSION"))
	if ratio, err := strconv.ParseFloat(os.Getenv("TRACE_SAMPLE_RATIO"), 64); err == nil {
		cfg.Tracing.SampleRatio = ratio
	}
	set(&cfg.StateDir, os.Getenv("STOREFRONT_STATE_DIR"))
}

// SplitURLs turns a comma separated ServiceURLs entry into instance URLs.
func SplitURLs(v string) []string {
	return cleanList(strings.Split(v, ","))
}

func set(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
