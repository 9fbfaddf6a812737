package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tair/storefront/api-gateway/config"
	"github.com/tair/storefront/pkg/logger"
)

// InstanceHealth is the probe result of one service instance
type InstanceHealth struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

// ServiceHealth aggregates a service's instances: healthy when all are,
// degraded when some are, unhealthy when none is.
type ServiceHealth struct {
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	Instances []InstanceHealth `json:"instances"`
	Timestamp time.Time        `json:"timestamp"`
}

// GatewayHealth represents the overall gateway health
type GatewayHealth struct {
	Gateway  string                   `json:"gateway"`
	Status   string                   `json:"status"`
	Services map[string]ServiceHealth `json:"services"`
	Sessions int                      `json:"live_sessions"`
	Uptime   float64                  `json:"uptime_seconds"`
}

// SessionCounter reports live storefront sessions
type SessionCounter interface {
	Len() int
}

// HealthChecker checks health of downstream services
type HealthChecker struct {
	config    *config.GatewayConfig
	sessions  SessionCounter
	client    *http.Client
	startTime time.Time
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(cfg *config.GatewayConfig, sessions SessionCounter) *HealthChecker {
	return &HealthChecker{
		config:   cfg,
		sessions: sessions,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		startTime: time.Now(),
	}
}

// CheckService probes every instance of a service
func (h *HealthChecker) CheckService(ctx context.Context, name string, svc config.ServiceConfig) ServiceHealth {
	result := ServiceHealth{Name: name, Timestamp: time.Now()}

	healthy := 0
	for _, instance := range svc.Instances {
		ih := h.checkInstance(ctx, instance+svc.HealthCheck)
		ih.URL = instance
		if ih.Status == "healthy" {
			healthy++
		}
		result.Instances = append(result.Instances, ih)
	}

	switch {
	case len(svc.Instances) > 0 && healthy == len(svc.Instances):
		result.Status = "healthy"
	case healthy > 0:
		result.Status = "degraded"
	default:
		result.Status = "unhealthy"
	}
	return result
}

func (h *HealthChecker) checkInstance(ctx context.Context, healthURL string) InstanceHealth {
	start := time.Now()
	result := InstanceHealth{Status: "unhealthy"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create request: %v", err)
		return result
	}

	resp, err := h.client.Do(req)
	result.Latency = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = fmt.Sprintf("Failed to reach service: %v", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		result.Status = "healthy"
	} else {
		result.Error = fmt.Sprintf("Unexpected status code: %d", resp.StatusCode)
	}
	return result
}

// CheckAllServices checks health of all downstream services
func (h *HealthChecker) CheckAllServices(ctx context.Context) GatewayHealth {
	services := make(map[string]ServiceHealth)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, svc := range h.config.Services {
		wg.Add(1)
		go func(n string, s config.ServiceConfig) {
			defer wg.Done()
			health := h.CheckService(ctx, n, s)

			mu.Lock()
			services[n] = health
			mu.Unlock()

			if health.Status != "healthy" {
				logger.Warn(ctx).
					Str("target", n).
					Str("status", health.Status).
					Msg("Service health check failed")
			}
		}(name, svc)
	}

	wg.Wait()

	return GatewayHealth{
		Gateway:  "storefront-edge",
		Status:   h.determineOverallStatus(services),
		Services: services,
		Sessions: h.liveSessions(),
		Uptime:   time.Since(h.startTime).Seconds(),
	}
}

// determineOverallStatus determines the overall health status
func (h *HealthChecker) determineOverallStatus(services map[string]ServiceHealth) string {
	healthyCount := 0
	totalCount := len(services)

	for _, svc := range services {
		if svc.Status == "healthy" {
			healthyCount++
		}
	}

	if healthyCount == totalCount {
		return "healthy"
	} else if healthyCount > 0 {
		return "degraded"
	}
	return "unhealthy"
}

// QuickCheck reports on the edge itself without probing services
func (h *HealthChecker) QuickCheck() map[string]interface{} {
	return map[string]interface{}{
		"status":        "healthy",
		"gateway":       "storefront-edge",
		"live_sessions": h.liveSessions(),
		"uptime":        time.Since(h.startTime).Seconds(),
		"timestamp":     time.Now(),
	}
}

func (h *HealthChecker) liveSessions() int {
	if h.sessions == nil {
		return 0
	}
	return h.sessions.Len()
}
