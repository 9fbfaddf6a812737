package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/storefront/api-gateway/config"
	"github.com/tair/storefront/api-gateway/loadbalancer"
	"github.com/tair/storefront/pkg/logger"
)

// maxAttempts bounds retries of idempotent requests
const maxAttempts = 3

// ReverseProxy handles proxying requests to backend services
type ReverseProxy struct {
	client        *http.Client
	loadBalancers map[string]*loadbalancer.RoundRobin
	timeouts      map[string]time.Duration
	backoff       time.Duration
}

// NewReverseProxy creates a balancer per configured service
func NewReverseProxy(cfg *config.GatewayConfig) *ReverseProxy {
	loadBalancers := make(map[string]*loadbalancer.RoundRobin, len(cfg.Services))
	timeouts := make(map[string]time.Duration, len(cfg.Services))
	for name, svc := range cfg.Services {
		loadBalancers[name] = loadbalancer.NewRoundRobin(name, svc.Instances)
		timeouts[name] = svc.Timeout
	}

	return &ReverseProxy{
		loadBalancers: loadBalancers,
		timeouts:      timeouts,
		backoff:       100 * time.Millisecond,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ProxyRequest forwards the request to the target service. Idempotent
// requests that fail at the transport or get 502/503/504 are retried on the
// next instance with exponential backoff.
func (p *ReverseProxy) ProxyRequest(c *fiber.Ctx, serviceName string) error {
	lb, ok := p.loadBalancers[serviceName]
	if !ok {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("Load balancer for '%s' not found", serviceName),
		})
	}

	ctx := c.UserContext()
	if timeout := p.timeouts[serviceName]; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	attempts := 1
	if isIdempotent(c.Method()) {
		attempts = maxAttempts
	}

	var (
		resp    *http.Response
		lastErr error
	)
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		serverURL := lb.Next()
		if serverURL == "" {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": fmt.Sprintf("No available instances for '%s'", serviceName),
			})
		}

		resp, lastErr = p.forward(ctx, c, serverURL)
		if lastErr == nil && !retryableStatus(resp.StatusCode) {
			break
		}
		if attempt == attempts {
			break
		}
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}

		logger.Warn(ctx).
			Err(lastErr).
			Str("target", serviceName).
			Str("instance", serverURL).
			Int("attempt", attempt).
			Msg("Backend request failed, retrying")

		select {
		case <-time.After(p.backoff << (attempt - 1)):
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		}
	}

	if resp == nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Failed to reach backend service",
			"service": serviceName,
			"details": fmt.Sprint(lastErr),
		})
	}
	defer resp.Body.Close()

	p.copyResponseHeaders(c, resp)
	c.Status(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read response",
		})
	}
	return c.Send(body)
}

func (p *ReverseProxy) forward(ctx context.Context, c *fiber.Ctx, serverURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, c.Method(), p.buildTargetURL(c, serverURL), bytes.NewReader(c.Body()))
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx).
		Str("instance", serverURL).
		Str("path", c.Path()).
		Msg("Load balancer selected instance")

	p.copyHeaders(c, req)
	return p.client.Do(req)
}

// buildTargetURL keeps the original path and query
func (p *ReverseProxy) buildTargetURL(c *fiber.Ctx, serverURL string) string {
	path := string(c.Request().URI().Path())

	queryString := string(c.Request().URI().QueryString())
	if queryString != "" {
		queryString = "?" + queryString
	}

	return strings.TrimRight(serverURL, "/") + path + queryString
}

// GetLoadBalancers returns all load balancers (for stats)
func (p *ReverseProxy) GetLoadBalancers() map[string]*loadbalancer.RoundRobin {
	return p.loadBalancers
}

// copyHeaders copies request headers except Host and sets X-Forwarded-*.
func (p *ReverseProxy) copyHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		keyStr := string(key)
		if strings.EqualFold(keyStr, "host") {
			return
		}
		req.Header.Set(keyStr, string(value))
	})

	req.Header.Set("X-Forwarded-For", c.IP())
	req.Header.Set("X-Forwarded-Proto", c.Protocol())
	req.Header.Set("X-Forwarded-Host", c.Hostname())
}

// copyResponseHeaders copies headers from http.Response to Fiber context
func (p *ReverseProxy) copyResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for key, values := range resp.Header {
		if strings.EqualFold(key, "content-length") {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}
