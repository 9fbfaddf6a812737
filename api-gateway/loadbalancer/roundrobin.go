package loadbalancer

import (
	"sync"

	"github.com/tair/storefront/pkg/logger"
)

// RoundRobin hands out service instances in turn
type RoundRobin struct {
	service string
	servers []string
	current int
	mu      sync.Mutex
}

// NewRoundRobin creates a balancer over servers. An empty list yields a
// balancer whose Next always returns "".
func NewRoundRobin(service string, servers []string) *RoundRobin {
	logger.Logger.Info().
		Str("target", service).
		Int("server_count", len(servers)).
		Strs("servers", servers).
		Msg("Round-robin load balancer initialized")

	return &RoundRobin{
		service: service,
		servers: append([]string(nil), servers...),
	}
}

// Next returns the next server in round-robin order
func (rr *RoundRobin) Next() string {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if len(rr.servers) == 0 {
		return ""
	}

	server := rr.servers[rr.current]
	rr.current = (rr.current + 1) % len(rr.servers)
	return server
}

// Len returns the number of instances
func (rr *RoundRobin) Len() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.servers)
}

// GetStats returns load balancer statistics
func (rr *RoundRobin) GetStats() map[string]interface{} {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	return map[string]interface{}{
		"algorithm":     "round-robin",
		"service":       rr.service,
		"server_count":  len(rr.servers),
		"servers":       append([]string(nil), rr.servers...),
		"current_index": rr.current,
	}
}
