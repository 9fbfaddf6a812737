// Package breaker implements the circuit breaker shared by the storefront
// edge proxy and the payment gateway client.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tair/storefront/pkg/logger"
)

// ErrOpen is returned by Call while the circuit rejects requests
var ErrOpen = errors.New("circuit breaker is open")

// State represents the state of a circuit breaker
type State string

const (
	StateClosed   State = "closed"    // Normal operation
	StateOpen     State = "open"      // Blocking requests
	StateHalfOpen State = "half-open" // Testing if service recovered
)

// Breaker opens after maxFailures consecutive failures, waits timeout, then
// lets calls through in half-open state. successThreshold successes in
// half-open close it again; any failure reopens it.
type Breaker struct {
	name             string
	maxFailures      int
	timeout          time.Duration
	successThreshold int

	mu              sync.Mutex
	state           State
	failures        int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	now             func() time.Time
}

// New creates a closed breaker
func New(name string, maxFailures int, timeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	b := &Breaker{
		name:             name,
		maxFailures:      maxFailures,
		timeout:          timeout,
		successThreshold: 3,
		state:            StateClosed,
		now:              time.Now,
	}
	b.lastStateChange = b.now()
	return b
}

// Name returns the breaker's name
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed, moving an expired open circuit
// to half-open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.lastStateChange) > b.timeout {
		b.setState(StateHalfOpen)
		b.successCount = 0
	}
	return b.state != StateOpen
}

// Call executes fn with circuit breaker protection
func (b *Breaker) Call(fn func() error) error {
	if !b.Allow() {
		return fmt.Errorf("%w for %s", ErrOpen, b.name)
	}

	err := fn()
	b.Record(err)
	return err
}

// Record feeds the outcome of a call made after Allow returned true.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}
}

func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailureTime = b.now()

	switch {
	case b.state == StateHalfOpen:
		b.setState(StateOpen)
		logger.Logger.Warn().
			Str("circuit", b.name).
			Msg("Circuit breaker reopened after half-open failure")
	case b.failures >= b.maxFailures && b.state == StateClosed:
		b.setState(StateOpen)
		logger.Logger.Error().
			Str("circuit", b.name).
			Int("failures", b.failures).
			Int("threshold", b.maxFailures).
			Msg("Circuit breaker opened")
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.setState(StateClosed)
			b.failures = 0
			logger.Logger.Info().
				Str("circuit", b.name).
				Msg("Circuit breaker closed after successful recovery")
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) setState(s State) {
	b.state = s
	b.lastStateChange = b.now()
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns circuit breaker statistics
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"name":              b.name,
		"state":             b.state,
		"failures":          b.failures,
		"max_failures":      b.maxFailures,
		"last_failure_time": b.lastFailureTime,
		"last_state_change": b.lastStateChange,
		"time_since_change": b.now().Sub(b.lastStateChange).Seconds(),
	}
}

// Manager keeps one breaker per downstream name
type Manager struct {
	maxFailures int
	timeout     time.Duration

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewManager creates a manager whose breakers share the given thresholds
func NewManager(maxFailures int, timeout time.Duration) *Manager {
	return &Manager{
		maxFailures: maxFailures,
		timeout:     timeout,
		breakers:    make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use
func (m *Manager) Get(name string) *Breaker {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	b = New(name, m.maxFailures, m.timeout)
	m.breakers[name] = b

	logger.Logger.Info().
		Str("service", name).
		Msg("Circuit breaker created")
	return b
}

// Stats returns stats for all circuit breakers
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]interface{}, len(m.breakers))
	for name, b := range m.breakers {
		stats[name] = b.Stats()
	}
	return stats
}
