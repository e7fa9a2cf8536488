package cache

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	// Name labels state-change log lines.
	Name string `json:"name"`
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int `json:"max_failures"`
	// Cooldown is how long the breaker stays open before a probe.
	Cooldown time.Duration `json:"cooldown"`
	// ProbeSuccesses successful probes in a row close it again.
	ProbeSuccesses int `json:"probe_successes"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:           "redis",
		MaxFailures:    5,
		Cooldown:       30 * time.Second,
		ProbeSuccesses: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for a cooldown period.
// While half-open only one probe call is in flight at a time; everyone else
// is turned away as if the breaker were still open.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	state    CircuitBreakerState
	failures int
	probesOK int
	probing  bool
	openedAt time.Time
	trips    int64
	rejected int64
	now      func() time.Time
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	cfg := *DefaultCircuitBreakerConfig()
	if config != nil {
		if config.Name != "" {
			cfg.Name = config.Name
		}
		if config.MaxFailures > 0 {
			cfg.MaxFailures = config.MaxFailures
		}
		if config.Cooldown > 0 {
			cfg.Cooldown = config.Cooldown
		}
		if config.ProbeSuccesses > 0 {
			cfg.ProbeSuccesses = config.ProbeSuccesses
		}
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker refuses the call. A context
// cancellation returned by fn is the caller giving up, so it is passed
// through without counting against the dependency.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, ok := cb.acquire()
	if !ok {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	switch {
	case err == nil:
		cb.succeeded(probe)
	case errors.Is(err, context.Canceled):
		cb.release(probe)
	default:
		cb.failed(probe)
	}
	return err
}

func (cb *CircuitBreaker) acquire() (probe bool, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		return false, true
	case CircuitBreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			cb.rejected++
			return false, false
		}
		cb.transition(CircuitBreakerHalfOpen)
		cb.probesOK = 0
	}

	if cb.probing {
		cb.rejected++
		return false, false
	}
	cb.probing = true
	return true, true
}

func (cb *CircuitBreaker) release(probe bool) {
	if !probe {
		return
	}
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) succeeded(probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !probe {
		cb.failures = 0
		return
	}
	cb.probing = false
	cb.probesOK++
	if cb.probesOK >= cb.cfg.ProbeSuccesses {
		cb.failures = 0
		cb.transition(CircuitBreakerClosed)
	}
}

func (cb *CircuitBreaker) failed(probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
		cb.trip()
		return
	}
	cb.failures++
	if cb.state == CircuitBreakerClosed && cb.failures >= cb.cfg.MaxFailures {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.trips++
	cb.transition(CircuitBreakerOpen)
}

func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	if cb.state == to {
		return
	}
	log.Printf("cache: %s breaker %s -> %s", cb.cfg.Name, cb.state, to)
	cb.state = to
}

func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := map[string]interface{}{
		"state":            cb.state.String(),
		"failures":         cb.failures,
		"trips":            cb.trips,
		"rejected":         cb.rejected,
		"max_failures":     cb.cfg.MaxFailures,
		"cooldown_seconds": cb.cfg.Cooldown.Seconds(),
	}
	if !cb.openedAt.IsZero() {
		stats["opened_at"] = cb.openedAt.Unix()
	}
	return stats
}
