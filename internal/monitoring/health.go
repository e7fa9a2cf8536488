package monitoring

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 5 * time.Second

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

// HealthChecker runs the registered dependency checks on demand. Optional
// checks are reported but never make the service unready.
type HealthChecker struct {
	mu       sync.RWMutex
	checks   map[string]HealthCheckFunc
	optional map[string]bool
	started  time.Time
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:   make(map[string]HealthCheckFunc),
		optional: make(map[string]bool),
		started:  time.Now(),
	}
}

func (h *HealthChecker) Register(name string, fn HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// RegisterOptional adds a check for a dependency the service can run
// without, such as the cache.
func (h *HealthChecker) RegisterOptional(name string, fn HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
	h.optional[name] = true
}

// Run executes every check concurrently and reports whether all required
// ones passed.
func (h *HealthChecker) Run(ctx context.Context) (map[string]HealthCheck, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	fns := make([]HealthCheckFunc, len(names))
	for i, name := range names {
		fns[i] = h.checks[name]
	}
	h.mu.RUnlock()

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			check := HealthCheck{Name: names[i], Status: "healthy", LastRun: time.Now()}
			if err := fns[i](cctx); err != nil {
				check.Status = "unhealthy"
				check.Message = err.Error()
			}
			results[i] = check
		}(i)
	}
	wg.Wait()

	out := make(map[string]HealthCheck, len(results))
	healthy := true
	h.mu.RLock()
	for _, check := range results {
		out[check.Name] = check
		if check.Status != "healthy" && !h.optional[check.Name] {
			healthy = false
		}
	}
	h.mu.RUnlock()
	return out, healthy
}

func (h *HealthChecker) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks, healthy := h.Run(c.Request.Context())

		overall := "healthy"
		status := http.StatusOK
		if !healthy {
			overall = "unhealthy"
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now(),
			"checks":    checks,
			"uptime":    time.Since(h.started).String(),
		})
	}
}

func (h *HealthChecker) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, healthy := h.Run(c.Request.Context()); !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"timestamp": time.Now(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now(),
		})
	}
}

func (h *HealthChecker) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    time.Since(h.started).String(),
		})
	}
}
