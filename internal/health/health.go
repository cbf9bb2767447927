package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// Checker is a dependency that can report its health
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// Status represents liveness response
type Status struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents readiness response
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Handler serves K8s probes
type Handler struct {
	mu        sync.RWMutex
	ready     bool
	checks    map[string]Checker
	order     []string
	startTime time.Time
}

// NewHandler creates probe handler. Service starts not ready.
func NewHandler() *Handler {
	return &Handler{
		checks:    make(map[string]Checker),
		startTime: time.Now(),
	}
}

// AddCheck registers dependency check under name
func (h *Handler) AddCheck(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.checks[name]; !ok {
		h.order = append(h.order, name)
	}
	h.checks[name] = c
}

// SetReady marks the service as ready
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()

	if ready {
		logger.Info("service marked as ready")
	} else {
		logger.Warn("service marked as not ready")
	}
}

// Register mounts /health, /healthz, /ready and /readyz
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.Liveness)
	r.GET("/healthz", h.Liveness)
	r.GET("/ready", h.Readiness)
	r.GET("/readyz", h.Readiness)
}

// Liveness returns 200 while the process is alive, even if dependencies are down.
// ?verbose=true includes dependency checks.
func (h *Handler) Liveness(c *gin.Context) {
	status := Status{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if c.Query("verbose") == "true" {
		status.Checks, _ = h.runChecks(c.Request.Context())
	}

	c.JSON(http.StatusOK, status)
}

// Readiness returns 200 only when marked ready and all dependencies are healthy
func (h *Handler) Readiness(c *gin.Context) {
	h.mu.RLock()
	ready := h.ready
	h.mu.RUnlock()

	checks, healthy := h.runChecks(c.Request.Context())

	status := ReadinessStatus{
		Ready:     ready && healthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}

func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	names := append([]string(nil), h.order...)
	checks := make([]Checker, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	result := make(map[string]string, len(names))
	healthy := true

	for i, name := range names {
		if err := checks[i].Health(ctx); err != nil {
			logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
			result[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		result[name] = "healthy"
	}

	return result, healthy
}
