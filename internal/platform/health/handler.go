// Package health serves the mock backend's liveness and readiness probes.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"billdash/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// CheckFunc reports nil when a dependency is usable.
type CheckFunc func(ctx context.Context) error

type Handler struct {
	startTime time.Time
	now       func() time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func New() *Handler {
	return &Handler{
		startTime: time.Now(),
		now:       time.Now,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency check to the readiness probe.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/ready", h.HandleReadiness)
}

// StatusResponse mirrors the billing API's /health body.
type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "OK",
		Version:       Version,
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
	})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check and answers 503 if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	response := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := checks[name](ctx)
		cancel()
		if err != nil {
			response.Checks[name] = "down: " + err.Error()
			response.Status = "not_ready"
			continue
		}
		response.Checks[name] = "up"
	}

	status := http.StatusOK
	if response.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, response)
}
