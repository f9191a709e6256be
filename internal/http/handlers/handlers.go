package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/logx"
)

const checkTimeout = 2 * time.Second

// Dependency checks one backing dependency (database, geo store).
type Dependency struct {
	Name  string
	Check func(context.Context) error
}

// Handlers serves the service-level endpoints.
type Handlers struct {
	Logger logx.Logger
	deps   func() []Dependency
}

// New creates Handlers. deps is consulted on every health check so that
// dependencies opened after construction are included; nil means none.
func New(logger logx.Logger, deps func() []Dependency) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	if deps == nil {
		deps = func() []Dependency { return nil }
	}
	return &Handlers{Logger: logger, deps: deps}
}

// Ping handles GET /ping and returns 200 with {"message":"pong"}.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck: 204 when every dependency check passes,
// 503 otherwise.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, r *http.Request) {
	if failed := h.runChecks(r.Context()); len(failed) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthcheck handles GET /healthcheck and names the failing dependencies.
func (h *Handlers) Healthcheck(w http.ResponseWriter, r *http.Request) {
	failed := h.runChecks(r.Context())
	if len(failed) > 0 {
		writeJSON(h.Logger, w, r, http.StatusServiceUnavailable, healthBody{Status: "degraded", Failed: failed})
		return
	}
	writeJSON(h.Logger, w, r, http.StatusOK, healthBody{Status: "ok"})
}

// NotFound returns a JSON 404 for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, fmt.Errorf("route %s: %w", r.URL.Path, apperr.ErrNotFound))
}

type healthBody struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

func (h *Handlers) runChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var failed map[string]string
	for _, p := range h.deps() {
		if err := p.Check(ctx); err != nil {
			h.Logger.Warn("health check failed", logx.String("dependency", p.Name), logx.Err(err))
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[p.Name] = err.Error()
		}
	}
	return failed
}
