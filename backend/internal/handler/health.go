package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sawatantra/api/shared/logger"
)

// readinessTimeout bounds all dependency checks of one readiness request.
const readinessTimeout = 2 * time.Second

// HealthChecker is a dependency that can be pinged, e.g. the postgres storage.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function (e.g. a redis PING) to HealthChecker.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthCheck is one named dependency of the readiness check.
// An optional dependency that fails marks the service degraded, not unready:
// the participant name cache falls back to postgres when redis is down.
type HealthCheck struct {
	Name     string
	Checker  HealthChecker
	Optional bool
}

// Health is a liveness check endpoint.
// Returns 200 OK if the server is running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Ready is a readiness check endpoint.
// Returns 200 OK when every required dependency answers, with the names of
// failed optional ones appended as "degraded: ...".
// Returns 503 Service Unavailable naming the first required dependency that failed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	// Use a short timeout for health checks
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var degraded []string
	for _, check := range h.health {
		err := check.Checker.Ping(ctx)
		if err == nil {
			continue
		}
		logger.Log.Warn("readiness check failed", "dependency", check.Name, "optional", check.Optional, "error", err)
		if !check.Optional {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(check.Name + " unavailable"))
			return
		}
		degraded = append(degraded, check.Name)
	}

	w.WriteHeader(http.StatusOK)
	if len(degraded) > 0 {
		w.Write([]byte("ok, degraded: " + strings.Join(degraded, ", ")))
		return
	}
	w.Write([]byte("ok"))
}
