package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sawatantra/api/shared/config"
	"github.com/stretchr/testify/assert"
)

// --- Mock for HealthChecker ---

type MockHealthChecker struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil // Default: healthy
}

func readyHandler(checks ...HealthCheck) *Handler {
	return &Handler{cfg: &config.Config{}, health: checks}
}

func serveReady(h *Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return rr
}

// --- Tests ---

func TestHealth(t *testing.T) {
	t.Run("always returns 200 OK", func(t *testing.T) {
		handler := readyHandler(HealthCheck{Name: "postgres", Checker: PingFunc(func(context.Context) error {
			return errors.New("down")
		})})

		rr := httptest.NewRecorder()
		handler.Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		// Liveness never looks at dependencies
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
	})
}

func TestReady(t *testing.T) {
	down := errors.New("connection refused")

	t.Run("returns 200 OK when every dependency is available", func(t *testing.T) {
		rr := serveReady(readyHandler(
			HealthCheck{Name: "postgres", Checker: &MockHealthChecker{}},
			HealthCheck{Name: "redis", Checker: &MockHealthChecker{}, Optional: true},
		))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
	})

	t.Run("returns 503 when a required dependency is down", func(t *testing.T) {
		redisCalled := false
		rr := serveReady(readyHandler(
			HealthCheck{Name: "postgres", Checker: PingFunc(func(context.Context) error { return down })},
			HealthCheck{Name: "redis", Optional: true, Checker: PingFunc(func(context.Context) error {
				redisCalled = true
				return nil
			})},
		))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "postgres unavailable", rr.Body.String())
		assert.False(t, redisCalled, "checks stop at the first required failure")
	})

	t.Run("optional dependency only degrades", func(t *testing.T) {
		rr := serveReady(readyHandler(
			HealthCheck{Name: "postgres", Checker: &MockHealthChecker{}},
			HealthCheck{Name: "redis", Optional: true, Checker: PingFunc(func(context.Context) error { return down })},
		))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok, degraded: redis", rr.Body.String())
	})

	t.Run("uses timeout context for ping check", func(t *testing.T) {
		var receivedContext context.Context
		rr := serveReady(readyHandler(HealthCheck{Name: "postgres", Checker: &MockHealthChecker{
			PingFunc: func(ctx context.Context) error {
				receivedContext = ctx
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline, "Context should have a deadline")
				return nil
			},
		}}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, receivedContext, "Ping should have been called with a context")
	})

	t.Run("handles context deadline gracefully", func(t *testing.T) {
		rr := serveReady(readyHandler(HealthCheck{Name: "postgres", Checker: PingFunc(func(context.Context) error {
			return context.DeadlineExceeded
		})}))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "postgres unavailable", rr.Body.String())
	})

	t.Run("no dependencies means ready", func(t *testing.T) {
		rr := serveReady(readyHandler())
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
