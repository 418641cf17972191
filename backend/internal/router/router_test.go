package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawatantra/api/backend/internal/handler"
	"github.com/sawatantra/api/backend/internal/setup"
	"github.com/sawatantra/api/shared/config"
	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/jwt"
	mw "github.com/sawatantra/api/shared/middleware"
)

type stubDirectory struct {
	users []domain.DirectoryEntry
}

func (s *stubDirectory) List(ctx context.Context) ([]domain.DirectoryEntry, error) {
	return s.users, nil
}

func (s *stubDirectory) Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error) {
	return s.users, nil
}

func setupRouter(t *testing.T, ping handler.PingFunc) (http.Handler, jwt.JwtService) {
	t.Helper()
	cfg := &config.Config{Public: config.Public{
		JwtTTL:         time.Hour,
		AllowedOrigins: []string{"https://app.example.com"},
	}}
	jwtService := jwt.New("secret", time.Hour)
	directory := &stubDirectory{users: []domain.DirectoryEntry{{Email: "alice@x.io", Name: "Alice"}}}

	deps := &setup.Dependencies{
		Handler:        handler.New(nil, nil, directory, nil, []handler.HealthCheck{{Name: "postgres", Checker: ping}}, cfg),
		AuthMiddleware: mw.NewAuth(jwtService),
		Config:         cfg,
	}
	return New(deps), jwtService
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := setupRouter(t, func(context.Context) error { return nil })

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	t.Run("not ready", func(t *testing.T) {
		r, _ := setupRouter(t, func(context.Context) error { return errors.New("db down") })
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	r, _ := setupRouter(t, func(context.Context) error { return nil })
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, mw.APIContentSecurityPolicy, rr.Header().Get("Content-Security-Policy"))
}

func TestCORS(t *testing.T) {
	r, _ := setupRouter(t, func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodOptions, "/api/planning-poker/board/B1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/planning-poker/board/B1", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	r, jwtService := setupRouter(t, func(context.Context) error { return nil })

	t.Run("without token", func(t *testing.T) {
		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/users/"},
			{http.MethodPost, "/api/planning-poker/board/"},
			{http.MethodGet, "/api/planning-poker/board/B1"},
			{http.MethodPost, "/api/planning-poker/board/B1/story/S1/vote"},
			{http.MethodPost, "/api/ai/save"},
		} {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)
		}
	})

	t.Run("with bearer token", func(t *testing.T) {
		token, err := jwtService.NewToken(domain.User{Id: 1, Email: "alice@x.io"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[{"email":"alice@x.io","name":"Alice"}]`, rr.Body.String())
	})
}

func TestUnknownRoute(t *testing.T) {
	r, _ := setupRouter(t, func(context.Context) error { return nil })
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
