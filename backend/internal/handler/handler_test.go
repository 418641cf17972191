package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sawatantra/api/shared/config"
	"github.com/sawatantra/api/shared/domain"
	mw "github.com/sawatantra/api/shared/middleware"
)

func createRequest(t *testing.T, method, url string, body []byte, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewBuffer(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// withUser emulates the auth middleware.
func withUser(email string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := &domain.User{Id: 1, Email: email}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), mw.UserClaimsKey, user)))
		})
	}
}

func testConfig() *config.Config {
	return &config.Config{Public: config.Public{JwtTTL: 3600_000_000_000, SecureCookies: true}}
}
