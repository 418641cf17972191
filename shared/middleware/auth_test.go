package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sawatantra/api/shared/domain"
	jwt_internal "github.com/sawatantra/api/shared/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	jwtService := jwt_internal.New("test_secret", time.Hour)
	admin := &domain.User{Id: 1, Email: "admin@sawatantra.io", Admin: true}
	tokenAdmin, _ := jwtService.NewToken(*admin)
	user := &domain.User{Id: 2, Email: "alice@sawatantra.io", Admin: false}
	token, _ := jwtService.NewToken(*user)

	noEmail := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": 3, "admin": false, "exp": time.Now().Add(time.Hour).Unix()})
	tokenNoEmail, _ := noEmail.SignedString([]byte("test_secret"))

	tests := []struct {
		name           string
		adminOnly      bool
		cookie         *http.Cookie
		bearer         string
		expectedStatus int
		expectedUser   *domain.User
	}{
		{
			name:           "Valid token - Admin",
			adminOnly:      true,
			cookie:         &http.Cookie{Name: AccessTokenCookie, Value: tokenAdmin},
			expectedStatus: http.StatusOK,
			expectedUser:   admin,
		},
		{
			name:           "Valid token - Non-admin",
			cookie:         &http.Cookie{Name: AccessTokenCookie, Value: token},
			expectedStatus: http.StatusOK,
			expectedUser:   user,
		},
		{
			name:           "Valid bearer token",
			bearer:         token,
			expectedStatus: http.StatusOK,
			expectedUser:   user,
		},
		{
			name:           "No token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token",
			cookie:         &http.Cookie{Name: AccessTokenCookie, Value: "invalid_token"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Token without email claim",
			bearer:         tokenNoEmail,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Non-admin accessing admin route",
			adminOnly:      true,
			cookie:         &http.Cookie{Name: AccessTokenCookie, Value: token},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://example.com", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rr := httptest.NewRecorder()
			authMw := NewAuth(jwtService)
			middleware := authMw.NeedAuth()
			if tt.adminOnly {
				middleware = authMw.AdminOnly()
			}
			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got := GetUserFromContext(r)
				require.NotNil(t, got, "Auth should always propagate user thru context")
				assert.Equal(t, tt.expectedUser.Id, got.Id)
				assert.Equal(t, tt.expectedUser.Email, got.Email)
				assert.Equal(t, tt.expectedUser.Admin, got.Admin)
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code, "handler returned wrong status code")
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtService := jwt_internal.New("test_secret", time.Hour)
	token, _ := jwtService.NewToken(domain.User{Id: 7, Email: "bob@sawatantra.io"})

	var seen *domain.User
	handler := NewAuth(jwtService).OptionalAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserFromContext(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "bob@sawatantra.io", seen.Email)
}

func TestGetUserFromContext(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		assert.Nil(t, GetUserFromContext(req))
	})

	t.Run("user in context", func(t *testing.T) {
		user := &domain.User{Id: 1, Email: "test@sawatantra.io", Admin: true}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserClaimsKey, user))

		assert.Equal(t, user, GetUserFromContext(req))
	})
}
