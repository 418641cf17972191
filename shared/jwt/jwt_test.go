package jwt

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sawatantra/api/shared/domain"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretKey = "testJwtKey"

var user = domain.User{Id: 1, Email: "test@sawatantra.io", Admin: true}

func TestDecodeTokenCorrect(t *testing.T) {
	svc := New(secretKey, 10*time.Second)
	token, err := svc.NewToken(user)
	require.NoError(t, err)

	decoded, err := svc.DecodeToken(token)
	require.NoError(t, err)

	claims, ok := decoded.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(1), claims["uid"])
	assert.Equal(t, "test@sawatantra.io", claims["email"])
	assert.Equal(t, true, claims["admin"])
}

func TestDecodeTokenExpired(t *testing.T) {
	svc := New(secretKey, -time.Minute)
	token, err := svc.NewToken(user)
	require.NoError(t, err)

	_, err = svc.DecodeToken(token)
	var e *internal_errors.ErrorWithStatusCode
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
	assert.Equal(t, "Access token expired", e.Message)
}

func TestDecodeTokenInvalidSecretKey(t *testing.T) {
	token, err := New(secretKey, 10*time.Second).NewToken(user)
	require.NoError(t, err)

	_, err = New("invalidSecret", 10*time.Second).DecodeToken(token)
	var e *internal_errors.ErrorWithStatusCode
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
}

func TestDecodeTokenWrongAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": 1})
	str, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = New(secretKey, time.Minute).DecodeToken(str)
	assert.Error(t, err)
}
