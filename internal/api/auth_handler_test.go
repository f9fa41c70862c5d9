package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/taskboss-api/internal/config"
	"github.com/phrazzld/taskboss-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubJWTService is a JWTService double with injectable behavior.
type stubJWTService struct {
	generateTokenFn func(ctx context.Context, operatorID int64) (string, error)
	validateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
}

var _ auth.JWTService = (*stubJWTService)(nil)

func (s *stubJWTService) GenerateToken(ctx context.Context, operatorID int64) (string, error) {
	return s.generateTokenFn(ctx, operatorID)
}

func (s *stubJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return s.validateTokenFn(ctx, tokenString)
}

// stubPasswordVerifier accepts exactly one plaintext password.
type stubPasswordVerifier struct {
	accept string
}

var _ auth.PasswordVerifier = (*stubPasswordVerifier)(nil)

func (v *stubPasswordVerifier) Compare(hashedPassword, password string) error {
	if password == v.accept {
		return nil
	}
	return auth.ErrInvalidCredentials
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes: 60,
		OperatorID:           testOperatorID,
		OperatorPasswordHash: "$2a$10$placeholderplaceholderplaceholderplaceholderplacehol",
	}
}

func loginRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	return httptest.NewRequest(http.MethodPost, "/auth/login", &buf)
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("correct password yields a token", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(testAuthConfig(), &stubJWTService{
			generateTokenFn: func(ctx context.Context, operatorID int64) (string, error) {
				assert.Equal(t, testOperatorID, operatorID)
				return "signed-token", nil
			},
		}, &stubPasswordVerifier{accept: "correct horse"})

		rec := httptest.NewRecorder()
		h.Login(rec, loginRequest(t, LoginRequest{Password: "correct horse"}))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "signed-token", resp.Token)

		expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
	})

	t.Run("wrong password returns 401", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(testAuthConfig(), &stubJWTService{},
			&stubPasswordVerifier{accept: "correct horse"})

		rec := httptest.NewRecorder()
		h.Login(rec, loginRequest(t, LoginRequest{Password: "battery staple"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotContains(t, rec.Body.String(), "token")
	})

	t.Run("empty password fails validation", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(testAuthConfig(), &stubJWTService{},
			&stubPasswordVerifier{accept: ""})

		rec := httptest.NewRecorder()
		h.Login(rec, loginRequest(t, LoginRequest{}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(testAuthConfig(), &stubJWTService{},
			&stubPasswordVerifier{accept: "x"})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
		h.Login(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("token generation failure returns 500", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(testAuthConfig(), &stubJWTService{
			generateTokenFn: func(ctx context.Context, operatorID int64) (string, error) {
				return "", errors.New("signing key unavailable")
			},
		}, &stubPasswordVerifier{accept: "correct horse"})

		rec := httptest.NewRecorder()
		h.Login(rec, loginRequest(t, LoginRequest{Password: "correct horse"}))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
