package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/taskboss-api/internal/api/shared"
	"github.com/phrazzld/taskboss-api/internal/config"
	"github.com/phrazzld/taskboss-api/internal/service/auth"
)

// AuthHandler handles the single-operator login endpoint. There is no
// registration: the operator's bcrypt password hash comes from
// configuration, and a successful login yields a short-lived JWT.
type AuthHandler struct {
	authConfig       config.AuthConfig
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	validator        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	authConfig config.AuthConfig,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
) *AuthHandler {
	return &AuthHandler{
		authConfig:       authConfig,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		validator:        validator.New(),
	}
}

// Login handles the /auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	if err := h.passwordVerifier.Compare(h.authConfig.OperatorPasswordHash, req.Password); err != nil {
		respondError(w, r, http.StatusUnauthorized, "Invalid credentials", auth.ErrInvalidCredentials)
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), h.authConfig.OperatorID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "Failed to generate authentication token", err)
		return
	}

	expiresAt := time.Now().
		Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute).
		UTC().
		Format(time.RFC3339)

	respondJSON(w, r, http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
