package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantboard/signal-admin/config"
	"github.com/quantboard/signal-admin/internal/api"
)

// AuthHandler exposes the auth service over HTTP and owns the session
// cookie contract.
type AuthHandler struct {
	authService AuthService
	sessionCfg  config.SessionConfig
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, sessionCfg config.SessionConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessionCfg:  sessionCfg,
		logger:      logger,
	}
}

func (h *AuthHandler) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     h.sessionCfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.sessionCfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Register godoc
// @Summary Register a new admin user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} MessageResponse
// @Router /register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrEmailTaken):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, ErrUsernameTaken):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Username already taken")
		default:
			h.logger.ErrorContext(r.Context(), "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, AuthResponse{
		Message: "Registration successful",
		User:    user,
	})
}

// Login godoc
// @Summary Authenticate and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} MessageResponse
// @Failure 401 {object} MessageResponse
// @Router /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, sessionID, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
		default:
			h.logger.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	http.SetCookie(w, h.sessionCookie(sessionID, h.sessionCfg.TTL))
	api.WriteJSONResponse(w, r, http.StatusOK, AuthResponse{
		Message: "Login successful",
		User:    user,
	})
}

// Logout godoc
// @Summary Destroy the current session
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 500 {object} MessageResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.sessionCfg.CookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.ErrorContext(r.Context(), "Logout failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Logout failed")
			return
		}
	}

	// Clear the cookie regardless of whether a session existed.
	http.SetCookie(w, h.sessionCookie("", -time.Second))
	api.WriteJSONResponse(w, r, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Me godoc
// @Summary Return the authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} MessageResponse
// @Router /me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		// Only reachable if the route was mounted without Authenticate.
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Not authenticated")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, UserResponse{User: user})
}
