package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quantboard/signal-admin/internal/api"
)

type contextKey string

const userKey contextKey = "authUser"

// Authenticate resolves the session cookie to a user and passes the identity
// explicitly through the request context. Handlers behind it never touch the
// cookie themselves. Every failure mode (no cookie, unknown or expired
// session, deleted user) answers with the same 401.
func Authenticate(authService AuthService, cookieName string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Not authenticated")
				return
			}

			user, err := authService.CurrentUser(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					logger.ErrorContext(r.Context(), "Session resolution failed", slog.Any("error", err))
					api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get user")
					return
				}
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the identity attached by Authenticate.
func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(userKey).(*AuthUser)
	return user, ok
}
