package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/logging"
)

// Cookie names used for session token transport.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type sessionKey string

const userIDKey sessionKey = "userID"

// ContextWithUserID stores the authenticated user id on the context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// AccessValidator verifies an access token and resolves the account it was
// issued for.
type AccessValidator interface {
	ValidateAccess(token string) (string, error)
}

// RequireUser rejects requests that do not carry a valid access token and
// attaches the authenticated user id to the context otherwise. Validation
// failures are reported with a single generic message so callers cannot tell
// a bad signature from an expired token.
func RequireUser(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractAccessToken(r)
			if token == "" {
				rejectUnauthenticated(w, r, "authentication required")
				return
			}

			userID, err := validator.ValidateAccess(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				rejectUnauthenticated(w, r, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// Authenticate attaches the user identity when a valid access token is
// present and passes the request through anonymously otherwise. Used on
// public routes whose responses vary by viewer.
func Authenticate(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractAccessToken(r); token != "" {
				if userID, err := validator.ValidateAccess(token); err == nil {
					r = r.WithContext(ContextWithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	payload := map[string]any{
		"success":    false,
		"message":    message,
		"statusCode": http.StatusUnauthorized,
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(r.Context()).Error("encode unauthenticated response", "error", err)
	}
}
