package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	IdentityKey  contextKey = "identity"
)

// Auth validates the bearer token and stores the caller's user id. Tokens
// carry no grants; Identity resolves those.
func Auth(tokens auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			// 1. Check Authorization header
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			// 2. Check X-Auth-Token header
			if token == "" {
				token = r.Header.Get("X-Auth-Token")
			}

			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityResolver turns a user id into current grants.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*access.Identity, error)
}

// Identity resolves the authenticated user's grants from the store on every
// request. It must run after Auth.
func Identity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r.Context(), GetUserID(r.Context()))
			if err != nil {
				switch apperr.KindOf(err) {
				case apperr.NotFound:
					writeError(w, http.StatusUnauthorized, "Unauthorized")
				case apperr.Unavailable:
					w.Header().Set("Retry-After", "1")
					writeError(w, http.StatusServiceUnavailable, apperr.Message(err))
				default:
					writeError(w, http.StatusInternalServerError, "Failed to resolve identity")
				}
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper functions to extract values from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

// GetIdentity returns the resolved caller, or nil outside Identity.
func GetIdentity(ctx context.Context) *access.Identity {
	if id, ok := ctx.Value(IdentityKey).(*access.Identity); ok {
		return id
	}
	return nil
}

// RequireMember rejects callers that do not currently belong to an active
// organization membership.
func RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetIdentity(r.Context()).Active() {
			writeError(w, http.StatusForbidden, "Not an active organization member")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
