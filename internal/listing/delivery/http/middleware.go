package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/auth"
	"github.com/tair/listing-ledger/pkg/logger"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated caller, or "" when the
// request carried no valid token
func PrincipalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(PrincipalKey).(domain.Principal)
	return p
}

// WithPrincipal returns a copy of ctx carrying principal
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// AuthMiddleware validates the bearer token and puts its subject in the
// request context as the caller principal
func AuthMiddleware(tokens *auth.Manager) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn(r.Context()).Msg("Missing authorization header")
				respondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Warn(r.Context()).Msg("Invalid authorization header format")
				respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			if tokens == nil {
				respondError(w, http.StatusUnauthorized, "Authentication is not configured")
				return
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Invalid token")
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			logger.Debug(r.Context()).
				Str("principal", claims.Principal()).
				Msg("Caller authenticated")

			ctx := WithPrincipal(r.Context(), domain.Principal(claims.Principal()))
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// Helper function for error responses
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
