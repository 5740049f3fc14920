package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/service"
)

// ClaimsKey is the context key for verified session claims
const ClaimsKey contextKey = "claims"

// RoleLookup returns the role currently stored for a user
type RoleLookup func(ctx context.Context, userID int64) (model.Role, error)

// Auth validates the bearer session token. Pre-auth tokens are rejected.
func (m *Middleware) Auth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, errorBody{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
				return
			}

			claims, err := tokens.VerifySession(tokenString)
			if err != nil {
				m.log.Debug().Err(err).Msg("token validation failed")
				writeError(w, http.StatusUnauthorized, errorBody{
					Error:   "invalid_token",
					Message: "The session token is invalid or expired",
				})
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request only when the user's stored role satisfies
// required. The role in the token is not trusted for this check.
func (m *Middleware) RequireRole(required model.Role, lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, errorBody{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
				return
			}

			role, err := lookup(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, errorBody{
						Error:   "unauthorized",
						Message: "Authentication required",
					})
					return
				}
				m.log.WithUserID(claims.UserID).Error().Err(err).Msg("failed to look up role")
				writeError(w, http.StatusInternalServerError, errorBody{
					Error:   "internal_error",
					Message: "An unexpected error occurred",
				})
				return
			}

			current := *claims
			current.Role = role
			if err := auth.Authorize(&current, required); err != nil {
				writeError(w, http.StatusForbidden, errorBody{
					Error:   "forbidden",
					Message: "You do not have permission to access this resource",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFrom returns the session claims stored by Auth, or nil
func ClaimsFrom(ctx context.Context) *auth.TokenClaims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.TokenClaims)
	return claims
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
