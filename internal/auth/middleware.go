package auth

import (
	"context"
	"net/http"

	"ms-backoffice/internal/models"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Middleware verifies the Bearer token on every request and stores the
// caller's claims in the request context.
func Middleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := issuer.VerifyToken(tokenString)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireML rejects any caller whose token does not belong to the reserved
// ML principal. The ingestion endpoints are not meant for human users.
func RequireML(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) != models.MLUserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireHR rejects callers without the HR role.
func RequireHR(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != models.RoleHR {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the verified claims stored by Middleware, if any.
func FromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) int64 {
	if claims := FromContext(ctx); claims != nil {
		return claims.UserID
	}
	return 0
}

func Role(ctx context.Context) models.Role {
	if claims := FromContext(ctx); claims != nil {
		return claims.Role
	}
	return ""
}
