// backend/internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/pkg/respond"
)

type contextKey struct{}

// ClaimsFromContext returns the admin claims stored by JWTMiddleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

func JWTMiddleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, http.StatusUnauthorized, "authorization header required")
				return
			}

			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
				respond.Error(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims, err := service.Authenticate(r.Context(), bearerToken[1])
			if err != nil {
				apperr.Write(w, service.logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects admins whose role is not role. It must run after
// JWTMiddleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if claims.Role != role {
				respond.Error(w, http.StatusForbidden, "requires "+role+" admin")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMain is RequireRole(models.RoleMain) as a handler wrapper.
func RequireMain(h http.HandlerFunc) http.Handler {
	return RequireRole(models.RoleMain)(h)
}
