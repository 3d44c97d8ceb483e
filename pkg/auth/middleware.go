package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/pkg/utils"
)

type ContextKey string

const (
	UserIDKey ContextKey = "userID"
	RoleKey   ContextKey = "role"
)

// Middleware rejects requests without a valid bearer token and puts the caller into the context.
func Middleware(jwtService JWTServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondWithDomainError(w, domain.ErrUnauthorized, true)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				utils.RespondWithDomainError(w, domain.ErrUnauthorized, true)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must be mounted after Middleware.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(RoleKey).(domain.Role)
			if !slices.Contains(roles, role) {
				utils.RespondWithDomainError(w, domain.ErrUnauthorized, true)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Caller returns the authenticated user id and role.
func Caller(ctx context.Context) (int, domain.Role) {
	userID, _ := ctx.Value(UserIDKey).(int)
	role, _ := ctx.Value(RoleKey).(domain.Role)
	return userID, role
}
