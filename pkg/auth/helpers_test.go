package auth

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/partshub/internal/domain"
)

func contextWithCaller(r *http.Request, userID int, role domain.Role) context.Context {
	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}
