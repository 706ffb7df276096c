package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserContextKey is the key for storing UserContext in request context
	UserContextKey ContextKey = "userContext"
)

// UserContext is the authenticated caller injected into the request context
// by the auth middleware. Token verification happens upstream; the middleware
// receives an opaque bearer token carrying the user id.
type UserContext struct {
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email"`
	Roles  []model.UserRole `json:"roles"`
}

// HasRole reports whether the user holds the given role.
func (uc *UserContext) HasRole(role model.UserRole) bool {
	if uc == nil {
		return false
	}
	for _, r := range uc.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetUserContext extracts the UserContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
//
// Usage in handlers:
//
//	userCtx := auth.GetUserContext(r.Context())
//	if userCtx == nil {
//	    // Handle unauthorized request
//	}
//	userID := userCtx.UserID
func GetUserContext(ctx context.Context) *UserContext {
	userCtx, ok := ctx.Value(UserContextKey).(*UserContext)
	if !ok {
		return nil
	}
	return userCtx
}
