package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// AuthService resolves authenticated user ids into their identity and role
// assignments for request-scoped authorization checks.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService instance
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{
		db: db,
	}
}

// GetUserContext loads the user and their roles for the given id. Returns
// gorm.ErrRecordNotFound when no such user exists, which the middleware
// treats as an unauthorized request.
func (as *AuthService) GetUserContext(ctx context.Context, userID uuid.UUID) (*UserContext, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID is empty")
	}

	var user model.User
	result := as.db.WithContext(ctx).Where("id = ?", userID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Debug("user not found", "user_id", userID)
			return nil, result.Error
		}
		slog.Error("failed to fetch user from database",
			"user_id", userID,
			"error", result.Error,
		)
		return nil, fmt.Errorf("failed to fetch user: %w", result.Error)
	}

	var assignments []model.UserRoleAssignment
	if err := as.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user roles: %w", err)
	}

	roles := make([]model.UserRole, 0, len(assignments))
	for _, assignment := range assignments {
		roles = append(roles, assignment.Role)
	}
	if len(roles) == 0 {
		roles = append(roles, model.UserRoleEmployee)
	}

	return &UserContext{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  roles,
	}, nil
}
