package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// Repository is the persistence contract consumed by the approval service and
// the route selector. Single-entity lookups return (nil, nil) when no row
// matches; list operations return the page plus the unpaginated total.
//
// Methods take an optional tx so a service operation can bound all of its
// mutations inside one transaction; passing nil uses the base connection.
type Repository interface {
	// Transaction runs fn inside a single database transaction. The tx handle
	// passed to fn must be forwarded to every repository call made within it.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Requests
	FindRequestByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRequest, error)
	CreateRequest(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest) error
	UpdateRequest(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest) error
	DeleteRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	FindRequestsByRequester(ctx context.Context, tx *gorm.DB, requesterID uuid.UUID, filter model.ApprovalListFilter, offset, limit int) ([]model.ApprovalRequest, int64, error)
	FindPendingRequestsForApprover(ctx context.Context, tx *gorm.DB, approverID uuid.UUID, offset, limit int) ([]model.ApprovalRequest, int64, error)
	FindAllRequests(ctx context.Context, tx *gorm.DB, filter model.ApprovalListFilter, offset, limit int) ([]model.ApprovalRequest, int64, error)

	// Steps
	CreateSteps(ctx context.Context, tx *gorm.DB, steps []model.ApprovalStep) error
	FindStepsByRequestID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]model.ApprovalStep, error)
	FindPendingStepByRequestAndApprover(ctx context.Context, tx *gorm.DB, requestID, approverID uuid.UUID) (*model.ApprovalStep, error)
	// ClaimStep conditionally moves a pending step to a terminal status and
	// returns false when the step was no longer pending (lost race).
	ClaimStep(ctx context.Context, tx *gorm.DB, stepID uuid.UUID, to model.StepStatus, comment *string, actedAt time.Time) (bool, error)
	SkipPendingStepsByGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, stepGroup int) error
	SkipPendingStepsByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) error
	ResetStepsByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) error
	GetGroupApprovalStats(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, stepGroup int) (model.GroupApprovalStats, error)
	GetNextStepGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, afterGroup int) (*int, error)
	GetCurrentStepGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*int, error)

	// Routes
	FindRouteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRoute, error)
	FindRouteByAmount(ctx context.Context, tx *gorm.DB, amount int64, category *model.ApprovalCategory) (*model.ApprovalRoute, error)
	FindActiveRoutes(ctx context.Context, tx *gorm.DB) ([]model.ApprovalRoute, error)
	FindRouteSteps(ctx context.Context, tx *gorm.DB, routeID uuid.UUID) ([]model.ApprovalRouteStep, error)

	// Delegations
	FindActiveDelegation(ctx context.Context, tx *gorm.DB, delegatorID, delegateID uuid.UUID, amount int64, on time.Time) (*model.ApprovalDelegation, error)
	FindDelegationsForDelegate(ctx context.Context, tx *gorm.DB, delegateID uuid.UUID, on time.Time) ([]model.ApprovalDelegation, error)

	// Users and roles
	HasRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role model.UserRole) (bool, error)
	FindUserRoles(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.UserRole, error)
	FindUserByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.User, error)
	FindUsersByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]model.User, error)

	// Attachments
	FindAttachmentsByRequestID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]model.ApprovalAttachment, error)
	FindAttachmentByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalAttachment, error)
	CreateAttachment(ctx context.Context, tx *gorm.DB, attachment *model.ApprovalAttachment) error
}
