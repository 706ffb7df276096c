package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// MockRepository is a testify mock of the Repository contract. Transaction is
// implemented directly so service operations run their closures against a nil
// tx handle.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (m *MockRepository) FindRequestByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, tx, id)
	if request := args.Get(0); request != nil {
		return request.(*model.ApprovalRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CreateRequest(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest) error {
	args := m.Called(ctx, tx, request)
	return args.Error(0)
}

func (m *MockRepository) UpdateRequest(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest) error {
	args := m.Called(ctx, tx, request)
	return args.Error(0)
}

func (m *MockRepository) DeleteRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockRepository) FindRequestsByRequester(ctx context.Context, tx *gorm.DB, requesterID uuid.UUID, filter model.ApprovalListFilter, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	args := m.Called(ctx, tx, requesterID, filter, offset, limit)
	return args.Get(0).([]model.ApprovalRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) FindPendingRequestsForApprover(ctx context.Context, tx *gorm.DB, approverID uuid.UUID, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	args := m.Called(ctx, tx, approverID, offset, limit)
	return args.Get(0).([]model.ApprovalRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) FindAllRequests(ctx context.Context, tx *gorm.DB, filter model.ApprovalListFilter, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	args := m.Called(ctx, tx, filter, offset, limit)
	return args.Get(0).([]model.ApprovalRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) CreateSteps(ctx context.Context, tx *gorm.DB, steps []model.ApprovalStep) error {
	args := m.Called(ctx, tx, steps)
	return args.Error(0)
}

func (m *MockRepository) FindStepsByRequestID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]model.ApprovalStep, error) {
	args := m.Called(ctx, tx, requestID)
	return args.Get(0).([]model.ApprovalStep), args.Error(1)
}

func (m *MockRepository) FindPendingStepByRequestAndApprover(ctx context.Context, tx *gorm.DB, requestID, approverID uuid.UUID) (*model.ApprovalStep, error) {
	args := m.Called(ctx, tx, requestID, approverID)
	if step := args.Get(0); step != nil {
		return step.(*model.ApprovalStep), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ClaimStep(ctx context.Context, tx *gorm.DB, stepID uuid.UUID, to model.StepStatus, comment *string, actedAt time.Time) (bool, error) {
	args := m.Called(ctx, tx, stepID, to, comment, actedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SkipPendingStepsByGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, stepGroup int) error {
	args := m.Called(ctx, tx, requestID, stepGroup)
	return args.Error(0)
}

func (m *MockRepository) SkipPendingStepsByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) error {
	args := m.Called(ctx, tx, requestID)
	return args.Error(0)
}

func (m *MockRepository) ResetStepsByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) error {
	args := m.Called(ctx, tx, requestID)
	return args.Error(0)
}

func (m *MockRepository) GetGroupApprovalStats(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, stepGroup int) (model.GroupApprovalStats, error) {
	args := m.Called(ctx, tx, requestID, stepGroup)
	return args.Get(0).(model.GroupApprovalStats), args.Error(1)
}

func (m *MockRepository) GetNextStepGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, afterGroup int) (*int, error) {
	args := m.Called(ctx, tx, requestID, afterGroup)
	if group := args.Get(0); group != nil {
		return group.(*int), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetCurrentStepGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*int, error) {
	args := m.Called(ctx, tx, requestID)
	if group := args.Get(0); group != nil {
		return group.(*int), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindRouteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRoute, error) {
	args := m.Called(ctx, tx, id)
	if route := args.Get(0); route != nil {
		return route.(*model.ApprovalRoute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindRouteByAmount(ctx context.Context, tx *gorm.DB, amount int64, category *model.ApprovalCategory) (*model.ApprovalRoute, error) {
	args := m.Called(ctx, tx, amount, category)
	if route := args.Get(0); route != nil {
		return route.(*model.ApprovalRoute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindActiveRoutes(ctx context.Context, tx *gorm.DB) ([]model.ApprovalRoute, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).([]model.ApprovalRoute), args.Error(1)
}

func (m *MockRepository) FindRouteSteps(ctx context.Context, tx *gorm.DB, routeID uuid.UUID) ([]model.ApprovalRouteStep, error) {
	args := m.Called(ctx, tx, routeID)
	return args.Get(0).([]model.ApprovalRouteStep), args.Error(1)
}

func (m *MockRepository) FindActiveDelegation(ctx context.Context, tx *gorm.DB, delegatorID, delegateID uuid.UUID, amount int64, on time.Time) (*model.ApprovalDelegation, error) {
	args := m.Called(ctx, tx, delegatorID, delegateID, amount, on)
	if delegation := args.Get(0); delegation != nil {
		return delegation.(*model.ApprovalDelegation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindDelegationsForDelegate(ctx context.Context, tx *gorm.DB, delegateID uuid.UUID, on time.Time) ([]model.ApprovalDelegation, error) {
	args := m.Called(ctx, tx, delegateID, on)
	return args.Get(0).([]model.ApprovalDelegation), args.Error(1)
}

func (m *MockRepository) HasRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role model.UserRole) (bool, error) {
	args := m.Called(ctx, tx, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) FindUserRoles(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.UserRole, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).([]model.UserRole), args.Error(1)
}

func (m *MockRepository) FindUserByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, tx, userID)
	if user := args.Get(0); user != nil {
		return user.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindUsersByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]model.User, error) {
	args := m.Called(ctx, tx, userIDs)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockRepository) FindAttachmentsByRequestID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]model.ApprovalAttachment, error) {
	args := m.Called(ctx, tx, requestID)
	return args.Get(0).([]model.ApprovalAttachment), args.Error(1)
}

func (m *MockRepository) FindAttachmentByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalAttachment, error) {
	args := m.Called(ctx, tx, id)
	if attachment := args.Get(0); attachment != nil {
		return attachment.(*model.ApprovalAttachment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CreateAttachment(ctx context.Context, tx *gorm.DB, attachment *model.ApprovalAttachment) error {
	args := m.Called(ctx, tx, attachment)
	return args.Error(0)
}
