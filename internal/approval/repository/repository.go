package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// ApprovalRepository is the gorm-backed implementation of the approval
// persistence contract.
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Transaction runs fn inside a single database transaction.
func (r *ApprovalRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// session returns the transaction handle when one is in flight, otherwise the
// base connection.
func (r *ApprovalRepository) session(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// ------------------------------------------------------------------
// Requests
// ------------------------------------------------------------------

func (r *ApprovalRepository) FindRequestByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRequest, error) {
	var request model.ApprovalRequest
	result := r.session(ctx, tx).First(&request, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve approval request: %w", result.Error)
	}
	return &request, nil
}

func (r *ApprovalRepository) CreateRequest(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest) error {
	if err := r.session(ctx, tx).Create(request).Error; err != nil {
		return fmt.Errorf("failed to create approval request: %w", err)
	}
	return nil
}

func (r *ApprovalRepository) UpdateRequest(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest) error {
	if err := r.session(ctx, tx).Save(request).Error; err != nil {
		return fmt.Errorf("failed to update approval request %s: %w", request.ID, err)
	}
	return nil
}

// DeleteRequest hard-deletes a request together with its steps and attachment
// records. Attachment binaries are the storage layer's concern.
func (r *ApprovalRepository) DeleteRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	db := r.session(ctx, tx)
	if err := db.Where("request_id = ?", id).Delete(&model.ApprovalStep{}).Error; err != nil {
		return fmt.Errorf("failed to delete approval steps for request %s: %w", id, err)
	}
	if err := db.Where("request_id = ?", id).Delete(&model.ApprovalAttachment{}).Error; err != nil {
		return fmt.Errorf("failed to delete attachments for request %s: %w", id, err)
	}
	if err := db.Delete(&model.ApprovalRequest{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete approval request %s: %w", id, err)
	}
	return nil
}

func (r *ApprovalRepository) FindRequestsByRequester(ctx context.Context, tx *gorm.DB, requesterID uuid.UUID, filter model.ApprovalListFilter, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	query := r.session(ctx, tx).Model(&model.ApprovalRequest{}).Where("requester_id = ?", requesterID)
	query = applyListFilter(query, filter)
	return listRequests(query, offset, limit, "created_at DESC")
}

// FindPendingRequestsForApprover returns pending requests holding a pending
// step assigned to the approver, oldest submission first.
func (r *ApprovalRepository) FindPendingRequestsForApprover(ctx context.Context, tx *gorm.DB, approverID uuid.UUID, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	query := r.session(ctx, tx).Model(&model.ApprovalRequest{}).
		Where("status = ?", model.ApprovalStatusPending).
		Where("id IN (?)", r.session(ctx, tx).Model(&model.ApprovalStep{}).
			Select("request_id").
			Where("approver_id = ? AND status = ?", approverID, model.StepStatusPending))
	return listRequests(query, offset, limit, "submitted_at ASC")
}

func (r *ApprovalRepository) FindAllRequests(ctx context.Context, tx *gorm.DB, filter model.ApprovalListFilter, offset, limit int) ([]model.ApprovalRequest, int64, error) {
	query := r.session(ctx, tx).Model(&model.ApprovalRequest{})
	query = applyListFilter(query, filter)
	return listRequests(query, offset, limit, "created_at DESC")
}

func applyListFilter(query *gorm.DB, filter model.ApprovalListFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	return query
}

func listRequests(query *gorm.DB, offset, limit int, order string) ([]model.ApprovalRequest, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count approval requests: %w", err)
	}
	var requests []model.ApprovalRequest
	if err := query.Order(order).Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list approval requests: %w", err)
	}
	return requests, total, nil
}

// ------------------------------------------------------------------
// Steps
// ------------------------------------------------------------------

func (r *ApprovalRepository) CreateSteps(ctx context.Context, tx *gorm.DB, steps []model.ApprovalStep) error {
	if len(steps) == 0 {
		return nil
	}
	if err := r.session(ctx, tx).Create(&steps).Error; err != nil {
		return fmt.Errorf("failed to create approval steps: %w", err)
	}
	return nil
}

func (r *ApprovalRepository) FindStepsByRequestID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]model.ApprovalStep, error) {
	var steps []model.ApprovalStep
	result := r.session(ctx, tx).
		Where("request_id = ?", requestID).
		Order("step_group ASC, step_order ASC").
		Find(&steps)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve approval steps: %w", result.Error)
	}
	return steps, nil
}

func (r *ApprovalRepository) FindPendingStepByRequestAndApprover(ctx context.Context, tx *gorm.DB, requestID, approverID uuid.UUID) (*model.ApprovalStep, error) {
	var step model.ApprovalStep
	result := r.session(ctx, tx).
		Where("request_id = ? AND approver_id = ? AND status = ?", requestID, approverID, model.StepStatusPending).
		Order("step_group ASC, step_order ASC").
		First(&step)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve approval step: %w", result.Error)
	}
	return &step, nil
}

// ClaimStep moves a pending step to a terminal status with a conditional
// update. Returns false when the step was no longer pending, which means a
// concurrent action already claimed it.
func (r *ApprovalRepository) ClaimStep(ctx context.Context, tx *gorm.DB, stepID uuid.UUID, to model.StepStatus, comment *string, actedAt time.Time) (bool, error) {
	result := r.session(ctx, tx).Model(&model.ApprovalStep{}).
		Where("id = ? AND status = ?", stepID, model.StepStatusPending).
		Updates(map[string]any{
			"status":     to,
			"comment":    comment,
			"acted_at":   actedAt,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update approval step %s: %w", stepID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *ApprovalRepository) SkipPendingStepsByGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, stepGroup int) error {
	result := r.session(ctx, tx).Model(&model.ApprovalStep{}).
		Where("request_id = ? AND step_group = ? AND status = ?", requestID, stepGroup, model.StepStatusPending).
		Updates(map[string]any{"status": model.StepStatusSkipped, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to skip steps in group %d: %w", stepGroup, result.Error)
	}
	return nil
}

func (r *ApprovalRepository) SkipPendingStepsByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) error {
	result := r.session(ctx, tx).Model(&model.ApprovalStep{}).
		Where("request_id = ? AND status = ?", requestID, model.StepStatusPending).
		Updates(map[string]any{"status": model.StepStatusSkipped, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to skip remaining steps: %w", result.Error)
	}
	return nil
}

// ResetStepsByRequest puts every step of the request back to pending,
// clearing comments and action timestamps. Used when a request is returned.
func (r *ApprovalRepository) ResetStepsByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) error {
	result := r.session(ctx, tx).Model(&model.ApprovalStep{}).
		Where("request_id = ?", requestID).
		Updates(map[string]any{
			"status":     model.StepStatusPending,
			"comment":    nil,
			"acted_at":   nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reset approval steps: %w", result.Error)
	}
	return nil
}

func (r *ApprovalRepository) GetGroupApprovalStats(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, stepGroup int) (model.GroupApprovalStats, error) {
	var steps []model.ApprovalStep
	result := r.session(ctx, tx).
		Select("status", "required_count").
		Where("request_id = ? AND step_group = ?", requestID, stepGroup).
		Find(&steps)
	if result.Error != nil {
		return model.GroupApprovalStats{}, fmt.Errorf("failed to load group stats: %w", result.Error)
	}

	stats := model.GroupApprovalStats{RequiredCount: 1}
	if len(steps) > 0 {
		stats.RequiredCount = steps[0].RequiredCount
	}
	for _, step := range steps {
		switch step.Status {
		case model.StepStatusApproved:
			stats.ApprovedCount++
		case model.StepStatusPending:
			stats.PendingCount++
		}
	}
	return stats, nil
}

func (r *ApprovalRepository) GetNextStepGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, afterGroup int) (*int, error) {
	return r.firstStepGroup(ctx, tx, func(q *gorm.DB) *gorm.DB {
		return q.Where("request_id = ? AND step_group > ?", requestID, afterGroup)
	})
}

// GetCurrentStepGroup returns the lowest step group that still has a pending
// step, or nil when no step is pending.
func (r *ApprovalRepository) GetCurrentStepGroup(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*int, error) {
	return r.firstStepGroup(ctx, tx, func(q *gorm.DB) *gorm.DB {
		return q.Where("request_id = ? AND status = ?", requestID, model.StepStatusPending)
	})
}

func (r *ApprovalRepository) firstStepGroup(ctx context.Context, tx *gorm.DB, where func(*gorm.DB) *gorm.DB) (*int, error) {
	var steps []model.ApprovalStep
	query := where(r.session(ctx, tx).Model(&model.ApprovalStep{}).Select("step_group"))
	if err := query.Order("step_group ASC").Limit(1).Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("failed to query step groups: %w", err)
	}
	if len(steps) == 0 {
		return nil, nil
	}
	group := steps[0].StepGroup
	return &group, nil
}

// ------------------------------------------------------------------
// Routes
// ------------------------------------------------------------------

func (r *ApprovalRepository) FindRouteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRoute, error) {
	var route model.ApprovalRoute
	result := r.session(ctx, tx).First(&route, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve approval route: %w", result.Error)
	}
	return &route, nil
}

// FindRouteByAmount returns the active route whose closed interval contains
// amount. A nil category matches only category-less routes; a non-nil category
// matches only routes of that category. The category fallback is the route
// selector's concern.
func (r *ApprovalRepository) FindRouteByAmount(ctx context.Context, tx *gorm.DB, amount int64, category *model.ApprovalCategory) (*model.ApprovalRoute, error) {
	query := r.session(ctx, tx).Model(&model.ApprovalRoute{}).
		Where("is_active = ?", true).
		Where("min_amount <= ?", amount).
		Where("max_amount IS NULL OR max_amount >= ?", amount)
	if category != nil {
		query = query.Where("category = ?", *category)
	} else {
		query = query.Where("category IS NULL")
	}

	var routes []model.ApprovalRoute
	if err := query.Order("min_amount DESC").Limit(1).Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("failed to query approval routes: %w", err)
	}
	if len(routes) == 0 {
		return nil, nil
	}
	return &routes[0], nil
}

func (r *ApprovalRepository) FindActiveRoutes(ctx context.Context, tx *gorm.DB) ([]model.ApprovalRoute, error) {
	var routes []model.ApprovalRoute
	result := r.session(ctx, tx).
		Where("is_active = ?", true).
		Order("category ASC NULLS FIRST, min_amount ASC").
		Find(&routes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list approval routes: %w", result.Error)
	}
	return routes, nil
}

func (r *ApprovalRepository) FindRouteSteps(ctx context.Context, tx *gorm.DB, routeID uuid.UUID) ([]model.ApprovalRouteStep, error) {
	var steps []model.ApprovalRouteStep
	result := r.session(ctx, tx).
		Where("route_id = ?", routeID).
		Order("step_group ASC, step_order ASC").
		Find(&steps)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve route steps: %w", result.Error)
	}
	return steps, nil
}

// ------------------------------------------------------------------
// Delegations
// ------------------------------------------------------------------

func (r *ApprovalRepository) FindActiveDelegation(ctx context.Context, tx *gorm.DB, delegatorID, delegateID uuid.UUID, amount int64, on time.Time) (*model.ApprovalDelegation, error) {
	day := on.UTC().Format("2006-01-02")
	var delegation model.ApprovalDelegation
	result := r.session(ctx, tx).
		Where("delegator_id = ? AND delegate_id = ? AND is_active = ?", delegatorID, delegateID, true).
		Where("start_date <= ? AND end_date >= ?", day, day).
		Where("max_amount IS NULL OR max_amount >= ?", amount).
		First(&delegation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve delegation: %w", result.Error)
	}
	return &delegation, nil
}

func (r *ApprovalRepository) FindDelegationsForDelegate(ctx context.Context, tx *gorm.DB, delegateID uuid.UUID, on time.Time) ([]model.ApprovalDelegation, error) {
	day := on.UTC().Format("2006-01-02")
	var delegations []model.ApprovalDelegation
	result := r.session(ctx, tx).
		Where("delegate_id = ? AND is_active = ?", delegateID, true).
		Where("start_date <= ? AND end_date >= ?", day, day).
		Find(&delegations)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list delegations: %w", result.Error)
	}
	return delegations, nil
}

// ------------------------------------------------------------------
// Users and roles
// ------------------------------------------------------------------

func (r *ApprovalRepository) HasRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID, role model.UserRole) (bool, error) {
	var count int64
	result := r.session(ctx, tx).Model(&model.UserRoleAssignment{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check role: %w", result.Error)
	}
	return count > 0, nil
}

func (r *ApprovalRepository) FindUserRoles(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.UserRole, error) {
	var assignments []model.UserRoleAssignment
	result := r.session(ctx, tx).
		Where("user_id = ?", userID).
		Find(&assignments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", result.Error)
	}
	roles := make([]model.UserRole, len(assignments))
	for i, assignment := range assignments {
		roles[i] = assignment.Role
	}
	return roles, nil
}

func (r *ApprovalRepository) FindUserByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.User, error) {
	var user model.User
	result := r.session(ctx, tx).First(&user, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", result.Error)
	}
	return &user, nil
}

func (r *ApprovalRepository) FindUsersByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]model.User, error) {
	if len(userIDs) == 0 {
		return []model.User{}, nil
	}
	var users []model.User
	result := r.session(ctx, tx).Where("id IN ?", userIDs).Find(&users)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", result.Error)
	}
	return users, nil
}

// ------------------------------------------------------------------
// Attachments
// ------------------------------------------------------------------

func (r *ApprovalRepository) FindAttachmentsByRequestID(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]model.ApprovalAttachment, error) {
	var attachments []model.ApprovalAttachment
	result := r.session(ctx, tx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&attachments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", result.Error)
	}
	return attachments, nil
}

func (r *ApprovalRepository) FindAttachmentByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalAttachment, error) {
	var attachment model.ApprovalAttachment
	result := r.session(ctx, tx).First(&attachment, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve attachment: %w", result.Error)
	}
	return &attachment, nil
}

func (r *ApprovalRepository) CreateAttachment(ctx context.Context, tx *gorm.DB, attachment *model.ApprovalAttachment) error {
	if err := r.session(ctx, tx).Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}
