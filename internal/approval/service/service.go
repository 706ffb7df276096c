package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/audit"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/utils"
)

// Actor identifies the authenticated caller of a workflow operation together
// with the client metadata recorded in the audit trail.
type Actor struct {
	ID        uuid.UUID
	IPAddress *string
	UserAgent *string
}

// ApprovalService is the ringi workflow state machine. Every state-changing
// operation runs inside one transaction that includes its audit log write, so
// an operation either fully succeeds or leaves no visible effect.
//
// Core business rules:
//   - requesters cannot approve their own requests
//   - only draft requests can be edited or deleted
//   - the audit trail is append-only
//   - routes are selected by amount (and category)
//   - a parallel group completes at required_count approvals
//   - delegate approval needs an active, amount-covering delegation
//   - a returned request goes back to draft; amount changes reselect the route
type ApprovalService struct {
	repo     Repository
	selector *RouteSelector
	audit    *audit.Logger
}

func NewApprovalService(repo Repository, selector *RouteSelector, auditLogger *audit.Logger) *ApprovalService {
	return &ApprovalService{
		repo:     repo,
		selector: selector,
		audit:    auditLogger,
	}
}

// ------------------------------------------------------------------
// Create
// ------------------------------------------------------------------

// CreateApproval resolves the approval route for the amount and persists a new
// draft request. No steps exist until submission.
func (s *ApprovalService) CreateApproval(ctx context.Context, input *model.CreateApprovalInput, actor Actor) (*model.ApprovalResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var request *model.ApprovalRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		route, err := s.selector.SelectRoute(ctx, tx, input.Amount, input.Category)
		if err != nil {
			return err
		}

		request = &model.ApprovalRequest{
			Title:       input.Title,
			Description: input.Description,
			Amount:      input.Amount,
			Category:    input.Category,
			RequesterID: actor.ID,
			RouteID:     route.ID,
			Status:      model.ApprovalStatusDraft,
		}
		if err := s.repo.CreateRequest(ctx, tx, request); err != nil {
			return apperror.Internal(err)
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionCreate, actor, map[string]any{
			"title":  input.Title,
			"amount": input.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "approval request created", "request_id", request.ID, "requester_id", actor.ID, "amount", input.Amount)
	return s.buildApprovalResponse(ctx, request)
}

// ------------------------------------------------------------------
// Update (draft only)
// ------------------------------------------------------------------

// UpdateApproval patches a draft request owned by the actor. When the amount
// changes and leaves the current route's band, the route is reselected with
// the patch category when one is supplied, else the stored category.
func (s *ApprovalService) UpdateApproval(ctx context.Context, id uuid.UUID, input *model.UpdateApprovalInput, actor Actor) (*model.ApprovalResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var request *model.ApprovalRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if request.RequesterID != actor.ID {
			return apperror.Forbidden("自分の稟議のみ編集できます")
		}
		if request.Status != model.ApprovalStatusDraft {
			return apperror.Conflict("下書き状態の稟議のみ編集できます")
		}

		changes := make(map[string]any)
		if input.Title != nil {
			request.Title = *input.Title
			changes["title"] = *input.Title
		}
		if input.Description != nil {
			request.Description = input.Description
			changes["description"] = *input.Description
		}
		if input.Category != nil {
			request.Category = input.Category
			changes["category"] = *input.Category
		}
		if input.Amount != nil && *input.Amount != request.Amount {
			category := input.Category
			if category == nil {
				category = request.Category
			}
			needs, err := s.selector.NeedsRouteReselection(ctx, tx, request.RouteID, *input.Amount, category)
			if err != nil {
				return err
			}
			if needs {
				route, err := s.selector.SelectRoute(ctx, tx, *input.Amount, category)
				if err != nil {
					return err
				}
				request.RouteID = route.ID
				changes["route_id"] = route.ID
			}
			request.Amount = *input.Amount
			changes["amount"] = *input.Amount
		}

		if err := s.repo.UpdateRequest(ctx, tx, request); err != nil {
			return apperror.Internal(err)
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionUpdate, actor, map[string]any{"changes": changes})
	})
	if err != nil {
		return nil, err
	}

	return s.buildApprovalResponse(ctx, request)
}

// ------------------------------------------------------------------
// Delete (draft only)
// ------------------------------------------------------------------

// DeleteApproval hard-deletes a draft request owned by the actor, cascading
// to its steps and attachment records.
func (s *ApprovalService) DeleteApproval(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		request, err := s.loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if request.RequesterID != actor.ID {
			return apperror.Forbidden("自分の稟議のみ削除できます")
		}
		if request.Status != model.ApprovalStatusDraft {
			return apperror.Conflict("下書き状態の稟議のみ削除できます")
		}

		if err := s.writeAudit(ctx, tx, request.ID, model.AuditActionDelete, actor, map[string]any{"title": request.Title}); err != nil {
			return err
		}

		if err := s.repo.DeleteRequest(ctx, tx, id); err != nil {
			return apperror.Internal(err)
		}
		return nil
	})
}

// ------------------------------------------------------------------
// Submit
// ------------------------------------------------------------------

// SubmitApproval moves a draft request to pending: the route is re-resolved
// for the current amount, its configured approver slots are instantiated as
// approval steps in one batch, and submitted_at is stamped.
func (s *ApprovalService) SubmitApproval(ctx context.Context, id uuid.UUID, actor Actor) (*model.ActionResponse, error) {
	var request *model.ApprovalRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if request.RequesterID != actor.ID {
			return apperror.Forbidden("自分の稟議のみ申請できます")
		}
		if request.Status != model.ApprovalStatusDraft {
			return apperror.Conflict("下書き状態の稟議のみ申請できます")
		}

		route, err := s.selector.SelectRoute(ctx, tx, request.Amount, request.Category)
		if err != nil {
			return err
		}
		routeSteps, err := s.repo.FindRouteSteps(ctx, tx, route.ID)
		if err != nil {
			return apperror.Internal(err)
		}
		if len(routeSteps) == 0 {
			return apperror.Conflict("承認ルートに承認者が設定されていません")
		}

		steps := make([]model.ApprovalStep, len(routeSteps))
		for i, routeStep := range routeSteps {
			steps[i] = model.ApprovalStep{
				RequestID:     request.ID,
				ApproverID:    routeStep.ApproverID,
				ApproverRole:  routeStep.ApproverRole,
				StepOrder:     routeStep.StepOrder,
				StepGroup:     routeStep.StepGroup,
				RequiredCount: routeStep.RequiredCount,
				Status:        model.StepStatusPending,
			}
		}
		if err := s.repo.CreateSteps(ctx, tx, steps); err != nil {
			return apperror.Internal(err)
		}

		now := time.Now().UTC()
		request.RouteID = route.ID
		request.Status = model.ApprovalStatusPending
		request.SubmittedAt = &now
		if err := s.repo.UpdateRequest(ctx, tx, request); err != nil {
			return apperror.Internal(err)
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionSubmit, actor, map[string]any{"route_name": route.Name})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "approval request submitted", "request_id", request.ID, "route_id", request.RouteID)
	return s.buildActionResponse(ctx, request, true)
}

// ------------------------------------------------------------------
// Approve
// ------------------------------------------------------------------

// ApproveStep records the actor's approval on their pending step. When the
// step's group reaches its required count, remaining pending steps of the
// group are skipped and either the next group opens or the request completes.
func (s *ApprovalService) ApproveStep(ctx context.Context, id uuid.UUID, input *model.ApproveInput, actor Actor) (*model.ActionResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var request *model.ApprovalRequest
	var nextGroup *int
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.loadPendingRequest(ctx, tx, id, actor.ID)
		if err != nil {
			return err
		}

		step, err := s.locateApproverStep(ctx, tx, request, actor.ID)
		if err != nil {
			return err
		}

		nextGroup, err = s.approveLocatedStep(ctx, tx, request, step, input.Comment)
		if err != nil {
			return err
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionApprove, actor, map[string]any{
			"comment":    input.Comment,
			"step_group": step.StepGroup,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.buildActionResponse(ctx, request, nextGroup != nil)
}

// ApproveByDelegate records an approval on the delegator's pending step,
// acting under an active delegation covering the request amount. The audit
// entry is attributed to the delegate with the delegator noted in details.
func (s *ApprovalService) ApproveByDelegate(ctx context.Context, id uuid.UUID, input *model.ApproveInput, actor Actor, delegatorID uuid.UUID) (*model.ActionResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var request *model.ApprovalRequest
	var nextGroup *int
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.loadPendingRequest(ctx, tx, id, actor.ID)
		if err != nil {
			return err
		}

		delegation, err := s.repo.FindActiveDelegation(ctx, tx, delegatorID, actor.ID, request.Amount, time.Now().UTC())
		if err != nil {
			return apperror.Internal(err)
		}
		if delegation == nil {
			return apperror.Forbidden("有効な代理承認権限がありません（期間外または金額超過）")
		}

		step, err := s.repo.FindPendingStepByRequestAndApprover(ctx, tx, request.ID, delegatorID)
		if err != nil {
			return apperror.Internal(err)
		}
		if step == nil {
			return apperror.Forbidden("委任者に承認権限がありません")
		}

		nextGroup, err = s.approveLocatedStep(ctx, tx, request, step, input.Comment)
		if err != nil {
			return err
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionApprove, actor, map[string]any{
			"comment":        input.Comment,
			"step_group":     step.StepGroup,
			"delegated_from": delegatorID,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.buildActionResponse(ctx, request, nextGroup != nil)
}

// ------------------------------------------------------------------
// Reject
// ------------------------------------------------------------------

// RejectStep rejects the request: the actor's step turns rejected, the
// request terminates as rejected and every other non-terminal step is skipped.
func (s *ApprovalService) RejectStep(ctx context.Context, id uuid.UUID, input *model.RejectInput, actor Actor) (*model.ActionResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var request *model.ApprovalRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.loadPendingRequest(ctx, tx, id, actor.ID)
		if err != nil {
			return err
		}

		step, err := s.locateApproverStep(ctx, tx, request, actor.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		claimed, err := s.repo.ClaimStep(ctx, tx, step.ID, model.StepStatusRejected, &input.Comment, now)
		if err != nil {
			return apperror.Internal(err)
		}
		if !claimed {
			return apperror.Conflict("この承認ステップは既に処理されています")
		}

		request.Status = model.ApprovalStatusRejected
		request.CompletedAt = &now
		if err := s.repo.UpdateRequest(ctx, tx, request); err != nil {
			return apperror.Internal(err)
		}

		if err := s.repo.SkipPendingStepsByRequest(ctx, tx, request.ID); err != nil {
			return apperror.Internal(err)
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionReject, actor, map[string]any{
			"comment":    input.Comment,
			"step_group": step.StepGroup,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "approval request rejected", "request_id", request.ID, "actor_id", actor.ID)
	return s.buildActionResponse(ctx, request, false)
}

// ------------------------------------------------------------------
// Return
// ------------------------------------------------------------------

// ReturnStep sends the request back to its requester: status returns to
// draft, submitted_at is cleared and every step resets to pending so a
// resubmission starts a clean run.
func (s *ApprovalService) ReturnStep(ctx context.Context, id uuid.UUID, input *model.ReturnInput, actor Actor) (*model.ActionResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var request *model.ApprovalRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.loadPendingRequest(ctx, tx, id, actor.ID)
		if err != nil {
			return err
		}

		step, err := s.locateApproverStep(ctx, tx, request, actor.ID)
		if err != nil {
			return err
		}

		request.Status = model.ApprovalStatusDraft
		request.SubmittedAt = nil
		if err := s.repo.UpdateRequest(ctx, tx, request); err != nil {
			return apperror.Internal(err)
		}

		if err := s.repo.ResetStepsByRequest(ctx, tx, request.ID); err != nil {
			return apperror.Internal(err)
		}

		return s.writeAudit(ctx, tx, request.ID, model.AuditActionReturn, actor, map[string]any{
			"comment":    input.Comment,
			"step_group": step.StepGroup,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "approval request returned to requester", "request_id", request.ID, "actor_id", actor.ID)
	return s.buildActionResponse(ctx, request, false)
}

// ------------------------------------------------------------------
// Reads
// ------------------------------------------------------------------

// GetApprovalByID returns the full detail of one request. Visible to the
// requester, to auditor/admin users and to approvers holding a pending step.
func (s *ApprovalService) GetApprovalByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*model.ApprovalResponse, error) {
	request, err := s.loadRequest(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	canView, err := s.canViewApproval(ctx, request, userID)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, apperror.Forbidden("この稟議を閲覧する権限がありません")
	}

	return s.buildApprovalResponse(ctx, request)
}

// GetApprovalsByRequester lists the user's own requests.
func (s *ApprovalService) GetApprovalsByRequester(ctx context.Context, userID uuid.UUID, filter model.ApprovalListFilter, pagination model.Pagination) (*model.PaginatedResponse[model.ApprovalListItem], error) {
	return s.listApprovals(ctx, pagination, func(offset, limit int) ([]model.ApprovalRequest, int64, error) {
		return s.repo.FindRequestsByRequester(ctx, nil, userID, filter, offset, limit)
	})
}

// GetPendingApprovals lists requests waiting on the approver, oldest first.
func (s *ApprovalService) GetPendingApprovals(ctx context.Context, approverID uuid.UUID, pagination model.Pagination) (*model.PaginatedResponse[model.ApprovalListItem], error) {
	return s.listApprovals(ctx, pagination, func(offset, limit int) ([]model.ApprovalRequest, int64, error) {
		return s.repo.FindPendingRequestsForApprover(ctx, nil, approverID, offset, limit)
	})
}

// GetAllApprovals lists every request; restricted to auditor and admin users.
func (s *ApprovalService) GetAllApprovals(ctx context.Context, userID uuid.UUID, filter model.ApprovalListFilter, pagination model.Pagination) (*model.PaginatedResponse[model.ApprovalListItem], error) {
	allowed, err := s.hasAnyRole(ctx, userID, model.UserRoleAuditor, model.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.Forbidden("監査担当または管理者のみ全稟議を閲覧できます")
	}

	return s.listApprovals(ctx, pagination, func(offset, limit int) ([]model.ApprovalRequest, int64, error) {
		return s.repo.FindAllRequests(ctx, nil, filter, offset, limit)
	})
}

// ------------------------------------------------------------------
// Helpers
// ------------------------------------------------------------------

func (s *ApprovalService) loadRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ApprovalRequest, error) {
	request, err := s.repo.FindRequestByID(ctx, tx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if request == nil {
		return nil, apperror.NotFound("稟議が見つかりません")
	}
	return request, nil
}

// loadPendingRequest loads the request and applies the guards shared by all
// approver actions: the request must be pending and the actor must not be its
// requester (separation of duties).
func (s *ApprovalService) loadPendingRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID, actorID uuid.UUID) (*model.ApprovalRequest, error) {
	request, err := s.loadRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != model.ApprovalStatusPending {
		return nil, apperror.Conflict("承認中の稟議のみ操作できます")
	}
	if request.RequesterID == actorID {
		return nil, apperror.Forbidden("申請者自身は承認できません")
	}
	return request, nil
}

// locateApproverStep finds the actor's pending step, falling back to a
// delegator's step when the actor holds an active delegation whose amount cap
// covers the request.
func (s *ApprovalService) locateApproverStep(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest, approverID uuid.UUID) (*model.ApprovalStep, error) {
	step, err := s.repo.FindPendingStepByRequestAndApprover(ctx, tx, request.ID, approverID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if step != nil {
		return step, nil
	}

	delegations, err := s.repo.FindDelegationsForDelegate(ctx, tx, approverID, time.Now().UTC())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	for _, delegation := range delegations {
		if delegation.MaxAmount != nil && request.Amount > *delegation.MaxAmount {
			continue
		}
		delegatorStep, err := s.repo.FindPendingStepByRequestAndApprover(ctx, tx, request.ID, delegation.DelegatorID)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if delegatorStep != nil {
			return delegatorStep, nil
		}
	}

	return nil, apperror.Forbidden("この稟議を承認する権限がありません")
}

// approveLocatedStep claims the step as approved and advances the workflow
// when its group completes: remaining pending steps of the group are skipped
// in one bulk update, and either the next group opens or the request is
// finalized as approved. Returns the next open group, nil when none.
func (s *ApprovalService) approveLocatedStep(ctx context.Context, tx *gorm.DB, request *model.ApprovalRequest, step *model.ApprovalStep, comment *string) (*int, error) {
	now := time.Now().UTC()
	claimed, err := s.repo.ClaimStep(ctx, tx, step.ID, model.StepStatusApproved, comment, now)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !claimed {
		return nil, apperror.Conflict("この承認ステップは既に処理されています")
	}

	stats, err := s.repo.GetGroupApprovalStats(ctx, tx, request.ID, step.StepGroup)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !stats.Complete() {
		return nil, nil
	}

	if err := s.repo.SkipPendingStepsByGroup(ctx, tx, request.ID, step.StepGroup); err != nil {
		return nil, apperror.Internal(err)
	}

	nextGroup, err := s.repo.GetNextStepGroup(ctx, tx, request.ID, step.StepGroup)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if nextGroup == nil {
		request.Status = model.ApprovalStatusApproved
		request.CompletedAt = &now
		if err := s.repo.UpdateRequest(ctx, tx, request); err != nil {
			return nil, apperror.Internal(err)
		}
	}
	return nextGroup, nil
}

func (s *ApprovalService) writeAudit(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, action model.AuditAction, actor Actor, details map[string]any) error {
	role, err := s.primaryRole(ctx, tx, actor.ID)
	if err != nil {
		return err
	}
	return s.audit.Log(ctx, tx, audit.Entry{
		RequestID: requestID,
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: role,
		Details:   details,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
}

func (s *ApprovalService) primaryRole(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (model.UserRole, error) {
	roles, err := s.repo.FindUserRoles(ctx, tx, userID)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if len(roles) == 0 {
		return model.UserRoleEmployee, nil
	}
	return roles[0], nil
}

func (s *ApprovalService) hasAnyRole(ctx context.Context, userID uuid.UUID, roles ...model.UserRole) (bool, error) {
	for _, role := range roles {
		ok, err := s.repo.HasRole(ctx, nil, userID, role)
		if err != nil {
			return false, apperror.Internal(err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *ApprovalService) canViewApproval(ctx context.Context, request *model.ApprovalRequest, userID uuid.UUID) (bool, error) {
	if request.RequesterID == userID {
		return true, nil
	}
	if ok, err := s.hasAnyRole(ctx, userID, model.UserRoleAuditor, model.UserRoleAdmin); err != nil || ok {
		return ok, err
	}

	// Approvers keep visibility after acting on their step.
	steps, err := s.repo.FindStepsByRequestID(ctx, nil, request.ID)
	if err != nil {
		return false, apperror.Internal(err)
	}
	for _, step := range steps {
		if step.ApproverID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *ApprovalService) listApprovals(ctx context.Context, pagination model.Pagination, fetch func(offset, limit int) ([]model.ApprovalRequest, int64, error)) (*model.PaginatedResponse[model.ApprovalListItem], error) {
	page, limit := utils.NormalizePage(pagination.Page, pagination.Limit)
	offset := (page - 1) * limit

	requests, total, err := fetch(offset, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	items := make([]model.ApprovalListItem, 0, len(requests))
	for i := range requests {
		item, err := s.buildApprovalListItem(ctx, &requests[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return &model.PaginatedResponse[model.ApprovalListItem]{
		Data: items,
		Pagination: model.PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: utils.TotalPages(total, limit),
		},
	}, nil
}

func (s *ApprovalService) buildActionResponse(ctx context.Context, request *model.ApprovalRequest, includeNextStep bool) (*model.ActionResponse, error) {
	response, err := s.buildApprovalResponse(ctx, request)
	if err != nil {
		return nil, err
	}
	result := &model.ActionResponse{Success: true, Request: response}
	if includeNextStep {
		nextStep, err := s.getNextStepInfo(ctx, request.ID)
		if err != nil {
			return nil, err
		}
		result.NextStep = nextStep
	}
	return result, nil
}

// getNextStepInfo describes the currently open step group and its pending
// approvers, nil when nothing is pending.
func (s *ApprovalService) getNextStepInfo(ctx context.Context, requestID uuid.UUID) (*model.NextStepInfo, error) {
	currentGroup, err := s.repo.GetCurrentStepGroup(ctx, nil, requestID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if currentGroup == nil {
		return nil, nil
	}

	steps, err := s.repo.FindStepsByRequestID(ctx, nil, requestID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	var groupSteps []model.ApprovalStep
	approverIDs := make([]uuid.UUID, 0, len(steps))
	for _, step := range steps {
		if step.StepGroup == *currentGroup && step.Status == model.StepStatusPending {
			groupSteps = append(groupSteps, step)
			approverIDs = append(approverIDs, step.ApproverID)
		}
	}

	userMap, err := s.userInfoMap(ctx, approverIDs)
	if err != nil {
		return nil, err
	}

	info := &model.NextStepInfo{Group: *currentGroup}
	for _, step := range groupSteps {
		info.Approvers = append(info.Approvers, model.NextStepApprover{
			UserInfo: userMap[step.ApproverID],
			Role:     step.ApproverRole,
		})
	}
	return info, nil
}

func (s *ApprovalService) buildApprovalResponse(ctx context.Context, request *model.ApprovalRequest) (*model.ApprovalResponse, error) {
	route, err := s.repo.FindRouteByID(ctx, nil, request.RouteID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	steps, err := s.repo.FindStepsByRequestID(ctx, nil, request.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	attachments, err := s.repo.FindAttachmentsByRequestID(ctx, nil, request.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	currentGroup, err := s.repo.GetCurrentStepGroup(ctx, nil, request.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	userIDs := []uuid.UUID{request.RequesterID}
	for _, step := range steps {
		userIDs = append(userIDs, step.ApproverID)
	}
	for _, attachment := range attachments {
		userIDs = append(userIDs, attachment.UploadedBy)
	}
	userMap, err := s.userInfoMap(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	routeInfo := model.RouteInfo{ID: request.RouteID}
	if route != nil {
		routeInfo.Name = route.Name
	}

	response := &model.ApprovalResponse{
		ID:               request.ID,
		Title:            request.Title,
		Description:      request.Description,
		Amount:           request.Amount,
		Category:         request.Category,
		Status:           request.Status,
		Requester:        userMap[request.RequesterID],
		Route:            routeInfo,
		CurrentStepGroup: currentGroup,
		Steps:            make([]model.StepInfo, 0, len(steps)),
		Attachments:      make([]model.AttachmentInfo, 0, len(attachments)),
		SubmittedAt:      request.SubmittedAt,
		CompletedAt:      request.CompletedAt,
		CreatedAt:        request.CreatedAt,
		UpdatedAt:        request.UpdatedAt,
	}

	for _, step := range steps {
		response.Steps = append(response.Steps, model.StepInfo{
			ID:            step.ID,
			StepOrder:     step.StepOrder,
			StepGroup:     step.StepGroup,
			Approver:      userMap[step.ApproverID],
			ApproverRole:  step.ApproverRole,
			Status:        step.Status,
			RequiredCount: step.RequiredCount,
			Comment:       step.Comment,
			ActedAt:       step.ActedAt,
		})
	}
	for _, attachment := range attachments {
		response.Attachments = append(response.Attachments, model.AttachmentInfo{
			ID:          attachment.ID,
			FileName:    attachment.FileName,
			FileSize:    attachment.FileSize,
			MimeType:    attachment.MimeType,
			UploadedBy:  userMap[attachment.UploadedBy],
			Description: attachment.Description,
			CreatedAt:   attachment.CreatedAt,
		})
	}
	return response, nil
}

func (s *ApprovalService) buildApprovalListItem(ctx context.Context, request *model.ApprovalRequest) (*model.ApprovalListItem, error) {
	route, err := s.repo.FindRouteByID(ctx, nil, request.RouteID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	currentGroup, err := s.repo.GetCurrentStepGroup(ctx, nil, request.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	userMap, err := s.userInfoMap(ctx, []uuid.UUID{request.RequesterID})
	if err != nil {
		return nil, err
	}

	routeInfo := model.RouteInfo{ID: request.RouteID}
	if route != nil {
		routeInfo.Name = route.Name
	}

	return &model.ApprovalListItem{
		ID:               request.ID,
		Title:            request.Title,
		Amount:           request.Amount,
		Category:         request.Category,
		Status:           request.Status,
		Requester:        userMap[request.RequesterID],
		Route:            routeInfo,
		CurrentStepGroup: currentGroup,
		SubmittedAt:      request.SubmittedAt,
		CreatedAt:        request.CreatedAt,
	}, nil
}

// userInfoMap resolves display info for the given user ids. Unknown ids map
// to an entry with an empty email so projections never fail on missing users.
func (s *ApprovalService) userInfoMap(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]model.UserInfo, error) {
	unique := make([]uuid.UUID, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	users, err := s.repo.FindUsersByIDs(ctx, nil, unique)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	userMap := make(map[uuid.UUID]model.UserInfo, len(unique))
	for _, id := range unique {
		userMap[id] = model.UserInfo{ID: id}
	}
	for _, user := range users {
		userMap[user.ID] = model.UserInfo{ID: user.ID, Email: user.Email}
	}
	return userMap, nil
}
