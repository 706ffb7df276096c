package model

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
)

var validate = validator.New()

// CreateApprovalInput is the payload for creating a draft approval request.
type CreateApprovalInput struct {
	Title       string            `json:"title" validate:"required,min=1,max=200"`
	Description *string           `json:"description,omitempty" validate:"omitempty,max=5000"`
	Amount      int64             `json:"amount" validate:"min=0,max=999999999999"`
	Category    *ApprovalCategory `json:"category,omitempty" validate:"omitempty,oneof=expense purchase contract other"`
}

// Validate checks field constraints and returns a ValidationError on failure.
func (in *CreateApprovalInput) Validate() error {
	return translateValidation(validate.Struct(in))
}

// UpdateApprovalInput is the payload for patching a draft approval request.
// All fields are optional; nil means "leave unchanged".
type UpdateApprovalInput struct {
	Title       *string           `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string           `json:"description,omitempty" validate:"omitempty,max=5000"`
	Amount      *int64            `json:"amount,omitempty" validate:"omitempty,min=0,max=999999999999"`
	Category    *ApprovalCategory `json:"category,omitempty" validate:"omitempty,oneof=expense purchase contract other"`
}

func (in *UpdateApprovalInput) Validate() error {
	return translateValidation(validate.Struct(in))
}

// ApproveInput carries an optional comment for an approval action.
type ApproveInput struct {
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

func (in *ApproveInput) Validate() error {
	return translateValidation(validate.Struct(in))
}

// RejectInput carries the mandatory rejection reason.
type RejectInput struct {
	Comment string `json:"comment" validate:"required,min=1,max=1000"`
}

func (in *RejectInput) Validate() error {
	return translateValidation(validate.Struct(in))
}

// ReturnInput carries the mandatory return reason.
type ReturnInput struct {
	Comment string `json:"comment" validate:"required,min=1,max=1000"`
}

func (in *ReturnInput) Validate() error {
	return translateValidation(validate.Struct(in))
}

// translateValidation converts validator errors into the application taxonomy
// with field-level Japanese messages.
func translateValidation(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Internal(err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return apperror.Validation("入力内容に誤りがあります", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Title":
		if fe.Tag() == "max" {
			return "タイトルは200文字以内で入力してください"
		}
		return "タイトルは必須です"
	case "Description":
		return "説明は5000文字以内で入力してください"
	case "Amount":
		if fe.Tag() == "max" {
			return "金額が上限を超えています"
		}
		return "金額は0以上で入力してください"
	case "Category":
		return "カテゴリが不正です"
	case "Comment":
		if fe.Tag() == "max" {
			return "コメントは1000文字以内で入力してください"
		}
		return "理由は必須です"
	default:
		return "入力値が不正です"
	}
}

// Pagination is the caller-supplied page selector. Zero values are replaced
// by defaults (page 1, limit 20); limit is capped at 100.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ApprovalListFilter narrows approval request listings.
type ApprovalListFilter struct {
	Status      *ApprovalStatus
	Category    *ApprovalCategory
	RequesterID *uuid.UUID
	FromDate    *time.Time
	ToDate      *time.Time
}

// AuditLogFilter narrows audit log listings.
type AuditLogFilter struct {
	RequestID *uuid.UUID
	Action    *AuditAction
	ActorID   *uuid.UUID
	FromDate  *time.Time
	ToDate    *time.Time
}

// UserInfo is the display projection of a user.
type UserInfo struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// RouteInfo is the display projection of an approval route.
type RouteInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// StepInfo is the display projection of one approval step.
type StepInfo struct {
	ID            uuid.UUID  `json:"id"`
	StepOrder     int        `json:"stepOrder"`
	StepGroup     int        `json:"stepGroup"`
	Approver      UserInfo   `json:"approver"`
	ApproverRole  UserRole   `json:"approverRole"`
	Status        StepStatus `json:"status"`
	RequiredCount int        `json:"requiredCount"`
	Comment       *string    `json:"comment,omitempty"`
	ActedAt       *time.Time `json:"actedAt,omitempty"`
}

// AttachmentInfo is the display projection of one attachment.
type AttachmentInfo struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	MimeType    string    `json:"mimeType"`
	UploadedBy  UserInfo  `json:"uploadedBy"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ApprovalResponse is the full detail view of an approval request.
type ApprovalResponse struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Description      *string           `json:"description,omitempty"`
	Amount           int64             `json:"amount"`
	Category         *ApprovalCategory `json:"category,omitempty"`
	Status           ApprovalStatus    `json:"status"`
	Requester        UserInfo          `json:"requester"`
	Route            RouteInfo         `json:"route"`
	CurrentStepGroup *int              `json:"currentStepGroup,omitempty"`
	Steps            []StepInfo        `json:"steps"`
	Attachments      []AttachmentInfo  `json:"attachments"`
	SubmittedAt      *time.Time        `json:"submittedAt,omitempty"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// ApprovalListItem is the list view of an approval request.
type ApprovalListItem struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Amount           int64             `json:"amount"`
	Category         *ApprovalCategory `json:"category,omitempty"`
	Status           ApprovalStatus    `json:"status"`
	Requester        UserInfo          `json:"requester"`
	Route            RouteInfo         `json:"route"`
	CurrentStepGroup *int              `json:"currentStepGroup,omitempty"`
	SubmittedAt      *time.Time        `json:"submittedAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// NextStepApprover is one pending approver of the currently open step group.
type NextStepApprover struct {
	UserInfo
	Role UserRole `json:"role"`
}

// NextStepInfo describes the step group opened by an action.
type NextStepInfo struct {
	Group     int                `json:"group"`
	Approvers []NextStepApprover `json:"approvers"`
}

// ActionResponse is the result of a workflow action.
type ActionResponse struct {
	Success  bool              `json:"success"`
	Request  *ApprovalResponse `json:"request"`
	NextStep *NextStepInfo     `json:"next_step,omitempty"`
}

// PaginationMeta describes one page of a listing.
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// PaginatedResponse wraps a page of items with its pagination metadata.
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// AuditLogResponse is the display projection of one audit record.
type AuditLogResponse struct {
	ID           uuid.UUID   `json:"id"`
	RequestID    uuid.UUID   `json:"request_id"`
	RequestTitle string      `json:"request_title"`
	Action       AuditAction `json:"action"`
	Actor        UserInfo    `json:"actor"`
	ActorRole    UserRole    `json:"actor_role"`
	Details      any         `json:"details,omitempty"`
	IPAddress    *string     `json:"ip_address,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
