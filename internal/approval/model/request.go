package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus represents the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusDraft    ApprovalStatus = "draft"    // Editable by the requester only
	ApprovalStatusPending  ApprovalStatus = "pending"  // Submitted and moving through its approval route
	ApprovalStatusApproved ApprovalStatus = "approved" // All step groups satisfied
	ApprovalStatusRejected ApprovalStatus = "rejected" // Rejected by an approver
)

// ApprovalCategory classifies what an approval request is for.
type ApprovalCategory string

const (
	ApprovalCategoryExpense  ApprovalCategory = "expense"
	ApprovalCategoryPurchase ApprovalCategory = "purchase"
	ApprovalCategoryContract ApprovalCategory = "contract"
	ApprovalCategoryOther    ApprovalCategory = "other"
)

// ApprovalRequest represents a single ringi (approval) case.
// Amount is in currency minor units.
type ApprovalRequest struct {
	BaseModel
	Title             string            `gorm:"type:varchar(200);column:title;not null" json:"title"`
	Description       *string           `gorm:"type:text;column:description" json:"description,omitempty"`
	Amount            int64             `gorm:"type:bigint;column:amount;not null" json:"amount"`
	Category          *ApprovalCategory `gorm:"type:varchar(20);column:category" json:"category,omitempty"`
	RequesterID       uuid.UUID         `gorm:"type:uuid;column:requester_id;not null" json:"requesterId"`
	RouteID           uuid.UUID         `gorm:"type:uuid;column:route_id;not null" json:"routeId"`
	Status            ApprovalStatus    `gorm:"type:varchar(20);column:status;not null" json:"status"`
	SubmittedAt       *time.Time        `gorm:"type:timestamptz;column:submitted_at" json:"submittedAt,omitempty"`
	CompletedAt       *time.Time        `gorm:"type:timestamptz;column:completed_at" json:"completedAt,omitempty"`
	LinkedCostOrderID *uuid.UUID        `gorm:"type:uuid;column:linked_cost_order_id" json:"linkedCostOrderId,omitempty"`
}

func (r *ApprovalRequest) TableName() string {
	return "approval_requests"
}
