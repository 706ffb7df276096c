package model

import (
	"time"

	"github.com/google/uuid"
)

// StepStatus represents the status of one approver slot.
type StepStatus string

const (
	StepStatusPending  StepStatus = "pending"
	StepStatusApproved StepStatus = "approved"
	StepStatusRejected StepStatus = "rejected"
	StepStatusSkipped  StepStatus = "skipped" // Short-circuited by rejection or group completion
)

// ApprovalStep is one approver slot within a request's resolved route.
// Steps sharing a StepGroup form a parallel group; the group completes once
// RequiredCount of its steps are approved.
type ApprovalStep struct {
	BaseModel
	RequestID     uuid.UUID  `gorm:"type:uuid;column:request_id;not null" json:"requestId"`
	ApproverID    uuid.UUID  `gorm:"type:uuid;column:approver_id;not null" json:"approverId"`
	ApproverRole  UserRole   `gorm:"type:varchar(20);column:approver_role;not null" json:"approverRole"`
	StepOrder     int        `gorm:"type:int;column:step_order;not null" json:"stepOrder"`
	StepGroup     int        `gorm:"type:int;column:step_group;not null" json:"stepGroup"`
	RequiredCount int        `gorm:"type:int;column:required_count;not null;default:1" json:"requiredCount"`
	Status        StepStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	Comment       *string    `gorm:"type:text;column:comment" json:"comment,omitempty"`
	ActedAt       *time.Time `gorm:"type:timestamptz;column:acted_at" json:"actedAt,omitempty"`
}

func (s *ApprovalStep) TableName() string {
	return "approval_steps"
}

// GroupApprovalStats summarizes one step group's progress.
type GroupApprovalStats struct {
	RequiredCount int
	ApprovedCount int
	PendingCount  int
}

// Complete reports whether the group has collected enough approvals.
func (g GroupApprovalStats) Complete() bool {
	return g.ApprovedCount >= g.RequiredCount
}
