package model

import (
	"github.com/google/uuid"
)

// ApprovalRoute is a named band of approval authority.
// MaxAmount nil means unbounded above; Category nil means the route applies
// to all categories. Ranges are inclusive at both ends.
type ApprovalRoute struct {
	BaseModel
	Name      string            `gorm:"type:varchar(100);column:name;not null" json:"name"`
	MinAmount int64             `gorm:"type:bigint;column:min_amount;not null" json:"minAmount"`
	MaxAmount *int64            `gorm:"type:bigint;column:max_amount" json:"maxAmount,omitempty"`
	Category  *ApprovalCategory `gorm:"type:varchar(20);column:category" json:"category,omitempty"`
	IsActive  bool              `gorm:"type:boolean;column:is_active;not null;default:true" json:"isActive"`
}

func (r *ApprovalRoute) TableName() string {
	return "approval_routes"
}

// Contains reports whether amount falls within the route's closed interval.
func (r *ApprovalRoute) Contains(amount int64) bool {
	if amount < r.MinAmount {
		return false
	}
	if r.MaxAmount != nil && amount > *r.MaxAmount {
		return false
	}
	return true
}

// ApprovalRouteStep is one configured approver slot of a route. When a request
// is submitted, each route step is instantiated as an ApprovalStep. Steps
// sharing a StepGroup form a parallel group satisfied by RequiredCount approvals.
type ApprovalRouteStep struct {
	BaseModel
	RouteID       uuid.UUID `gorm:"type:uuid;column:route_id;not null" json:"routeId"`
	StepOrder     int       `gorm:"type:int;column:step_order;not null" json:"stepOrder"`
	StepGroup     int       `gorm:"type:int;column:step_group;not null" json:"stepGroup"`
	ApproverID    uuid.UUID `gorm:"type:uuid;column:approver_id;not null" json:"approverId"`
	ApproverRole  UserRole  `gorm:"type:varchar(20);column:approver_role;not null" json:"approverRole"`
	RequiredCount int       `gorm:"type:int;column:required_count;not null;default:1" json:"requiredCount"`
}

func (s *ApprovalRouteStep) TableName() string {
	return "approval_route_steps"
}
