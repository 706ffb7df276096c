package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalDelegation is a time-boxed, amount-capped grant letting a delegate
// approve on behalf of a delegator. MaxAmount nil means no amount cap.
type ApprovalDelegation struct {
	BaseModel
	DelegatorID uuid.UUID `gorm:"type:uuid;column:delegator_id;not null" json:"delegatorId"`
	DelegateID  uuid.UUID `gorm:"type:uuid;column:delegate_id;not null" json:"delegateId"`
	StartDate   time.Time `gorm:"type:date;column:start_date;not null" json:"startDate"`
	EndDate     time.Time `gorm:"type:date;column:end_date;not null" json:"endDate"`
	MaxAmount   *int64    `gorm:"type:bigint;column:max_amount" json:"maxAmount,omitempty"`
	Reason      *string   `gorm:"type:text;column:reason" json:"reason,omitempty"`
	IsActive    bool      `gorm:"type:boolean;column:is_active;not null;default:true" json:"isActive"`
}

func (d *ApprovalDelegation) TableName() string {
	return "approval_delegations"
}

// ValidFor reports whether the delegation authorizes an approval of the given
// amount on the given date.
func (d *ApprovalDelegation) ValidFor(amount int64, on time.Time) bool {
	if !d.IsActive {
		return false
	}
	day := on.Truncate(24 * time.Hour)
	if day.Before(d.StartDate.Truncate(24*time.Hour)) || day.After(d.EndDate.Truncate(24*time.Hour)) {
		return false
	}
	if d.MaxAmount != nil && amount > *d.MaxAmount {
		return false
	}
	return true
}
