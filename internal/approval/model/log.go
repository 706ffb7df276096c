package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction identifies the workflow operation an audit entry records.
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionSubmit  AuditAction = "submit"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
	AuditActionReturn  AuditAction = "return"
	AuditActionCancel  AuditAction = "cancel"
	AuditActionDelete  AuditAction = "delete"
)

// ApprovalLog is one immutable audit record. Rows are insert-only; the table
// carries no updated_at and the store never issues UPDATE or DELETE against it.
type ApprovalLog struct {
	ID        uuid.UUID       `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	RequestID uuid.UUID       `gorm:"type:uuid;column:request_id;not null;index" json:"requestId"`
	Action    AuditAction     `gorm:"type:varchar(20);column:action;not null" json:"action"`
	ActorID   uuid.UUID       `gorm:"type:uuid;column:actor_id;not null" json:"actorId"`
	ActorRole UserRole        `gorm:"type:varchar(20);column:actor_role;not null" json:"actorRole"`
	Details   json.RawMessage `gorm:"type:jsonb;column:details" json:"details,omitempty"`
	IPAddress *string         `gorm:"type:varchar(45);column:ip_address" json:"ipAddress,omitempty"`
	UserAgent *string         `gorm:"type:text;column:user_agent" json:"userAgent,omitempty"`
	CreatedAt time.Time       `gorm:"type:timestamptz;column:created_at;not null" json:"createdAt"`
}

func (l *ApprovalLog) TableName() string {
	return "approval_logs"
}

// BeforeCreate assigns the id and timestamp of the append-only record.
func (l *ApprovalLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	l.CreatedAt = time.Now().UTC()
	return
}
