package model

import (
	"github.com/google/uuid"
)

// ApprovalAttachment is a file attached to an approval request. FileKey is the
// storage driver key; the binary itself lives in the configured storage backend.
type ApprovalAttachment struct {
	BaseModel
	RequestID   uuid.UUID `gorm:"type:uuid;column:request_id;not null" json:"requestId"`
	FileName    string    `gorm:"type:varchar(255);column:file_name;not null" json:"fileName"`
	FileKey     string    `gorm:"type:varchar(255);column:file_key;not null" json:"fileKey"`
	FileSize    int64     `gorm:"type:bigint;column:file_size;not null" json:"fileSize"`
	MimeType    string    `gorm:"type:varchar(100);column:mime_type;not null" json:"mimeType"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;column:uploaded_by;not null" json:"uploadedBy"`
	Description *string   `gorm:"type:text;column:description" json:"description,omitempty"`
}

func (a *ApprovalAttachment) TableName() string {
	return "approval_attachments"
}
