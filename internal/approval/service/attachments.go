package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/uploads"
)

// AddAttachment records an uploaded file on a draft request owned by the
// actor. The binary is already stored; this persists the metadata row and
// audits the change.
func (s *ApprovalService) AddAttachment(ctx context.Context, requestID uuid.UUID, actor Actor, meta *uploads.FileMetadata, description *string) (*model.ApprovalAttachment, error) {
	var attachment *model.ApprovalAttachment
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		request, err := s.loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.RequesterID != actor.ID {
			return apperror.Forbidden("自分の稟議のみ編集できます")
		}
		if request.Status != model.ApprovalStatusDraft {
			return apperror.Conflict("下書き状態の稟議のみ編集できます")
		}

		attachment = &model.ApprovalAttachment{
			RequestID:   requestID,
			FileName:    meta.Name,
			FileKey:     meta.Key,
			FileSize:    meta.Size,
			MimeType:    meta.MimeType,
			UploadedBy:  actor.ID,
			Description: description,
		}
		if err := s.repo.CreateAttachment(ctx, tx, attachment); err != nil {
			return apperror.Internal(err)
		}

		return s.writeAudit(ctx, tx, requestID, model.AuditActionUpdate, actor, map[string]any{
			"attachment": meta.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// GetAttachmentForDownload loads the attachment record after checking the
// caller may view its request.
func (s *ApprovalService) GetAttachmentForDownload(ctx context.Context, attachmentID uuid.UUID, userID uuid.UUID) (*model.ApprovalAttachment, error) {
	attachment, err := s.repo.FindAttachmentByID(ctx, nil, attachmentID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if attachment == nil {
		return nil, apperror.NotFound("添付ファイルが見つかりません")
	}

	request, err := s.loadRequest(ctx, nil, attachment.RequestID)
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
	return attachment, nil
}
