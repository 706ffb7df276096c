package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// GormStore is the gorm-backed audit store. The approval_logs table is
// insert-only; immutability is enforced by never issuing UPDATE or DELETE
// here and by revoking those privileges at the database level.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) session(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// InsertLog appends one audit record, joining the caller's transaction when
// one is given.
func (s *GormStore) InsertLog(ctx context.Context, tx *gorm.DB, entry *model.ApprovalLog) error {
	if err := s.session(ctx, tx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// ListLogs returns filtered audit records joined with the request title and
// actor email, newest first, plus the unpaginated total.
func (s *GormStore) ListLogs(ctx context.Context, filter model.AuditLogFilter, offset, limit int) ([]Record, int64, error) {
	query := s.db.WithContext(ctx).
		Table("approval_logs").
		Select("approval_logs.id, approval_logs.request_id, approval_requests.title AS request_title, approval_logs.action, approval_logs.actor_id, users.email AS actor_email, approval_logs.actor_role, approval_logs.details, approval_logs.ip_address, approval_logs.created_at").
		Joins("LEFT JOIN approval_requests ON approval_requests.id = approval_logs.request_id").
		Joins("LEFT JOIN users ON users.id = approval_logs.actor_id")

	if filter.RequestID != nil {
		query = query.Where("approval_logs.request_id = ?", *filter.RequestID)
	}
	if filter.Action != nil {
		query = query.Where("approval_logs.action = ?", *filter.Action)
	}
	if filter.ActorID != nil {
		query = query.Where("approval_logs.actor_id = ?", *filter.ActorID)
	}
	if filter.FromDate != nil {
		query = query.Where("approval_logs.created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("approval_logs.created_at <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var records []Record
	result := query.
		Order("approval_logs.created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&records)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", result.Error)
	}
	return records, total, nil
}
