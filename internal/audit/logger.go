package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/utils"
)

// Record is one audit entry joined with display data.
type Record struct {
	ID           uuid.UUID
	RequestID    uuid.UUID
	RequestTitle string
	Action       model.AuditAction
	ActorID      uuid.UUID
	ActorEmail   string
	ActorRole    model.UserRole
	Details      json.RawMessage
	IPAddress    *string
	CreatedAt    time.Time
}

// Store is the persistence contract for audit records. Writes are
// append-only; the store exposes no update or delete operation.
type Store interface {
	InsertLog(ctx context.Context, tx *gorm.DB, entry *model.ApprovalLog) error
	ListLogs(ctx context.Context, filter model.AuditLogFilter, offset, limit int) ([]Record, int64, error)
}

// Entry is the input for one audit log write.
type Entry struct {
	RequestID uuid.UUID
	Action    model.AuditAction
	ActorID   uuid.UUID
	ActorRole model.UserRole
	Details   map[string]any
	IPAddress *string
	UserAgent *string
}

// Logger records workflow actions and produces filtered listings and CSV
// exports of the audit trail.
type Logger struct {
	store Store
}

func NewLogger(store Store) *Logger {
	return &Logger{store: store}
}

// Log appends one immutable audit record. When tx is non-nil the write joins
// the caller's transaction so a failed operation leaves no trace.
func (l *Logger) Log(ctx context.Context, tx *gorm.DB, entry Entry) error {
	var details json.RawMessage
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return apperror.Internal(err)
		}
		details = raw
	}

	record := &model.ApprovalLog{
		RequestID: entry.RequestID,
		Action:    entry.Action,
		ActorID:   entry.ActorID,
		ActorRole: entry.ActorRole,
		Details:   details,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
	}
	if err := l.store.InsertLog(ctx, tx, record); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// GetAuditLogs returns a filtered, paginated audit log listing.
func (l *Logger) GetAuditLogs(ctx context.Context, filter model.AuditLogFilter, pagination model.Pagination) (*model.PaginatedResponse[model.AuditLogResponse], error) {
	page, limit := utils.NormalizePage(pagination.Page, pagination.Limit)
	offset := (page - 1) * limit

	records, total, err := l.store.ListLogs(ctx, filter, offset, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	items := make([]model.AuditLogResponse, len(records))
	for i, record := range records {
		items[i] = toResponse(record)
	}

	return &model.PaginatedResponse[model.AuditLogResponse]{
		Data: items,
		Pagination: model.PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: utils.TotalPages(total, limit),
		},
	}, nil
}

// GetLogsByRequestID returns the full audit trail of one request.
func (l *Logger) GetLogsByRequestID(ctx context.Context, requestID uuid.UUID) ([]model.AuditLogResponse, error) {
	result, err := l.GetAuditLogs(ctx, model.AuditLogFilter{RequestID: &requestID}, model.Pagination{Limit: 100})
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// exportBatchSize bounds one CSV export query.
const exportBatchSize = 10000

// ExportToCSV renders the filtered audit trail as UTF-8 CSV text with a BOM
// prefix and Japanese display labels.
func (l *Logger) ExportToCSV(ctx context.Context, filter model.AuditLogFilter) (string, error) {
	records, _, err := l.store.ListLogs(ctx, filter, 0, exportBatchSize)
	if err != nil {
		return "", apperror.Internal(err)
	}

	var buf bytes.Buffer
	buf.WriteString("\uFEFF")

	w := csv.NewWriter(&buf)
	header := []string{"ID", "稟議ID", "稟議タイトル", "アクション", "実行者ID", "実行者メール", "実行者役職", "詳細", "IPアドレス", "日時"}
	if err := w.Write(header); err != nil {
		return "", apperror.Internal(err)
	}

	for _, record := range records {
		details := "{}"
		if len(record.Details) > 0 {
			details = string(record.Details)
		}
		ip := ""
		if record.IPAddress != nil {
			ip = *record.IPAddress
		}
		row := []string{
			record.ID.String(),
			record.RequestID.String(),
			record.RequestTitle,
			ActionLabel(record.Action),
			record.ActorID.String(),
			record.ActorEmail,
			RoleLabel(record.ActorRole),
			details,
			ip,
			record.CreatedAt.Format("2006/01/02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return "", apperror.Internal(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", apperror.Internal(err)
	}

	return buf.String(), nil
}

func toResponse(record Record) model.AuditLogResponse {
	var details any
	if len(record.Details) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(record.Details, &decoded); err == nil {
			details = decoded
		}
	}
	return model.AuditLogResponse{
		ID:           record.ID,
		RequestID:    record.RequestID,
		RequestTitle: record.RequestTitle,
		Action:       record.Action,
		Actor: model.UserInfo{
			ID:    record.ActorID,
			Email: record.ActorEmail,
		},
		ActorRole: record.ActorRole,
		Details:   details,
		IPAddress: record.IPAddress,
		CreatedAt: record.CreatedAt,
	}
}

// ActionLabel returns the Japanese display label of an audit action.
func ActionLabel(action model.AuditAction) string {
	switch action {
	case model.AuditActionCreate:
		return "作成"
	case model.AuditActionUpdate:
		return "更新"
	case model.AuditActionSubmit:
		return "申請"
	case model.AuditActionApprove:
		return "承認"
	case model.AuditActionReject:
		return "却下"
	case model.AuditActionReturn:
		return "差戻し"
	case model.AuditActionCancel:
		return "取消"
	case model.AuditActionDelete:
		return "削除"
	default:
		return string(action)
	}
}

// RoleLabel returns the Japanese display label of a user role.
func RoleLabel(role model.UserRole) string {
	switch role {
	case model.UserRoleEmployee:
		return "社員"
	case model.UserRoleManager:
		return "課長"
	case model.UserRoleDirector:
		return "部長"
	case model.UserRoleExecutive:
		return "役員"
	case model.UserRoleAuditor:
		return "監査担当"
	case model.UserRoleAdmin:
		return "管理者"
	default:
		return string(role)
	}
}
