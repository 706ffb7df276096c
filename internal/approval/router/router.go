package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/service"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/audit"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/auth"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/uploads"
)

// maxAttachmentMemory bounds in-memory multipart parsing (32MB).
const maxAttachmentMemory = 32 << 20

// ApprovalRouter exposes the workflow over HTTP. Handlers stay thin: decode,
// call the service, map the error taxonomy to a status code.
type ApprovalRouter struct {
	service  *service.ApprovalService
	selector *service.RouteSelector
	audit    *audit.Logger
	uploads  *uploads.UploadService
}

func NewApprovalRouter(svc *service.ApprovalService, selector *service.RouteSelector, auditLogger *audit.Logger, uploadService *uploads.UploadService) *ApprovalRouter {
	return &ApprovalRouter{
		service:  svc,
		selector: selector,
		audit:    auditLogger,
		uploads:  uploadService,
	}
}

// RegisterRoutes mounts every endpoint on mux. protect wraps handlers that
// require an authenticated caller.
func (ar *ApprovalRouter) RegisterRoutes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	handle("POST /api/approvals", ar.HandleCreateApproval)
	handle("GET /api/approvals", ar.HandleListMyApprovals)
	handle("GET /api/approvals/pending", ar.HandleListPendingApprovals)
	handle("GET /api/approvals/all", ar.HandleListAllApprovals)
	handle("GET /api/approvals/{id}", ar.HandleGetApproval)
	handle("PUT /api/approvals/{id}", ar.HandleUpdateApproval)
	handle("DELETE /api/approvals/{id}", ar.HandleDeleteApproval)
	handle("POST /api/approvals/{id}/submit", ar.HandleSubmitApproval)
	handle("POST /api/approvals/{id}/approve", ar.HandleApprove)
	handle("POST /api/approvals/{id}/reject", ar.HandleReject)
	handle("POST /api/approvals/{id}/return", ar.HandleReturn)
	handle("GET /api/approvals/{id}/logs", ar.HandleGetApprovalLogs)
	handle("POST /api/approvals/{id}/attachments", ar.HandleUploadAttachment)
	handle("GET /api/attachments/{id}", ar.HandleDownloadAttachment)
	handle("GET /api/approval-routes", ar.HandleListRoutes)
	handle("GET /api/audit-logs", ar.HandleListAuditLogs)
	handle("GET /api/audit-logs/export", ar.HandleExportAuditLogs)
}

// HandleCreateApproval handles POST /api/approvals
func (ar *ApprovalRouter) HandleCreateApproval(w http.ResponseWriter, r *http.Request) {
	var input model.CreateApprovalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.Validation("リクエストボディが不正です", nil))
		return
	}
	defer r.Body.Close()

	response, err := ar.service.CreateApproval(r.Context(), &input, ar.actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

// HandleListMyApprovals handles GET /api/approvals
// Optional query filters: status, category, from, to, page, limit
func (ar *ApprovalRouter) HandleListMyApprovals(w http.ResponseWriter, r *http.Request) {
	userCtx := auth.GetUserContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := ar.service.GetApprovalsByRequester(r.Context(), userCtx.UserID, filter, parsePagination(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleListPendingApprovals handles GET /api/approvals/pending
func (ar *ApprovalRouter) HandleListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	userCtx := auth.GetUserContext(r.Context())

	result, err := ar.service.GetPendingApprovals(r.Context(), userCtx.UserID, parsePagination(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleListAllApprovals handles GET /api/approvals/all (auditor/admin only)
func (ar *ApprovalRouter) HandleListAllApprovals(w http.ResponseWriter, r *http.Request) {
	userCtx := auth.GetUserContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := ar.service.GetAllApprovals(r.Context(), userCtx.UserID, filter, parsePagination(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetApproval handles GET /api/approvals/{id}
func (ar *ApprovalRouter) HandleGetApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userCtx := auth.GetUserContext(r.Context())

	response, err := ar.service.GetApprovalByID(r.Context(), id, userCtx.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleUpdateApproval handles PUT /api/approvals/{id}
func (ar *ApprovalRouter) HandleUpdateApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var input model.UpdateApprovalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.Validation("リクエストボディが不正です", nil))
		return
	}
	defer r.Body.Close()

	response, err := ar.service.UpdateApproval(r.Context(), id, &input, ar.actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleDeleteApproval handles DELETE /api/approvals/{id}
func (ar *ApprovalRouter) HandleDeleteApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := ar.service.DeleteApproval(r.Context(), id, ar.actorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmitApproval handles POST /api/approvals/{id}/submit
func (ar *ApprovalRouter) HandleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	response, err := ar.service.SubmitApproval(r.Context(), id, ar.actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// approveRequestBody is the approve payload; delegator_id switches the call
// into delegate mode, acting on the delegator's step.
type approveRequestBody struct {
	Comment     *string    `json:"comment,omitempty"`
	DelegatorID *uuid.UUID `json:"delegator_id,omitempty"`
}

// HandleApprove handles POST /api/approvals/{id}/approve
func (ar *ApprovalRouter) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body approveRequestBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, apperror.Validation("リクエストボディが不正です", nil))
			return
		}
		defer r.Body.Close()
	}

	input := &model.ApproveInput{Comment: body.Comment}
	actor := ar.actorFromRequest(r)

	var response *model.ActionResponse
	if body.DelegatorID != nil {
		response, err = ar.service.ApproveByDelegate(r.Context(), id, input, actor, *body.DelegatorID)
	} else {
		response, err = ar.service.ApproveStep(r.Context(), id, input, actor)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleReject handles POST /api/approvals/{id}/reject
func (ar *ApprovalRouter) HandleReject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var input model.RejectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.Validation("リクエストボディが不正です", nil))
		return
	}
	defer r.Body.Close()

	response, err := ar.service.RejectStep(r.Context(), id, &input, ar.actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleReturn handles POST /api/approvals/{id}/return
func (ar *ApprovalRouter) HandleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var input model.ReturnInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperror.Validation("リクエストボディが不正です", nil))
		return
	}
	defer r.Body.Close()

	response, err := ar.service.ReturnStep(r.Context(), id, &input, ar.actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleGetApprovalLogs handles GET /api/approvals/{id}/logs
func (ar *ApprovalRouter) HandleGetApprovalLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userCtx := auth.GetUserContext(r.Context())

	// Visibility follows the request itself.
	if _, err := ar.service.GetApprovalByID(r.Context(), id, userCtx.UserID); err != nil {
		writeError(w, err)
		return
	}

	logs, err := ar.audit.GetLogsByRequestID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// HandleUploadAttachment handles POST /api/approvals/{id}/attachments
// Multipart form: file (required), description (optional)
func (ar *ApprovalRouter) HandleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentMemory); err != nil {
		writeError(w, apperror.Validation("マルチパートフォームの解析に失敗しました", nil))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.Validation("ファイルは必須です", nil))
		return
	}
	defer file.Close()

	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}

	meta, err := ar.uploads.Upload(r.Context(), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, apperror.Internal(err))
		return
	}

	attachment, err := ar.service.AddAttachment(r.Context(), id, ar.actorFromRequest(r), meta, description)
	if err != nil {
		// The metadata row was not written; drop the orphaned binary.
		if delErr := ar.uploads.Delete(r.Context(), meta.Key); delErr != nil {
			slog.WarnContext(r.Context(), "failed to cleanup orphaned attachment", "key", meta.Key, "error", delErr)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachment)
}

// HandleDownloadAttachment handles GET /api/attachments/{id}
func (ar *ApprovalRouter) HandleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userCtx := auth.GetUserContext(r.Context())

	attachment, err := ar.service.GetAttachmentForDownload(r.Context(), id, userCtx.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	reader, contentType, err := ar.uploads.Download(r.Context(), attachment.FileKey)
	if err != nil {
		writeError(w, apperror.NotFound("添付ファイルが見つかりません"))
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	if _, err := io.Copy(w, reader); err != nil {
		slog.WarnContext(r.Context(), "attachment download interrupted", "attachment_id", id, "error", err)
	}
}

// routeView is the display projection of one approval route.
type routeView struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	MinAmount   int64                   `json:"min_amount"`
	MaxAmount   *int64                  `json:"max_amount,omitempty"`
	Category    *model.ApprovalCategory `json:"category,omitempty"`
	AmountRange string                  `json:"amount_range"`
}

// HandleListRoutes handles GET /api/approval-routes
func (ar *ApprovalRouter) HandleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := ar.selector.GetAllRoutes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]routeView, len(routes))
	for i := range routes {
		views[i] = routeView{
			ID:          routes[i].ID,
			Name:        routes[i].Name,
			MinAmount:   routes[i].MinAmount,
			MaxAmount:   routes[i].MaxAmount,
			Category:    routes[i].Category,
			AmountRange: ar.selector.FormatAmountRange(&routes[i]),
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleListAuditLogs handles GET /api/audit-logs (auditor/admin only)
// Optional query filters: request_id, action, actor_id, from, to, page, limit
func (ar *ApprovalRouter) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	userCtx := auth.GetUserContext(r.Context())
	if !userCtx.HasRole(model.UserRoleAuditor) && !userCtx.HasRole(model.UserRoleAdmin) {
		writeError(w, apperror.Forbidden("監査担当または管理者のみ監査ログを閲覧できます"))
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := ar.audit.GetAuditLogs(r.Context(), filter, parsePagination(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleExportAuditLogs handles GET /api/audit-logs/export (auditor/admin only)
func (ar *ApprovalRouter) HandleExportAuditLogs(w http.ResponseWriter, r *http.Request) {
	userCtx := auth.GetUserContext(r.Context())
	if !userCtx.HasRole(model.UserRoleAuditor) && !userCtx.HasRole(model.UserRoleAdmin) {
		writeError(w, apperror.Forbidden("監査担当または管理者のみ監査ログを閲覧できます"))
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	csvText, err := ar.audit.ExportToCSV(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(csvText))
}

// ------------------------------------------------------------------
// Helpers
// ------------------------------------------------------------------

func (ar *ApprovalRouter) actorFromRequest(r *http.Request) service.Actor {
	userCtx := auth.GetUserContext(r.Context())

	actor := service.Actor{ID: userCtx.UserID}
	if ip := clientIP(r); ip != "" {
		actor.IPAddress = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		actor.UserAgent = &ua
	}
	return actor
}

// clientIP prefers the first X-Forwarded-For hop, falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func pathID(r *http.Request) (uuid.UUID, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return uuid.Nil, apperror.Validation("IDが指定されていません", nil)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperror.Validation("IDの形式が不正です", nil)
	}
	return id, nil
}

func parsePagination(r *http.Request) model.Pagination {
	var pagination model.Pagination
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil {
			pagination.Page = page
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			pagination.Limit = limit
		}
	}
	return pagination
}

func parseListFilter(r *http.Request) (model.ApprovalListFilter, error) {
	var filter model.ApprovalListFilter

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := model.ApprovalStatus(statusStr)
		filter.Status = &status
	}
	if categoryStr := r.URL.Query().Get("category"); categoryStr != "" {
		category := model.ApprovalCategory(categoryStr)
		filter.Category = &category
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		return filter, err
	}
	filter.FromDate = from
	filter.ToDate = to
	return filter, nil
}

func parseAuditFilter(r *http.Request) (model.AuditLogFilter, error) {
	var filter model.AuditLogFilter

	if requestIDStr := r.URL.Query().Get("request_id"); requestIDStr != "" {
		requestID, err := uuid.Parse(requestIDStr)
		if err != nil {
			return filter, apperror.Validation("request_idの形式が不正です", nil)
		}
		filter.RequestID = &requestID
	}
	if actionStr := r.URL.Query().Get("action"); actionStr != "" {
		action := model.AuditAction(actionStr)
		filter.Action = &action
	}
	if actorIDStr := r.URL.Query().Get("actor_id"); actorIDStr != "" {
		actorID, err := uuid.Parse(actorIDStr)
		if err != nil {
			return filter, apperror.Validation("actor_idの形式が不正です", nil)
		}
		filter.ActorID = &actorID
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		return filter, err
	}
	filter.FromDate = from
	filter.ToDate = to
	return filter, nil
}

// parseDateRange reads from/to query params as RFC3339 or plain dates.
func parseDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(value string) (*time.Time, error) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, apperror.Validation("日付の形式が不正です", nil)
		}
		return &t, nil
	}

	var from, to *time.Time
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		t, err := parse(fromStr)
		if err != nil {
			return nil, nil, err
		}
		from = t
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		t, err := parse(toStr)
		if err != nil {
			return nil, nil, err
		}
		to = t
	}
	return from, to, nil
}

// errorBody is the wire form of an application error.
type errorBody struct {
	Error   apperror.Kind       `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)
	body := errorBody{Error: apperror.KindOf(err), Message: "予期しないエラーが発生しました"}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Fields = appErr.Fields
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
