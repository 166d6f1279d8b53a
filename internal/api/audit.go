package api

import (
	"net/http"
	"strconv"

	"github.com/tenauth/tenauth/internal/audit"
)

// handleListAudit returns audit entries matching the query filters.
// Supported query params: action, entity_type, entity_id, user_id,
// limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v) //nolint:errcheck // zero falls back to default
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v) //nolint:errcheck // zero falls back to default
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list audit entries failed", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// auditLog writes an audit entry attributed to the request's verified
// user. Failures are logged, never surfaced to the client.
func (s *Server) auditLog(r *http.Request, action, entityType, entityID string, details map[string]any) {
	if s.auditRepo == nil {
		return
	}

	var userID string
	if claims := claimsFromContext(r.Context()); claims != nil {
		userID = claims.Subject
	}

	entry := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Details:    details,
	}
	if err := s.auditRepo.Record(r.Context(), entry); err != nil {
		s.logger.Error("audit write failed", "action", action, "error", err)
	}
}
