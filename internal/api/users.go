package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenauth/tenauth/internal/audit"
	"github.com/tenauth/tenauth/internal/auth"
)

type updateUserRequest struct {
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Role      *auth.Role `json:"role,omitempty"`
	TenantID  *string    `json:"tenantId,omitempty"`
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userRepo.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleCreateUser creates an account on behalf of an admin. Unlike
// self-registration it may set role and tenant.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims := claimsFromContext(r.Context())

	user, err := s.authService.CreateUser(r.Context(), claims.Subject, req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrValidation):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already in use")
		default:
			s.logger.Error("create user failed", "error", err)
			writeInternalError(w, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser modifies a user's mutable fields.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) { //nolint:gocognit // field patching + self-protection guards
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for update failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	// Self-protection: cannot demote yourself
	if req.Role != nil && id == claims.Subject && *req.Role != claims.Role {
		writeForbidden(w, "cannot change your own role")
		return
	}

	if req.Role != nil && !auth.IsValidRole(*req.Role) {
		writeBadRequest(w, "invalid role: must be customer, manager, or admin")
		return
	}

	// Apply patches
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Email != nil {
		if !auth.IsValidEmail(*req.Email) {
			writeBadRequest(w, "invalid email address")
			return
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.TenantID != nil {
		user.TenantID = *req.TenantID
	}

	if user.Role == auth.RoleManager && user.TenantID == "" {
		writeBadRequest(w, "manager accounts require a tenant")
		return
	}

	if err := s.userRepo.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already in use")
			return
		}
		s.logger.Error("update user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", claims.Subject)
	s.auditLog(r, audit.ActionUpdate, "user", id, nil)

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account and revokes its sessions.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	// Cannot delete yourself
	if id == claims.Subject {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for delete failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	if err := s.userRepo.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete user failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	// Revoke all sessions
	if _, err := s.authService.LogoutAll(r.Context(), id); err != nil {
		s.logger.Error("revoke sessions after delete failed", "error", err)
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", claims.Subject)
	s.auditLog(r, audit.ActionDelete, "user", id, map[string]any{
		"email": user.Email,
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleRevokeUserSessions deletes every refresh token a user holds,
// ending all their sessions.
func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	count, err := s.authService.LogoutAll(r.Context(), id)
	if err != nil {
		s.logger.Error("revoke user sessions failed", "error", err)
		writeInternalError(w, "failed to revoke sessions")
		return
	}

	s.logger.Info("user sessions revoked", "user_id", id, "revoked_by", claims.Subject)
	s.auditLog(r, audit.ActionRevokeSessions, "user", id, map[string]any{
		"count": count,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "sessions_revoked",
		"revoked": count,
	})
}
