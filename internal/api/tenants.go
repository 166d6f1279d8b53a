package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenauth/tenauth/internal/audit"
	"github.com/tenauth/tenauth/internal/tenant"
)

type tenantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// handleListTenants returns all tenants. No auth required; customers
// browse tenants before signing in.
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenantRepo.List(r.Context())
	if err != nil {
		s.logger.Error("list tenants failed", "error", err)
		writeInternalError(w, "failed to list tenants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// handleCreateTenant creates a new tenant.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims := claimsFromContext(r.Context())

	t := &tenant.Tenant{Name: req.Name, Address: req.Address}
	if err := s.tenantRepo.Create(r.Context(), t); err != nil {
		if errors.Is(err, tenant.ErrValidation) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		s.logger.Error("create tenant failed", "error", err)
		writeInternalError(w, "failed to create tenant")
		return
	}

	s.logger.Info("tenant created", "tenant_id", t.ID, "created_by", claims.Subject)
	s.auditLog(r, audit.ActionCreate, "tenant", t.ID, map[string]any{"name": t.Name})

	writeJSON(w, http.StatusCreated, t)
}

// handleGetTenant returns a single tenant by ID.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.tenantRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("get tenant failed", "error", err)
		writeInternalError(w, "failed to get tenant")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTenant replaces a tenant's name and address.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	t := &tenant.Tenant{ID: id, Name: req.Name, Address: req.Address}
	if err := s.tenantRepo.Update(r.Context(), t); err != nil {
		switch {
		case errors.Is(err, tenant.ErrValidation):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, tenant.ErrNotFound):
			writeNotFound(w, "tenant not found")
		default:
			s.logger.Error("update tenant failed", "error", err)
			writeInternalError(w, "failed to update tenant")
		}
		return
	}

	s.logger.Info("tenant updated", "tenant_id", id, "updated_by", claims.Subject)
	s.auditLog(r, audit.ActionUpdate, "tenant", id, nil)

	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTenant removes a tenant. Users bound to it keep their
// accounts with the tenant reference cleared.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	if err := s.tenantRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("delete tenant failed", "error", err)
		writeInternalError(w, "failed to delete tenant")
		return
	}

	s.logger.Info("tenant deleted", "tenant_id", id, "deleted_by", claims.Subject)
	s.auditLog(r, audit.ActionDelete, "tenant", id, nil)

	w.WriteHeader(http.StatusNoContent)
}
