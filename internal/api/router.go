package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenauth/tenauth/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/self", s.handleSelf)
			r.Post("/password", s.handleChangePassword)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			// The tenant directory is public; customers browse tenants
			// before signing in. Everything else is admin-only.
			r.Get("/", s.handleListTenants)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Use(s.requireRoles(auth.RoleAdmin))

				r.Post("/", s.handleCreateTenant)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTenant)
					r.Patch("/", s.handleUpdateTenant)
					r.Delete("/", s.handleDeleteTenant)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requireRoles(auth.RoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Post("/revoke-sessions", s.handleRevokeUserSessions)
				})
			})

			r.Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
