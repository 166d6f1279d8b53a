package api

import (
	"net/http"

	"github.com/tenauth/tenauth/internal/auth"
)

// requireRoles returns middleware that rejects requests whose verified
// role is not in the allowed set. Runs after authMiddleware; a request
// that reaches it without an identity is refused with 403, not 401.
func (s *Server) requireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeForbidden(w, "insufficient permissions")
				return
			}

			if _, ok := allowed[claims.Role]; !ok {
				s.logger.Debug("role check failed",
					"user_id", claims.Subject,
					"role", string(claims.Role),
					"path", r.URL.Path,
				)
				writeForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
