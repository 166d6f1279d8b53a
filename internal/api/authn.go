package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/tenauth/tenauth/internal/auth"
)

// unauthorizedMessage is the single message used for every 401. Missing,
// expired, and malformed tokens are indistinguishable to the caller.
const unauthorizedMessage = "invalid or missing access token"

// authMiddleware verifies the access token on protected routes and
// stores its claims in the request context. The token is read from the
// accessToken cookie, falling back to an Authorization bearer header
// for non-browser clients.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			writeUnauthorized(w, unauthorizedMessage)
			return
		}

		claims, err := s.issuer.VerifyAccessToken(token)
		if err != nil {
			s.logger.Debug("access token rejected",
				"error", err,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			writeUnauthorized(w, unauthorizedMessage)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessTokenFromRequest extracts the raw access token from the cookie
// or the Authorization header. Returns "" if neither is present.
func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// claimsFromContext returns the verified access claims stored by
// authMiddleware, or nil if the request was not authenticated.
func claimsFromContext(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(ctxKeyClaims).(*auth.AccessClaims)
	return claims
}
