package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tenauth/tenauth/internal/auth"
)

// Cookie names. Both cookies are HttpOnly and SameSite=Strict; scripts
// never see the tokens.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// loginFailedMessage is returned for unknown email and wrong password
// alike, byte for byte, so the two cases cannot be told apart.
const loginFailedMessage = "Email or password does not match."

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a customer account and signs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrValidation):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already in use")
		default:
			s.logger.Error("register failed", "error", err)
			writeInternalError(w, "failed to register")
		}
		return
	}

	s.setAuthCookies(w, r, result.Tokens)
	writeJSON(w, http.StatusCreated, result.User)
}

// handleLogin verifies credentials and sets the token cookies.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, loginFailedMessage)
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "failed to log in")
		return
	}

	s.setAuthCookies(w, r, result.Tokens)
	writeJSON(w, http.StatusOK, map[string]string{"id": result.User.ID})
}

// handleRefresh rotates the refresh token and reissues both cookies.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshTokenFromRequest(r)
	if raw == "" {
		writeUnauthorized(w, "missing refresh token")
		return
	}

	result, err := s.authService.Refresh(r.Context(), raw)
	if err != nil {
		if isTokenError(err) {
			s.clearAuthCookies(w, r)
			writeUnauthorized(w, "invalid refresh token")
			return
		}
		s.logger.Error("refresh failed", "error", err)
		writeInternalError(w, "failed to refresh session")
		return
	}

	s.setAuthCookies(w, r, result.Tokens)
	writeJSON(w, http.StatusOK, map[string]string{"id": result.User.ID})
}

// handleLogout revokes the refresh token and clears both cookies.
// Clearing happens even when revocation fails, so a stale browser
// session always ends up signed out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := refreshTokenFromRequest(r)
	if raw != "" {
		if err := s.authService.Logout(r.Context(), raw); err != nil && !isTokenError(err) {
			s.logger.Error("logout failed", "error", err)
			writeInternalError(w, "failed to log out")
			return
		}
	}

	s.clearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// changePasswordRequest is the request body for POST /auth/password.
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleChangePassword replaces the caller's password. All sessions are
// revoked, the current one included, so the client signs in again.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, unauthorizedMessage)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.authService.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "current password does not match")
		case errors.Is(err, auth.ErrValidation):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, auth.ErrUserNotFound):
			writeUnauthorized(w, unauthorizedMessage)
		default:
			s.logger.Error("change password failed", "error", err)
			writeInternalError(w, "failed to change password")
		}
		return
	}

	s.clearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// handleSelf returns the account behind the access token.
func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, unauthorizedMessage)
		return
	}

	user, err := s.authService.Self(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, unauthorizedMessage)
			return
		}
		s.logger.Error("self lookup failed", "error", err)
		writeInternalError(w, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// refreshTokenFromRequest extracts the raw refresh token cookie value.
func refreshTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// isTokenError reports whether err is a client-side token problem
// rather than a server fault.
func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrTokenInvalid) ||
		errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, auth.ErrTokenRevoked)
}

// setAuthCookies writes the access and refresh token cookies. Max-Age
// follows each token's TTL.
func (s *Server) setAuthCookies(w http.ResponseWriter, r *http.Request, pair auth.TokenPair) {
	secure := r.TLS != nil

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(s.issuer.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(s.issuer.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both token cookies.
func (s *Server) clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	secure := r.TLS != nil

	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
