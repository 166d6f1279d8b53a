package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tenauth/tenauth/internal/audit"
)

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of a successful login or refresh.
type LoginResult struct {
	User   *User
	Tokens TokenPair
}

// RegisterInput carries the fields for self-service registration.
// Role and tenant are not caller-controlled: new accounts are customers.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// CreateUserInput carries the fields for admin-driven user creation,
// which unlike registration may set role and tenant.
type CreateUserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	TenantID  string `json:"tenantId"`
}

// Service orchestrates the authentication flows: registration, login,
// token refresh, and logout. Handlers stay thin; every decision that
// spans the hasher, the repositories, and the token issuer lives here.
type Service struct {
	users  UserRepository
	tokens TokenRepository
	hasher *Hasher
	issuer *TokenIssuer
	audit  audit.Repository
	logger *slog.Logger
}

// NewService creates the auth service. The audit repository may be nil;
// auditing is then skipped.
func NewService(users UserRepository, tokens TokenRepository, hasher *Hasher, issuer *TokenIssuer, auditRepo audit.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		issuer: issuer,
		audit:  auditRepo,
		logger: logger,
	}
}

// Issuer exposes the underlying token issuer for middleware wiring.
func (s *Service) Issuer() *TokenIssuer { return s.issuer }

// Register creates a new customer account and signs it in. The email
// must be unused; a duplicate returns ErrEmailExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	if err := validateNewAccount(in.FirstName, in.LastName, in.Email, in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         RoleCustomer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.record(ctx, &audit.Entry{
		Action:     audit.ActionRegister,
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     user.ID,
	})

	return &LoginResult{User: user, Tokens: pair}, nil
}

// CreateUser creates an account on behalf of an admin. Role defaults to
// customer; manager accounts must name the tenant they belong to.
func (s *Service) CreateUser(ctx context.Context, actorID string, in CreateUserInput) (*User, error) {
	if err := validateNewAccount(in.FirstName, in.LastName, in.Email, in.Password); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = RoleCustomer
	}
	if !IsValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if role == RoleManager && in.TenantID == "" {
		return nil, fmt.Errorf("%w: manager accounts require a tenant", ErrValidation)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     in.TenantID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "role", string(role), "actor", actorID)
	s.record(ctx, &audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     actorID,
		Details:    map[string]any{"role": string(role)},
	})

	return user, nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password both return ErrInvalidCredentials, and the unknown
// email path still burns a hash comparison so the two are
// indistinguishable from outside.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.DummyVerify(ctx)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("login failed", "user_id", user.ID)
		s.record(ctx, &audit.Entry{
			Action:     audit.ActionLoginFailed,
			EntityType: "user",
			EntityID:   user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	s.record(ctx, &audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     user.ID,
	})

	return &LoginResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented token's record is
// deleted and a new pair is issued. A concurrent replay of the consumed
// token finds no record and fails with ErrTokenRevoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	record, claims, err := s.issuer.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Account deleted since issuance. Drop the orphan record.
			_ = s.tokens.DeleteByID(ctx, record.ID) //nolint:errcheck // best effort cleanup
			return nil, ErrTokenRevoked
		}
		return nil, err
	}

	if err := s.tokens.DeleteByID(ctx, record.ID); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("refresh token rotated", "user_id", user.ID, "old_token_id", claims.ID)
	s.record(ctx, &audit.Entry{
		Action:     audit.ActionRefresh,
		EntityType: "token",
		EntityID:   record.ID,
		UserID:     user.ID,
	})

	return &LoginResult{User: user, Tokens: pair}, nil
}

// Logout revokes the presented refresh token by deleting its record.
// The access token stays valid until expiry; clearing the cookie is the
// transport layer's job.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	record, _, err := s.issuer.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.tokens.DeleteByID(ctx, record.ID); err != nil {
		return err
	}

	s.logger.Info("user logged out", "user_id", record.UserID)
	s.record(ctx, &audit.Entry{
		Action:     audit.ActionLogout,
		EntityType: "token",
		EntityID:   record.ID,
		UserID:     record.UserID,
	})

	return nil
}

// LogoutAll revokes every refresh token a user holds. Used by admin
// force-logout. Returns the number of sessions ended.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.tokens.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("all sessions revoked", "user_id", userID, "count", count)
	return count, nil
}

// ChangePassword verifies the current password and replaces it with a
// new one. Every refresh token the user holds is revoked, so sessions
// stolen under the old password die with it.
func (s *Service) ChangePassword(ctx context.Context, userID, current, replacement string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, current, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("password change rejected", "user_id", userID)
		return ErrInvalidCredentials
	}

	if len(replacement) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := s.hasher.Hash(ctx, replacement)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if _, err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	s.record(ctx, &audit.Entry{
		Action:     audit.ActionPasswordReset,
		EntityType: "user",
		EntityID:   userID,
		UserID:     userID,
	})

	return nil
}

// Self returns the account behind an authenticated request.
func (s *Service) Self(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// SweepExpiredTokens deletes refresh token records past their expiry.
func (s *Service) SweepExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

// StartSweeper runs the expired-token sweep on the given interval until
// the context is cancelled. Call in a goroutine.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.SweepExpiredTokens(ctx)
			if err != nil {
				s.logger.Error("token sweep failed", "error", err)
				continue
			}
			if count > 0 {
				s.logger.Info("expired refresh tokens removed", "count", count)
			}
		}
	}
}

// issuePair mints an access/refresh pair for a verified user.
func (s *Service) issuePair(ctx context.Context, user *User) (TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.issuer.IssueRefreshToken(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// record writes an audit entry, logging instead of failing the request
// when the write goes wrong.
func (s *Service) record(ctx context.Context, entry *audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("audit write failed", "action", entry.Action, "error", err)
	}
}

// validateNewAccount applies the shared account field checks.
func validateNewAccount(firstName, lastName, email, password string) error {
	if strings.TrimSpace(firstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrValidation)
	}
	if strings.TrimSpace(lastName) == "" {
		return fmt.Errorf("%w: last name is required", ErrValidation)
	}
	if !IsValidEmail(email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}
