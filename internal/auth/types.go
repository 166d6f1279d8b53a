package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a coarse format check: one @, no whitespace, a dot in
// the domain. Real validation happens when the user receives mail.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleCustomer is a self-registered end user. Default role for new
	// accounts. Can read and manage only their own profile.
	RoleCustomer Role = "customer"

	// RoleManager operates a single tenant: staff accounts created by an
	// admin and bound to that tenant.
	RoleManager Role = "manager"

	// RoleAdmin has full control: users, tenants, audit. Admin accounts
	// are never self-registered.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleCustomer, RoleManager, RoleAdmin}

// IsValidRole returns true if the role is a valid account role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an authenticated account.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	TenantID     string    `json:"tenantId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RefreshToken is the stored record backing an issued refresh token.
// The record id is embedded in the signed token; deleting the record
// revokes the token no matter what the client still holds.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already in use")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrValidation         = errors.New("validation failed")
)
