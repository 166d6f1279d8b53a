// Package tenant manages tenant organisations. Manager accounts are
// scoped to exactly one tenant; admins manage all of them.
package tenant

import (
	"errors"
	"fmt"
	"time"
)

// Tenant represents a single tenant organisation.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Field length limits enforced on create and update.
const (
	MaxNameLength    = 100
	MaxAddressLength = 255
)

// Sentinel errors for tenant operations.
var (
	ErrNotFound   = errors.New("tenant not found")
	ErrValidation = errors.New("validation failed")
)

// Validate checks the tenant's writable fields.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(t.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}
	if t.Address == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	if len(t.Address) > MaxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters", ErrValidation, MaxAddressLength)
	}
	return nil
}
