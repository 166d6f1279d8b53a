package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for tenant persistence.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed tenant repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new tenant. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, t *Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = "tnt-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	t.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Address, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, address, created_at, updated_at FROM tenants WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting tenant: %w", err)
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// List returns all tenants ordered by creation date.
func (r *SQLiteRepository) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, address, created_at, updated_at FROM tenants ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		var createdAt, updatedAt string

		if err := rows.Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}

		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}

	if tenants == nil {
		tenants = []Tenant{}
	}
	return tenants, nil
}

// Update modifies a tenant's name and address.
func (r *SQLiteRepository) Update(ctx context.Context, t *Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?",
		t.Name, t.Address, now, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a tenant by ID. Users bound to it keep their accounts;
// their tenant reference is cleared by the schema.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
