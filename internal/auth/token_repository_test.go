package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	user := seedTestUser(t, db, "alice@example.com", RoleCustomer)

	token := &RefreshToken{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(token.ID, "rt-") {
		t.Errorf("generated ID should have rt- prefix, got %q", token.ID)
	}

	got, err := repo.GetByID(context.Background(), token.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, user.ID)
	}
	if got.ExpiresAt.Before(time.Now()) {
		t.Error("ExpiresAt should be in the future")
	}
}

func TestTokenRepository_GetByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)

	_, err := repo.GetByID(context.Background(), "rt-missing")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("GetByID() error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenRepository_DeleteByID(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	user := seedTestUser(t, db, "bob@example.com", RoleCustomer)

	token := &RefreshToken{UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.DeleteByID(context.Background(), token.ID); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}

	if _, err := repo.GetByID(context.Background(), token.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrTokenNotFound", err)
	}

	// Deleting again is not an error
	if err := repo.DeleteByID(context.Background(), token.ID); err != nil {
		t.Errorf("DeleteByID() second call error = %v, want nil", err)
	}
}

func TestTokenRepository_DeleteAllForUser(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	alice := seedTestUser(t, db, "alice@example.com", RoleCustomer)
	bob := seedTestUser(t, db, "bob@example.com", RoleCustomer)

	for i := 0; i < 3; i++ {
		if err := repo.Create(context.Background(), &RefreshToken{UserID: alice.ID, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Create(context.Background(), &RefreshToken{UserID: bob.ID, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	count, err := repo.DeleteAllForUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("DeleteAllForUser() error = %v", err)
	}
	if count != 3 {
		t.Errorf("deleted count = %d, want 3", count)
	}

	// Bob's session survives
	bobCount, err := repo.CountByUser(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("CountByUser() error = %v", err)
	}
	if bobCount != 1 {
		t.Errorf("bob's token count = %d, want 1", bobCount)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	user := seedTestUser(t, db, "carol@example.com", RoleCustomer)

	expired := &RefreshToken{UserID: user.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	live := &RefreshToken{UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	for _, tok := range []*RefreshToken{expired, live} {
		if err := repo.Create(context.Background(), tok); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	count, err := repo.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("deleted count = %d, want 1", count)
	}

	if _, err := repo.GetByID(context.Background(), expired.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Error("expired token should be gone")
	}
	if _, err := repo.GetByID(context.Background(), live.ID); err != nil {
		t.Errorf("live token should survive the sweep, got error %v", err)
	}
}

func TestTokenRepository_CountByUser(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	user := seedTestUser(t, db, "dave@example.com", RoleCustomer)

	count, err := repo.CountByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CountByUser() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	for i := 0; i < 2; i++ {
		if err := repo.Create(context.Background(), &RefreshToken{UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	count, err = repo.CountByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CountByUser() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
