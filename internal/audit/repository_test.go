package audit

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "audit-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			user_id TEXT,
			source TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying audit migration: %v", err)
	}

	return db
}

func TestRepository_RecordAndList(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)

	entry := &Entry{
		Action:     ActionLogin,
		EntityType: "user",
		EntityID:   "usr-001",
		UserID:     "usr-001",
		Details:    map[string]any{"ip": "10.0.0.1"},
	}
	if err := repo.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if !strings.HasPrefix(entry.ID, "aud-") {
		t.Errorf("generated ID should have aud- prefix, got %q", entry.ID)
	}
	if entry.Source != "api" {
		t.Errorf("Source = %q, want api default", entry.Source)
	}

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("Total = %d, Entries = %d, want 1/1", result.Total, len(result.Entries))
	}

	got := result.Entries[0]
	if got.Action != ActionLogin {
		t.Errorf("Action = %q, want login", got.Action)
	}
	if got.Details["ip"] != "10.0.0.1" {
		t.Errorf("Details[ip] = %v, want 10.0.0.1", got.Details["ip"])
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestRepository_Record_NullableFields(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)

	// Failed logins carry no acting user and no details.
	if err := repo.Record(context.Background(), &Entry{
		Action:     ActionLoginFailed,
		EntityType: "user",
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := result.Entries[0]
	if got.EntityID != "" || got.UserID != "" || got.Details != nil {
		t.Errorf("nullable fields should round-trip empty, got %+v", got)
	}
}

func TestRepository_List_Filters(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)

	seed := []Entry{
		{Action: ActionLogin, EntityType: "user", EntityID: "usr-a", UserID: "usr-a"},
		{Action: ActionLogin, EntityType: "user", EntityID: "usr-b", UserID: "usr-b"},
		{Action: ActionCreate, EntityType: "tenant", EntityID: "tnt-1", UserID: "usr-a"},
		{Action: ActionDelete, EntityType: "tenant", EntityID: "tnt-1", UserID: "usr-b"},
	}
	for i := range seed {
		if err := repo.Record(context.Background(), &seed[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"no filter", Filter{}, 4},
		{"by action", Filter{Action: ActionLogin}, 2},
		{"by entity type", Filter{EntityType: "tenant"}, 2},
		{"by entity id", Filter{EntityID: "tnt-1"}, 2},
		{"by user", Filter{UserID: "usr-a"}, 2},
		{"combined", Filter{EntityType: "tenant", UserID: "usr-b"}, 1},
		{"no match", Filter{Action: ActionLogout}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("Total = %d, want %d", result.Total, tt.want)
			}
			if len(result.Entries) != tt.want {
				t.Errorf("len(Entries) = %d, want %d", len(result.Entries), tt.want)
			}
		})
	}
}

func TestRepository_List_Pagination(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &Entry{
			Action:     ActionLogin,
			EntityType: "user",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(context.Background(), entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	result, err := repo.List(context.Background(), Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}
	if len(result.Entries) != 2 {
		t.Errorf("page size = %d, want 2", len(result.Entries))
	}

	// Most recent first
	if result.Entries[0].CreatedAt.Before(result.Entries[1].CreatedAt) {
		t.Error("entries should be ordered most recent first")
	}

	page2, err := repo.List(context.Background(), Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page2.Entries) != 1 {
		t.Errorf("final page size = %d, want 1", len(page2.Entries))
	}

	// Out of range limits are clamped, not rejected
	clamped, err := repo.List(context.Background(), Filter{Limit: 10000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if clamped.Limit != 200 {
		t.Errorf("Limit = %d, want clamp to 200", clamped.Limit)
	}
	if clamped.Offset != 0 {
		t.Errorf("Offset = %d, want clamp to 0", clamped.Offset)
	}
}
