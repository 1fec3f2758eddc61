package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openRawSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrations_FreshDatabase(t *testing.T) {
	// Given: A fresh database with no tables
	db := openRawSQLite(t)

	// When: RunMigrations is called
	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	// Then: Every table exists with its columns
	queries := []string{
		`SELECT id, user_id, title, description, deadline, priority, status, progress_percentage, created_at, updated_at FROM goals LIMIT 0`,
		`SELECT id, user_id, goal_id, title, description, completed, status, due_date, priority, created_at, updated_at, completed_at FROM tasks LIMIT 0`,
		`SELECT id, user_id, amount, category, description, date, created_at, updated_at FROM expenses LIMIT 0`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("schema missing columns for %q: %v", q, err)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	// Given: A database that has already been migrated
	db := openRawSQLite(t)
	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("first migration failed: %v", err)
	}

	// When: RunMigrations is called again
	err := RunMigrations(db, DialectSQLite)

	// Then: No error occurs
	if err != nil {
		t.Fatalf("second migration should be idempotent, got error: %v", err)
	}
}

func TestRunMigrations_PreservesData(t *testing.T) {
	db := openRawSQLite(t)
	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("initial migration failed: %v", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT INTO expenses (id, user_id, amount, category, date, created_at, updated_at)
		VALUES ('exp-1', 'alice', 12.5, 'Food & Dining', '2024-01-01', ?, ?)
	`, now, now)
	if err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}

	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("re-migration failed: %v", err)
	}

	var amount float64
	if err := db.QueryRow(`SELECT amount FROM expenses WHERE id = 'exp-1'`).Scan(&amount); err != nil {
		t.Fatalf("data lost after re-migration: %v", err)
	}
	if amount != 12.5 {
		t.Errorf("amount = %v, want 12.5", amount)
	}
}

func TestRunMigrations_RejectsNonPositiveAmount(t *testing.T) {
	db := openRawSQLite(t)
	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO expenses (id, user_id, amount, category, date, created_at, updated_at)
		VALUES ('exp-0', 'alice', 0, 'Other', '2024-01-01', 'x', 'x')
	`)
	if err == nil {
		t.Fatal("expected CHECK constraint to reject amount 0")
	}
}

func TestMigrationStatus_ReportsVersion(t *testing.T) {
	db := openRawSQLite(t)
	if err := RunMigrations(db, DialectSQLite); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	version, err := MigrationStatus(context.Background(), db, DialectSQLite)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if version < 1 {
		t.Errorf("version = %d, want >= 1", version)
	}
}

func TestDialect_GooseDialect(t *testing.T) {
	if got := DialectSQLite.gooseDialect(); got != "sqlite" {
		t.Errorf("sqlite dialect = %q", got)
	}
	if got := DialectPostgres.gooseDialect(); got != "postgres" {
		t.Errorf("postgres dialect = %q", got)
	}
}
