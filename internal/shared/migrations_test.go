package shared

import (
	"database/sql"
	"testing"
)

func appliedVersions(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("failed to count schema_migrations: %v", err)
	}
	return n
}

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 || migrations[0].Version != 0 {
			t.Fatalf("expected migrations starting at version 0, got %+v", migrations)
		}
		for i, m := range migrations {
			if i > 0 && m.Version <= migrations[i-1].Version {
				t.Errorf("version %d listed after %d", m.Version, migrations[i-1].Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("version %d is missing a script", m.Version)
			}
		}
	})

	t.Run("session_tokens round trip", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		applied := appliedVersions(t, db)

		if _, err := db.Exec("INSERT INTO session_tokens (slot, token) VALUES ('current', 'abc')"); err != nil {
			t.Fatalf("session_tokens not writable: %v", err)
		}

		for range applied {
			if err := RollbackMigration(db); err != nil {
				t.Fatalf("rollback failed: %v", err)
			}
		}
		if n := appliedVersions(t, db); n != 0 {
			t.Errorf("expected every version rolled back, %d left", n)
		}
		if _, err := db.Exec("SELECT 1 FROM session_tokens"); err == nil {
			t.Error("expected session_tokens to be dropped")
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- header\nCREATE TABLE t (id INTEGER) -- trailing\n\n")
		if got != "CREATE TABLE t (id INTEGER)" {
			t.Errorf("unexpected statement %q", got)
		}
	})

	t.Run("OpenDatabase", func(t *testing.T) {
		db, err := OpenDatabase(DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("SELECT 1 FROM session_tokens LIMIT 1"); err != nil {
			t.Errorf("expected migrated schema: %v", err)
		}
	})

	t.Run("rerun applies nothing new", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		for range 2 {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}
		}

		migrations, _ := loadMigrations()
		if n := appliedVersions(t, db); n != len(migrations) {
			t.Errorf("expected %d applied versions, got %d", len(migrations), n)
		}
	})
}
