package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"runs", "node_results", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("First Up() failed: %v", err)
	}
	if err := Up(db); err != nil {
		t.Errorf("Second Up() failed: %v (should be idempotent)", err)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Node results must reference an existing run.
	_, err := db.Exec(`
		INSERT INTO node_results (run_id, node, objects, status)
		VALUES ('no-such-run', 'node1', 3, 'ok')
	`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestCascadeDelete(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	if _, err := db.Exec("INSERT INTO runs (id, host_id, started_at, status) VALUES ('run-1', 'backup01', datetime('now'), 'ok')"); err != nil {
		t.Fatalf("Failed to insert run: %v", err)
	}
	if _, err := db.Exec("INSERT INTO node_results (run_id, node, objects, status) VALUES ('run-1', 'node1', 3, 'ok')"); err != nil {
		t.Fatalf("Failed to insert node result: %v", err)
	}

	if _, err := db.Exec("DELETE FROM runs WHERE id = 'run-1'"); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM node_results WHERE run_id = 'run-1'").Scan(&count); err != nil {
		t.Fatalf("Failed to count node results: %v", err)
	}
	if count != 0 {
		t.Errorf("node_results count after cascade delete = %d, want 0", count)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	return db
}
