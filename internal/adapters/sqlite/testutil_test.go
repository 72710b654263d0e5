// Package sqlite_test contains integration tests for SQLite repositories.
//
// setupTestDB uses db.GetSchemaSQL() so tests always run against the
// authoritative schema; do not hardcode CREATE TABLE statements here.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/tilter/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedTask inserts a test task and returns its ID.
func seedTask(t *testing.T, db *sql.DB, id, parentID string) string {
	t.Helper()
	if id == "" {
		id = "task-001"
	}

	var parent sql.NullString
	if parentID != "" {
		parent = sql.NullString{String: parentID, Valid: true}
	}
	_, err := db.Exec(
		"INSERT INTO tasks (id, name, parent_id, text) VALUES (?, ?, ?, ?)",
		id, "Test Task "+id, parent, "some document text",
	)
	if err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	return id
}
