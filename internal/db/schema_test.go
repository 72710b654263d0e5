package db

import (
	"database/sql"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func schemaVersion(t *testing.T, database *sql.DB) int {
	t.Helper()
	var version int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	return version
}

func TestInitSchemaFreshInstall(t *testing.T) {
	database := openTestDB(t)

	if err := initSchema(database); err != nil {
		t.Fatalf("initSchema failed: %v", err)
	}

	for _, table := range []string{"tasks", "annotations", "hidden_annotations", "linked_annotations", "meta_tasks", "schema_version"} {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	want := migrations[len(migrations)-1].Version
	if got := schemaVersion(t, database); got != want {
		t.Errorf("expected schema version %d on fresh install, got %d", want, got)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	database := openTestDB(t)

	if err := initSchema(database); err != nil {
		t.Fatalf("first initSchema failed: %v", err)
	}
	if err := initSchema(database); err != nil {
		t.Fatalf("second initSchema failed: %v", err)
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("failed to count versions: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d recorded migrations, got %d", len(migrations), count)
	}
}

func TestInitSchemaMigratesLegacyInstall(t *testing.T) {
	database := openTestDB(t)

	// Pre-versioning install: no schema_version table, no trigger/seed
	// columns, no manual labels, no content hash.
	legacy := `
		CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id TEXT,
			hierarchy TEXT NOT NULL DEFAULT '[]',
			labels TEXT NOT NULL DEFAULT '[]',
			text TEXT NOT NULL,
			html INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE annotations (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			label TEXT NOT NULL,
			start_pos INTEGER NOT NULL,
			end_pos INTEGER NOT NULL,
			text TEXT NOT NULL,
			changed_at DATETIME
		);
		CREATE TABLE meta_tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created TEXT NOT NULL,
			modified TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			language TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			url TEXT,
			root_task_id TEXT NOT NULL UNIQUE
		);
	`
	if _, err := database.Exec(legacy); err != nil {
		t.Fatalf("failed to create legacy schema: %v", err)
	}

	if err := initSchema(database); err != nil {
		t.Fatalf("initSchema failed: %v", err)
	}

	// The migrated columns must accept writes.
	_, err := database.Exec(
		"INSERT INTO annotations (id, task_id, label, start_pos, end_pos, text, parent_annotation_id, child_annotation_id) VALUES ('a1', 't1', 'L', 0, 1, 'x', NULL, NULL)",
	)
	if err != nil {
		t.Errorf("annotation link columns missing after migration: %v", err)
	}
	if _, err := database.Exec("INSERT INTO tasks (id, name, manual_labels, text) VALUES ('t1', 'n', '[]', 'x')"); err != nil {
		t.Errorf("manual_labels column missing after migration: %v", err)
	}
	if _, err := database.Exec("UPDATE meta_tasks SET content_hash = 'h'"); err != nil {
		t.Errorf("content_hash column missing after migration: %v", err)
	}

	want := migrations[len(migrations)-1].Version
	if got := schemaVersion(t, database); got != want {
		t.Errorf("expected schema version %d after migration, got %d", want, got)
	}
}
