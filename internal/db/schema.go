package db

import "database/sql"

// SchemaSQL is the complete schema for fresh tilter installs. It reflects
// the current state after all migrations.
//
// This is the single source of truth for the database schema. All tests use
// it via GetSchemaSQL(); if repository code references a column that does
// not exist here, tests fail immediately with "no such column" instead of
// drifting silently.
//
// When adding new columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Tasks (units of annotation work, one schema position each)
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	parent_id TEXT REFERENCES tasks(id),
	hierarchy TEXT NOT NULL DEFAULT '[]',
	labels TEXT NOT NULL DEFAULT '[]',
	manual_labels TEXT NOT NULL DEFAULT '[]',
	text TEXT NOT NULL,
	html INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);

-- Annotations (labeled text spans owned by a task)
CREATE TABLE IF NOT EXISTS annotations (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	label TEXT NOT NULL,
	start_pos INTEGER NOT NULL,
	end_pos INTEGER NOT NULL,
	text TEXT NOT NULL,
	parent_annotation_id TEXT,
	child_annotation_id TEXT,
	changed_at DATETIME,
	UNIQUE(task_id, label, start_pos, end_pos, text)
);

CREATE INDEX IF NOT EXISTS idx_annotations_task ON annotations(task_id);

-- Hidden annotations (non-positional identifier values)
CREATE TABLE IF NOT EXISTS hidden_annotations (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	label TEXT NOT NULL,
	value TEXT NOT NULL,
	UNIQUE(task_id, label)
);

-- Linked annotations (derived or manually entered boolean flags)
CREATE TABLE IF NOT EXISTS linked_annotations (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	label TEXT NOT NULL,
	related_to TEXT,
	value INTEGER NOT NULL DEFAULT 0,
	manual INTEGER NOT NULL DEFAULT 0,
	UNIQUE(task_id, label)
);

-- Document metadata (one record per root task)
CREATE TABLE IF NOT EXISTS meta_tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created TEXT NOT NULL,
	modified TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	language TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('active', 'inactive')) DEFAULT 'active',
	url TEXT,
	root_task_id TEXT NOT NULL UNIQUE REFERENCES tasks(id),
	content_hash TEXT
);
`

// GetSchemaSQL returns the authoritative schema SQL. Tests use this to
// build in-memory databases that cannot drift from production.
func GetSchemaSQL() string {
	return SchemaSQL
}

// InitSchema brings the connection to the current schema. Fresh installs
// get SchemaSQL directly and have every migration recorded as applied;
// existing installs run pending migrations.
func InitSchema() error {
	database, err := GetDB()
	if err != nil {
		return err
	}
	return initSchema(database)
}

func initSchema(database *sql.DB) error {
	var versioned int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&versioned)
	if err != nil {
		return err
	}
	if versioned > 0 {
		return runMigrations(database)
	}

	// No version table. An install that already has tasks predates schema
	// versioning and needs the migrations; anything else is fresh.
	var legacy int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tasks'").Scan(&legacy)
	if err != nil {
		return err
	}
	if legacy > 0 {
		return runMigrations(database)
	}

	if _, err := database.Exec(SchemaSQL); err != nil {
		return err
	}
	if err := ensureVersionTable(database); err != nil {
		return err
	}
	// SchemaSQL already reflects every migration; record them as applied so
	// they never run against a fresh install.
	for _, migration := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return err
		}
	}
	return nil
}
