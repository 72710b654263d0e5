package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "add_parent_child_annotation_links",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_manual_labels_to_tasks",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_content_hash_to_meta_tasks",
		Up:      migrationV3,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations() error {
	db, err := GetDB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}
	return runMigrations(db)
}

func ensureVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	if err := ensureVersionTable(db); err != nil {
		return err
	}

	// Get current schema version
	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Apply pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 adds the trigger/seed pairing columns to annotations.
// Installs created before subtask teardown tracked these links.
func migrationV1(db *sql.DB) error {
	for _, stmt := range []string{
		"ALTER TABLE annotations ADD COLUMN parent_annotation_id TEXT",
		"ALTER TABLE annotations ADD COLUMN child_annotation_id TEXT",
	} {
		if _, err := db.Exec(stmt); err != nil {
			if isDuplicateColumn(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// migrationV2 adds the manual boolean label set to tasks.
func migrationV2(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE tasks ADD COLUMN manual_labels TEXT NOT NULL DEFAULT '[]'")
	if err != nil && isDuplicateColumn(err) {
		return nil
	}
	return err
}

// migrationV3 adds content hash tracking to document metadata.
func migrationV3(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE meta_tasks ADD COLUMN content_hash TEXT")
	if err != nil && isDuplicateColumn(err) {
		return nil
	}
	return err
}

// isDuplicateColumn reports whether an ALTER failed because the column is
// already present (fresh installs get it from SchemaSQL directly).
func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}
