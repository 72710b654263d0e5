package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/tilter/internal/ports/secondary"
)

// MetaRepository implements secondary.MetaRepository with SQLite.
type MetaRepository struct {
	db *sql.DB
}

// NewMetaRepository creates a new SQLite metadata repository.
func NewMetaRepository(db *sql.DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// Create persists a new metadata record.
func (r *MetaRepository) Create(ctx context.Context, meta *secondary.MetaRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO meta_tasks (id, name, created, modified, version, language, status, url, root_task_id, content_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		meta.ID, meta.Name, meta.Created, meta.Modified, meta.Version, meta.Language,
		meta.Status, nullable(meta.URL), meta.RootTaskID, nullable(meta.ContentHash),
	)
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}
	return nil
}

// GetByRootTask retrieves the metadata record for a root task, or nil when
// the root predates metadata tracking.
func (r *MetaRepository) GetByRootTask(ctx context.Context, rootTaskID string) (*secondary.MetaRecord, error) {
	var url, contentHash sql.NullString

	record := &secondary.MetaRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created, modified, version, language, status, url, root_task_id, content_hash FROM meta_tasks WHERE root_task_id = ?",
		rootTaskID,
	).Scan(&record.ID, &record.Name, &record.Created, &record.Modified, &record.Version,
		&record.Language, &record.Status, &url, &record.RootTaskID, &contentHash)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	record.URL = url.String
	record.ContentHash = contentHash.String
	return record, nil
}

// Update overwrites an existing metadata record.
func (r *MetaRepository) Update(ctx context.Context, meta *secondary.MetaRecord) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE meta_tasks SET name = ?, modified = ?, version = ?, language = ?, status = ?, url = ?, content_hash = ? WHERE root_task_id = ?",
		meta.Name, meta.Modified, meta.Version, meta.Language, meta.Status,
		nullable(meta.URL), nullable(meta.ContentHash), meta.RootTaskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("metadata for task %s not found", meta.RootTaskID)
	}

	return nil
}

// DeleteByRootTask removes the metadata record for a root task.
func (r *MetaRepository) DeleteByRootTask(ctx context.Context, rootTaskID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM meta_tasks WHERE root_task_id = ?", rootTaskID); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// Ensure MetaRepository implements the interface
var _ secondary.MetaRepository = (*MetaRepository)(nil)
