package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/tilter/internal/ports/secondary"
)

// HiddenAnnotationRepository implements secondary.HiddenAnnotationRepository
// with SQLite.
type HiddenAnnotationRepository struct {
	db *sql.DB
}

// NewHiddenAnnotationRepository creates a new SQLite hidden annotation
// repository.
func NewHiddenAnnotationRepository(db *sql.DB) *HiddenAnnotationRepository {
	return &HiddenAnnotationRepository{db: db}
}

// Create persists a new hidden annotation.
func (r *HiddenAnnotationRepository) Create(ctx context.Context, hidden *secondary.HiddenAnnotationRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO hidden_annotations (id, task_id, label, value) VALUES (?, ?, ?, ?)",
		hidden.ID, hidden.TaskID, hidden.Label, hidden.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to create hidden annotation: %w", err)
	}
	return nil
}

// GetByTaskAndLabel retrieves a task's hidden annotation for a label, or
// nil when none exists.
func (r *HiddenAnnotationRepository) GetByTaskAndLabel(ctx context.Context, taskID, label string) (*secondary.HiddenAnnotationRecord, error) {
	record := &secondary.HiddenAnnotationRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, task_id, label, value FROM hidden_annotations WHERE task_id = ? AND label = ?",
		taskID, label,
	).Scan(&record.ID, &record.TaskID, &record.Label, &record.Value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hidden annotation: %w", err)
	}
	return record, nil
}

// ListByTask retrieves all hidden annotations owned by a task.
func (r *HiddenAnnotationRepository) ListByTask(ctx context.Context, taskID string) ([]*secondary.HiddenAnnotationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, task_id, label, value FROM hidden_annotations WHERE task_id = ? ORDER BY rowid ASC",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden annotations: %w", err)
	}
	defer rows.Close()

	var records []*secondary.HiddenAnnotationRecord
	for rows.Next() {
		record := &secondary.HiddenAnnotationRecord{}
		if err := rows.Scan(&record.ID, &record.TaskID, &record.Label, &record.Value); err != nil {
			return nil, fmt.Errorf("failed to scan hidden annotation: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// DeleteByTask removes every hidden annotation owned by a task.
func (r *HiddenAnnotationRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM hidden_annotations WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("failed to delete hidden annotations: %w", err)
	}
	return nil
}

// Ensure HiddenAnnotationRepository implements the interface
var _ secondary.HiddenAnnotationRepository = (*HiddenAnnotationRepository)(nil)
