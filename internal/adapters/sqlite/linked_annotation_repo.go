package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/tilter/internal/ports/secondary"
)

// LinkedAnnotationRepository implements secondary.LinkedAnnotationRepository
// with SQLite.
type LinkedAnnotationRepository struct {
	db *sql.DB
}

// NewLinkedAnnotationRepository creates a new SQLite linked annotation
// repository.
func NewLinkedAnnotationRepository(db *sql.DB) *LinkedAnnotationRepository {
	return &LinkedAnnotationRepository{db: db}
}

// Create persists a new linked annotation.
func (r *LinkedAnnotationRepository) Create(ctx context.Context, linked *secondary.LinkedAnnotationRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO linked_annotations (id, task_id, label, related_to, value, manual) VALUES (?, ?, ?, ?, ?, ?)",
		linked.ID, linked.TaskID, linked.Label, nullable(linked.RelatedToID), linked.Value, linked.Manual,
	)
	if err != nil {
		return fmt.Errorf("failed to create linked annotation: %w", err)
	}
	return nil
}

// GetByTaskAndLabel retrieves a task's linked annotation for a label,
// matching both the bare and "~"-prefixed spelling, or nil when none
// exists.
func (r *LinkedAnnotationRepository) GetByTaskAndLabel(ctx context.Context, taskID, label string) (*secondary.LinkedAnnotationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, task_id, label, related_to, value, manual FROM linked_annotations WHERE task_id = ? AND (label = ? OR label = ?)",
		taskID, label, "~"+label,
	)
	record, err := scanLinked(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linked annotation: %w", err)
	}
	return record, nil
}

// ListByTask retrieves all linked annotations owned by a task.
func (r *LinkedAnnotationRepository) ListByTask(ctx context.Context, taskID string) ([]*secondary.LinkedAnnotationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, task_id, label, related_to, value, manual FROM linked_annotations WHERE task_id = ? ORDER BY rowid ASC",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked annotations: %w", err)
	}
	defer rows.Close()

	var records []*secondary.LinkedAnnotationRecord
	for rows.Next() {
		record, err := scanLinked(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked annotation: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Upsert creates or overwrites a task's linked annotation for a label.
func (r *LinkedAnnotationRepository) Upsert(ctx context.Context, linked *secondary.LinkedAnnotationRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO linked_annotations (id, task_id, label, related_to, value, manual) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(task_id, label) DO UPDATE SET value = excluded.value, manual = excluded.manual`,
		linked.ID, linked.TaskID, linked.Label, nullable(linked.RelatedToID), linked.Value, linked.Manual,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert linked annotation: %w", err)
	}
	return nil
}

// SetValueByRelatedTo updates the value of every linked annotation whose
// related_to reference matches the given annotation.
func (r *LinkedAnnotationRepository) SetValueByRelatedTo(ctx context.Context, annotationID string, value bool) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE linked_annotations SET value = ? WHERE related_to = ?",
		value, annotationID,
	); err != nil {
		return fmt.Errorf("failed to sync linked annotations: %w", err)
	}
	return nil
}

// DeleteByTask removes every linked annotation owned by a task.
func (r *LinkedAnnotationRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM linked_annotations WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("failed to delete linked annotations: %w", err)
	}
	return nil
}

func scanLinked(row scanner) (*secondary.LinkedAnnotationRecord, error) {
	var relatedTo sql.NullString

	record := &secondary.LinkedAnnotationRecord{}
	err := row.Scan(&record.ID, &record.TaskID, &record.Label, &relatedTo, &record.Value, &record.Manual)
	if err != nil {
		return nil, err
	}

	record.RelatedToID = relatedTo.String
	return record, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure LinkedAnnotationRepository implements the interface
var _ secondary.LinkedAnnotationRepository = (*LinkedAnnotationRepository)(nil)
