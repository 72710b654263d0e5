package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/tilter/internal/ports/secondary"
)

// AnnotationRepository implements secondary.AnnotationRepository with
// SQLite. The UNIQUE(task_id, label, start_pos, end_pos, text) index is the
// store-level duplicate guard the reconciler relies on.
type AnnotationRepository struct {
	db *sql.DB
}

// NewAnnotationRepository creates a new SQLite annotation repository.
func NewAnnotationRepository(db *sql.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

const annotationColumns = "id, task_id, label, start_pos, end_pos, text, parent_annotation_id, child_annotation_id, changed_at"

// Create persists a new annotation.
func (r *AnnotationRepository) Create(ctx context.Context, annotation *secondary.AnnotationRecord) error {
	var parentLink, childLink sql.NullString
	if annotation.ParentAnnotationID != "" {
		parentLink = sql.NullString{String: annotation.ParentAnnotationID, Valid: true}
	}
	if annotation.ChildAnnotationID != "" {
		childLink = sql.NullString{String: annotation.ChildAnnotationID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO annotations (id, task_id, label, start_pos, end_pos, text, parent_annotation_id, child_annotation_id, changed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)",
		annotation.ID, annotation.TaskID, annotation.Label, annotation.Start, annotation.End,
		annotation.Text, parentLink, childLink,
	)
	if err != nil {
		return fmt.Errorf("failed to create annotation: %w", err)
	}

	return nil
}

// GetByID retrieves an annotation by its ID.
func (r *AnnotationRepository) GetByID(ctx context.Context, id string) (*secondary.AnnotationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+annotationColumns+" FROM annotations WHERE id = ?", id,
	)
	record, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("annotation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}
	return record, nil
}

// FindExact retrieves the annotation matching the full identity tuple, or
// nil when no such annotation exists. Lookup misses drive the reconciler's
// create path and are not errors.
func (r *AnnotationRepository) FindExact(ctx context.Context, taskID, label string, start, end int, text string) (*secondary.AnnotationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+annotationColumns+" FROM annotations WHERE task_id = ? AND label = ? AND start_pos = ? AND end_pos = ? AND text = ?",
		taskID, label, start, end, text,
	)
	record, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find annotation: %w", err)
	}
	return record, nil
}

// ListByTask retrieves all annotations owned by a task in insertion order.
func (r *AnnotationRepository) ListByTask(ctx context.Context, taskID string) ([]*secondary.AnnotationRecord, error) {
	return r.queryAnnotations(ctx,
		"SELECT "+annotationColumns+" FROM annotations WHERE task_id = ? ORDER BY rowid ASC",
		taskID,
	)
}

// ListByTaskAndLabel retrieves a task's annotations carrying a label.
func (r *AnnotationRepository) ListByTaskAndLabel(ctx context.Context, taskID, label string) ([]*secondary.AnnotationRecord, error) {
	return r.queryAnnotations(ctx,
		"SELECT "+annotationColumns+" FROM annotations WHERE task_id = ? AND label = ? ORDER BY rowid ASC",
		taskID, label,
	)
}

// SetChildLink records the child side of a trigger/seed pairing. The
// parent side is persisted with the seed annotation itself.
func (r *AnnotationRepository) SetChildLink(ctx context.Context, id, childAnnotationID string) error {
	var link sql.NullString
	if childAnnotationID != "" {
		link = sql.NullString{String: childAnnotationID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE annotations SET child_annotation_id = ?, changed_at = CURRENT_TIMESTAMP WHERE id = ?",
		link, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update annotation link: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("annotation %s not found", id)
	}

	return nil
}

// Delete removes an annotation from persistence.
func (r *AnnotationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM annotations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete annotation: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("annotation %s not found", id)
	}

	return nil
}

// DeleteByTask removes every annotation owned by a task.
func (r *AnnotationRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM annotations WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("failed to delete annotations: %w", err)
	}
	return nil
}

func (r *AnnotationRepository) queryAnnotations(ctx context.Context, query string, args ...any) ([]*secondary.AnnotationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []*secondary.AnnotationRecord
	for rows.Next() {
		record, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, record)
	}

	return annotations, rows.Err()
}

func scanAnnotation(row scanner) (*secondary.AnnotationRecord, error) {
	var (
		parentLink sql.NullString
		childLink  sql.NullString
		changedAt  sql.NullTime
	)

	record := &secondary.AnnotationRecord{}
	err := row.Scan(&record.ID, &record.TaskID, &record.Label, &record.Start, &record.End,
		&record.Text, &parentLink, &childLink, &changedAt)
	if err != nil {
		return nil, err
	}

	record.ParentAnnotationID = parentLink.String
	record.ChildAnnotationID = childLink.String
	if changedAt.Valid {
		record.ChangedAt = changedAt.Time.Format(time.RFC3339)
	}

	return record, nil
}

// Ensure AnnotationRepository implements the interface
var _ secondary.AnnotationRepository = (*AnnotationRepository)(nil)
