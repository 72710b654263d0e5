// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/tilter/internal/ports/secondary"
	"github.com/example/tilter/internal/tiltschema"
)

// TaskRepository implements secondary.TaskRepository with SQLite.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = "id, name, parent_id, hierarchy, labels, manual_labels, text, html, created_at, updated_at"

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, task *secondary.TaskRecord) error {
	hierarchy, labels, manualLabels, err := encodeTaskFields(task)
	if err != nil {
		return err
	}

	var parentID sql.NullString
	if task.ParentID != "" {
		parentID = sql.NullString{String: task.ParentID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO tasks (id, name, parent_id, hierarchy, labels, manual_labels, text, html) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID, task.Name, parentID, hierarchy, labels, manualLabels, task.Text, task.HTML,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*secondary.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id,
	)
	record, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return record, nil
}

// FindRoot retrieves a root task by name and text, if one exists.
func (r *TaskRepository) FindRoot(ctx context.Context, name, text string) (*secondary.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id IS NULL AND name = ? AND text = ?",
		name, text,
	)
	record, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find root task: %w", err)
	}
	return record, nil
}

// List retrieves tasks matching the given filters.
func (r *TaskRepository) List(ctx context.Context, filters secondary.TaskFilters) ([]*secondary.TaskRecord, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE 1=1"
	args := []any{}

	if filters.RootsOnly {
		query += " AND parent_id IS NULL"
	}
	if filters.Name != "" {
		query += " AND name LIKE '%' || ? || '%'"
		args = append(args, filters.Name)
	}

	query += " ORDER BY created_at ASC, rowid ASC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	return r.queryTasks(ctx, query, args...)
}

// GetChildren retrieves the tasks whose parent and hierarchy both match.
func (r *TaskRepository) GetChildren(ctx context.Context, parentID string, hierarchy []string) ([]*secondary.TaskRecord, error) {
	encoded, err := json.Marshal(hierarchy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hierarchy: %w", err)
	}
	return r.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id = ? AND hierarchy = ? ORDER BY created_at ASC, rowid ASC",
		parentID, string(encoded),
	)
}

// GetAllChildren retrieves every task whose parent matches.
func (r *TaskRepository) GetAllChildren(ctx context.Context, parentID string) ([]*secondary.TaskRecord, error) {
	return r.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id = ? ORDER BY created_at ASC, rowid ASC",
		parentID,
	)
}

// Delete removes a task from persistence.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("task %s not found", id)
	}

	return nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*secondary.TaskRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*secondary.TaskRecord
	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, record)
	}

	return tasks, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*secondary.TaskRecord, error) {
	var (
		parentID     sql.NullString
		hierarchy    string
		labels       string
		manualLabels string
		createdAt    time.Time
		updatedAt    time.Time
	)

	record := &secondary.TaskRecord{}
	err := row.Scan(&record.ID, &record.Name, &parentID, &hierarchy, &labels, &manualLabels,
		&record.Text, &record.HTML, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.ParentID = parentID.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	if err := json.Unmarshal([]byte(hierarchy), &record.Hierarchy); err != nil {
		return nil, fmt.Errorf("corrupt hierarchy on task %s: %w", record.ID, err)
	}
	if err := json.Unmarshal([]byte(labels), &record.Labels); err != nil {
		return nil, fmt.Errorf("corrupt labels on task %s: %w", record.ID, err)
	}
	if err := json.Unmarshal([]byte(manualLabels), &record.ManualLabels); err != nil {
		return nil, fmt.Errorf("corrupt manual labels on task %s: %w", record.ID, err)
	}

	return record, nil
}

func encodeTaskFields(task *secondary.TaskRecord) (string, string, string, error) {
	hierarchy := task.Hierarchy
	if hierarchy == nil {
		hierarchy = []string{}
	}
	labels := task.Labels
	if labels == nil {
		labels = []tiltschema.AnnotationLabel{}
	}
	manualLabels := task.ManualLabels
	if manualLabels == nil {
		manualLabels = []tiltschema.ManualBool{}
	}

	encodedHierarchy, err := json.Marshal(hierarchy)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode hierarchy: %w", err)
	}
	encodedLabels, err := json.Marshal(labels)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode labels: %w", err)
	}
	encodedManual, err := json.Marshal(manualLabels)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode manual labels: %w", err)
	}

	return string(encodedHierarchy), string(encodedLabels), string(encodedManual), nil
}

// Ensure TaskRepository implements the interface
var _ secondary.TaskRepository = (*TaskRepository)(nil)
