// Package primary defines the primary ports (driving adapters) for the
// application: the service interfaces the CLI and HTTP shells call into.
package primary

import (
	"context"

	"github.com/example/tilter/internal/tiltschema"
)

// TaskService defines the primary port for task lifecycle operations.
type TaskService interface {
	// CreateRootTask ingests a document as a new root task, or returns the
	// existing one when name and text match.
	CreateRootTask(ctx context.Context, req CreateRootTaskRequest) (*CreateRootTaskResponse, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// ListTasks lists tasks with optional filters.
	ListTasks(ctx context.Context, filters TaskFilters) ([]*Task, error)

	// ListRoots lists all root tasks.
	ListRoots(ctx context.Context) ([]*Task, error)

	// DeleteTask removes a task and everything it transitively owns.
	DeleteTask(ctx context.Context, taskID string) error

	// GetAnnotations retrieves the annotations owned by a task.
	GetAnnotations(ctx context.Context, taskID string) ([]*Annotation, error)
}

// CreateRootTaskRequest carries the fields of a document ingestion.
type CreateRootTaskRequest struct {
	Name string
	Text string
	HTML bool
	URL  string
}

// CreateRootTaskResponse reports the ingested task and whether it was
// freshly created.
type CreateRootTaskResponse struct {
	Task    *Task
	Created bool
}

// Task is the task representation exposed to shells.
type Task struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	ParentID     string                       `json:"parent_id,omitempty"`
	Hierarchy    []string                     `json:"hierarchy"`
	Labels       []tiltschema.AnnotationLabel `json:"labels"`
	ManualLabels []tiltschema.ManualBool      `json:"manual_labels,omitempty"`
	Text         string                       `json:"text"`
	HTML         bool                         `json:"html"`
	CreatedAt    string                       `json:"created_at"`
	UpdatedAt    string                       `json:"updated_at"`
}

// TaskFilters contains filter options for listing tasks.
type TaskFilters struct {
	RootsOnly bool
	Name      string
	Limit     int
}
