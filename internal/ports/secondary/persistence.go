// Package secondary defines the secondary ports (driven adapters) for the
// application: the interfaces through which the engine reaches persistence
// and the external document registry.
package secondary

import (
	"context"

	"github.com/example/tilter/internal/tiltschema"
)

// TaskRepository defines the secondary port for task persistence.
type TaskRepository interface {
	// Create persists a new task.
	Create(ctx context.Context, task *TaskRecord) error

	// GetByID retrieves a task by its ID.
	GetByID(ctx context.Context, id string) (*TaskRecord, error)

	// FindRoot retrieves a root task by name and text, if one exists.
	FindRoot(ctx context.Context, name, text string) (*TaskRecord, error)

	// List retrieves tasks matching the given filters.
	List(ctx context.Context, filters TaskFilters) ([]*TaskRecord, error)

	// GetChildren retrieves the tasks whose parent and hierarchy both match.
	GetChildren(ctx context.Context, parentID string, hierarchy []string) ([]*TaskRecord, error)

	// GetAllChildren retrieves every task whose parent matches, regardless
	// of hierarchy position.
	GetAllChildren(ctx context.Context, parentID string) ([]*TaskRecord, error)

	// Delete removes a task from persistence.
	Delete(ctx context.Context, id string) error
}

// TaskRecord represents a task as stored in persistence.
type TaskRecord struct {
	ID           string
	Name         string
	ParentID     string // empty for root tasks
	Hierarchy    []string
	Labels       []tiltschema.AnnotationLabel
	ManualLabels []tiltschema.ManualBool
	Text         string
	HTML         bool
	CreatedAt    string
	UpdatedAt    string
}

// TaskFilters contains filter options for querying tasks.
type TaskFilters struct {
	RootsOnly bool
	Name      string
	Limit     int
}

// AnnotationRepository defines the secondary port for annotation persistence.
// The store guarantees uniqueness on (task, label, start, end, text).
type AnnotationRepository interface {
	// Create persists a new annotation.
	Create(ctx context.Context, annotation *AnnotationRecord) error

	// GetByID retrieves an annotation by its ID.
	GetByID(ctx context.Context, id string) (*AnnotationRecord, error)

	// FindExact retrieves the annotation matching the full identity tuple,
	// or nil when no such annotation exists.
	FindExact(ctx context.Context, taskID, label string, start, end int, text string) (*AnnotationRecord, error)

	// ListByTask retrieves all annotations owned by a task.
	ListByTask(ctx context.Context, taskID string) ([]*AnnotationRecord, error)

	// ListByTaskAndLabel retrieves a task's annotations carrying a label.
	ListByTaskAndLabel(ctx context.Context, taskID, label string) ([]*AnnotationRecord, error)

	// SetChildLink records the child side of a trigger/seed pairing. The
	// parent side is written at seed creation.
	SetChildLink(ctx context.Context, id, childAnnotationID string) error

	// Delete removes an annotation from persistence.
	Delete(ctx context.Context, id string) error

	// DeleteByTask removes every annotation owned by a task.
	DeleteByTask(ctx context.Context, taskID string) error
}

// AnnotationRecord represents an annotation as stored in persistence.
type AnnotationRecord struct {
	ID                 string
	TaskID             string
	Label              string
	Start              int
	End                int
	Text               string
	ParentAnnotationID string
	ChildAnnotationID  string
	ChangedAt          string
}

// HiddenAnnotationRepository defines the secondary port for hidden
// identifier persistence.
type HiddenAnnotationRepository interface {
	// Create persists a new hidden annotation.
	Create(ctx context.Context, hidden *HiddenAnnotationRecord) error

	// GetByTaskAndLabel retrieves a task's hidden annotation for a label.
	GetByTaskAndLabel(ctx context.Context, taskID, label string) (*HiddenAnnotationRecord, error)

	// ListByTask retrieves all hidden annotations owned by a task.
	ListByTask(ctx context.Context, taskID string) ([]*HiddenAnnotationRecord, error)

	// DeleteByTask removes every hidden annotation owned by a task.
	DeleteByTask(ctx context.Context, taskID string) error
}

// HiddenAnnotationRecord represents a non-positional identifier value.
type HiddenAnnotationRecord struct {
	ID     string
	TaskID string
	Label  string
	Value  string
}

// LinkedAnnotationRepository defines the secondary port for derived boolean
// flag persistence.
type LinkedAnnotationRepository interface {
	// Create persists a new linked annotation.
	Create(ctx context.Context, linked *LinkedAnnotationRecord) error

	// GetByTaskAndLabel retrieves a task's linked annotation for a label.
	GetByTaskAndLabel(ctx context.Context, taskID, label string) (*LinkedAnnotationRecord, error)

	// ListByTask retrieves all linked annotations owned by a task.
	ListByTask(ctx context.Context, taskID string) ([]*LinkedAnnotationRecord, error)

	// Upsert creates or overwrites a task's linked annotation for a label.
	Upsert(ctx context.Context, linked *LinkedAnnotationRecord) error

	// SetValueByRelatedTo updates the value of every linked annotation
	// whose related_to reference matches the given annotation.
	SetValueByRelatedTo(ctx context.Context, annotationID string, value bool) error

	// DeleteByTask removes every linked annotation owned by a task.
	DeleteByTask(ctx context.Context, taskID string) error
}

// LinkedAnnotationRecord represents a derived boolean flag. When Manual is
// set the value was supplied by the client; otherwise it tracks the
// existence of the annotation referenced by RelatedToID.
type LinkedAnnotationRecord struct {
	ID          string
	TaskID      string
	Label       string
	RelatedToID string
	Value       bool
	Manual      bool
}

// MetaRepository defines the secondary port for document metadata.
type MetaRepository interface {
	// Create persists a new metadata record.
	Create(ctx context.Context, meta *MetaRecord) error

	// GetByRootTask retrieves the metadata record for a root task, or nil
	// when the root predates metadata tracking.
	GetByRootTask(ctx context.Context, rootTaskID string) (*MetaRecord, error)

	// Update overwrites an existing metadata record.
	Update(ctx context.Context, meta *MetaRecord) error

	// DeleteByRootTask removes the metadata record for a root task.
	DeleteByRootTask(ctx context.Context, rootTaskID string) error
}

// MetaRecord represents the per-document metadata embedded into every
// assembled tilt document.
type MetaRecord struct {
	ID          string
	Name        string
	Created     string
	Modified    string
	Version     int
	Language    string
	Status      string
	URL         string
	RootTaskID  string
	ContentHash string
}

// RegistryClient defines the secondary port for the external document
// registry. Calls are best-effort and blocking; retries are the shell's
// concern.
type RegistryClient interface {
	// Push uploads one assembled document and returns its location.
	Push(ctx context.Context, document map[string]any) (string, error)

	// Remove deletes a previously pushed document by its content hash.
	Remove(ctx context.Context, contentHash string) error
}
