// Package app contains the application services implementing the primary
// ports. Services hold no state beyond their injected dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/tilter/internal/ports/primary"
	"github.com/example/tilter/internal/ports/secondary"
	"github.com/example/tilter/internal/tiltschema"
)

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	taskRepo   secondary.TaskRepository
	annoRepo   secondary.AnnotationRepository
	hiddenRepo secondary.HiddenAnnotationRepository
	linkedRepo secondary.LinkedAnnotationRepository
	metaRepo   secondary.MetaRepository
	schema     *tiltschema.Schema
	language   string
}

// NewTaskService creates a new TaskService with injected dependencies.
func NewTaskService(
	taskRepo secondary.TaskRepository,
	annoRepo secondary.AnnotationRepository,
	hiddenRepo secondary.HiddenAnnotationRepository,
	linkedRepo secondary.LinkedAnnotationRepository,
	metaRepo secondary.MetaRepository,
	schema *tiltschema.Schema,
	language string,
) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskRepo:   taskRepo,
		annoRepo:   annoRepo,
		hiddenRepo: hiddenRepo,
		linkedRepo: linkedRepo,
		metaRepo:   metaRepo,
		schema:     schema,
		language:   language,
	}
}

// CreateRootTask ingests a document as a new root task. Re-ingesting a
// document with identical name and text returns the existing task.
func (s *TaskServiceImpl) CreateRootTask(ctx context.Context, req primary.CreateRootTaskRequest) (*primary.CreateRootTaskResponse, error) {
	if req.Name == "" || req.Text == "" {
		return nil, fmt.Errorf("root task requires a name and text")
	}

	existing, err := s.taskRepo.FindRoot(ctx, req.Name, req.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to look up root task: %w", err)
	}
	if existing != nil {
		return &primary.CreateRootTaskResponse{Task: recordToTask(existing), Created: false}, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	record := &secondary.TaskRecord{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Hierarchy:    []string{},
		Labels:       s.schema.FirstLevelLabels(),
		ManualLabels: s.schema.Root().ManualBools(),
		Text:         req.Text,
		HTML:         req.HTML,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.taskRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create root task: %w", err)
	}

	meta := &secondary.MetaRecord{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Created:    now,
		Modified:   now,
		Version:    1,
		Language:   s.language,
		Status:     "active",
		URL:        req.URL,
		RootTaskID: record.ID,
	}
	if err := s.metaRepo.Create(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to create document metadata: %w", err)
	}

	return &primary.CreateRootTaskResponse{Task: recordToTask(record), Created: true}, nil
}

// GetTask retrieves a task by ID.
func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID string) (*primary.Task, error) {
	record, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return recordToTask(record), nil
}

// ListTasks lists tasks with optional filters.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, filters primary.TaskFilters) ([]*primary.Task, error) {
	records, err := s.taskRepo.List(ctx, secondary.TaskFilters{
		RootsOnly: filters.RootsOnly,
		Name:      filters.Name,
		Limit:     filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*primary.Task, len(records))
	for i, r := range records {
		tasks[i] = recordToTask(r)
	}
	return tasks, nil
}

// ListRoots lists all root tasks.
func (s *TaskServiceImpl) ListRoots(ctx context.Context) ([]*primary.Task, error) {
	return s.ListTasks(ctx, primary.TaskFilters{RootsOnly: true})
}

// DeleteTask removes a task and everything it transitively owns: child
// tasks depth-first, then annotations, hidden identifiers, linked booleans
// and document metadata. A failure in one branch is reported but does not
// block deleting siblings already scheduled.
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, taskID string) error {
	record, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	return s.deleteSubtree(ctx, record)
}

func (s *TaskServiceImpl) deleteSubtree(ctx context.Context, task *secondary.TaskRecord) error {
	var errs []error

	children, err := s.taskRepo.GetAllChildren(ctx, task.ID)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to list children of task %s: %w", task.ID, err))
	}
	for _, child := range children {
		if err := s.deleteSubtree(ctx, child); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.annoRepo.DeleteByTask(ctx, task.ID); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete annotations of task %s: %w", task.ID, err))
	}
	if err := s.hiddenRepo.DeleteByTask(ctx, task.ID); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete hidden annotations of task %s: %w", task.ID, err))
	}
	if err := s.linkedRepo.DeleteByTask(ctx, task.ID); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete linked annotations of task %s: %w", task.ID, err))
	}
	if task.ParentID == "" {
		if err := s.metaRepo.DeleteByRootTask(ctx, task.ID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete metadata of task %s: %w", task.ID, err))
		}
	}
	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete task %s: %w", task.ID, err))
	}

	return errors.Join(errs...)
}

// GetAnnotations retrieves the annotations owned by a task.
func (s *TaskServiceImpl) GetAnnotations(ctx context.Context, taskID string) ([]*primary.Annotation, error) {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	records, err := s.annoRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}

	annotations := make([]*primary.Annotation, len(records))
	for i, r := range records {
		annotations[i] = recordToAnnotation(r)
	}
	return annotations, nil
}

// Helper conversions shared by the services.

func recordToTask(r *secondary.TaskRecord) *primary.Task {
	return &primary.Task{
		ID:           r.ID,
		Name:         r.Name,
		ParentID:     r.ParentID,
		Hierarchy:    r.Hierarchy,
		Labels:       r.Labels,
		ManualLabels: r.ManualLabels,
		Text:         r.Text,
		HTML:         r.HTML,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func recordToAnnotation(r *secondary.AnnotationRecord) *primary.Annotation {
	return &primary.Annotation{
		ID:                 r.ID,
		TaskID:             r.TaskID,
		Label:              r.Label,
		Start:              r.Start,
		End:                r.End,
		Text:               r.Text,
		ParentAnnotationID: r.ParentAnnotationID,
		ChildAnnotationID:  r.ChildAnnotationID,
	}
}

// Ensure TaskServiceImpl implements the interface
var _ primary.TaskService = (*TaskServiceImpl)(nil)
