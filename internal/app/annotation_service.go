package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/tilter/internal/ports/primary"
	"github.com/example/tilter/internal/ports/secondary"
)

// AnnotationServiceImpl implements the AnnotationService interface. It
// reconciles flat submission sets against persisted state and hands newly
// created annotations to the subtask expander.
type AnnotationServiceImpl struct {
	taskRepo    secondary.TaskRepository
	annoRepo    secondary.AnnotationRepository
	linkedRepo  secondary.LinkedAnnotationRepository
	taskService primary.TaskService
	expander    *SubtaskExpander
}

// NewAnnotationService creates a new AnnotationService with injected
// dependencies.
func NewAnnotationService(
	taskRepo secondary.TaskRepository,
	annoRepo secondary.AnnotationRepository,
	linkedRepo secondary.LinkedAnnotationRepository,
	taskService primary.TaskService,
	expander *SubtaskExpander,
) *AnnotationServiceImpl {
	return &AnnotationServiceImpl{
		taskRepo:    taskRepo,
		annoRepo:    annoRepo,
		linkedRepo:  linkedRepo,
		taskService: taskService,
		expander:    expander,
	}
}

// Submit reconciles the submitted annotation set against the task's
// persisted annotations: identical tuples are kept, missing ones are
// created, and persisted annotations absent from the submission are
// deleted with their subtask branches. Newly created annotations then run
// through the subtask expander. Labels are not validated here; an unknown
// label simply never matches a schema branch.
func (s *AnnotationServiceImpl) Submit(ctx context.Context, req primary.SubmitRequest) (*primary.SubmitResponse, error) {
	task, err := s.taskRepo.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	currentIDs := make(map[string]bool)
	var created []*secondary.AnnotationRecord
	var current []*secondary.AnnotationRecord

	for _, sub := range req.Annotations {
		existing, err := s.annoRepo.FindExact(ctx, task.ID, sub.Label, sub.Start, sub.End, sub.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to look up annotation: %w", err)
		}
		if existing == nil {
			record := &secondary.AnnotationRecord{
				ID:        uuid.NewString(),
				TaskID:    task.ID,
				Label:     sub.Label,
				Start:     sub.Start,
				End:       sub.End,
				Text:      sub.Text,
				ChangedAt: now,
			}
			if err := s.annoRepo.Create(ctx, record); err != nil {
				return nil, fmt.Errorf("failed to create annotation: %w", err)
			}
			created = append(created, record)
			existing = record
		}
		if !currentIDs[existing.ID] {
			currentIDs[existing.ID] = true
			current = append(current, existing)
		}
	}

	if err := s.deleteStale(ctx, task.ID, currentIDs); err != nil {
		return nil, err
	}

	// Propagate linked booleans: any flag referencing a retained annotation
	// is true.
	for _, annotation := range current {
		if err := s.linkedRepo.SetValueByRelatedTo(ctx, annotation.ID, true); err != nil {
			return nil, fmt.Errorf("failed to sync linked annotations: %w", err)
		}
	}

	if err := s.expander.Expand(ctx, task, created); err != nil {
		return nil, err
	}

	resp := &primary.SubmitResponse{}
	for _, r := range created {
		resp.New = append(resp.New, recordToAnnotation(r))
	}
	for _, r := range current {
		resp.Current = append(resp.Current, recordToAnnotation(r))
	}
	return resp, nil
}

// deleteStale removes every persisted annotation of the task not present in
// the submission. An annotation that seeded a subtask tears the whole
// branch down: the linked seed annotation's task and everything below it.
// Partial failures are reported but do not block deleting siblings.
func (s *AnnotationServiceImpl) deleteStale(ctx context.Context, taskID string, currentIDs map[string]bool) error {
	persisted, err := s.annoRepo.ListByTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to list annotations: %w", err)
	}

	var errs []error
	for _, annotation := range persisted {
		if currentIDs[annotation.ID] {
			continue
		}
		if annotation.ChildAnnotationID != "" {
			seed, err := s.annoRepo.GetByID(ctx, annotation.ChildAnnotationID)
			if err == nil && seed != nil {
				if err := s.taskService.DeleteTask(ctx, seed.TaskID); err != nil {
					errs = append(errs, fmt.Errorf("failed to tear down subtask of annotation %s: %w", annotation.ID, err))
				}
			}
		}
		if err := s.annoRepo.Delete(ctx, annotation.ID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete annotation %s: %w", annotation.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ApplyManualBooleans upserts one manual linked annotation per entry,
// overwriting any existing value. Labels are stored in their "~"-prefixed
// schema spelling so bare and prefixed submissions hit the same record.
func (s *AnnotationServiceImpl) ApplyManualBooleans(ctx context.Context, taskID string, entries []primary.ManualBoolEntry) error {
	if _, err := s.taskRepo.GetByID(ctx, taskID); err != nil {
		return err
	}
	for _, entry := range entries {
		label := entry.Label
		if !strings.HasPrefix(label, "~") {
			label = "~" + label
		}
		record := &secondary.LinkedAnnotationRecord{
			ID:     uuid.NewString(),
			TaskID: taskID,
			Label:  label,
			Value:  entry.Value,
			Manual: true,
		}
		if err := s.linkedRepo.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to apply manual boolean %s: %w", entry.Label, err)
		}
	}
	return nil
}

// Ensure AnnotationServiceImpl implements the interface
var _ primary.AnnotationService = (*AnnotationServiceImpl)(nil)
