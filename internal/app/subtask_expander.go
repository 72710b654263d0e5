package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/tilter/internal/ports/secondary"
	"github.com/example/tilter/internal/tiltschema"
)

const snippetLimit = 20

// SubtaskExpander walks the schema level of a task and spawns child tasks
// for annotations that open a new hierarchical level. It is driven by the
// annotation service after reconciliation.
type SubtaskExpander struct {
	taskRepo   secondary.TaskRepository
	annoRepo   secondary.AnnotationRepository
	hiddenRepo secondary.HiddenAnnotationRepository
	linkedRepo secondary.LinkedAnnotationRepository
	schema     *tiltschema.Schema
}

// NewSubtaskExpander creates a new SubtaskExpander with injected
// dependencies.
func NewSubtaskExpander(
	taskRepo secondary.TaskRepository,
	annoRepo secondary.AnnotationRepository,
	hiddenRepo secondary.HiddenAnnotationRepository,
	linkedRepo secondary.LinkedAnnotationRepository,
	schema *tiltschema.Schema,
) *SubtaskExpander {
	return &SubtaskExpander{
		taskRepo:   taskRepo,
		annoRepo:   annoRepo,
		hiddenRepo: hiddenRepo,
		linkedRepo: linkedRepo,
		schema:     schema,
	}
}

// Expand creates the subtasks required by freshly created annotations.
// Schema entries are visited in declaration order and at most one subtask
// is created per (annotation, schema key) pair.
func (e *SubtaskExpander) Expand(ctx context.Context, task *secondary.TaskRecord, newAnnotations []*secondary.AnnotationRecord) error {
	level, err := e.schema.LevelAt(task.Hierarchy)
	if err != nil {
		return err
	}
	if level.Kind != tiltschema.KindObject {
		return nil
	}

	rootName, err := e.rootTaskName(ctx, task)
	if err != nil {
		return err
	}

	for _, annotation := range newAnnotations {
		for _, field := range level.Fields {
			if field.Kind != tiltschema.FieldChild {
				continue
			}
			if !field.Child.NeedsSubtask(annotation.Label) {
				continue
			}
			if err := e.spawn(ctx, task, annotation, field, rootName); err != nil {
				return err
			}
		}
	}
	return nil
}

// spawn creates one child task with its derived labels, seed annotation,
// hidden identifiers and linked booleans.
func (e *SubtaskExpander) spawn(ctx context.Context, task *secondary.TaskRecord, annotation *secondary.AnnotationRecord, field tiltschema.Field, rootName string) error {
	node := field.Child

	seedLabel, err := node.SeedLabel()
	if err != nil {
		return err
	}

	hierarchy := make([]string, 0, len(task.Hierarchy)+1)
	hierarchy = append(hierarchy, task.Hierarchy...)
	hierarchy = append(hierarchy, field.Name)

	now := time.Now().UTC().Format(time.RFC3339)
	child := &secondary.TaskRecord{
		ID:           uuid.NewString(),
		Name:         subtaskName(annotation, rootName),
		ParentID:     task.ID,
		Hierarchy:    hierarchy,
		Labels:       node.AnnotationLabels(),
		ManualLabels: node.ManualBools(),
		Text:         task.Text,
		HTML:         task.HTML,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.taskRepo.Create(ctx, child); err != nil {
		return fmt.Errorf("failed to create subtask: %w", err)
	}

	// Seed annotation: same span and text as the trigger, labeled with the
	// node's own identity field.
	seed := &secondary.AnnotationRecord{
		ID:                 uuid.NewString(),
		TaskID:             child.ID,
		Label:              seedLabel,
		Start:              annotation.Start,
		End:                annotation.End,
		Text:               annotation.Text,
		ParentAnnotationID: annotation.ID,
		ChangedAt:          now,
	}
	if err := e.annoRepo.Create(ctx, seed); err != nil {
		return fmt.Errorf("failed to create seed annotation: %w", err)
	}
	if err := e.annoRepo.SetChildLink(ctx, annotation.ID, seed.ID); err != nil {
		return fmt.Errorf("failed to link trigger annotation: %w", err)
	}
	annotation.ChildAnnotationID = seed.ID

	for _, idLabel := range node.IDLabels() {
		hidden := &secondary.HiddenAnnotationRecord{
			ID:     uuid.NewString(),
			TaskID: child.ID,
			Label:  idLabel,
			Value:  uuid.NewString(),
		}
		if err := e.hiddenRepo.Create(ctx, hidden); err != nil {
			return fmt.Errorf("failed to create hidden annotation: %w", err)
		}
	}

	for _, lb := range node.LinkedBools() {
		// The link resolves against the child task's annotation carrying
		// the referenced label. When the reference targets the node's own
		// identity field that is the seed annotation just written, and the
		// flag is true from the start; otherwise reconciliation propagates
		// it once the referenced annotation appears.
		relatedTo := ""
		matches, err := e.annoRepo.ListByTaskAndLabel(ctx, child.ID, lb.RefLabel)
		if err != nil {
			return fmt.Errorf("failed to resolve linked boolean %s: %w", lb.Name, err)
		}
		if len(matches) > 0 {
			relatedTo = matches[0].ID
		}
		linked := &secondary.LinkedAnnotationRecord{
			ID:          uuid.NewString(),
			TaskID:      child.ID,
			Label:       lb.Name,
			RelatedToID: relatedTo,
			Value:       lb.Ref == node.Key,
			Manual:      false,
		}
		if err := e.linkedRepo.Create(ctx, linked); err != nil {
			return fmt.Errorf("failed to create linked annotation: %w", err)
		}
	}

	return nil
}

// rootTaskName walks the parent chain up to the root task and returns its
// name; subtask names always reference the original document.
func (e *SubtaskExpander) rootTaskName(ctx context.Context, task *secondary.TaskRecord) (string, error) {
	current := task
	for current.ParentID != "" {
		parent, err := e.taskRepo.GetByID(ctx, current.ParentID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root task: %w", err)
		}
		current = parent
	}
	return current.Name, nil
}

// subtaskName builds the deterministic display name of a subtask from its
// trigger annotation and the root document name.
func subtaskName(annotation *secondary.AnnotationRecord, rootName string) string {
	snippet := annotation.Text
	if runes := []rune(snippet); len(runes) > snippetLimit {
		snippet = string(runes[:snippetLimit]) + "..."
	}
	return annotation.Label + " (" + snippet + ") - " + rootName
}
