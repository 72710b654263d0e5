package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/tilter/internal/ports/primary"
	"github.com/example/tilter/internal/ports/secondary"
	"github.com/example/tilter/internal/tiltschema"
)

// DefaultRule fills a literal default into an assembled document wherever
// the value at Path is missing or empty.
type DefaultRule struct {
	Path  []string
	Value any
}

// TiltServiceImpl implements the TiltService interface: it walks the schema
// over a root task's subtree and reassembles the nested tilt document.
type TiltServiceImpl struct {
	taskRepo   secondary.TaskRepository
	annoRepo   secondary.AnnotationRepository
	hiddenRepo secondary.HiddenAnnotationRepository
	linkedRepo secondary.LinkedAnnotationRepository
	metaRepo   secondary.MetaRepository
	registry   secondary.RegistryClient
	schema     *tiltschema.Schema
	defaults   []DefaultRule
}

// NewTiltService creates a new TiltService with injected dependencies.
func NewTiltService(
	taskRepo secondary.TaskRepository,
	annoRepo secondary.AnnotationRepository,
	hiddenRepo secondary.HiddenAnnotationRepository,
	linkedRepo secondary.LinkedAnnotationRepository,
	metaRepo secondary.MetaRepository,
	registry secondary.RegistryClient,
	schema *tiltschema.Schema,
	defaults []DefaultRule,
) *TiltServiceImpl {
	return &TiltServiceImpl{
		taskRepo:   taskRepo,
		annoRepo:   annoRepo,
		hiddenRepo: hiddenRepo,
		linkedRepo: linkedRepo,
		metaRepo:   metaRepo,
		registry:   registry,
		schema:     schema,
		defaults:   defaults,
	}
}

// Assemble rebuilds the nested tilt document for a task's root. Absent data
// degrades to null or empty values; assembly never aborts because a field
// is unannotated.
func (s *TiltServiceImpl) Assemble(ctx context.Context, taskID string) (map[string]any, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for task.ParentID != "" {
		task, err = s.taskRepo.GetByID(ctx, task.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root task: %w", err)
		}
	}

	doc := make(map[string]any)
	for _, field := range s.schema.Root().Fields {
		switch field.Kind {
		case tiltschema.FieldID:
			doc[documentKey(field)] = s.hiddenValue(ctx, task.ID, field.Label)
		case tiltschema.FieldManualBool, tiltschema.FieldLinkedBool:
			doc[documentKey(field)] = s.linkedValue(ctx, task.ID, field.Name)
		default:
			value, err := s.walk(ctx, task, []string{field.Name})
			if err != nil {
				return nil, err
			}
			doc[field.Name] = value
		}
	}

	s.applyDefaults(doc)

	if err := s.attachMeta(ctx, task.ID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AssembleAll rebuilds the tilt documents of every root task.
func (s *TiltServiceImpl) AssembleAll(ctx context.Context) ([]map[string]any, error) {
	roots, err := s.taskRepo.List(ctx, secondary.TaskFilters{RootsOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list root tasks: %w", err)
	}

	documents := make([]map[string]any, 0, len(roots))
	for _, root := range roots {
		doc, err := s.Assemble(ctx, root.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to assemble document for task %s: %w", root.ID, err)
		}
		documents = append(documents, doc)
	}
	return documents, nil
}

// Push assembles a root task's document and uploads it to the registry.
func (s *TiltServiceImpl) Push(ctx context.Context, rootTaskID string) (string, error) {
	doc, err := s.Assemble(ctx, rootTaskID)
	if err != nil {
		return "", err
	}
	location, err := s.registry.Push(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to push document: %w", err)
	}
	return location, nil
}

// Unpush removes a root task's document from the registry, keyed by its
// last recorded content hash.
func (s *TiltServiceImpl) Unpush(ctx context.Context, rootTaskID string) error {
	meta, err := s.metaRepo.GetByRootTask(ctx, rootTaskID)
	if err != nil {
		return fmt.Errorf("failed to load document metadata: %w", err)
	}
	if meta == nil || meta.ContentHash == "" {
		return fmt.Errorf("task %s has no recorded content hash", rootTaskID)
	}
	if err := s.registry.Remove(ctx, meta.ContentHash); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}

// walk reassembles the schema position at hierarchy beneath the given task.
func (s *TiltServiceImpl) walk(ctx context.Context, task *secondary.TaskRecord, hierarchy []string) (any, error) {
	node, err := s.schema.LevelAt(hierarchy)
	if err != nil {
		return nil, err
	}

	children, err := s.taskRepo.GetChildren(ctx, task.ID, hierarchy)
	if err != nil {
		return nil, fmt.Errorf("failed to list child tasks: %w", err)
	}

	if node.Repeated {
		return s.walkRepeated(ctx, task, node, hierarchy, children)
	}
	return s.walkSingle(ctx, task, node, hierarchy, children)
}

// walkRepeated emits one object per expanded child task. Without expansion
// children, an object node degrades to a flat multi-value object and a bare
// leaf to the list of matching annotation texts.
func (s *TiltServiceImpl) walkRepeated(ctx context.Context, task *secondary.TaskRecord, node *tiltschema.Node, hierarchy []string, children []*secondary.TaskRecord) (any, error) {
	if len(children) > 0 {
		values := make([]any, 0, len(children))
		for _, child := range children {
			obj, err := s.assembleFields(ctx, child, node, hierarchy)
			if err != nil {
				return nil, err
			}
			values = append(values, obj)
		}
		return values, nil
	}

	if node.Kind == tiltschema.KindObject {
		annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, task.ID, node.Desc)
		if err != nil {
			return nil, fmt.Errorf("failed to list annotations: %w", err)
		}
		texts := annotationTexts(annotations)
		obj := make(map[string]any)
		for _, field := range node.Fields {
			obj[documentKey(field)] = texts
		}
		return []any{obj}, nil
	}

	annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, task.ID, node.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	return annotationTexts(annotations), nil
}

// walkSingle emits one object resolved against the unique child task,
// falling back to the parent task's own annotation (matched by the node's
// description) when the child has no matching annotation.
func (s *TiltServiceImpl) walkSingle(ctx context.Context, task *secondary.TaskRecord, node *tiltschema.Node, hierarchy []string, children []*secondary.TaskRecord) (any, error) {
	if node.Kind != tiltschema.KindObject {
		annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, task.ID, node.Label)
		if err != nil {
			return nil, fmt.Errorf("failed to list annotations: %w", err)
		}
		if len(annotations) == 0 {
			return nil, nil
		}
		return annotations[0].Text, nil
	}

	child := task
	hasChild := len(children) > 0
	if hasChild {
		child = children[0]
	}

	obj := make(map[string]any)
	for _, field := range node.Fields {
		switch field.Kind {
		case tiltschema.FieldChild:
			sub := make([]string, 0, len(hierarchy)+1)
			sub = append(sub, hierarchy...)
			sub = append(sub, field.Name)
			value, err := s.walk(ctx, child, sub)
			if err != nil {
				return nil, err
			}
			obj[field.Name] = value
		case tiltschema.FieldID:
			obj[documentKey(field)] = s.hiddenValue(ctx, child.ID, field.Label)
		case tiltschema.FieldManualBool, tiltschema.FieldLinkedBool:
			obj[documentKey(field)] = s.linkedValue(ctx, child.ID, field.Name)
		case tiltschema.FieldLeaf:
			value, err := s.leafValue(ctx, task, child, hasChild, node, field)
			if err != nil {
				return nil, err
			}
			obj[documentKey(field)] = value
		}
	}
	return obj, nil
}

// assembleFields builds one object for an expanded child task of a
// repeated node.
func (s *TiltServiceImpl) assembleFields(ctx context.Context, child *secondary.TaskRecord, node *tiltschema.Node, hierarchy []string) (map[string]any, error) {
	obj := make(map[string]any)
	for _, field := range node.Fields {
		switch field.Kind {
		case tiltschema.FieldChild:
			sub := make([]string, 0, len(hierarchy)+1)
			sub = append(sub, hierarchy...)
			sub = append(sub, field.Name)
			value, err := s.walk(ctx, child, sub)
			if err != nil {
				return nil, err
			}
			obj[field.Name] = value
		case tiltschema.FieldID:
			obj[documentKey(field)] = s.hiddenValue(ctx, child.ID, field.Label)
		case tiltschema.FieldManualBool, tiltschema.FieldLinkedBool:
			obj[documentKey(field)] = s.linkedValue(ctx, child.ID, field.Name)
		case tiltschema.FieldLeaf:
			annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, child.ID, field.Label)
			if err != nil {
				return nil, fmt.Errorf("failed to list annotations: %w", err)
			}
			switch {
			case field.Multiple:
				obj[documentKey(field)] = annotationTexts(annotations)
			case len(annotations) == 0:
				obj[documentKey(field)] = nil
			default:
				obj[documentKey(field)] = annotations[0].Text
			}
		}
	}
	return obj, nil
}

// leafValue resolves an ordinary field in single-cardinality position: the
// child task's annotation wins, the parent task's description-matched
// annotation is the fallback, absence is null.
func (s *TiltServiceImpl) leafValue(ctx context.Context, task, child *secondary.TaskRecord, hasChild bool, node *tiltschema.Node, field tiltschema.Field) (any, error) {
	if field.Multiple {
		annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, child.ID, field.Label)
		if err != nil {
			return nil, fmt.Errorf("failed to list annotations: %w", err)
		}
		return annotationTexts(annotations), nil
	}
	if hasChild {
		annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, child.ID, field.Label)
		if err != nil {
			return nil, fmt.Errorf("failed to list annotations: %w", err)
		}
		if len(annotations) > 0 {
			return annotations[0].Text, nil
		}
	}
	annotations, err := s.annoRepo.ListByTaskAndLabel(ctx, task.ID, node.Desc)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	if len(annotations) > 0 {
		return annotations[0].Text, nil
	}
	return nil, nil
}

func (s *TiltServiceImpl) hiddenValue(ctx context.Context, taskID, label string) any {
	hidden, err := s.hiddenRepo.GetByTaskAndLabel(ctx, taskID, label)
	if err != nil || hidden == nil {
		return nil
	}
	return hidden.Value
}

func (s *TiltServiceImpl) linkedValue(ctx context.Context, taskID, label string) bool {
	linked, err := s.linkedRepo.GetByTaskAndLabel(ctx, taskID, label)
	if err != nil || linked == nil {
		return false
	}
	return linked.Value
}

// applyDefaults runs the configured default-value rules over the assembled
// document.
func (s *TiltServiceImpl) applyDefaults(doc map[string]any) {
	for _, rule := range s.defaults {
		placeDefault(doc, rule.Path, rule.Value)
	}
}

// placeDefault descends the document along path; list values fan out over
// their elements. The final key receives the default only when its current
// value is missing or empty.
func placeDefault(value any, path []string, def any) {
	if len(path) == 0 {
		return
	}
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			placeDefault(item, path, def)
		}
	case map[string]any:
		key := path[0]
		if len(path) == 1 {
			if isEmptyValue(v[key]) {
				v[key] = def
			}
			return
		}
		placeDefault(v[key], path[1:], def)
	}
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// attachMeta hashes the assembled content, advances the metadata record
// when the digest changed, and embeds the metadata into the document. Roots
// without a metadata record skip versioning.
func (s *TiltServiceImpl) attachMeta(ctx context.Context, rootTaskID string, doc map[string]any) error {
	meta, err := s.metaRepo.GetByRootTask(ctx, rootTaskID)
	if err != nil {
		return fmt.Errorf("failed to load document metadata: %w", err)
	}
	if meta == nil {
		return nil
	}

	digest, err := HashDocument(doc)
	if err != nil {
		return err
	}
	if digest != meta.ContentHash {
		meta.Modified = time.Now().UTC().Format(time.RFC3339)
		if meta.ContentHash != "" {
			meta.Version++
		}
	}
	meta.ContentHash = digest
	if err := s.metaRepo.Update(ctx, meta); err != nil {
		return fmt.Errorf("failed to update document metadata: %w", err)
	}

	doc["meta"] = map[string]any{
		"_id":      meta.ID,
		"name":     meta.Name,
		"created":  meta.Created,
		"modified": meta.Modified,
		"version":  meta.Version,
		"language": meta.Language,
		"status":   meta.Status,
		"url":      meta.URL,
		"_hash":    meta.ContentHash,
	}
	return nil
}

// HashDocument computes the canonical content digest of an assembled
// document: sha256 over its JSON encoding with sorted keys.
func HashDocument(doc map[string]any) (string, error) {
	// The meta block is excluded from its own digest.
	content := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "meta" {
			continue
		}
		content[k] = v
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// documentKey maps a schema field to its key in the assembled document.
// Boolean fields shed their "~" marker; identifier fields keep "_id".
func documentKey(field tiltschema.Field) string {
	switch field.Kind {
	case tiltschema.FieldManualBool, tiltschema.FieldLinkedBool:
		return strings.TrimPrefix(field.Name, "~")
	default:
		return field.Name
	}
}

func annotationTexts(annotations []*secondary.AnnotationRecord) []any {
	texts := make([]any, 0, len(annotations))
	for _, a := range annotations {
		texts = append(texts, a.Text)
	}
	return texts
}

// Ensure TiltServiceImpl implements the interface
var _ primary.TiltService = (*TiltServiceImpl)(nil)
