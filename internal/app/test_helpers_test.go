package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/example/tilter/internal/ports/secondary"
	"github.com/example/tilter/internal/tiltschema"
)

const testSchemaJSON = `{
	"controller": {
		"_desc": "Controller",
		"_key": "name",
		"name": "Controller Name",
		"division": "Controller Division",
		"country": "Controller Country"
	},
	"dataDisclosed": [{
		"_desc": "Data Disclosed",
		"_key": "category",
		"_id": "Disclosure ID",
		"category": "Disclosure Category",
		"purposes": ["Disclosure Purpose"],
		"~legalBase": "#category"
	}],
	"keywords": ["Keyword"],
	"~profiling": false
}`

func testSchema(t *testing.T) *tiltschema.Schema {
	t.Helper()
	schema, err := tiltschema.Parse(strings.NewReader(testSchemaJSON))
	if err != nil {
		t.Fatalf("failed to parse test schema: %v", err)
	}
	return schema
}

// Ensure mocks implement the interfaces
var (
	_ secondary.TaskRepository             = (*mockTaskRepo)(nil)
	_ secondary.AnnotationRepository       = (*mockAnnotationRepo)(nil)
	_ secondary.HiddenAnnotationRepository = (*mockHiddenRepo)(nil)
	_ secondary.LinkedAnnotationRepository = (*mockLinkedRepo)(nil)
	_ secondary.MetaRepository             = (*mockMetaRepo)(nil)
	_ secondary.RegistryClient             = (*mockRegistry)(nil)
)

// mockTaskRepo implements secondary.TaskRepository for testing. Records are
// kept in insertion order so listing is deterministic.
type mockTaskRepo struct {
	tasks     []*secondary.TaskRecord
	createErr error
	deleteErr error
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{}
}

func (m *mockTaskRepo) Create(ctx context.Context, task *secondary.TaskRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *task
	m.tasks = append(m.tasks, &copied)
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*secondary.TaskRecord, error) {
	for _, t := range m.tasks {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("task %s not found", id)
}

func (m *mockTaskRepo) FindRoot(ctx context.Context, name, text string) (*secondary.TaskRecord, error) {
	for _, t := range m.tasks {
		if t.ParentID == "" && t.Name == name && t.Text == text {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockTaskRepo) List(ctx context.Context, filters secondary.TaskFilters) ([]*secondary.TaskRecord, error) {
	var out []*secondary.TaskRecord
	for _, t := range m.tasks {
		if filters.RootsOnly && t.ParentID != "" {
			continue
		}
		if filters.Name != "" && !strings.Contains(t.Name, filters.Name) {
			continue
		}
		copied := *t
		out = append(out, &copied)
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockTaskRepo) GetChildren(ctx context.Context, parentID string, hierarchy []string) ([]*secondary.TaskRecord, error) {
	var out []*secondary.TaskRecord
	for _, t := range m.tasks {
		if t.ParentID == parentID && strings.Join(t.Hierarchy, "\x00") == strings.Join(hierarchy, "\x00") {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) GetAllChildren(ctx context.Context, parentID string) ([]*secondary.TaskRecord, error) {
	var out []*secondary.TaskRecord
	for _, t := range m.tasks {
		if t.ParentID == parentID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %s not found", id)
}

// mockAnnotationRepo implements secondary.AnnotationRepository for testing.
type mockAnnotationRepo struct {
	annotations []*secondary.AnnotationRecord
	createErr   error
}

func newMockAnnotationRepo() *mockAnnotationRepo {
	return &mockAnnotationRepo{}
}

func (m *mockAnnotationRepo) Create(ctx context.Context, annotation *secondary.AnnotationRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *annotation
	m.annotations = append(m.annotations, &copied)
	return nil
}

func (m *mockAnnotationRepo) GetByID(ctx context.Context, id string) (*secondary.AnnotationRecord, error) {
	for _, a := range m.annotations {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("annotation %s not found", id)
}

func (m *mockAnnotationRepo) FindExact(ctx context.Context, taskID, label string, start, end int, text string) (*secondary.AnnotationRecord, error) {
	for _, a := range m.annotations {
		if a.TaskID == taskID && a.Label == label && a.Start == start && a.End == end && a.Text == text {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockAnnotationRepo) ListByTask(ctx context.Context, taskID string) ([]*secondary.AnnotationRecord, error) {
	var out []*secondary.AnnotationRecord
	for _, a := range m.annotations {
		if a.TaskID == taskID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockAnnotationRepo) ListByTaskAndLabel(ctx context.Context, taskID, label string) ([]*secondary.AnnotationRecord, error) {
	var out []*secondary.AnnotationRecord
	for _, a := range m.annotations {
		if a.TaskID == taskID && a.Label == label {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockAnnotationRepo) SetChildLink(ctx context.Context, id, childAnnotationID string) error {
	for _, a := range m.annotations {
		if a.ID == id {
			a.ChildAnnotationID = childAnnotationID
			return nil
		}
	}
	return fmt.Errorf("annotation %s not found", id)
}

func (m *mockAnnotationRepo) Delete(ctx context.Context, id string) error {
	for i, a := range m.annotations {
		if a.ID == id {
			m.annotations = append(m.annotations[:i], m.annotations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("annotation %s not found", id)
}

func (m *mockAnnotationRepo) DeleteByTask(ctx context.Context, taskID string) error {
	kept := m.annotations[:0]
	for _, a := range m.annotations {
		if a.TaskID != taskID {
			kept = append(kept, a)
		}
	}
	m.annotations = kept
	return nil
}

// mockHiddenRepo implements secondary.HiddenAnnotationRepository for testing.
type mockHiddenRepo struct {
	hidden []*secondary.HiddenAnnotationRecord
}

func newMockHiddenRepo() *mockHiddenRepo {
	return &mockHiddenRepo{}
}

func (m *mockHiddenRepo) Create(ctx context.Context, hidden *secondary.HiddenAnnotationRecord) error {
	copied := *hidden
	m.hidden = append(m.hidden, &copied)
	return nil
}

func (m *mockHiddenRepo) GetByTaskAndLabel(ctx context.Context, taskID, label string) (*secondary.HiddenAnnotationRecord, error) {
	for _, h := range m.hidden {
		if h.TaskID == taskID && h.Label == label {
			copied := *h
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockHiddenRepo) ListByTask(ctx context.Context, taskID string) ([]*secondary.HiddenAnnotationRecord, error) {
	var out []*secondary.HiddenAnnotationRecord
	for _, h := range m.hidden {
		if h.TaskID == taskID {
			copied := *h
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockHiddenRepo) DeleteByTask(ctx context.Context, taskID string) error {
	kept := m.hidden[:0]
	for _, h := range m.hidden {
		if h.TaskID != taskID {
			kept = append(kept, h)
		}
	}
	m.hidden = kept
	return nil
}

// mockLinkedRepo implements secondary.LinkedAnnotationRepository for testing.
type mockLinkedRepo struct {
	linked []*secondary.LinkedAnnotationRecord
}

func newMockLinkedRepo() *mockLinkedRepo {
	return &mockLinkedRepo{}
}

func (m *mockLinkedRepo) Create(ctx context.Context, linked *secondary.LinkedAnnotationRecord) error {
	copied := *linked
	m.linked = append(m.linked, &copied)
	return nil
}

func (m *mockLinkedRepo) GetByTaskAndLabel(ctx context.Context, taskID, label string) (*secondary.LinkedAnnotationRecord, error) {
	for _, l := range m.linked {
		if l.TaskID == taskID && (l.Label == label || l.Label == "~"+label) {
			copied := *l
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockLinkedRepo) ListByTask(ctx context.Context, taskID string) ([]*secondary.LinkedAnnotationRecord, error) {
	var out []*secondary.LinkedAnnotationRecord
	for _, l := range m.linked {
		if l.TaskID == taskID {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockLinkedRepo) Upsert(ctx context.Context, linked *secondary.LinkedAnnotationRecord) error {
	for _, l := range m.linked {
		if l.TaskID == linked.TaskID && l.Label == linked.Label {
			l.Value = linked.Value
			l.Manual = linked.Manual
			return nil
		}
	}
	return m.Create(ctx, linked)
}

func (m *mockLinkedRepo) SetValueByRelatedTo(ctx context.Context, annotationID string, value bool) error {
	for _, l := range m.linked {
		if l.RelatedToID == annotationID {
			l.Value = value
		}
	}
	return nil
}

func (m *mockLinkedRepo) DeleteByTask(ctx context.Context, taskID string) error {
	kept := m.linked[:0]
	for _, l := range m.linked {
		if l.TaskID != taskID {
			kept = append(kept, l)
		}
	}
	m.linked = kept
	return nil
}

// mockMetaRepo implements secondary.MetaRepository for testing.
type mockMetaRepo struct {
	metas []*secondary.MetaRecord
}

func newMockMetaRepo() *mockMetaRepo {
	return &mockMetaRepo{}
}

func (m *mockMetaRepo) Create(ctx context.Context, meta *secondary.MetaRecord) error {
	copied := *meta
	m.metas = append(m.metas, &copied)
	return nil
}

func (m *mockMetaRepo) GetByRootTask(ctx context.Context, rootTaskID string) (*secondary.MetaRecord, error) {
	for _, r := range m.metas {
		if r.RootTaskID == rootTaskID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockMetaRepo) Update(ctx context.Context, meta *secondary.MetaRecord) error {
	for i, r := range m.metas {
		if r.RootTaskID == meta.RootTaskID {
			copied := *meta
			m.metas[i] = &copied
			return nil
		}
	}
	return fmt.Errorf("meta for task %s not found", meta.RootTaskID)
}

func (m *mockMetaRepo) DeleteByRootTask(ctx context.Context, rootTaskID string) error {
	kept := m.metas[:0]
	for _, r := range m.metas {
		if r.RootTaskID != rootTaskID {
			kept = append(kept, r)
		}
	}
	m.metas = kept
	return nil
}

// mockRegistry implements secondary.RegistryClient for testing.
type mockRegistry struct {
	pushed   []map[string]any
	removed  []string
	location string
	pushErr  error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{location: "http://registry.test/documents/1"}
}

func (m *mockRegistry) Push(ctx context.Context, document map[string]any) (string, error) {
	if m.pushErr != nil {
		return "", m.pushErr
	}
	m.pushed = append(m.pushed, document)
	return m.location, nil
}

func (m *mockRegistry) Remove(ctx context.Context, contentHash string) error {
	m.removed = append(m.removed, contentHash)
	return nil
}

// testEnv bundles the fully wired services over mock repositories.
type testEnv struct {
	taskRepo   *mockTaskRepo
	annoRepo   *mockAnnotationRepo
	hiddenRepo *mockHiddenRepo
	linkedRepo *mockLinkedRepo
	metaRepo   *mockMetaRepo
	registry   *mockRegistry

	tasks       *TaskServiceImpl
	annotations *AnnotationServiceImpl
	tilt        *TiltServiceImpl
}

func newTestEnv(t *testing.T, defaults []DefaultRule) *testEnv {
	t.Helper()
	schema := testSchema(t)

	env := &testEnv{
		taskRepo:   newMockTaskRepo(),
		annoRepo:   newMockAnnotationRepo(),
		hiddenRepo: newMockHiddenRepo(),
		linkedRepo: newMockLinkedRepo(),
		metaRepo:   newMockMetaRepo(),
		registry:   newMockRegistry(),
	}

	expander := NewSubtaskExpander(env.taskRepo, env.annoRepo, env.hiddenRepo, env.linkedRepo, schema)
	env.tasks = NewTaskService(env.taskRepo, env.annoRepo, env.hiddenRepo, env.linkedRepo, env.metaRepo, schema, "en")
	env.annotations = NewAnnotationService(env.taskRepo, env.annoRepo, env.linkedRepo, env.tasks, expander)
	env.tilt = NewTiltService(env.taskRepo, env.annoRepo, env.hiddenRepo, env.linkedRepo, env.metaRepo, env.registry, schema, defaults)
	return env
}
