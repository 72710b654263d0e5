package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/tilter/internal/adapters/sqlite"
	"github.com/example/tilter/internal/ports/secondary"
	"github.com/example/tilter/internal/tiltschema"
)

func TestTaskRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := &secondary.TaskRecord{
		ID:        "task-001",
		Name:      "Privacy Policy",
		Hierarchy: []string{},
		Labels: []tiltschema.AnnotationLabel{
			{Name: "Controller", Multiple: false},
			{Name: "Keyword", Multiple: true},
		},
		ManualLabels: []tiltschema.ManualBool{{Name: "~profiling", Default: false}},
		Text:         "Acme Co processes your data.",
		HTML:         true,
	}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "task-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != task.Name || got.Text != task.Text || !got.HTML {
		t.Errorf("task fields wrong: %+v", got)
	}
	if got.ParentID != "" {
		t.Errorf("expected empty parent, got %q", got.ParentID)
	}
	if len(got.Labels) != 2 || got.Labels[1].Name != "Keyword" || !got.Labels[1].Multiple {
		t.Errorf("labels round-trip wrong: %+v", got.Labels)
	}
	if len(got.ManualLabels) != 1 || got.ManualLabels[0].Name != "~profiling" {
		t.Errorf("manual labels round-trip wrong: %+v", got.ManualLabels)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("expected timestamps to be set")
	}
}

func TestTaskRepositoryGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTaskRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for missing task")
	}
}

func TestTaskRepositoryFindRoot(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	root := &secondary.TaskRecord{ID: "root-1", Name: "Policy", Text: "text"}
	if err := repo.Create(ctx, root); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	child := &secondary.TaskRecord{ID: "child-1", Name: "Policy", ParentID: "root-1", Hierarchy: []string{"controller"}, Text: "text"}
	if err := repo.Create(ctx, child); err != nil {
		t.Fatalf("Create child failed: %v", err)
	}

	got, err := repo.FindRoot(ctx, "Policy", "text")
	if err != nil {
		t.Fatalf("FindRoot failed: %v", err)
	}
	if got == nil || got.ID != "root-1" {
		t.Errorf("expected root-1, got %+v", got)
	}

	miss, err := repo.FindRoot(ctx, "Policy", "other text")
	if err != nil {
		t.Fatalf("FindRoot failed: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil for non-matching text, got %+v", miss)
	}
}

func TestTaskRepositoryListAndChildren(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	for _, rec := range []*secondary.TaskRecord{
		{ID: "root-1", Name: "Policy A", Text: "a"},
		{ID: "root-2", Name: "Policy B", Text: "b"},
		{ID: "child-1", Name: "Controller (x) - Policy A", ParentID: "root-1", Hierarchy: []string{"controller"}, Text: "a"},
		{ID: "child-2", Name: "Disclosed (y) - Policy A", ParentID: "root-1", Hierarchy: []string{"dataDisclosed"}, Text: "a"},
	} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create %s failed: %v", rec.ID, err)
		}
	}

	all, err := repo.List(ctx, secondary.TaskFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 tasks, got %d", len(all))
	}

	roots, err := repo.List(ctx, secondary.TaskFilters{RootsOnly: true})
	if err != nil {
		t.Fatalf("List roots failed: %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(roots))
	}

	named, err := repo.List(ctx, secondary.TaskFilters{Name: "Policy B"})
	if err != nil {
		t.Fatalf("List by name failed: %v", err)
	}
	if len(named) != 1 || named[0].ID != "root-2" {
		t.Errorf("name filter wrong: %+v", named)
	}

	limited, err := repo.List(ctx, secondary.TaskFilters{Limit: 2})
	if err != nil {
		t.Fatalf("List with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 tasks with limit, got %d", len(limited))
	}

	controllers, err := repo.GetChildren(ctx, "root-1", []string{"controller"})
	if err != nil {
		t.Fatalf("GetChildren failed: %v", err)
	}
	if len(controllers) != 1 || controllers[0].ID != "child-1" {
		t.Errorf("GetChildren wrong: %+v", controllers)
	}

	children, err := repo.GetAllChildren(ctx, "root-1")
	if err != nil {
		t.Fatalf("GetAllChildren failed: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("expected 2 children, got %d", len(children))
	}
}

func TestTaskRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	seedTask(t, db, "task-001", "")

	if err := repo.Delete(ctx, "task-001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "task-001"); err == nil {
		t.Error("expected error deleting a missing task")
	}
}
