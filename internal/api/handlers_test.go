package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/tilter/internal/ports/primary"
)

// stubTaskService implements primary.TaskService for handler tests.
type stubTaskService struct {
	tasks     map[string]*primary.Task
	createErr error
}

func (s *stubTaskService) CreateRootTask(ctx context.Context, req primary.CreateRootTaskRequest) (*primary.CreateRootTaskResponse, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	task := &primary.Task{ID: "task-001", Name: req.Name, Text: req.Text}
	return &primary.CreateRootTaskResponse{Task: task, Created: true}, nil
}

func (s *stubTaskService) GetTask(ctx context.Context, taskID string) (*primary.Task, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return task, nil
}

func (s *stubTaskService) ListTasks(ctx context.Context, filters primary.TaskFilters) ([]*primary.Task, error) {
	var out []*primary.Task
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTaskService) ListRoots(ctx context.Context) ([]*primary.Task, error) {
	return s.ListTasks(ctx, primary.TaskFilters{RootsOnly: true})
}

func (s *stubTaskService) DeleteTask(ctx context.Context, taskID string) error {
	if _, ok := s.tasks[taskID]; !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	delete(s.tasks, taskID)
	return nil
}

func (s *stubTaskService) GetAnnotations(ctx context.Context, taskID string) ([]*primary.Annotation, error) {
	if _, ok := s.tasks[taskID]; !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return []*primary.Annotation{{ID: "anno-001", TaskID: taskID, Label: "Controller", Text: "Acme Co"}}, nil
}

// stubAnnotationService implements primary.AnnotationService for handler tests.
type stubAnnotationService struct {
	lastSubmit *primary.SubmitRequest
	booleans   []primary.ManualBoolEntry
}

func (s *stubAnnotationService) Submit(ctx context.Context, req primary.SubmitRequest) (*primary.SubmitResponse, error) {
	s.lastSubmit = &req
	annotation := &primary.Annotation{ID: "anno-new", TaskID: req.TaskID}
	return &primary.SubmitResponse{New: []*primary.Annotation{annotation}, Current: []*primary.Annotation{annotation}}, nil
}

func (s *stubAnnotationService) ApplyManualBooleans(ctx context.Context, taskID string, entries []primary.ManualBoolEntry) error {
	s.booleans = entries
	return nil
}

// stubTiltService implements primary.TiltService for handler tests.
type stubTiltService struct {
	doc map[string]any
}

func (s *stubTiltService) Assemble(ctx context.Context, rootTaskID string) (map[string]any, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("task %s not found", rootTaskID)
	}
	return s.doc, nil
}

func (s *stubTiltService) AssembleAll(ctx context.Context) ([]map[string]any, error) {
	return []map[string]any{s.doc}, nil
}

func (s *stubTiltService) Push(ctx context.Context, rootTaskID string) (string, error) {
	return "/documents/42", nil
}

func (s *stubTiltService) Unpush(ctx context.Context, rootTaskID string) error {
	return nil
}

var (
	_ primary.TaskService       = (*stubTaskService)(nil)
	_ primary.AnnotationService = (*stubAnnotationService)(nil)
	_ primary.TiltService       = (*stubTiltService)(nil)
)

func newTestServer() (*httptest.Server, *stubTaskService, *stubAnnotationService) {
	tasks := &stubTaskService{tasks: map[string]*primary.Task{
		"task-001": {ID: "task-001", Name: "Policy", Text: "text"},
	}}
	annotations := &stubAnnotationService{}
	tilt := &stubTiltService{doc: map[string]any{"controller": map[string]any{"name": "Acme Co"}}}

	logger := log.New(io.Discard, "", 0)
	server := NewServer(tasks, annotations, tilt, logger)
	return httptest.NewServer(server.Handler()), tasks, annotations
}

func decodeResponse(t *testing.T, resp *http.Response) StandardResponse {
	t.Helper()
	defer resp.Body.Close()
	var out StandardResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if out := decodeResponse(t, resp); !out.Success {
		t.Error("expected success response")
	}
}

func TestCreateTask(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	body := bytes.NewBufferString(`{"name": "Policy", "text": "Acme Co processes data."}`)
	resp, err := http.Post(server.URL+"/api/v1/tasks", "application/json", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if out := decodeResponse(t, resp); !out.Success {
		t.Error("expected success response")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	cases := []string{
		`{"text": "no name"}`,
		`{"name": "no text"}`,
		`not json`,
	}
	for _, body := range cases {
		resp, err := http.Post(server.URL+"/api/v1/tasks", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestGetTaskNotFound(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/tasks/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitAnnotations(t *testing.T) {
	server, _, annotations := newTestServer()
	defer server.Close()

	body := `{"annotations": [{"label": "Controller", "start": 0, "end": 7, "text": "Acme Co"}]}`
	resp, err := http.Post(server.URL+"/api/v1/tasks/task-001/annotations", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if annotations.lastSubmit == nil || annotations.lastSubmit.TaskID != "task-001" {
		t.Errorf("submission not forwarded: %+v", annotations.lastSubmit)
	}
}

func TestSubmitAnnotationsValidation(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	cases := []string{
		`{"annotations": [{"start": 0, "end": 7, "text": "x"}]}`,
		`{"annotations": [{"label": "L", "start": 0, "end": 7}]}`,
		`{"annotations": [{"label": "L", "start": 5, "end": 2, "text": "x"}]}`,
		`{"annotations": [{"label": "L", "start": -1, "end": 2, "text": "x"}]}`,
	}
	for _, body := range cases {
		resp, err := http.Post(server.URL+"/api/v1/tasks/task-001/annotations", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestManualBooleans(t *testing.T) {
	server, _, annotations := newTestServer()
	defer server.Close()

	body := `{"booleans": [{"label": "~profiling", "value": true}]}`
	resp, err := http.Post(server.URL+"/api/v1/tasks/task-001/booleans", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if len(annotations.booleans) != 1 || annotations.booleans[0].Label != "~profiling" || !annotations.booleans[0].Value {
		t.Errorf("booleans not forwarded: %+v", annotations.booleans)
	}
}

func TestGetTiltDocument(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/tasks/task-001/tilt")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	controller, ok := doc["controller"].(map[string]any)
	if !ok || controller["name"] != "Acme Co" {
		t.Errorf("document wrong: %v", doc)
	}
}

func TestPushSetsLocation(t *testing.T) {
	server, _, _ := newTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/tasks/task-001/tilt/push", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/documents/42" {
		t.Errorf("expected location header, got %q", loc)
	}
}

func TestDeleteTask(t *testing.T) {
	server, tasks, _ := newTestServer()
	defer server.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/tasks/task-001", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := tasks.tasks["task-001"]; ok {
		t.Error("task must be deleted")
	}
}
