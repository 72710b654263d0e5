package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/example/tilter/internal/ports/primary"
)

// CreateTaskRequest is the JSON body of POST /api/v1/tasks.
type CreateTaskRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
	HTML bool   `json:"html"`
	URL  string `json:"url,omitempty"`
}

// handleTaskCreate - POST /api/v1/tasks
func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Text == "" {
		errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := s.tasks.CreateRootTask(r.Context(), primary.CreateRootTaskRequest{
		Name: req.Name,
		Text: req.Text,
		HTML: req.HTML,
		URL:  req.URL,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	jsonResponse(w, status, StandardResponse{Success: true, Data: resp.Task})
}

// handleTaskList - GET /api/v1/tasks?roots=true&name=...&limit=...
func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := primary.TaskFilters{
		RootsOnly: q.Get("roots") == "true",
		Name:      q.Get("name"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			errorResponse(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filters.Limit = limit
	}

	tasks, err := s.tasks.ListTasks(r.Context(), filters)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: tasks})
}

// handleTaskGet - GET /api/v1/tasks/{id}
func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: task})
}

// handleTaskDelete - DELETE /api/v1/tasks/{id}
func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "task deleted"})
}

// handleAnnotationList - GET /api/v1/tasks/{id}/annotations
func (s *Server) handleAnnotationList(w http.ResponseWriter, r *http.Request) {
	annotations, err := s.tasks.GetAnnotations(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: annotations})
}

// SubmitAnnotationsRequest is the JSON body of POST /api/v1/tasks/{id}/annotations.
type SubmitAnnotationsRequest struct {
	Annotations []primary.AnnotationSubmission `json:"annotations"`
}

// SubmitAnnotationsResponse reports the reconciliation outcome.
type SubmitAnnotationsResponse struct {
	New     []*primary.Annotation `json:"new"`
	Current []*primary.Annotation `json:"current"`
}

// handleAnnotationSubmit - POST /api/v1/tasks/{id}/annotations
func (s *Server) handleAnnotationSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnnotationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, a := range req.Annotations {
		if a.Label == "" {
			errorResponse(w, http.StatusBadRequest, "annotation label is required")
			return
		}
		if a.Text == "" {
			errorResponse(w, http.StatusBadRequest, "annotation text is required")
			return
		}
		if a.Start < 0 || a.End < a.Start {
			errorResponse(w, http.StatusBadRequest, "annotation span is invalid")
			return
		}
	}

	resp, err := s.annotations.Submit(r.Context(), primary.SubmitRequest{
		TaskID:      r.PathValue("id"),
		Annotations: req.Annotations,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Data: SubmitAnnotationsResponse{
		New:     resp.New,
		Current: resp.Current,
	}})
}

// ManualBooleansRequest is the JSON body of POST /api/v1/tasks/{id}/booleans.
type ManualBooleansRequest struct {
	Booleans []primary.ManualBoolEntry `json:"booleans"`
}

// handleManualBooleans - POST /api/v1/tasks/{id}/booleans
func (s *Server) handleManualBooleans(w http.ResponseWriter, r *http.Request) {
	var req ManualBooleansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, b := range req.Booleans {
		if b.Label == "" {
			errorResponse(w, http.StatusBadRequest, "boolean label is required")
			return
		}
	}

	if err := s.annotations.ApplyManualBooleans(r.Context(), r.PathValue("id"), req.Booleans); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "booleans applied"})
}
