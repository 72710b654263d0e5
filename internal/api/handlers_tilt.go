package api

import (
	"net/http"
)

// handleTiltGet - GET /api/v1/tasks/{id}/tilt
func (s *Server) handleTiltGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.tilt.Assemble(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, doc)
}

// handleTiltList - GET /api/v1/tilt
func (s *Server) handleTiltList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.tilt.AssembleAll(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, docs)
}

// handleTiltPush - POST /api/v1/tasks/{id}/tilt/push
func (s *Server) handleTiltPush(w http.ResponseWriter, r *http.Request) {
	location, err := s.tilt.Push(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	w.Header().Set("Location", location)
	jsonResponse(w, http.StatusCreated, StandardResponse{Success: true, Message: location})
}

// handleTiltUnpush - DELETE /api/v1/tasks/{id}/tilt/push
func (s *Server) handleTiltUnpush(w http.ResponseWriter, r *http.Request) {
	if err := s.tilt.Unpush(r.Context(), r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "document removed from registry"})
}
