package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// StandardResponse wraps all API responses to ensure consistency.
// Clients check "success" first. If false, display "error".
type StandardResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// jsonResponse sends a standard JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse sends a standard Error response
func errorResponse(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, StandardResponse{
		Success: false,
		Error:   msg,
	})
}

// serviceError maps a service-layer error onto an HTTP status. The services
// phrase missing entities as "... not found", which is the only signal the
// shell has to distinguish 404 from 500.
func serviceError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	errorResponse(w, http.StatusInternalServerError, err.Error())
}
