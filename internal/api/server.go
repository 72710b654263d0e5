// Package api is the HTTP shell over the annotation engine. Handlers only
// decode requests, call the primary ports and encode responses.
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/example/tilter/internal/ports/primary"
)

// Server holds the services the handlers dispatch to.
type Server struct {
	tasks       primary.TaskService
	annotations primary.AnnotationService
	tilt        primary.TiltService
	logger      *log.Logger
}

// NewServer creates the HTTP shell around the given services.
func NewServer(tasks primary.TaskService, annotations primary.AnnotationService, tilt primary.TiltService, logger *log.Logger) *Server {
	return &Server{
		tasks:       tasks,
		annotations: annotations,
		tilt:        tilt,
		logger:      logger,
	}
}

// Handler builds the route table and wraps it in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// --- Tasks ---
	mux.HandleFunc("POST /api/v1/tasks", s.handleTaskCreate)
	mux.HandleFunc("GET /api/v1/tasks", s.handleTaskList)
	mux.HandleFunc("GET /api/v1/tasks/{id}", s.handleTaskGet)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.handleTaskDelete)

	// --- Annotations ---
	mux.HandleFunc("GET /api/v1/tasks/{id}/annotations", s.handleAnnotationList)
	mux.HandleFunc("POST /api/v1/tasks/{id}/annotations", s.handleAnnotationSubmit)
	mux.HandleFunc("POST /api/v1/tasks/{id}/booleans", s.handleManualBooleans)

	// --- Tilt documents ---
	mux.HandleFunc("GET /api/v1/tasks/{id}/tilt", s.handleTiltGet)
	mux.HandleFunc("POST /api/v1/tasks/{id}/tilt/push", s.handleTiltPush)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}/tilt/push", s.handleTiltUnpush)
	mux.HandleFunc("GET /api/v1/tilt", s.handleTiltList)

	return middlewareChain(mux, s.logger)
}

// ListenAndServe starts the server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Printf("server starting on %s", addr)
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, StandardResponse{Success: true, Message: "ok"})
}

// middlewareChain wraps the router with logging and CORS.
func middlewareChain(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)

		logger.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
