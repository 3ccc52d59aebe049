package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Liveness
		r.Get("/health", s.handleHealth)

		// Automation endpoints
		r.Route("/automations", func(r chi.Router) {
			r.Post("/generate", s.handleGenerateAutomation)
			r.Post("/", s.handleSaveAutomation)
		})

		// Entity catalog endpoints
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Post("/test", s.handleTestEntity)
		})

		// Compile history
		r.Get("/history", s.handleHistory)

		// Component availability
		r.Get("/system/status", s.handleSystemStatus)

		// WebSocket event stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
