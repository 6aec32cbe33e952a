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

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Account linking stubs used during platform setup (no auth)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Get("/fakeauth", s.handleFakeAuth)
	r.Get("/faketoken", s.handleFakeToken)
	r.Post("/faketoken", s.handleFakeToken)

	// Catalog re-sync trigger (called from tooling and the sample web UI)
	r.Post("/requestsync", s.handleRequestSync)

	// Fulfillment endpoint; bearer auth when enabled
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/smarthome", s.handleFulfillment)
	})

	// Direct device state access for sensors and tooling
	r.Route("/devices/{id}", func(r chi.Router) {
		r.Get("/state", s.handleGetDeviceState)
		r.Post("/state", s.handleUpdateDeviceState)
		r.Get("/history", s.handleDeviceHistory)
	})

	// WebSocket state stream
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
