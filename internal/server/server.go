// Package server provides the HTTP server for the MapTracker dashboard
// and control API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/server/api"
	"github.com/ayusman/maptracker/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server represents the HTTP server for the MapTracker application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		regionsHandler := api.NewRegionsHandler(s.config.Store, s.config.App)
		s.mux.Handle("/api/regions", regionsHandler)
		s.mux.Handle("/api/regions/", regionsHandler)
	}

	if s.config.App != nil {
		profilesHandler := api.NewProfilesHandler(s.config.App, s.config.Store)
		s.mux.Handle("/api/profiles", profilesHandler)
		s.mux.Handle("/api/profiles/", profilesHandler)

		calibrationHandler := api.NewCalibrationHandler(s.config.App)
		s.mux.Handle("/api/calibration", calibrationHandler)
		s.mux.Handle("/api/calibration/", calibrationHandler)

		s.mux.Handle("/api/detection", api.NewDetectionHandler(s.config.App))

		s.mux.Handle("/api/detections", NewDetectionsHandler(s.config.App))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
