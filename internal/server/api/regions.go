// Package api provides HTTP API handlers for the MapTracker control
// surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/store"
)

// RegionsHandler handles HTTP requests for minimap region resources.
type RegionsHandler struct {
	store *store.Store
	app   *app.App
}

// NewRegionsHandler creates a new RegionsHandler. The app may be nil;
// activation then only updates the database.
func NewRegionsHandler(s *store.Store, a *app.App) *RegionsHandler {
	return &RegionsHandler{store: s, app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RegionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/regions, /api/regions/{id}, /api/regions/{id}/activate
	path := strings.TrimPrefix(r.URL.Path, "/api/regions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type regionRequest struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type regionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listRegionsResponse struct {
	Regions []regionResponse `json:"regions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toRegionResponse converts a store.Region to a regionResponse.
func toRegionResponse(r *store.Region) regionResponse {
	return regionResponse{
		ID:        r.ID,
		Name:      r.Name,
		X:         r.X,
		Y:         r.Y,
		Width:     r.Width,
		Height:    r.Height,
		Active:    r.Active,
		CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/regions and returns all regions.
func (h *RegionsHandler) list(w http.ResponseWriter, r *http.Request) {
	regions, err := h.store.Regions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list regions")
		return
	}

	response := listRegionsResponse{
		Regions: make([]regionResponse, 0, len(regions)),
	}
	for _, region := range regions {
		response.Regions = append(response.Regions, toRegionResponse(region))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/regions/{id} and returns a single region.
func (h *RegionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	region, err := h.store.Regions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get region")
		return
	}

	writeJSON(w, http.StatusOK, toRegionResponse(region))
}

// create handles POST /api/regions and creates a new region.
func (h *RegionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	region := &store.Region{
		ID:     uuid.New().String(),
		Name:   req.Name,
		X:      req.X,
		Y:      req.Y,
		Width:  req.Width,
		Height: req.Height,
	}
	if !region.Geometry().Valid() {
		writeError(w, http.StatusBadRequest, "Region geometry malformed")
		return
	}

	if err := h.store.Regions().Create(region); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create region")
		return
	}

	writeJSON(w, http.StatusCreated, toRegionResponse(region))
}

// update handles PUT /api/regions/{id} and updates an existing region.
func (h *RegionsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	region, err := h.store.Regions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get region")
		return
	}

	var req regionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		region.Name = req.Name
	}
	region.X = req.X
	region.Y = req.Y
	region.Width = req.Width
	region.Height = req.Height
	if !region.Geometry().Valid() {
		writeError(w, http.StatusBadRequest, "Region geometry malformed")
		return
	}

	if err := h.store.Regions().Update(region); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update region")
		return
	}

	// An edited geometry takes effect immediately if this region is the
	// active one.
	if region.Active && h.app != nil {
		h.app.SetRegion(region.Geometry())
	}

	writeJSON(w, http.StatusOK, toRegionResponse(region))
}

// delete handles DELETE /api/regions/{id} and removes a region.
func (h *RegionsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	region, err := h.store.Regions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get region")
		return
	}

	if err := h.store.Regions().Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete region")
		return
	}

	// Deleting the active region leaves the pipeline with nothing to
	// crop until another one is activated.
	if region.Active && h.app != nil {
		h.app.ClearRegion()
	}

	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/regions/{id}/activate: it flips the active
// flag in the store and installs the geometry into the running pipeline.
func (h *RegionsHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Regions().Activate(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Region not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate region")
		return
	}

	region, err := h.store.Regions().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get region")
		return
	}

	if h.app != nil {
		h.app.SetRegion(region.Geometry())
	}

	writeJSON(w, http.StatusOK, toRegionResponse(region))
}
