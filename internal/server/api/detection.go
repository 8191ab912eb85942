package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/detector"
)

// DetectionHandler exposes the latest detection result and the
// detection on/off switch.
type DetectionHandler struct {
	app *app.App
}

// NewDetectionHandler creates a new DetectionHandler over the given app.
func NewDetectionHandler(a *app.App) *DetectionHandler {
	return &DetectionHandler{app: a}
}

type detectionResponse struct {
	Enabled bool                      `json:"enabled"`
	Result  *detector.DetectionResult `json:"result,omitempty"`
}

type setDetectionRequest struct {
	Enabled bool `json:"enabled"`
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.set(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// get handles GET /api/detection: the latest result, or a null result
// when the pipeline has not produced one yet.
func (h *DetectionHandler) get(w http.ResponseWriter, r *http.Request) {
	response := detectionResponse{Enabled: h.app.IsEnabled()}
	if result, ok := h.app.LatestResult(); ok {
		response.Result = &result
	}
	writeJSON(w, http.StatusOK, response)
}

// set handles PUT /api/detection and toggles detection. Capture keeps
// running either way so calibration can still sample frames.
func (h *DetectionHandler) set(w http.ResponseWriter, r *http.Request) {
	var req setDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.app.SetEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.app.IsEnabled()})
}
