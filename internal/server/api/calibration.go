package api

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"strings"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/calibrate"
	"github.com/ayusman/maptracker/internal/detector"
)

// CalibrationHandler drives interactive profile calibration: the
// operator clicks marker pixels in the dashboard, each click is sampled
// from the most recent captured frame, and the fitted profile is
// previewed before being committed into the active set.
type CalibrationHandler struct {
	app *app.App
}

// NewCalibrationHandler creates a new CalibrationHandler over the given app.
func NewCalibrationHandler(a *app.App) *CalibrationHandler {
	return &CalibrationHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths:
	//   POST /api/calibration/start
	//   GET  /api/calibration/{id}
	//   POST /api/calibration/{id}/samples
	//   POST /api/calibration/{id}/fit
	//   PUT  /api/calibration/{id}/min-area
	//   POST /api/calibration/{id}/commit
	//   POST /api/calibration/{id}/cancel
	path := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	path = strings.TrimPrefix(path, "/")

	if path == "start" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.start(w, r)
		return
	}

	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.status(w, r, id)
	case action == "samples" && r.Method == http.MethodPost:
		h.addSample(w, r, id)
	case action == "fit" && r.Method == http.MethodPost:
		h.fit(w, r, id)
	case action == "min-area" && r.Method == http.MethodPut:
		h.setMinArea(w, r, id)
	case action == "commit" && r.Method == http.MethodPost:
		h.commit(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		h.cancel(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type startCalibrationRequest struct {
	Label string `json:"label"`
}

type addSampleRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type sessionResponse struct {
	ID      string          `json:"id"`
	Label   string          `json:"label"`
	State   calibrate.State `json:"state"`
	Samples int             `json:"samples"`
}

type sampleResponse struct {
	Samples int          `json:"samples"`
	Color   detector.HSV `json:"color"`
}

// toSessionResponse converts a calibrate.Session to a sessionResponse.
func toSessionResponse(s *calibrate.Session) sessionResponse {
	return sessionResponse{
		ID:      s.ID,
		Label:   string(s.Label),
		State:   s.State(),
		Samples: len(s.Samples()),
	}
}

// calibrationError maps calibration errors onto HTTP statuses.
func calibrationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calibrate.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Calibration session not found")
	case errors.Is(err, calibrate.ErrSessionActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, calibrate.ErrInvalidState),
		errors.Is(err, calibrate.ErrInsufficientSamples),
		errors.Is(err, calibrate.ErrInsufficientData),
		errors.Is(err, detector.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// start handles POST /api/calibration/start and opens a session.
func (h *CalibrationHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session, err := h.app.Calibration().Start(detector.MarkerClass(req.Label))
	if err != nil {
		calibrationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// status handles GET /api/calibration/{id}.
func (h *CalibrationHandler) status(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.app.Calibration().Get(id)
	if err != nil {
		calibrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// addSample handles POST /api/calibration/{id}/samples: the clicked
// pixel is sampled from the most recent captured frame.
func (h *CalibrationHandler) addSample(w http.ResponseWriter, r *http.Request, id string) {
	var req addSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	frame, err := h.app.LastFrame()
	if err != nil {
		writeError(w, http.StatusConflict, "No frame captured yet")
		return
	}
	defer frame.Close()

	if err := h.app.Calibration().AddSample(id, image.Pt(req.X, req.Y), &frame); err != nil {
		calibrationError(w, err)
		return
	}

	session, err := h.app.Calibration().Get(id)
	if err != nil {
		calibrationError(w, err)
		return
	}
	samples := session.Samples()

	writeJSON(w, http.StatusOK, sampleResponse{
		Samples: len(samples),
		Color:   samples[len(samples)-1].Color,
	})
}

// fit handles POST /api/calibration/{id}/fit and returns the fitted
// profile for preview. Fitting again after more samples is allowed.
func (h *CalibrationHandler) fit(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.app.Calibration().Fit(id)
	if err != nil {
		calibrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// setMinArea handles PUT /api/calibration/{id}/min-area.
func (h *CalibrationHandler) setMinArea(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		MinArea int `json:"min_area"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.app.Calibration().SetMinArea(id, req.MinArea); err != nil {
		calibrationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// commit handles POST /api/calibration/{id}/commit and returns the
// committed profile.
func (h *CalibrationHandler) commit(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.app.Calibration().Commit(id)
	if err != nil {
		calibrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// cancel handles POST /api/calibration/{id}/cancel.
func (h *CalibrationHandler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.app.Calibration().Cancel(id); err != nil {
		calibrationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
