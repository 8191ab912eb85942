package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/detector"
	"github.com/ayusman/maptracker/internal/store"
)

// ProfilesHandler exposes the active color profile set. Edits go through
// the app's atomic holder so the pipeline never sees a half-updated set.
type ProfilesHandler struct {
	app   *app.App
	store *store.Store
}

// NewProfilesHandler creates a new ProfilesHandler. The store may be
// nil; edits are then not persisted.
func NewProfilesHandler(a *app.App, s *store.Store) *ProfilesHandler {
	return &ProfilesHandler{app: a, store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ProfilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/profiles or /api/profiles/{label}
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.update(w, r, detector.MarkerClass(path))
}

type updateProfileRequest struct {
	Lower   detector.HSV `json:"lower"`
	Upper   detector.HSV `json:"upper"`
	MinArea int          `json:"min_area"`
}

// list handles GET /api/profiles and returns the active profile set.
func (h *ProfilesHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Profiles().Current())
}

// update handles PUT /api/profiles/{label}: validate, swap into the
// active set, persist.
func (h *ProfilesHandler) update(w http.ResponseWriter, r *http.Request, label detector.MarkerClass) {
	if !label.Valid() {
		writeError(w, http.StatusNotFound, "Unknown profile label")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	profile := detector.ColorProfile{
		Label:   label,
		Lower:   req.Lower,
		Upper:   req.Upper,
		MinArea: req.MinArea,
	}
	if err := profile.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.app.Profiles().SwapClass(profile)

	if h.store != nil {
		if err := h.store.Profiles().Upsert(profile); err != nil {
			writeError(w, http.StatusInternalServerError, "Profile updated but not persisted")
			return
		}
	}

	writeJSON(w, http.StatusOK, profile)
}
