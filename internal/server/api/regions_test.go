package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/detector"
	"github.com/ayusman/maptracker/internal/store"
)

func newTestApp(t *testing.T) (*app.App, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Config{Store: s})
	if err := a.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	return a, s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createRegion(t *testing.T, h *RegionsHandler, name string) regionResponse {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/regions", regionRequest{
		Name: name, X: 1280, Y: 60, Width: 340, Height: 86,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create region: status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp regionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestRegionsHandler_Create(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	resp := createRegion(t, h, "erangel")
	if resp.ID == "" {
		t.Error("expected generated id")
	}
	if resp.Name != "erangel" || resp.Width != 340 {
		t.Errorf("got %+v, want submitted fields back", resp)
	}
	if resp.Active {
		t.Error("new region must not be active")
	}
}

func TestRegionsHandler_Create_Invalid(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	rec := doJSON(t, h, http.MethodPost, "/api/regions", regionRequest{Name: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/regions", regionRequest{
		Name: "flat", X: 10, Y: 10, Width: 340, Height: 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero height: status = %d, want 400", rec.Code)
	}
}

func TestRegionsHandler_Activate(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	created := createRegion(t, h, "erangel")

	rec := doJSON(t, h, http.MethodPost, "/api/regions/"+created.ID+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Activation reaches both the database and the running pipeline.
	active, err := s.Regions().GetActive()
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if active.ID != created.ID {
		t.Errorf("active id = %s, want %s", active.ID, created.ID)
	}

	region, ok := a.Region()
	if !ok {
		t.Fatal("pipeline region not installed")
	}
	want := detector.Region{X: 1280, Y: 60, Width: 340, Height: 86}
	if region != want {
		t.Errorf("pipeline region = %+v, want %+v", region, want)
	}
}

func TestRegionsHandler_Activate_Unknown(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	rec := doJSON(t, h, http.MethodPost, "/api/regions/no-such-id/activate", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRegionsHandler_UpdateActive_Propagates(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	created := createRegion(t, h, "erangel")
	doJSON(t, h, http.MethodPost, "/api/regions/"+created.ID+"/activate", nil)

	rec := doJSON(t, h, http.MethodPut, "/api/regions/"+created.ID, regionRequest{
		Name: "erangel", X: 1200, Y: 40, Width: 400, Height: 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body)
	}

	region, ok := a.Region()
	if !ok {
		t.Fatal("pipeline region missing after update")
	}
	want := detector.Region{X: 1200, Y: 40, Width: 400, Height: 100}
	if region != want {
		t.Errorf("pipeline region = %+v, want updated %+v", region, want)
	}
}

func TestRegionsHandler_DeleteActive_ClearsPipeline(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	created := createRegion(t, h, "erangel")
	doJSON(t, h, http.MethodPost, "/api/regions/"+created.ID+"/activate", nil)

	rec := doJSON(t, h, http.MethodDelete, "/api/regions/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	if _, ok := a.Region(); ok {
		t.Error("pipeline region should be cleared with its row gone")
	}
}

func TestRegionsHandler_List(t *testing.T) {
	a, s := newTestApp(t)
	h := NewRegionsHandler(s, a)

	createRegion(t, h, "erangel")
	createRegion(t, h, "miramar")

	rec := doJSON(t, h, http.MethodGet, "/api/regions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var resp listRegionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Regions) != 2 {
		t.Errorf("regions = %d, want 2", len(resp.Regions))
	}
}
