package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmsight/apiserver/internal/services"
	"github.com/farmsight/apiserver/types"
	"github.com/go-chi/chi/v5"
)

func newFieldDataTestServer(t *testing.T, repo *fakeFieldDataRepo, fields *fakeFieldRepo, identity Identity) *httptest.Server {
	t.Helper()

	svc := services.NewFieldDataService(repo, fields, nil)

	r := chi.NewRouter()
	r.Use(identityMiddleware(identity))
	FieldDataRouter(r, svc)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateFieldDataMissingFields(t *testing.T) {
	srv := newFieldDataTestServer(t, newFakeFieldDataRepo(), newFakeFieldRepo(), farmerIdentity())

	resp := postJSON(t, srv.URL+"/field-data", map[string]any{"crop_type": "wheat"}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body MissingFieldsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, name := range []string{"field_id", "yield_amount", "unit", "measurement_date"} {
		if !body.Missing[name] {
			t.Errorf("expected %q flagged missing", name)
		}
	}
}

func TestCreateFieldDataUnownedFieldIs404(t *testing.T) {
	fields := newFakeFieldRepo(types.Field{ID: 9, UserID: 2})
	srv := newFieldDataTestServer(t, newFakeFieldDataRepo(), fields, farmerIdentity())

	resp := postJSON(t, srv.URL+"/field-data", map[string]any{
		"field_id":         9,
		"crop_type":        "wheat",
		"yield_amount":     10.5,
		"unit":             "kg",
		"measurement_date": time.Now().Format(time.RFC3339),
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a field owned by someone else, got %d", resp.StatusCode)
	}
}

func TestCreateFieldDataRejectsNonPositiveYield(t *testing.T) {
	fields := newFakeFieldRepo(types.Field{ID: 9, UserID: 1})
	srv := newFieldDataTestServer(t, newFakeFieldDataRepo(), fields, farmerIdentity())

	resp := postJSON(t, srv.URL+"/field-data", map[string]any{
		"field_id":         9,
		"crop_type":        "wheat",
		"yield_amount":     0,
		"unit":             "kg",
		"measurement_date": time.Now().Format(time.RFC3339),
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateFieldData(t *testing.T) {
	fields := newFakeFieldRepo(types.Field{ID: 9, UserID: 1})
	repo := newFakeFieldDataRepo()
	srv := newFieldDataTestServer(t, repo, fields, farmerIdentity())

	resp := postJSON(t, srv.URL+"/field-data", map[string]any{
		"field_id":         9,
		"crop_type":        "wheat",
		"yield_amount":     10.5,
		"unit":             "kg",
		"measurement_date": time.Now().Format(time.RFC3339),
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var record types.FieldData
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if record.UserID != 1 || record.FieldID != 9 {
		t.Errorf("unexpected record %+v", record)
	}
}

// The statistics route must win over the numeric record route.
func TestStatisticsRouteNotShadowedByRecordID(t *testing.T) {
	repo := newFakeFieldDataRepo()
	repo.stats = types.FieldDataStats{TotalRecords: 7, GrowthPercentage: 100}
	srv := newFieldDataTestServer(t, repo, newFakeFieldRepo(), farmerIdentity())

	resp := getJSON(t, srv.URL+"/field-data/statistics", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stats types.FieldDataStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.TotalRecords != 7 {
		t.Errorf("expected 7 total records, got %d", stats.TotalRecords)
	}
}

func TestGetFieldDataOtherUserIs404(t *testing.T) {
	repo := newFakeFieldDataRepo(types.FieldData{ID: 2, UserID: 2})
	srv := newFieldDataTestServer(t, repo, newFakeFieldRepo(), farmerIdentity())

	resp := getJSON(t, srv.URL+"/field-data/2", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateFieldDataEmptyPatchIs400(t *testing.T) {
	repo := newFakeFieldDataRepo(types.FieldData{ID: 2, UserID: 1})
	srv := newFieldDataTestServer(t, repo, newFakeFieldRepo(), farmerIdentity())

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/field-data/2", jsonBody(t, map[string]any{}))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty update, got %d", resp.StatusCode)
	}
}
