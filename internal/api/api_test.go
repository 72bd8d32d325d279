package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/store"
)

const buildingsFC = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "b1",
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[75,0],[75,100],[0,100],[0,0]]]},
     "properties": {"height": 12}},
    {"type": "Feature", "id": "b2",
     "geometry": {"type": "Polygon", "coordinates": [[[100,0],[110,0],[110,10],[100,10],[100,0]]]},
     "properties": {"building:levels": 2}}
  ]
}`

func newTestServer(t *testing.T, withStore bool, cfg Config) (*httptest.Server, store.Store) {
	t.Helper()
	var st store.Store
	if withStore {
		sq, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		require.NoError(t, sq.Migrate(context.Background()))
		t.Cleanup(func() { _ = sq.Close() })
		st = sq
	}
	srv := httptest.NewServer(New(pipeline.New(pipeline.WithWorkers(2)), st, cfg).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func postPlan(t *testing.T, url string, req PlanRequest) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(url+"/v1/plans", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestTables(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{})

	resp, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var entries []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 6)
	assert.Equal(t, "Green Roof", entries[0]["category"])
	assert.EqualValues(t, 1, entries[0]["base_priority"])
	assert.Equal(t, "Rain Garden", entries[5]["category"])
}

func TestCreatePlan_NoStore(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{})

	size := 100.0
	resp := postPlan(t, srv.URL, PlanRequest{
		Name:      "demo",
		Buildings: json.RawMessage(buildingsFC),
		CellSizeM: &size,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out PlanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Nil(t, out.Run)
	require.NotNil(t, out.Plan)
	assert.Equal(t, 1, out.Plan.Rows)
	assert.Equal(t, 2, out.Plan.Cols)
	assert.Len(t, out.Plan.Cells, 2)
	assert.Equal(t, 2, out.Plan.Buildings.Total)
}

func TestCreatePlan_PersistAndFetch(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, true, Config{})

	size := 100.0
	resp := postPlan(t, srv.URL, PlanRequest{
		Name:       "demo",
		Buildings:  json.RawMessage(buildingsFC),
		CellSizeM:  &size,
		Population: map[string]float64{"r0_c0": 250},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out PlanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Run)
	id := out.Run.ID

	get, err := http.Get(srv.URL + "/v1/plans/" + id)
	require.NoError(t, err)
	defer get.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, get.StatusCode)
	var run store.Run
	require.NoError(t, json.NewDecoder(get.Body).Decode(&run))
	assert.Equal(t, "demo", run.Name)

	list, err := http.Get(srv.URL + "/v1/plans?name=demo&limit=5")
	require.NoError(t, err)
	defer list.Body.Close() //nolint:errcheck
	var runs []store.Run
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	assert.Len(t, runs, 1)

	cells, err := http.Get(srv.URL + "/v1/plans/" + id + "/cells")
	require.NoError(t, err)
	defer cells.Body.Close() //nolint:errcheck
	assert.Equal(t, "application/geo+json", cells.Header.Get("Content-Type"))
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(cells.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "r0_c0", fc.Features[0].ID)
	assert.EqualValues(t, 250, fc.Features[0].Properties["population_weight"])
}

func TestCreatePlan_PersistFalse(t *testing.T) {
	t.Parallel()
	srv, st := newTestServer(t, true, Config{})

	persist := false
	resp := postPlan(t, srv.URL, PlanRequest{
		Buildings: json.RawMessage(buildingsFC),
		Persist:   &persist,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCreatePlan_Errors(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"buildings":`, http.StatusBadRequest},
		{"bad geojson", `{"buildings":{"type":"Nope"}}`, http.StatusBadRequest},
		{"bad cell id", `{"buildings":` + buildingsFC + `,"near_water":{"x":true}}`, http.StatusBadRequest},
		{"no extent", `{"buildings":{"type":"FeatureCollection","features":[]}}`, http.StatusUnprocessableEntity},
		{"zero cell size", `{"buildings":` + buildingsFC + `,"cell_size_m":0}`, http.StatusBadRequest},
		{"negative cell size", `{"buildings":` + buildingsFC + `,"cell_size_m":-5}`, http.StatusBadRequest},
		{"too many cells", `{"buildings":` + buildingsFC + `,"cell_size_m":0.5,"study_area":{"min_x":0,"min_y":0,"max_x":10000,"max_y":10000}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := http.Post(srv.URL+"/v1/plans", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRunEndpoints_NoStore(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{})

	for _, path := range []string{"/v1/plans", "/v1/plans/x", "/v1/plans/x/cells"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestRunEndpoints_BadRequests(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, true, Config{})

	tests := []struct {
		path string
		want int
	}{
		{"/v1/plans/missing", http.StatusNotFound},
		{"/v1/plans/missing/cells", http.StatusNotFound},
		{"/v1/plans?limit=abc", http.StatusBadRequest},
		{"/v1/plans?offset=-1", http.StatusBadRequest},
		{"/v1/plans/x/cells?category=sponge", http.StatusBadRequest},
		{"/v1/plans/x/cells?selected=maybe", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{RateLimit: 0.001, RateBurst: 1})

	first, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	_ = first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/v1/tables")
	require.NoError(t, err)
	_ = second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestCORS(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, false, Config{AllowedOrigins: []string{"https://planner.example"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://planner.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://planner.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
