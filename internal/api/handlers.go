package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/geoio"
	"github.com/sells-group/nbs-planner/internal/grid"
	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/nbs"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/report"
	"github.com/sells-group/nbs-planner/internal/store"
)

// PlanRequest is the body of POST /v1/plans. Buildings and GreenBlue are
// GeoJSON FeatureCollections.
type PlanRequest struct {
	Name       string             `json:"name"`
	Buildings  json.RawMessage    `json:"buildings"`
	GreenBlue  json.RawMessage    `json:"green_blue,omitempty"`
	CellSizeM  *float64           `json:"cell_size_m,omitempty"`
	StudyArea  *grid.StudyArea    `json:"study_area,omitempty"`
	WindDeg    *float64           `json:"wind_direction_deg,omitempty"`
	Budget     *float64           `json:"budget,omitempty"`
	Population map[string]float64 `json:"population,omitempty"`
	NearWater  map[string]bool    `json:"near_water,omitempty"`
	Persist    *bool              `json:"persist,omitempty"`
}

// PlanResponse carries the computed plan and, when persisted, its run record.
type PlanResponse struct {
	Run  *store.Run     `json:"run,omitempty"`
	Plan *pipeline.Plan `json:"plan"`
}

type tableEntry struct {
	Category model.Category `json:"category"`
	nbs.Profile
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	table := s.planner.Table()
	entries := make([]tableEntry, 0, len(table))
	for _, cat := range table.Categories() {
		entries = append(entries, tableEntry{Category: cat, Profile: table[cat]})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := s.planInput(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.cfg.PlanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PlanTimeout)
		defer cancel()
	}

	plan, err := s.planner.Run(ctx, in)
	if err != nil {
		writePlanError(w, err)
		return
	}

	resp := PlanResponse{Plan: plan}
	persist := req.Persist == nil || *req.Persist
	if persist && s.store != nil {
		run, err := s.store.SavePlan(ctx, req.Name, plan)
		if err != nil {
			zap.L().Error("api: save plan", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save plan")
			return
		}
		resp.Run = run
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) planInput(req *PlanRequest) (pipeline.Input, error) {
	in := pipeline.Input{
		CellSizeM: s.cfg.DefaultCellSizeM,
		WindDeg:   req.WindDeg,
		Budget:    req.Budget,
	}
	if req.CellSizeM != nil {
		if !(*req.CellSizeM > 0) {
			return in, eris.Errorf("api: cell_size_m must be positive, got %g", *req.CellSizeM)
		}
		in.CellSizeM = *req.CellSizeM
	}
	if in.Budget == nil {
		in.Budget = s.cfg.DefaultBudget
	}
	if req.StudyArea != nil {
		b := req.StudyArea.Bound()
		in.StudyArea = &b
	}

	if len(req.Buildings) > 0 {
		fc, err := geoio.ParseFeatureCollection(req.Buildings)
		if err != nil {
			return in, err
		}
		in.Buildings = geoio.BuildingsFromFeatures(fc, "api")
	}
	if len(req.GreenBlue) > 0 {
		fc, err := geoio.ParseFeatureCollection(req.GreenBlue)
		if err != nil {
			return in, err
		}
		in.GreenBlue = geoio.GreenBlueFromFeatures(fc)
	}

	var err error
	if in.Population, err = keyedByCell(req.Population); err != nil {
		return in, err
	}
	if in.NearWater, err = keyedByCell(req.NearWater); err != nil {
		return in, err
	}
	return in, nil
}

// keyedByCell converts "r<row>_c<col>" keys into cell ids.
func keyedByCell[V any](m map[string]V) (map[model.CellID]V, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[model.CellID]V, len(m))
	for k, v := range m {
		id, err := model.ParseCellID(k)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

func writePlanError(w http.ResponseWriter, err error) {
	var extentErr *grid.InvalidExtentError
	switch {
	case errors.As(err, &extentErr):
		writeError(w, http.StatusUnprocessableEntity, extentErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "planning timed out")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		zap.L().Error("api: plan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "planning failed")
	}
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{Name: q.Get("name")}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListCells(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	var filter store.CellFilter
	if c := q.Get("category"); c != "" {
		cat, err := model.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Category = &cat
	}
	if v := q.Get("selected"); v != "" {
		sel, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid selected")
			return
		}
		filter.SelectedOnly = sel
	}

	cells, err := s.store.ListCells(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	fc, err := report.CellFeatures(cells)
	if err != nil {
		zap.L().Error("api: encode cells", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode cells")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		zap.L().Warn("api: encode cells", zap.Error(err))
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	zap.L().Error("api: store", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "store error")
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
