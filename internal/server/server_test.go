package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/ode"
	"github.com/rcliao/seiqhcdro/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T, runs RunReader, opts ode.Options) *gin.Engine {
	t.Helper()
	return NewRouter(NewHandlers(runs, opts, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func presetBody(t *testing.T, name string) []byte {
	t.Helper()
	p, err := model.LoadPreset(name)
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	b, err := json.Marshal(p.Scenario)
	if err != nil {
		t.Fatalf("marshal scenario: %v", err)
	}
	return b
}

func do(t *testing.T, r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type simulateBody struct {
	R          []float64         `json:"r"`
	Days       []model.DayStat   `json:"days"`
	Trajectory *model.Trajectory `json:"trajectory"`
	Summary    struct {
		Deaths struct {
			Value float64 `json:"value"`
		} `json:"deaths"`
	} `json:"summary"`
	Stats ode.Stats `json:"stats"`
}

func TestHandleSimulate(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodPost, "/v1/simulate", presetBody(t, "dn"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp simulateBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Days) != 101 || len(resp.R) != 101 {
		t.Fatalf("expected 101 days, got %d days and %d r values", len(resp.Days), len(resp.R))
	}
	if resp.Days[0].Infected != 1 {
		t.Errorf("expected one seed case, got %v", resp.Days[0].Infected)
	}
	if resp.R[0] != 3.4 {
		t.Errorf("expected r0 3.4 on day 0, got %v", resp.R[0])
	}
	if resp.Trajectory != nil {
		t.Error("trajectory should be omitted unless requested")
	}
	if resp.Stats.Steps == 0 {
		t.Error("expected solver stats")
	}
	last := resp.Days[len(resp.Days)-1]
	if resp.Summary.Deaths.Value != last.Deaths {
		t.Errorf("summary deaths %v, final day %v", resp.Summary.Deaths.Value, last.Deaths)
	}
}

func TestHandleSimulateWithTrajectory(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodPost, "/v1/simulate?trajectory=true", presetBody(t, "dn"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp simulateBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Trajectory == nil || resp.Trajectory.Len() != 101 {
		t.Fatalf("expected a 101-point trajectory, got %+v", resp.Trajectory)
	}
}

func TestHandleSimulateInvalid(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodPost, "/v1/simulate", []byte(`{"N": 0, "r0": -1}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "INVALID_SCENARIO" {
		t.Errorf("expected INVALID_SCENARIO, got %q", resp.Code)
	}
	if len(resp.Fields) == 0 {
		t.Error("expected field errors")
	}
	var sawN bool
	for _, f := range resp.Fields {
		if f.Field == "N" {
			sawN = true
		}
	}
	if !sawN {
		t.Errorf("expected an error on N, got %+v", resp.Fields)
	}
}

func TestHandleSimulateMalformed(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodPost, "/v1/simulate", []byte(`{not json`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleSimulateSolverFailure(t *testing.T) {
	r := setupTestRouter(t, nil, ode.Options{MaxSteps: 1})

	w := do(t, r, http.MethodPost, "/v1/simulate", presetBody(t, "dn"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "SIMULATION_FAILED" {
		t.Errorf("expected SIMULATION_FAILED, got %q", resp.Code)
	}
}

func TestHandlePresets(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodGet, "/v1/presets", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []PresetInfo
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != len(model.PresetNames()) {
		t.Errorf("expected %d presets, got %d", len(model.PresetNames()), len(list))
	}

	w = do(t, r, http.MethodGet, "/v1/presets/hd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var p model.Preset
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode preset: %v", err)
	}
	if p.Name != "hd" || p.Scenario == nil || p.Scenario.Horizon != 150 {
		t.Errorf("unexpected preset: %+v", p)
	}

	w = do(t, r, http.MethodGet, "/v1/presets/atlantis", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleRuns(t *testing.T) {
	s := newTestStore(t)
	p, err := model.LoadPreset("dn")
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	days := []model.DayStat{{Day: 0, Infected: 1}, {Day: 1, Infected: 4, DailyInfected: 3}}
	if _, err := s.Put(context.Background(), store.PutParams{NS: "vn", Key: "dn", Scenario: p.Scenario, Days: days}); err != nil {
		t.Fatalf("put: %v", err)
	}
	r := setupTestRouter(t, s, ode.DefaultOptions())

	w := do(t, r, http.MethodGet, "/v1/runs?ns=vn", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var runs []model.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Key != "dn" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	w = do(t, r, http.MethodGet, "/v1/runs/vn/dn", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var run model.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if len(run.Days) != 2 || run.PeakInfected != 4 {
		t.Errorf("unexpected run: %+v", run)
	}

	w = do(t, r, http.MethodGet, "/v1/runs/vn/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/v1/runs/vn/dn?version=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/v1/runs?limit=x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleRunsWithoutStore(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodGet, "/v1/runs", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupTestRouter(t, nil, ode.DefaultOptions())

	w := do(t, r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d: %s", w.Code, w.Body.String())
	}

	do(t, r, http.MethodPost, "/v1/simulate", presetBody(t, "dn"))
	w = do(t, r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, name := range []string{
		"seiqhcdro_simulations_total",
		"seiqhcdro_simulation_duration_seconds",
		"seiqhcdro_solver_steps",
	} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
