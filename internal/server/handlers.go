// Package server exposes simulations, presets and saved runs over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcliao/seiqhcdro/internal/epi"
	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/ode"
	"github.com/rcliao/seiqhcdro/internal/series"
	"github.com/rcliao/seiqhcdro/internal/store"
)

// RunReader is the part of the run history the HTTP API reads.
type RunReader interface {
	Get(ctx context.Context, p store.GetParams) ([]model.Run, error)
	List(ctx context.Context, p store.ListParams) ([]model.Run, error)
}

// Handlers serves the HTTP API.
type Handlers struct {
	runs    RunReader
	opts    ode.Options
	timeout time.Duration
	log     *slog.Logger
}

// NewHandlers builds the API. runs may be nil, in which case the run
// endpoints answer 503.
func NewHandlers(runs RunReader, opts ode.Options, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{runs: runs, opts: opts, timeout: 30 * time.Second, log: log}
}

// RegisterRoutes mounts the versioned API on rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/simulate", h.HandleSimulate)
	rg.GET("/presets", h.HandleListPresets)
	rg.GET("/presets/:name", h.HandleGetPreset)
	rg.GET("/runs", h.HandleListRuns)
	rg.GET("/runs/:ns/:key", h.HandleGetRun)
}

// NewRouter returns an engine with the API under /v1 plus /healthz and
// /metrics.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(r.Group("/v1"), h)
	return r
}

// HandleSimulate runs the posted scenario. Add ?trajectory=true to include
// the raw compartment fractions.
func (h *Handlers) HandleSimulate(c *gin.Context) {
	var sc model.Scenario
	if err := c.ShouldBindJSON(&sc); err != nil {
		simulationsTotal.WithLabelValues("invalid").Inc()
		resp := ErrorResponse{Error: err.Error(), Code: "INVALID_SCENARIO"}
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			resp.Fields = ve.Fields
		}
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	res, err := epi.Simulate(ctx, &sc, h.opts)
	if err != nil {
		h.simulationError(c, err)
		return
	}
	simulationsTotal.WithLabelValues("ok").Inc()
	simulationDuration.Observe(time.Since(start).Seconds())
	solverSteps.Observe(float64(res.Stats.Steps))

	ser := series.Derive(&res.Trajectory, sc.Population)
	resp := SimulateResponse{
		Scenario: &sc,
		R:        res.R,
		Days:     ser.Days(res.R),
		Summary:  ser.Stats(sc.HospitalCapacity, sc.QuarantineCapacity),
		Stats:    res.Stats,
	}
	if c.Query("trajectory") == "true" {
		resp.Trajectory = &res.Trajectory
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) simulationError(c *gin.Context, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		simulationsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_SCENARIO", Fields: ve.Fields})
	case errors.Is(err, epi.ErrSimulationFailed):
		simulationsTotal.WithLabelValues("failed").Inc()
		h.log.Warn("simulation failed", "error", err)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "SIMULATION_FAILED"})
	default:
		simulationsTotal.WithLabelValues("failed").Inc()
		h.log.Error("simulation aborted", "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "ABORTED"})
	}
}

// HandleListPresets lists the bundled scenarios.
func (h *Handlers) HandleListPresets(c *gin.Context) {
	names := model.PresetNames()
	out := make([]PresetInfo, 0, len(names))
	for _, n := range names {
		p, err := model.LoadPreset(n)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		out = append(out, PresetInfo{Name: p.Name, Title: p.Title})
	}
	c.JSON(http.StatusOK, out)
}

// HandleGetPreset returns one bundled scenario.
func (h *Handlers) HandleGetPreset(c *gin.Context) {
	p, err := model.LoadPreset(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// HandleListRuns lists saved runs, filtered by ?ns= and bounded by ?limit=.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "run history is not configured", Code: "NO_STORE"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer", Code: "INVALID_QUERY"})
		return
	}
	runs, err := h.runs.List(c.Request.Context(), store.ListParams{NS: c.Query("ns"), Limit: limit})
	if err != nil {
		h.log.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

// HandleGetRun returns the latest (or ?version=) run for ns/key with its
// daily series.
func (h *Handlers) HandleGetRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "run history is not configured", Code: "NO_STORE"})
		return
	}
	p := store.GetParams{NS: c.Param("ns"), Key: c.Param("key"), WithDays: true}
	if v := c.Query("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "version must be a positive integer", Code: "INVALID_QUERY"})
			return
		}
		p.Version = n
	}
	runs, err := h.runs.Get(c.Request.Context(), p)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
		return
	}
	if err != nil {
		h.log.Error("get run", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs[0])
}
