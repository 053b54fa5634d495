package server

import (
	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/ode"
	"github.com/rcliao/seiqhcdro/internal/series"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code,omitempty"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

// SimulateResponse is the body of a successful POST /v1/simulate.
type SimulateResponse struct {
	Scenario   *model.Scenario   `json:"scenario"`
	Trajectory *model.Trajectory `json:"trajectory,omitempty"`
	R          []float64         `json:"r"`
	Days       []model.DayStat   `json:"days"`
	Summary    series.Summary    `json:"summary"`
	Stats      ode.Stats         `json:"stats"`
}

// PresetInfo lists a bundled scenario without its parameters.
type PresetInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
