package epi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/ode"
	"github.com/rcliao/seiqhcdro/internal/policy"
)

// ErrSimulationFailed marks a scenario the solver could not integrate.
var ErrSimulationFailed = errors.New("simulation failed for these parameters")

// SimulationError reports a solver failure. No partial trajectory is kept.
type SimulationError struct {
	Day float64 // simulated time at which integration stopped
	Err error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%v: stopped at day %.3f: %v", ErrSimulationFailed, e.Day, e.Err)
}

func (e *SimulationError) Unwrap() []error {
	return []error{ErrSimulationFailed, e.Err}
}

// Result is the output of one simulation run.
type Result struct {
	Trajectory model.Trajectory `json:"trajectory"`
	R          []float64        `json:"r"`
	Stats      ode.Stats        `json:"stats"`
}

// Simulate integrates s from the single-seed initial state over days
// 0..s.Horizon and reports the state at every whole day.
//
// Invalid scenarios return a *model.ValidationError before any integration.
// Solver failures return a *SimulationError. Cancelling ctx abandons the run
// and returns ctx.Err().
func Simulate(ctx context.Context, s *model.Scenario, opts ode.Options) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sched := policy.NewSchedule(s.R0, s.Stages)
	m := NewModel(s, sched)
	y0 := InitialState(s.Population)

	days := make([]float64, s.Horizon+1)
	for i := range days {
		days[i] = float64(i)
	}

	start := time.Now()
	sol, err := ode.Solve(ctx, m, 0, y0[:], days, opts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		se := &SimulationError{Err: err}
		var solveErr *ode.SolveError
		if errors.As(err, &solveErr) {
			se.Day = solveErr.T
			se.Err = solveErr.Err
		}
		slog.Debug("simulation failed",
			"population", s.Population,
			"stages", len(s.Stages),
			"day", se.Day,
			"error", se.Err)
		return nil, se
	}

	res := &Result{
		Trajectory: model.Trajectory{
			Times:  sol.T,
			States: make([]model.State, len(sol.Y)),
		},
		R:     policy.Sample(sched, s.Horizon),
		Stats: sol.Stats,
	}
	for i, y := range sol.Y {
		copy(res.Trajectory.States[i][:], y)
	}

	slog.Debug("simulation complete",
		"horizon", s.Horizon,
		"stages", len(s.Stages),
		"steps", sol.Stats.Steps,
		"rejected", sol.Stats.Rejected,
		"func_evals", sol.Stats.FuncEvals,
		"lu_decomps", sol.Stats.LUDecomps,
		"elapsed", time.Since(start))
	return res, nil
}
