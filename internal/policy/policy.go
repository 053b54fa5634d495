// Package policy computes the effective reproduction number under a
// piecewise schedule of containment regimes.
//
// Within stage i the value ramps linearly from an anchor taken at the day
// before the stage starts. Tightening stages (contained proportion not
// decreasing) ramp down and are floored at zero; loosening stages ramp up
// from a positive anchor and stay at zero once the anchor has reached zero.
package policy

import (
	"math"
	"sort"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// rampWindow is the nominal number of days over which a reduction rate
// applies twice (a half-month).
const rampWindow = 30.0

// Reproduction evaluates the effective reproduction number at time t.
type Reproduction interface {
	At(t float64) float64
}

// Constant is a time-invariant reproduction number.
type Constant float64

// At returns the constant value.
func (c Constant) At(float64) float64 { return float64(c) }

// Func adapts a plain function to Reproduction.
type Func func(t float64) float64

// At calls f(t).
func (f Func) At(t float64) float64 { return f(t) }

// Schedule evaluates the piecewise reproduction number in O(log n) per query.
// Boundary anchors are forward-filled once at construction. A Schedule is
// immutable and safe for concurrent use.
type Schedule struct {
	r0      float64
	stages  []model.Stage
	anchors []float64 // anchors[i] = R(stages[i].StartDay - 1), i > 0
}

// NewSchedule builds the schedule for an initial reproduction number and a
// stage list ordered by strictly increasing start day.
func NewSchedule(r0 float64, stages []model.Stage) *Schedule {
	s := &Schedule{
		r0:      r0,
		stages:  append([]model.Stage(nil), stages...),
		anchors: make([]float64, len(stages)),
	}
	// The day before stage i always falls in an earlier stage, so each
	// anchor only reads anchors already filled.
	for i := 1; i < len(s.stages); i++ {
		s.anchors[i] = s.At(float64(s.stages[i].StartDay - 1))
	}
	return s
}

// At returns R(t).
func (s *Schedule) At(t float64) float64 {
	if len(s.stages) == 0 || t < float64(s.stages[0].StartDay) {
		return s.r0
	}
	return s.eval(t, s.active(t))
}

// Stage returns the index of the regime active at t, or -1 before the first.
func (s *Schedule) Stage(t float64) int {
	if len(s.stages) == 0 || t < float64(s.stages[0].StartDay) {
		return -1
	}
	return s.active(t)
}

// active returns the largest i with StartDay <= t. The last stage extends
// indefinitely. Callers guarantee t >= stages[0].StartDay.
func (s *Schedule) active(t float64) int {
	i := sort.Search(len(s.stages), func(i int) bool {
		return float64(s.stages[i].StartDay) > t
	})
	return i - 1
}

// eval applies the ramp of stage i at time t. Anchors of stages up to i
// must already be filled.
func (s *Schedule) eval(t float64, i int) float64 {
	st := s.stages[i]
	if i == 0 {
		return ramp0(s.r0, st, t)
	}
	return rampN(s.r0, st, s.stages[i-1].Contained, s.anchors[i], t)
}

// Sample returns R at every integer day 0..horizon inclusive.
func Sample(r Reproduction, horizon int) []float64 {
	out := make([]float64, horizon+1)
	for d := range out {
		out[d] = r.At(float64(d))
	}
	return out
}

// Recursive evaluates R(t) directly from its recursive definition. It is the
// reference against which Schedule is checked; recursion depth is bounded by
// the number of stages.
func Recursive(t, r0 float64, stages []model.Stage) float64 {
	if len(stages) == 0 || t < float64(stages[0].StartDay) {
		return r0
	}
	i := 0
	for i < len(stages)-1 && t >= float64(stages[i+1].StartDay) {
		i++
	}
	if i == 0 {
		return ramp0(r0, stages[0], t)
	}
	anchor := Recursive(float64(stages[i].StartDay-1), r0, stages)
	return rampN(r0, stages[i], stages[i-1].Contained, anchor, t)
}

// ramp0 is floored at zero like the later tightening ramps; a negative
// reproduction number has no meaning in the compartment model.
func ramp0(r0 float64, st model.Stage, t float64) float64 {
	return math.Max(r0*(1-st.Contained)-2*st.ReductionRate/rampWindow*(t-float64(st.StartDay-1))*st.Contained, 0)
}

func rampN(r0 float64, st model.Stage, prevContained, anchor, t float64) float64 {
	base := math.Min(anchor, r0*(1-st.Contained))
	elapsed := t - float64(st.StartDay-1)
	if st.Contained >= prevContained {
		return math.Max(base-2*st.ReductionRate/rampWindow*elapsed*st.Contained, 0)
	}
	// A suppressed regime never resumes spread on loosening.
	if base <= 0 {
		return 0
	}
	return base + 2*st.ReductionRate/rampWindow*elapsed*(1-st.Contained)
}
