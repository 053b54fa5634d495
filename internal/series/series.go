// Package series turns a compartment trajectory into whole-person case
// counts: cumulative and daily infected, hospitalised, critical and dead,
// active critical care and quarantine load.
//
// Counts are rounded half to even. A negative day-over-day change is a
// rounding or step-error artifact, so daily series are floored at zero and
// the cumulative series rebuilt from them, which keeps every cumulative
// series non-decreasing.
package series

import (
	"math"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// Series holds the derived counts for days 0..horizon.
type Series struct {
	Infected          []float64 `json:"infected"`
	DailyInfected     []float64 `json:"daily_infected"`
	Hospitalized      []float64 `json:"hospitalized"`
	DailyHospitalized []float64 `json:"daily_hospitalized"`
	Critical          []float64 `json:"critical"`
	DailyCritical     []float64 `json:"daily_critical"`
	Deaths            []float64 `json:"deaths"`
	DailyDeaths       []float64 `json:"daily_deaths"`
	ActiveCritical    []float64 `json:"active_critical"`
	Quarantined       []float64 `json:"quarantined"`
}

// Derive computes the case-count series of traj for a population of n.
func Derive(traj *model.Trajectory, n float64) *Series {
	ift := scaled(traj, n, model.Infectious, model.Hospitalized, model.Critical,
		model.Dead, model.Recovered, model.OtherRecovered)
	hsp := scaled(traj, n, model.Hospitalized, model.Critical, model.Dead, model.Recovered)
	crt := scaled(traj, n, model.Critical, model.Dead)
	ded := scaled(traj, n, model.Dead)

	s := &Series{
		Infected:     ift,
		Hospitalized: hsp,
		Critical:     crt,
		Deaths:       ded,
		Quarantined: scaled(traj, n, model.Exposed, model.Infectious, model.Quarantined,
			model.Hospitalized, model.Critical, model.Dead),
	}
	s.DailyInfected = Monotone(s.Infected)
	s.DailyHospitalized = Monotone(s.Hospitalized)
	s.DailyCritical = Monotone(s.Critical)
	s.DailyDeaths = Monotone(s.Deaths)

	s.ActiveCritical = make([]float64, len(crt))
	for i := range crt {
		s.ActiveCritical[i] = crt[i] - ded[i]
	}
	return s
}

// Len returns the number of days covered, including day 0.
func (s *Series) Len() int {
	return len(s.Infected)
}

// Days flattens s into one record per day, pairing each with the
// reproduction number r of that day when r is long enough.
func (s *Series) Days(r []float64) []model.DayStat {
	out := make([]model.DayStat, s.Len())
	for d := range out {
		out[d] = model.DayStat{
			Day:               d,
			Infected:          s.Infected[d],
			DailyInfected:     s.DailyInfected[d],
			Hospitalized:      s.Hospitalized[d],
			DailyHospitalized: s.DailyHospitalized[d],
			ActiveCritical:    s.ActiveCritical[d],
			Deaths:            s.Deaths[d],
			Quarantined:       s.Quarantined[d],
		}
		if d < len(r) {
			out[d].R = r[d]
		}
	}
	return out
}

// Monotone rebuilds cum in place so that no day falls below the corrected
// previous day, and returns the resulting daily increments. The first
// increment is 0.
func Monotone(cum []float64) []float64 {
	daily := make([]float64, len(cum))
	for i := 1; i < len(cum); i++ {
		daily[i] = math.Max(cum[i]-cum[i-1], 0)
		cum[i] = cum[i-1] + daily[i]
	}
	return daily
}

// scaled sums the given compartments at every sample, scales by n and
// rounds to whole persons.
func scaled(traj *model.Trajectory, n float64, cs ...model.Compartment) []float64 {
	out := make([]float64, len(traj.States))
	for i, st := range traj.States {
		var frac float64
		for _, c := range cs {
			frac += st[c]
		}
		out[i] = math.RoundToEven(frac * n)
	}
	return out
}
