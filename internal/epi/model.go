// Package epi runs the SEIQHCDRO compartment model of an outbreak under a
// time-varying reproduction number.
package epi

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/rcliao/seiqhcdro/internal/policy"
)

const (
	iS = model.Susceptible
	iE = model.Exposed
	iI = model.Infectious
	iQ = model.Quarantined
	iH = model.Hospitalized
	iC = model.Critical
	iD = model.Dead
	iR = model.Recovered
	iO = model.OtherRecovered
)

// Model is the right-hand side of the compartment equations. Every outflow
// of one compartment is an inflow of another, so derivatives sum to zero.
//
// The media-impact proportion is carried by the scenario but does not enter
// the equations.
type Model struct {
	R policy.Reproduction

	// contact is the transmission rate per unit R: 1/T_inf + (1-p_h)/T_rec.
	contact float64

	incubation  float64 // E -> I
	quarantine  float64 // E -> Q
	infClear    float64 // I -> H and O
	infHosp     float64 // I -> H
	infSelf     float64 // I -> O
	qarHosp     float64 // Q -> H
	hspRecover  float64 // H -> R
	hspCritical float64 // H -> C
	hspOther    float64 // H -> O
	crtOut      float64 // C -> D and R
	crtDeath    float64 // C -> D
	crtRecover  float64 // C -> R
}

// NewModel precomputes the rate constants of s. r supplies R(t); pass a
// policy.Constant for a fixed reproduction number.
func NewModel(s *model.Scenario, r policy.Reproduction) *Model {
	d, p := s.Durations, s.Proportions
	icu := d.ICU + d.Critical
	m := &Model{
		R:           r,
		contact:     1/d.Infectious + (1-p.Hospitalized)/d.Recovery,
		incubation:  1 / d.Incubation,
		quarantine:  p.Quarantine / d.Quarantine,
		infHosp:     p.Hospitalized / d.Infectious,
		infSelf:     (1 - p.Hospitalized) / d.Recovery,
		qarHosp:     (p.QuarantineHospital + p.CrossContamination) / d.QuarantineHospital,
		hspRecover:  (1 - p.Critical) / d.Hospital,
		hspCritical: p.Critical / d.Critical,
		hspOther:    p.Hospitalized / d.Recovery,
		crtOut:      1 / icu,
		crtDeath:    p.Fatality / icu,
		crtRecover:  (1 - p.Fatality) / icu,
	}
	m.infClear = m.infHosp + m.infSelf
	return m
}

// Dim implements ode.System.
func (m *Model) Dim() int { return model.NumCompartments }

// Eval implements ode.System.
func (m *Model) Eval(t float64, y, dydt []float64) {
	infection := m.R.At(t) * m.contact * y[iI] * y[iS]
	hOut := (m.hspRecover + m.hspCritical + m.hspOther) * y[iH]

	dydt[iS] = -infection
	dydt[iE] = infection - (m.incubation+m.quarantine)*y[iE]
	dydt[iI] = m.incubation*y[iE] - m.infClear*y[iI]
	dydt[iQ] = m.quarantine*y[iE] - m.qarHosp*y[iQ]
	dydt[iH] = m.infHosp*y[iI] - hOut + m.qarHosp*y[iQ]
	dydt[iC] = m.hspCritical*y[iH] - m.crtOut*y[iC]
	dydt[iD] = m.crtDeath * y[iC]
	dydt[iR] = m.hspRecover*y[iH] + m.crtRecover*y[iC]
	dydt[iO] = m.infSelf*y[iI] + m.hspOther*y[iH]
}

// Jacobian implements ode.Jacobian.
func (m *Model) Jacobian(t float64, y []float64, jac *mat.Dense) {
	beta := m.R.At(t) * m.contact

	jac.Set(int(iS), int(iS), -beta*y[iI])
	jac.Set(int(iS), int(iI), -beta*y[iS])

	jac.Set(int(iE), int(iS), beta*y[iI])
	jac.Set(int(iE), int(iI), beta*y[iS])
	jac.Set(int(iE), int(iE), -(m.incubation + m.quarantine))

	jac.Set(int(iI), int(iE), m.incubation)
	jac.Set(int(iI), int(iI), -m.infClear)

	jac.Set(int(iQ), int(iE), m.quarantine)
	jac.Set(int(iQ), int(iQ), -m.qarHosp)

	jac.Set(int(iH), int(iI), m.infHosp)
	jac.Set(int(iH), int(iQ), m.qarHosp)
	jac.Set(int(iH), int(iH), -(m.hspRecover + m.hspCritical + m.hspOther))

	jac.Set(int(iC), int(iH), m.hspCritical)
	jac.Set(int(iC), int(iC), -m.crtOut)

	jac.Set(int(iD), int(iC), m.crtDeath)

	jac.Set(int(iR), int(iH), m.hspRecover)
	jac.Set(int(iR), int(iC), m.crtRecover)

	jac.Set(int(iO), int(iI), m.infSelf)
	jac.Set(int(iO), int(iH), m.hspOther)
}

// Derivative returns dy/dt at (t, y).
func (m *Model) Derivative(t float64, y model.State) model.State {
	var d model.State
	m.Eval(t, y[:], d[:])
	return d
}

// InitialState seeds a single infectious case in a population of n.
func InitialState(n float64) model.State {
	var s model.State
	s[iS] = (n - 1) / n
	s[iI] = 1 / n
	return s
}
