// Package ode integrates stiff initial value problems with the implicit
// three-stage Radau IIA method of order 5.
//
// The step size is adapted from an embedded error estimate, the stage
// equations are solved by simplified Newton iteration, and solutions are
// reported at caller-chosen times through the collocation polynomial of the
// step that covers them.
package ode

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System is the right-hand side of dy/dt = f(t, y).
type System interface {
	// Dim returns the length of the state vector.
	Dim() int
	// Eval writes f(t, y) into dydt. It must not retain y or dydt.
	Eval(t float64, y, dydt []float64)
}

// Jacobian is implemented by systems that supply df/dy analytically.
// Systems without it get a forward-difference approximation.
type Jacobian interface {
	// Jacobian writes df/dy at (t, y) into jac, which is Dim x Dim and zeroed.
	Jacobian(t float64, y []float64, jac *mat.Dense)
}

// Options controls accuracy and effort of a solve.
type Options struct {
	RTol      float64 // relative tolerance
	ATol      float64 // absolute tolerance
	MaxStep   float64 // upper bound on step size; 0 means unbounded
	FirstStep float64 // initial step size; 0 selects one automatically
	MaxSteps  int     // accepted-step budget; 0 means DefaultMaxSteps
}

// DefaultMaxSteps bounds the number of accepted steps per solve.
const DefaultMaxSteps = 100000

// DefaultOptions returns tolerances matching common stiff solver defaults.
func DefaultOptions() Options {
	return Options{RTol: 1e-3, ATol: 1e-6, MaxSteps: DefaultMaxSteps}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RTol <= 0 {
		o.RTol = d.RTol
	}
	if o.RTol < 100*eps {
		o.RTol = 100 * eps
	}
	if o.ATol <= 0 {
		o.ATol = d.ATol
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	return o
}

// Stats counts the work done by a solve.
type Stats struct {
	Steps     int `json:"steps"`
	Rejected  int `json:"rejected"`
	FuncEvals int `json:"func_evals"`
	JacEvals  int `json:"jac_evals"`
	LUDecomps int `json:"lu_decomps"`
}

// Solution holds the state at every requested output time.
type Solution struct {
	T     []float64
	Y     [][]float64
	Stats Stats
}

var (
	// ErrInvalidInput reports malformed arguments to Solve.
	ErrInvalidInput = errors.New("ode: invalid input")
	// ErrStepTooSmall reports that the step size fell below the spacing of
	// floating point numbers near the current time.
	ErrStepTooSmall = errors.New("ode: required step size is less than spacing between numbers")
	// ErrMaxSteps reports that the accepted-step budget ran out.
	ErrMaxSteps = errors.New("ode: maximum number of steps exceeded")
	// ErrSingularMatrix reports a singular iteration matrix.
	ErrSingularMatrix = errors.New("ode: singular iteration matrix")
	// ErrNonFinite reports a NaN or infinite state.
	ErrNonFinite = errors.New("ode: non-finite state")
)

// SolveError carries the time at which integration stopped.
type SolveError struct {
	T   float64
	Err error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%v (t=%g)", e.Err, e.T)
}

func (e *SolveError) Unwrap() error {
	return e.Err
}
