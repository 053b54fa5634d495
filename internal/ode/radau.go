package ode

import (
	"context"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	eps = 2.220446049250313e-16

	newtonMaxIter = 6
	minFactor     = 0.2
	maxFactor     = 10
)

// Radau IIA (order 5) coefficients, with the stage system decoupled into one
// real and one complex-conjugate block through the eigenvectors tMat.
var (
	sqrt6 = math.Sqrt(6)

	cNodes = [3]float64{(4 - sqrt6) / 10, (4 + sqrt6) / 10, 1}
	eCoef  = [3]float64{(-13 - 7*sqrt6) / 3, (-13 + 7*sqrt6) / 3, -1.0 / 3}

	muReal      = 3 + math.Cbrt(9) - math.Cbrt(3)
	muComplexRe = 3 + 0.5*(math.Cbrt(3)-math.Cbrt(9))
	muComplexIm = -0.5 * (math.Pow(3, 5.0/6) + math.Pow(3, 7.0/6))

	tMat = [3][3]float64{
		{0.09443876248897524, -0.14125529502095421, 0.03002919410514742},
		{0.25021312296533332, 0.20412935229379994, -0.38294211275726192},
		{1, 1, 0},
	}
	tiMat = [3][3]float64{
		{4.17871859155190428, 0.32768282076106237, 0.52337644549944951},
		{-4.17871859155190428, -0.32768282076106237, 0.47662355450055044},
		{0.50287263494578682, -2.57192694985560522, 0.59603920482822492},
	}
	pMat = [3][3]float64{
		{13.0/3 + 7*sqrt6/3, -23.0/3 - 22*sqrt6/3, 10.0/3 + 5*sqrt6},
		{13.0/3 - 7*sqrt6/3, -23.0/3 + 22*sqrt6/3, 10.0/3 - 5*sqrt6},
		{1.0 / 3, -8.0 / 3, 10.0 / 3},
	}
)

// Solve integrates sys from (t0, y0) and returns the state at each time in
// tEval, which must be non-decreasing and start at or after t0. Integration
// stops at the last element of tEval.
//
// ctx is checked between steps so a host can abandon a long solve.
func Solve(ctx context.Context, sys System, t0 float64, y0 []float64, tEval []float64, opts Options) (*Solution, error) {
	n := sys.Dim()
	if n == 0 || len(y0) != n {
		return nil, &SolveError{T: t0, Err: ErrInvalidInput}
	}
	if len(tEval) == 0 || tEval[0] < t0 || !sort.Float64sAreSorted(tEval) {
		return nil, &SolveError{T: t0, Err: ErrInvalidInput}
	}
	for _, v := range y0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &SolveError{T: t0, Err: ErrNonFinite}
		}
	}

	r := newRadau(sys, t0, y0, tEval[len(tEval)-1], opts.withDefaults())
	if !allFinite(r.f) || math.IsNaN(r.hAbs) {
		return nil, &SolveError{T: t0, Err: ErrNonFinite}
	}
	sol := &Solution{T: make([]float64, 0, len(tEval)), Y: make([][]float64, 0, len(tEval))}

	next := 0
	for next < len(tEval) && tEval[next] == t0 {
		sol.T = append(sol.T, t0)
		sol.Y = append(sol.Y, append([]float64(nil), y0...))
		next++
	}

	for r.t < r.tEnd {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.stats.Steps >= r.opts.MaxSteps {
			return nil, &SolveError{T: r.t, Err: ErrMaxSteps}
		}
		if err := r.step(); err != nil {
			return nil, &SolveError{T: r.t, Err: err}
		}
		for next < len(tEval) && tEval[next] <= r.t {
			y := make([]float64, n)
			if tEval[next] == r.t {
				copy(y, r.y)
			} else {
				r.dense.at(tEval[next], y)
			}
			sol.T = append(sol.T, tEval[next])
			sol.Y = append(sol.Y, y)
			next++
		}
	}

	sol.Stats = r.stats
	return sol, nil
}

type radau struct {
	sys  System
	n    int
	opts Options

	t, tEnd float64
	y, f    []float64

	hAbs, hAbsOld, errNormOld float64
	haveOld                   bool
	newtonTol                 float64

	jac        *mat.Dense
	currentJac bool

	luReal, luComplex mat.LU
	luH               float64
	luValid           bool

	dense *denseOutput
	stats Stats

	// scratch
	work, fw []float64
}

func newRadau(sys System, t0 float64, y0 []float64, tEnd float64, opts Options) *radau {
	n := len(y0)
	r := &radau{
		sys:       sys,
		n:         n,
		opts:      opts,
		t:         t0,
		tEnd:      tEnd,
		y:         append([]float64(nil), y0...),
		f:         make([]float64, n),
		jac:       mat.NewDense(n, n, nil),
		newtonTol: math.Max(10*eps/opts.RTol, math.Min(0.03, math.Sqrt(opts.RTol))),
		work:      make([]float64, n),
		fw:        make([]float64, n),
	}
	r.eval(t0, r.y, r.f)
	r.updateJacobian(t0, r.y, r.f)
	if opts.FirstStep > 0 {
		r.hAbs = opts.FirstStep
	} else {
		r.hAbs = r.initialStep()
	}
	return r
}

func (r *radau) eval(t float64, y, dydt []float64) {
	r.stats.FuncEvals++
	r.sys.Eval(t, y, dydt)
}

func (r *radau) updateJacobian(t float64, y, f []float64) {
	r.stats.JacEvals++
	r.jac.Zero()
	if j, ok := r.sys.(Jacobian); ok {
		j.Jacobian(t, y, r.jac)
	} else {
		forwardDiff(r.sys, t, y, f, r.opts.ATol, r.jac, r.work, r.fw)
		r.stats.FuncEvals += r.n
	}
	r.currentJac = true
	r.luValid = false
}

// initialStep estimates a first step from the local derivative scale, for an
// error estimator of order 3.
func (r *radau) initialStep() float64 {
	interval := r.tEnd - r.t
	if interval <= 0 {
		return 0
	}
	scale := make([]float64, r.n)
	for i, v := range r.y {
		scale[i] = r.opts.ATol + math.Abs(v)*r.opts.RTol
	}
	d0 := rmsScaled(r.y, scale)
	d1 := rmsScaled(r.f, scale)
	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, interval)

	y1 := make([]float64, r.n)
	for i := range y1 {
		y1[i] = r.y[i] + h0*r.f[i]
	}
	f1 := make([]float64, r.n)
	r.eval(r.t+h0, y1, f1)
	for i := range f1 {
		f1[i] -= r.f[i]
	}
	d2 := rmsScaled(f1, scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/4)
	}
	h := math.Min(math.Min(100*h0, h1), interval)
	if r.opts.MaxStep > 0 {
		h = math.Min(h, r.opts.MaxStep)
	}
	return h
}

// factorize builds the real and complex iteration matrices for step h. The
// complex system (a+ib)I - J is solved as the real block system
// [[aI-J, -bI], [bI, aI-J]].
func (r *radau) factorize(h float64) {
	n := r.n
	a := mat.NewDense(n, n, nil)
	c := mat.NewDense(2*n, 2*n, nil)
	mr := muReal / h
	cr, ci := muComplexRe/h, muComplexIm/h
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -r.jac.At(i, j)
			a.Set(i, j, v)
			c.Set(i, j, v)
			c.Set(n+i, n+j, v)
		}
		a.Set(i, i, a.At(i, i)+mr)
		c.Set(i, i, c.At(i, i)+cr)
		c.Set(n+i, n+i, c.At(n+i, n+i)+cr)
		c.Set(i, n+i, -ci)
		c.Set(n+i, i, ci)
	}
	r.luReal.Factorize(a)
	r.luComplex.Factorize(c)
	r.luH = h
	r.luValid = true
	r.stats.LUDecomps += 2
}

func solveLU(lu *mat.LU, b, dst []float64) error {
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		// Condition errors still carry a usable solution; only an exactly
		// singular matrix is fatal.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return ErrSingularMatrix
		}
	}
	copy(dst, x.RawVector().Data)
	return nil
}

// collocate solves the stage equations for a step of size h from (t, y) by
// simplified Newton iteration starting at z0.
func (r *radau) collocate(t float64, y []float64, h float64, z0 [3][]float64, scale []float64) (converged bool, iters int, z [3][]float64, rate float64, err error) {
	n := r.n
	mr := muReal / h
	cr, ci := muComplexRe/h, muComplexIm/h

	var w, f, dw [3][]float64
	for k := 0; k < 3; k++ {
		w[k] = make([]float64, n)
		f[k] = make([]float64, n)
		dw[k] = make([]float64, n)
		z[k] = append([]float64(nil), z0[k]...)
	}
	mulInto(&w, tiMat, z)

	fr := make([]float64, n)
	fc := make([]float64, 2*n)
	xc := make([]float64, 2*n)
	yi := make([]float64, n)

	rate = math.NaN()
	dwNormOld := math.NaN()
	for k := 0; k < newtonMaxIter; k++ {
		iters = k + 1
		for i := 0; i < 3; i++ {
			for j := 0; j < n; j++ {
				yi[j] = y[j] + z[i][j]
			}
			r.eval(t+h*cNodes[i], yi, f[i])
		}
		if !allFinite(f[0], f[1], f[2]) {
			break
		}

		for j := 0; j < n; j++ {
			fr[j] = tiMat[0][0]*f[0][j] + tiMat[0][1]*f[1][j] + tiMat[0][2]*f[2][j] - mr*w[0][j]
			re := tiMat[1][0]*f[0][j] + tiMat[1][1]*f[1][j] + tiMat[1][2]*f[2][j]
			im := tiMat[2][0]*f[0][j] + tiMat[2][1]*f[1][j] + tiMat[2][2]*f[2][j]
			fc[j] = re - (cr*w[1][j] - ci*w[2][j])
			fc[n+j] = im - (cr*w[2][j] + ci*w[1][j])
		}
		if err = solveLU(&r.luReal, fr, dw[0]); err != nil {
			return
		}
		if err = solveLU(&r.luComplex, fc, xc); err != nil {
			return
		}
		copy(dw[1], xc[:n])
		copy(dw[2], xc[n:])

		var sum float64
		for i := 0; i < 3; i++ {
			for j := 0; j < n; j++ {
				v := dw[i][j] / scale[j]
				sum += v * v
			}
		}
		dwNorm := math.Sqrt(sum / float64(3*n))

		if !math.IsNaN(dwNormOld) {
			rate = dwNorm / dwNormOld
		}
		if !math.IsNaN(rate) && (rate >= 1 || math.Pow(rate, float64(newtonMaxIter-k))/(1-rate)*dwNorm > r.newtonTol) {
			break
		}

		for i := 0; i < 3; i++ {
			for j := 0; j < n; j++ {
				w[i][j] += dw[i][j]
			}
		}
		mulInto(&z, tMat, w)

		if dwNorm == 0 || (!math.IsNaN(rate) && rate/(1-rate)*dwNorm < r.newtonTol) {
			converged = true
			break
		}
		dwNormOld = dwNorm
	}
	return
}

// step advances by one accepted step, shrinking the step size as needed.
func (r *radau) step() error {
	n := r.n
	t, y, f := r.t, r.y, r.f
	rtol, atol := r.opts.RTol, r.opts.ATol
	minStep := 10 * math.Abs(math.Nextafter(t, math.Inf(1))-t)

	var hAbs, hAbsOld, errNormOld float64
	haveOld := false
	switch {
	case r.opts.MaxStep > 0 && r.hAbs > r.opts.MaxStep:
		hAbs = r.opts.MaxStep
	case r.hAbs < minStep:
		hAbs = minStep
	default:
		hAbs, hAbsOld, errNormOld, haveOld = r.hAbs, r.hAbsOld, r.errNormOld, r.haveOld
	}

	scale := make([]float64, n)
	ze := make([]float64, n)
	rhs := make([]float64, n)
	errVec := make([]float64, n)
	var z0 [3][]float64
	for i := range z0 {
		z0[i] = make([]float64, n)
	}

	var (
		h, tNew, errNorm, safety, rate float64
		iters                          int
		z                              [3][]float64
		yNew                           = make([]float64, n)
		rejected                       bool
	)
	for {
		if math.IsNaN(hAbs) {
			return ErrNonFinite
		}
		if hAbs < minStep {
			return ErrStepTooSmall
		}
		tNew = t + hAbs
		if tNew > r.tEnd {
			tNew = r.tEnd
		}
		h = tNew - t
		hAbs = h

		for i := 0; i < 3; i++ {
			if r.dense == nil {
				for j := range z0[i] {
					z0[i][j] = 0
				}
				continue
			}
			r.dense.at(t+h*cNodes[i], z0[i])
			for j := 0; j < n; j++ {
				z0[i][j] -= y[j]
			}
		}
		for j := 0; j < n; j++ {
			scale[j] = atol + math.Abs(y[j])*rtol
		}

		converged := false
		for !converged {
			if !r.luValid || r.luH != h {
				r.factorize(h)
			}
			var err error
			converged, iters, z, rate, err = r.collocate(t, y, h, z0, scale)
			if err != nil {
				return err
			}
			if !converged {
				if r.currentJac {
					break
				}
				r.updateJacobian(t, y, f)
			}
		}
		if !converged {
			hAbs *= 0.5
			r.luValid = false
			r.stats.Rejected++
			continue
		}

		for j := 0; j < n; j++ {
			yNew[j] = y[j] + z[2][j]
			ze[j] = (z[0][j]*eCoef[0] + z[1][j]*eCoef[1] + z[2][j]*eCoef[2]) / h
			rhs[j] = f[j] + ze[j]
		}
		if err := solveLU(&r.luReal, rhs, errVec); err != nil {
			return err
		}
		for j := 0; j < n; j++ {
			scale[j] = atol + math.Max(math.Abs(y[j]), math.Abs(yNew[j]))*rtol
		}
		errNorm = rmsScaled(errVec, scale)
		safety = 0.9 * float64(2*newtonMaxIter+1) / float64(2*newtonMaxIter+iters)

		if rejected && errNorm > 1 {
			for j := 0; j < n; j++ {
				r.work[j] = y[j] + errVec[j]
			}
			r.eval(t, r.work, rhs)
			for j := 0; j < n; j++ {
				rhs[j] += ze[j]
			}
			if err := solveLU(&r.luReal, rhs, errVec); err != nil {
				return err
			}
			errNorm = rmsScaled(errVec, scale)
		}

		if errNorm > 1 {
			factor := predictFactor(hAbs, hAbsOld, errNorm, errNormOld, haveOld)
			hAbs *= math.Max(minFactor, safety*factor)
			r.luValid = false
			rejected = true
			r.stats.Rejected++
			continue
		}
		break
	}

	if !allFinite(yNew) {
		return ErrNonFinite
	}

	recomputeJac := iters > 2 && rate > 1e-3
	factor := predictFactor(hAbs, hAbsOld, errNorm, errNormOld, haveOld)
	factor = math.Min(maxFactor, safety*factor)
	if !recomputeJac && factor < 1.2 {
		factor = 1
	} else {
		r.luValid = false
	}

	fNew := make([]float64, n)
	r.eval(tNew, yNew, fNew)
	if recomputeJac {
		r.updateJacobian(tNew, yNew, fNew)
	} else {
		r.currentJac = false
	}

	r.hAbsOld = r.hAbs
	r.errNormOld = errNorm
	r.haveOld = true
	r.hAbs = hAbs * factor

	r.dense = newDenseOutput(t, tNew, y, z)
	r.t, r.y, r.f = tNew, yNew, fNew
	r.stats.Steps++
	return nil
}

func predictFactor(hAbs, hAbsOld, errNorm, errNormOld float64, haveOld bool) float64 {
	multiplier := 1.0
	if haveOld && errNorm != 0 && errNormOld != 0 {
		multiplier = hAbs / hAbsOld * math.Pow(errNormOld/errNorm, 0.25)
	}
	return math.Min(1, multiplier) * math.Pow(errNorm, -0.25)
}

// mulInto sets dst = m * src, treating src as three stacked row vectors.
func mulInto(dst *[3][]float64, m [3][3]float64, src [3][]float64) {
	n := len(src[0])
	for i := 0; i < 3; i++ {
		for j := 0; j < n; j++ {
			dst[i][j] = m[i][0]*src[0][j] + m[i][1]*src[1][j] + m[i][2]*src[2][j]
		}
	}
}

func rmsScaled(x, scale []float64) float64 {
	var sum float64
	for i, v := range x {
		s := v / scale[i]
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(x)))
}

func allFinite(vs ...[]float64) bool {
	for _, v := range vs {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
	}
	return true
}
