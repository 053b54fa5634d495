package ode

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// forwardDiff approximates df/dy column by column. f holds f(t, y).
func forwardDiff(sys System, t float64, y, f []float64, atol float64, jac *mat.Dense, work, fw []float64) {
	n := len(y)
	copy(work, y)
	step := math.Sqrt(eps)
	for j := 0; j < n; j++ {
		scale := math.Max(atol, math.Abs(y[j]))
		if f[j] < 0 {
			scale = -scale
		}
		// round-trip through y so the increment is exactly representable
		h := (y[j] + step*scale) - y[j]
		work[j] = y[j] + h
		sys.Eval(t, work, fw)
		for i := 0; i < n; i++ {
			jac.Set(i, j, (fw[i]-f[i])/h)
		}
		work[j] = y[j]
	}
}
