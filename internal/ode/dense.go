package ode

// denseOutput is the collocation polynomial of one accepted step:
// y(t) = yOld + sum_m q[m] * x^(m+1), x = (t - tOld) / h.
type denseOutput struct {
	tOld, h float64
	yOld    []float64
	q       [3][]float64
}

func newDenseOutput(tOld, tNew float64, yOld []float64, z [3][]float64) *denseOutput {
	n := len(yOld)
	d := &denseOutput{tOld: tOld, h: tNew - tOld, yOld: append([]float64(nil), yOld...)}
	for m := 0; m < 3; m++ {
		d.q[m] = make([]float64, n)
		for j := 0; j < n; j++ {
			d.q[m][j] = z[0][j]*pMat[0][m] + z[1][j]*pMat[1][m] + z[2][j]*pMat[2][m]
		}
	}
	return d
}

// at writes the interpolated state at t into dst. t may lie outside the
// step, in which case the polynomial extrapolates.
func (d *denseOutput) at(t float64, dst []float64) {
	x := (t - d.tOld) / d.h
	x2 := x * x
	x3 := x2 * x
	for j := range dst {
		dst[j] = d.yOld[j] + d.q[0][j]*x + d.q[1][j]*x2 + d.q[2][j]*x3
	}
}
