package interp

import (
	"gonum.org/v1/gonum/mat"
)

// polynomial is a fitted curve over frame numbers, with the x axis shifted to
// the first sample so the Vandermonde matrix stays well conditioned for large
// frame indices.
type polynomial struct {
	origin int
	coef   []float64
}

// polyFit fits a polynomial of the given degree through the (frame, value)
// samples. With more samples than coefficients the fit is least-squares.
// Returns an invalid polynomial if the system cannot be solved.
func polyFit(frames []int, values []float64, degree int) polynomial {
	n := len(frames)
	if n < degree+1 {
		return polynomial{}
	}
	origin := frames[0]
	a := mat.NewDense(n, degree+1, nil)
	for i, f := range frames {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= float64(f - origin)
		}
	}
	b := mat.NewVecDense(n, append([]float64{}, values...))
	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return polynomial{}
	}
	out := polynomial{origin: origin, coef: make([]float64, degree+1)}
	for j := 0; j <= degree; j++ {
		out.coef[j] = coef.AtVec(j)
	}
	return out
}

func (p polynomial) valid() bool {
	return len(p.coef) > 0
}

func (p polynomial) at(frame int) float64 {
	v := 0.0
	x := 1.0
	for _, c := range p.coef {
		v += c * x
		x *= float64(frame - p.origin)
	}
	return v
}
