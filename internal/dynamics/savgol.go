package dynamics

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// SavGol smooths ys with a Savitzky-Golay filter: every point is replaced by
// the value at that point of a least squares polynomial of the given order
// fitted over a window of neighbours. Near the edges the window is pinned to
// the first or last window points, so the edge values come from that
// window's polynomial. A window holding a NaN yields NaN.
func SavGol(ys []float64, window, order int) ([]float64, error) {
	switch {
	case window < 1 || window%2 == 0:
		return nil, invalid("savgol window %d must be odd and positive", window)
	case order < 0 || order >= window:
		return nil, invalid("savgol order %d must be in [0, %d)", order, window)
	case window > len(ys):
		return nil, invalid("savgol window %d exceeds series length %d", window, len(ys))
	}

	half := window / 2
	out := make([]float64, len(ys))
	var coef []float64
	lastStart := -1
	for i := range ys {
		start := min(max(i-half, 0), len(ys)-window)
		if start != lastStart {
			seg := ys[start : start+window]
			if slices.ContainsFunc(seg, math.IsNaN) {
				coef = nil
			} else {
				var err error
				if coef, err = polyfit(seg, order); err != nil {
					return nil, err
				}
			}
			lastStart = start
		}
		if coef == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = polyval(coef, float64(i-start-half))
	}
	return out, nil
}

// polyfit fits a polynomial of the given order to ys sampled at x = -h..h,
// h = len(ys)/2, and returns its coefficients, constant term first.
func polyfit(ys []float64, order int) ([]float64, error) {
	n := len(ys)
	half := n / 2
	a := mat.NewDense(n, order+1, nil)
	for r := 0; r < n; r++ {
		x := float64(r - half)
		p := 1.0
		for c := 0; c <= order; c++ {
			a.Set(r, c, p)
			p *= x
		}
	}
	b := mat.NewVecDense(n, slices.Clone(ys))

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return nil, invalid("savgol fit failed: %v", err)
	}
	return mat.Col(nil, 0, &coef), nil
}

func polyval(coef []float64, x float64) float64 {
	var y float64
	for i := len(coef) - 1; i >= 0; i-- {
		y = y*x + coef[i]
	}
	return y
}
