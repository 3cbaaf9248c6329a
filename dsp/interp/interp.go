// Package interp provides fractional sample interpolation primitives
// shared by the resampling-based pitch stages.
package interp

// Linear interpolates between x0 and x1 at frac in [0, 1].
func Linear(frac, x0, x1 float64) float64 {
	return x0 + frac*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// AtLinear samples x at fractional position pos with edge clamping.
func AtLinear(x []float64, pos float64) float64 {
	if len(x) == 0 {
		return 0
	}
	if pos <= 0 {
		return x[0]
	}
	last := float64(len(x) - 1)
	if pos >= last {
		return x[len(x)-1]
	}
	idx := int(pos)
	return Linear(pos-float64(idx), x[idx], x[idx+1])
}

// AtHermite samples x at fractional position pos with edge clamping.
func AtHermite(x []float64, pos float64) float64 {
	if len(x) == 0 {
		return 0
	}
	idx := int(pos)
	frac := pos - float64(idx)
	return Hermite4(frac,
		clampAt(x, idx-1),
		clampAt(x, idx),
		clampAt(x, idx+1),
		clampAt(x, idx+2),
	)
}

func clampAt(x []float64, idx int) float64 {
	if idx < 0 {
		return x[0]
	}
	if idx >= len(x) {
		return x[len(x)-1]
	}
	return x[idx]
}
