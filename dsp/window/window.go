// Package window generates analysis windows for the spectral processing
// paths. Only the window shapes the voice pipeline needs are provided.
package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
)

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) { c.periodic = true }
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	coeffs := make([]float64, length)
	if t == TypeRectangular || length == 1 {
		for i := range coeffs {
			coeffs[i] = 1
		}
		return coeffs
	}

	denom := float64(length - 1)
	if cfg.periodic {
		denom = float64(length)
	}

	for i := range coeffs {
		coeffs[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/denom)
	}
	return coeffs
}

// ApplyCoeffs multiplies buf in-place by precomputed coefficients.
// Lengths must match; mismatched lengths leave buf untouched.
func ApplyCoeffs(buf, coeffs []float64) {
	if len(buf) != len(coeffs) {
		return
	}
	vecmath.MulBlockInPlace(buf, coeffs)
}
