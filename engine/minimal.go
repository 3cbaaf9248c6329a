package engine

import (
	"github.com/cwbudde/algo-voice/variant"
)

// Minimal is the last-resort tier: a deterministic intensity transform
// that is always available and never fails.
type Minimal struct{}

// NewMinimal returns the minimal engine.
func NewMinimal() *Minimal { return &Minimal{} }

// Tier reports TierMinimal.
func (*Minimal) Tier() Tier { return TierMinimal }

// Reset is a no-op; the minimal engine holds no state.
func (*Minimal) Reset() {}

// Transform applies the per-variant intensity transform.
func (*Minimal) Transform(spec variant.Spec, input []float64, sampleRate float64) ([]float64, error) {
	if err := ValidateInput(input, sampleRate); err != nil {
		return nil, err
	}
	return MinimalTransform(spec.MinimalIntensity, input), nil
}

// MinimalTransform scales input by intensity and smooths it with a
// 3-point moving average. It is exported so higher tiers can substitute
// it when a chain turns out ineffective for one variant.
func MinimalTransform(intensity float64, input []float64) []float64 {
	out := make([]float64, len(input))
	if len(input) == 0 {
		return out
	}
	if len(input) < 3 {
		for i, v := range input {
			out[i] = v * intensity
		}
		return out
	}

	out[0] = intensity * (input[0] + input[1]) / 2
	for i := 1; i < len(input)-1; i++ {
		out[i] = intensity * (input[i-1] + input[i] + input[i+1]) / 3
	}
	last := len(input) - 1
	out[last] = intensity * (input[last-1] + input[last]) / 2
	return out
}
