package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwbudde/algo-voice/variant"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "native", TierNative.String())
	assert.Equal(t, "compatible", TierCompatible.String())
	assert.Equal(t, "minimal", TierMinimal.String())
	assert.Equal(t, "unavailable", TierUnavailable.String())
}

func TestValidateInput(t *testing.T) {
	assert.ErrorIs(t, ValidateInput(nil, 44100), ErrInvalidInput)
	assert.ErrorIs(t, ValidateInput([]float64{0.1, math.NaN()}, 44100), ErrInvalidInput)
	assert.ErrorIs(t, ValidateInput([]float64{0.1, math.Inf(1)}, 44100), ErrInvalidInput)
	assert.ErrorIs(t, ValidateInput([]float64{0.1}, 0), ErrInvalidInput)
	assert.NoError(t, ValidateInput([]float64{0.1, -0.2}, 44100))
}

func TestImpulseRoundTripPreservesLength(t *testing.T) {
	native, err := NewNative()
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	compat, err := NewCompatible()
	if err != nil {
		t.Fatalf("NewCompatible: %v", err)
	}

	impulse := make([]float64, 8192)
	impulse[100] = 1

	for _, proc := range []Processor{native, compat, NewMinimal()} {
		for _, label := range variant.TransformedLabels() {
			spec, ok := variant.Lookup(label)
			if !ok {
				t.Fatalf("no spec for %s", label)
			}
			out, err := proc.Transform(spec, impulse, 44100)
			if err != nil {
				t.Fatalf("%s/%s: %v", proc.Tier(), label, err)
			}
			if len(out) != len(impulse) {
				t.Fatalf("%s/%s: len = %d, want %d", proc.Tier(), label, len(out), len(impulse))
			}
			for i, v := range out {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s/%s: sample %d = %g", proc.Tier(), label, i, v)
				}
			}
		}
	}
}

func TestChainEffective(t *testing.T) {
	in := sine(220, 44100, 1024)

	same := make([]float64, len(in))
	copy(same, in)
	assert.False(t, ChainEffective(in, same), "identical output must be flagged ineffective")

	changed := make([]float64, len(in))
	for i, v := range in {
		changed[i] = v * 0.5
	}
	assert.True(t, ChainEffective(in, changed))
}
