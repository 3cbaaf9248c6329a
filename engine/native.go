package engine

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-voice/dsp/core"
	"github.com/cwbudde/algo-voice/dsp/effects"
	"github.com/cwbudde/algo-voice/dsp/effects/dynamics"
	"github.com/cwbudde/algo-voice/dsp/effects/pitch"
	"github.com/cwbudde/algo-voice/dsp/filter/biquad"
	"github.com/cwbudde/algo-voice/dsp/filter/design"
	"github.com/cwbudde/algo-voice/variant"
)

const (
	filterQ         = math.Sqrt2 / 2
	formantPivotHz  = 1000.0
	selfTestRate    = 44100.0
	selfTestSamples = 2048
)

// Native runs the full seven-stage DSP chain: WSOLA pitch shift with
// shelving-tilt formant correction, biquad band-limiting and EQ,
// optional notch, tremolo and soft-knee compression.
type Native struct {
	chains map[chainKey]*nativeChain
}

type chainKey struct {
	label      variant.Label
	sampleRate float64
}

type nativeChain struct {
	shifter *pitch.Shifter
	formant *biquad.Chain
	filters *biquad.Chain
	trem    *effects.Tremolo
	comp    *dynamics.Compressor
}

// NewNative constructs the native engine and verifies it end to end
// with a short impulse self-test.
func NewNative() (*Native, error) {
	if err := variant.Validate(); err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}

	n := &Native{chains: make(map[chainKey]*nativeChain)}

	probe := make([]float64, selfTestSamples)
	for i := range probe {
		probe[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/selfTestRate)
	}
	for _, label := range variant.TransformedLabels() {
		spec, _ := variant.Lookup(label)
		out, err := n.Transform(spec, probe, selfTestRate)
		if err != nil {
			return nil, fmt.Errorf("native self-test %s: %w", label, err)
		}
		if len(out) != len(probe) {
			return nil, fmt.Errorf("native self-test %s: %w", label, ErrLengthMismatch)
		}
		if !ChainEffective(probe, out) {
			return nil, fmt.Errorf("native self-test %s: chain had no effect", label)
		}
	}
	return n, nil
}

// Tier reports TierNative.
func (*Native) Tier() Tier { return TierNative }

// Reset drops all cached per-variant chains.
func (n *Native) Reset() {
	n.chains = make(map[chainKey]*nativeChain)
}

// Transform runs the full chain for one variant.
func (n *Native) Transform(spec variant.Spec, input []float64, sampleRate float64) ([]float64, error) {
	if err := ValidateInput(input, sampleRate); err != nil {
		return nil, err
	}

	c, err := n.chainFor(spec, sampleRate)
	if err != nil {
		return nil, err
	}
	c.reset()

	out := c.shifter.Process(input)
	if len(out) != len(input) {
		return nil, fmt.Errorf("pitch stage: %w", ErrLengthMismatch)
	}

	if c.formant != nil {
		c.formant.ProcessBlock(out)
	}
	c.filters.ProcessBlock(out)
	if c.trem != nil {
		c.trem.ProcessBlock(out)
	}
	if c.comp != nil {
		c.comp.ProcessBlock(out)
	}

	if !core.AllFinite(out) {
		return nil, fmt.Errorf("chain output: %w", ErrInvalidInput)
	}
	return out, nil
}

func (n *Native) chainFor(spec variant.Spec, sampleRate float64) (*nativeChain, error) {
	key := chainKey{label: spec.Label, sampleRate: sampleRate}
	if c, ok := n.chains[key]; ok {
		return c, nil
	}

	shifter, err := pitch.NewShifter(sampleRate, core.CentsToRatio(spec.PitchCents))
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", spec.Label, err)
	}

	c := &nativeChain{shifter: shifter}

	if spec.FormantRatio != 1 {
		// Approximate formant scaling with a spectral tilt: shifting
		// formants down emphasizes lows and rolls off highs.
		tiltDB := 12 * math.Log2(1/spec.FormantRatio)
		c.formant = biquad.NewChain([]biquad.Coefficients{
			design.LowShelf(formantPivotHz, tiltDB, filterQ, sampleRate),
			design.HighShelf(formantPivotHz, -tiltDB, filterQ, sampleRate),
		})
	}

	coeffs := []biquad.Coefficients{
		design.Highpass(spec.HighPassHz, filterQ, sampleRate),
		design.Lowpass(spec.LowPassHz, filterQ, sampleRate),
		design.LowShelf(spec.LowShelf.FreqHz, spec.LowShelf.GainDB, filterQ, sampleRate),
		design.HighShelf(spec.HighShelf.FreqHz, spec.HighShelf.GainDB, filterQ, sampleRate),
	}
	if spec.Notch != nil {
		coeffs = append(coeffs, design.Notch(spec.Notch.FreqHz, spec.Notch.Q, sampleRate))
	}
	c.filters = biquad.NewChain(coeffs)

	if spec.Tremolo != nil {
		c.trem, err = effects.NewTremolo(sampleRate, spec.Tremolo.FreqHz, spec.Tremolo.GainDB, spec.Tremolo.Q)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", spec.Label, err)
		}
	}
	if spec.Compressor != nil {
		c.comp, err = dynamics.NewCompressor(sampleRate,
			spec.Compressor.Ratio, spec.Compressor.ThresholdDB, spec.Compressor.KneeDB)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", spec.Label, err)
		}
	}

	n.chains[key] = c
	return c, nil
}

// reset clears all per-buffer filter and envelope state so successive
// requests are independent.
func (c *nativeChain) reset() {
	c.shifter.Reset()
	if c.formant != nil {
		c.formant.Reset()
	}
	c.filters.Reset()
	if c.trem != nil {
		c.trem.Reset()
	}
	if c.comp != nil {
		c.comp.Reset()
	}
}
