package engine

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-voice/dsp/core"
	"github.com/cwbudde/algo-voice/dsp/effects"
	"github.com/cwbudde/algo-voice/dsp/interp"
	"github.com/cwbudde/algo-voice/variant"
)

// notchFloor is the residual gain inside the spectral notch band.
const notchFloor = 0.05

// Compatible approximates the native chain with self-contained
// primitives: resampling pitch shift, one-pole band-limiting and
// FFT-domain shelving. It trades fidelity for fewer moving parts and
// serves as the middle ladder tier.
type Compatible struct {
	plans map[int]*algofft.Plan[complex128]
}

// NewCompatible constructs the compatible engine and verifies its FFT
// path with a short impulse self-test.
func NewCompatible() (*Compatible, error) {
	if err := variant.Validate(); err != nil {
		return nil, fmt.Errorf("compatible: %w", err)
	}

	c := &Compatible{plans: make(map[int]*algofft.Plan[complex128])}

	probe := make([]float64, 1024)
	probe[0] = 1
	spec, _ := variant.Lookup(variant.LabelLight)
	out, err := c.Transform(spec, probe, selfTestRate)
	if err != nil {
		return nil, fmt.Errorf("compatible self-test: %w", err)
	}
	if len(out) != len(probe) {
		return nil, fmt.Errorf("compatible self-test: %w", ErrLengthMismatch)
	}
	return c, nil
}

// Tier reports TierCompatible.
func (*Compatible) Tier() Tier { return TierCompatible }

// Reset drops cached FFT plans.
func (c *Compatible) Reset() {
	c.plans = make(map[int]*algofft.Plan[complex128])
}

// Transform applies the approximated chain for one variant.
func (c *Compatible) Transform(spec variant.Spec, input []float64, sampleRate float64) ([]float64, error) {
	if err := ValidateInput(input, sampleRate); err != nil {
		return nil, err
	}

	out := resampleLinear(input, core.CentsToRatio(spec.PitchCents))

	if spec.FormantRatio != 1 {
		for i := range out {
			out[i] *= spec.FormantRatio
		}
	}

	onePoleBand(out, spec.HighPassHz, spec.LowPassHz, sampleRate)

	if err := c.shapeSpectrum(out, spec, sampleRate); err != nil {
		return nil, err
	}

	if spec.Tremolo != nil {
		trem, err := effects.NewTremolo(sampleRate, spec.Tremolo.FreqHz, spec.Tremolo.GainDB, spec.Tremolo.Q)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", spec.Label, err)
		}
		trem.ProcessBlock(out)
	}

	if spec.Compressor != nil {
		compressHardKnee(out, spec.Compressor.Ratio, spec.Compressor.ThresholdDB)
	}

	if !core.AllFinite(out) {
		return nil, fmt.Errorf("chain output: %w", ErrInvalidInput)
	}
	return out, nil
}

// resampleLinear reads the input at a scaled rate, shifting pitch by
// ratio. The output keeps the input length; upward shifts truncate
// material read past the end, downward shifts leave the tail short of it.
func resampleLinear(input []float64, ratio float64) []float64 {
	out := make([]float64, len(input))
	last := float64(len(input) - 1)
	for i := range out {
		pos := float64(i) * ratio
		if pos > last {
			break
		}
		out[i] = interp.AtLinear(input, pos)
	}
	return out
}

// onePoleBand applies first-order high-pass and low-pass smoothing
// in place.
func onePoleBand(buf []float64, highPassHz, lowPassHz, sampleRate float64) {
	aLP := 1 - math.Exp(-2*math.Pi*lowPassHz/sampleRate)
	aHP := 1 - math.Exp(-2*math.Pi*highPassHz/sampleRate)

	lp := 0.0
	for i, x := range buf {
		lp += aLP * (x - lp)
		buf[i] = lp
	}
	track := 0.0
	for i, x := range buf {
		track += aHP * (x - track)
		buf[i] = x - track
	}
}

// shapeSpectrum applies shelving gains in spectral thirds and the
// optional notch in a single FFT round trip.
func (c *Compatible) shapeSpectrum(buf []float64, spec variant.Spec, sampleRate float64) error {
	fftSize := nextPow2(len(buf))
	plan, err := c.planFor(fftSize)
	if err != nil {
		return err
	}

	freq := make([]complex128, fftSize)
	for i, v := range buf {
		freq[i] = complex(v, 0)
	}
	if err := plan.Forward(freq, freq); err != nil {
		return fmt.Errorf("forward fft: %w", err)
	}

	lowGain := core.DBToLinear(spec.LowShelf.GainDB)
	highGain := core.DBToLinear(spec.HighShelf.GainDB)
	binHz := sampleRate / float64(fftSize)

	for k := 0; k <= fftSize/2; k++ {
		f := float64(k) * binHz
		gain := 1.0
		if f <= spec.LowShelf.FreqHz {
			gain = lowGain
		} else if f >= spec.HighShelf.FreqHz {
			gain = highGain
		}
		if spec.Notch != nil {
			halfWidth := spec.Notch.FreqHz / (2 * spec.Notch.Q)
			if math.Abs(f-spec.Notch.FreqHz) <= halfWidth {
				gain *= notchFloor
			}
		}
		if gain == 1 {
			continue
		}
		g := complex(gain, 0)
		freq[k] *= g
		if k > 0 && k < fftSize/2 {
			freq[fftSize-k] *= g
		}
	}

	if err := plan.Inverse(freq, freq); err != nil {
		return fmt.Errorf("inverse fft: %w", err)
	}
	for i := range buf {
		buf[i] = real(freq[i])
	}
	return nil
}

func (c *Compatible) planFor(fftSize int) (*algofft.Plan[complex128], error) {
	if plan, ok := c.plans[fftSize]; ok {
		return plan, nil
	}
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan size %d: %w", fftSize, err)
	}
	c.plans[fftSize] = plan
	return plan, nil
}

// compressHardKnee applies a static hard-knee compression curve with
// makeup gain, sample by sample without envelope smoothing.
func compressHardKnee(buf []float64, ratio, thresholdDB float64) {
	threshold := core.DBToLinear(thresholdDB)
	makeup := core.DBToLinear(-thresholdDB * (1 - 1/ratio))

	for i, x := range buf {
		mag := math.Abs(x)
		if mag > threshold {
			compressed := threshold * math.Pow(mag/threshold, 1/ratio)
			if x < 0 {
				compressed = -compressed
			}
			buf[i] = compressed * makeup
		} else {
			buf[i] = x * makeup
		}
	}
}

func nextPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
