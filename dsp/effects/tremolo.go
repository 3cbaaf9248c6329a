// Package effects provides time-domain modulation effects used by the
// voice transformation chains.
package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-voice/dsp/filter/biquad"
	"github.com/cwbudde/algo-voice/dsp/filter/design"
)

const tremoloSmoothingMs = 5.0

// Tremolo applies LFO amplitude modulation combined with a peaking
// boost at the modulation frequency.
//
// The effect is parameterized like an EQ band: frequency, gain in dB
// and Q. The gain sets both the modulation depth and the peaking boost,
// and a makeup stage restores the average level lost to modulation.
type Tremolo struct {
	sampleRate float64
	rateHz     float64
	depth      float64
	makeup     float64

	peak *biquad.Section

	lfoPhase      float64
	currentMod    float64
	smoothingCoef float64
}

// NewTremolo creates a tremolo for the given modulation frequency,
// gain in dB and peaking Q.
func NewTremolo(sampleRate, rateHz, gainDB, q float64) (*Tremolo, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("tremolo sample rate must be > 0 and finite: %f", sampleRate)
	}
	if rateHz <= 0 || rateHz >= sampleRate/2 || math.IsNaN(rateHz) {
		return nil, fmt.Errorf("tremolo rate must be in (0, nyquist): %f", rateHz)
	}
	if gainDB < 0 || gainDB > 24 || math.IsNaN(gainDB) {
		return nil, fmt.Errorf("tremolo gain must be in [0, 24] dB: %f", gainDB)
	}
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return nil, fmt.Errorf("tremolo q must be > 0 and finite: %f", q)
	}

	// A gain of g maps to depth 1-1/g, so +6 dB modulates down to
	// roughly half amplitude at the LFO trough.
	linGain := math.Pow(10, gainDB/20)
	depth := 1 - 1/linGain

	t := &Tremolo{
		sampleRate: sampleRate,
		rateHz:     rateHz,
		depth:      depth,
		makeup:     1 / (1 - depth/2),
		currentMod: 1,
	}
	t.peak = biquad.NewSection(design.Peak(rateHz, gainDB, q, sampleRate))

	tauSeconds := tremoloSmoothingMs / 1000
	t.smoothingCoef = 1 - math.Exp(-1/(tauSeconds*sampleRate))

	return t, nil
}

// SampleRate returns sample rate in Hz.
func (t *Tremolo) SampleRate() float64 { return t.sampleRate }

// RateHz returns LFO speed in Hz.
func (t *Tremolo) RateHz() float64 { return t.rateHz }

// Depth returns modulation depth in [0, 1].
func (t *Tremolo) Depth() float64 { return t.depth }

// Reset clears modulation phase, smoothing state and filter state.
func (t *Tremolo) Reset() {
	t.lfoPhase = 0
	t.currentMod = 1
	t.peak.Reset()
}

// ProcessSample processes one sample.
func (t *Tremolo) ProcessSample(sample float64) float64 {
	boosted := t.peak.ProcessSample(sample)

	targetMod := (1 - t.depth) + t.depth*0.5*(1+math.Sin(t.lfoPhase))
	t.currentMod += (targetMod - t.currentMod) * t.smoothingCoef

	t.lfoPhase += 2 * math.Pi * t.rateHz / t.sampleRate
	if t.lfoPhase >= 2*math.Pi {
		t.lfoPhase -= 2 * math.Pi
	}

	return boosted * t.currentMod * t.makeup
}

// ProcessBlock applies the tremolo to buf in place.
func (t *Tremolo) ProcessBlock(buf []float64) {
	for i := range buf {
		buf[i] = t.ProcessSample(buf[i])
	}
}
