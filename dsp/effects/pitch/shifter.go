// Package pitch implements time-domain pitch shifting for one-shot
// voice buffers.
package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-voice/dsp/interp"
	"github.com/cwbudde/algo-voice/dsp/window"
)

const (
	// Speech-tuned windows: short sequences track the fast formant
	// transitions of voice better than the long music preset.
	defaultSequenceMs = 40.0
	defaultOverlapMs  = 8.0
	defaultSearchMs   = 15.0

	minRatio = 0.25
	maxRatio = 4.0

	identityEps = 1e-9
	tiny        = 1e-12
)

// Shifter performs time-domain pitch shifting using a WSOLA-style
// stretch stage followed by fractional Hermite resampling.
//
// Pitch ratio:
//   - 1.0 = unchanged
//   - 2.0 = one octave up
//   - 0.5 = one octave down
//
// The shifter is mono, one-shot buffer oriented, and stateless across
// Process calls.
type Shifter struct {
	sampleRate float64
	ratio      float64

	sequenceLen int
	overlapLen  int
	searchLen   int
	stepOut     int

	fadeIn  []float64
	fadeOut []float64
	scratch []float64
}

// NewShifter constructs a pitch shifter for the given sample rate and ratio.
func NewShifter(sampleRate, ratio float64) (*Shifter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("pitch: sample rate must be positive and finite: %f", sampleRate)
	}
	if ratio < minRatio || ratio > maxRatio || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("pitch: ratio must be in [%f, %f]: %f", minRatio, maxRatio, ratio)
	}

	s := &Shifter{sampleRate: sampleRate, ratio: ratio}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// SampleRate returns the sample rate in Hz.
func (s *Shifter) SampleRate() float64 { return s.sampleRate }

// Ratio returns the pitch ratio.
func (s *Shifter) Ratio() float64 { return s.ratio }

// SetRatio updates the pitch shift ratio.
func (s *Shifter) SetRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("pitch: ratio must be in [%f, %f]: %f", minRatio, maxRatio, ratio)
	}
	s.ratio = ratio
	return nil
}

// Reset clears processor state.
//
// Shifter is stateless between buffers, so Reset is a no-op.
func (s *Shifter) Reset() {}

// Process pitch-shifts input and returns a new output block of equal length.
func (s *Shifter) Process(input []float64) []float64 {
	if len(input) == 0 {
		return nil
	}
	if math.Abs(s.ratio-1) <= identityEps {
		out := make([]float64, len(input))
		copy(out, input)
		return out
	}

	stretched := s.timeStretch(input)
	return resampleHermite(stretched, len(input))
}

func (s *Shifter) rebuild() error {
	s.sequenceLen = int(math.Round(defaultSequenceMs * 0.001 * s.sampleRate))
	if s.sequenceLen < 32 {
		s.sequenceLen = 32
	}
	s.overlapLen = int(math.Round(defaultOverlapMs * 0.001 * s.sampleRate))
	if s.overlapLen < 8 {
		s.overlapLen = 8
	}
	if s.overlapLen >= s.sequenceLen {
		return fmt.Errorf("pitch: overlap too large for sequence: overlap=%d sequence=%d",
			s.overlapLen, s.sequenceLen)
	}
	s.stepOut = s.sequenceLen - s.overlapLen
	if s.stepOut < 4 {
		return fmt.Errorf("pitch: output hop too small: %d", s.stepOut)
	}

	s.searchLen = int(math.Round(defaultSearchMs * 0.001 * s.sampleRate))
	if s.searchLen < 1 {
		s.searchLen = 1
	}

	// The crossfade ramps are the rising half of a Hann window.
	hann := window.Generate(window.TypeHann, 2*s.overlapLen-1)
	s.fadeIn = hann[:s.overlapLen]
	s.fadeOut = make([]float64, s.overlapLen)
	for i, in := range s.fadeIn {
		s.fadeOut[i] = 1 - in
	}
	s.scratch = make([]float64, s.overlapLen)
	return nil
}

// timeStretch produces a buffer of length len(input)*ratio with pitch
// unchanged, by overlap-adding correlation-aligned segments.
func (s *Shifter) timeStretch(input []float64) []float64 {
	targetLen := int(math.Round(float64(len(input)) * s.ratio))
	if targetLen < 1 {
		targetLen = 1
	}

	nominalInStep := float64(s.stepOut) / s.ratio
	if nominalInStep < 1 {
		nominalInStep = 1
	}

	nFrames := targetLen/s.stepOut + 4
	out := make([]float64, nFrames*s.stepOut+s.sequenceLen+1)

	for i := 0; i < s.sequenceLen; i++ {
		out[i] = sampleZero(input, i)
	}
	outLen := s.sequenceLen
	prevStart := 0
	nextNominal := nominalInStep
	ref := make([]float64, s.overlapLen)

	for outLen < targetLen+s.sequenceLen {
		refStart := prevStart + s.stepOut
		for i := 0; i < s.overlapLen; i++ {
			ref[i] = sampleZero(input, refStart+i)
		}

		predicted := int(math.Round(nextNominal))
		candStart := s.findBestOverlap(ref, input, predicted)

		outStart := outLen - s.overlapLen
		tail := out[outStart : outStart+s.overlapLen]
		for i := range s.scratch {
			s.scratch[i] = sampleZero(input, candStart+i)
		}
		window.ApplyCoeffs(tail, s.fadeOut)
		window.ApplyCoeffs(s.scratch, s.fadeIn)
		vecmath.AddBlockInPlace(tail, s.scratch)
		writePos := outStart + s.overlapLen
		for i := s.overlapLen; i < s.sequenceLen; i++ {
			out[writePos+i-s.overlapLen] = sampleZero(input, candStart+i)
		}

		outLen = outStart + s.sequenceLen
		prevStart = candStart
		nextNominal += nominalInStep

		if prevStart > len(input)+s.sequenceLen && outLen >= targetLen {
			break
		}
	}

	if targetLen <= len(out) {
		return out[:targetLen]
	}
	padded := make([]float64, targetLen)
	copy(padded, out)
	return padded
}

// findBestOverlap searches around the predicted read position for the
// candidate segment with the highest normalized cross-correlation
// against the current overlap tail.
func (s *Shifter) findBestOverlap(ref, input []float64, predicted int) int {
	best := predicted
	bestScore := math.Inf(-1)

	refEnergy := tiny
	for _, v := range ref {
		refEnergy += v * v
	}

	for cand := predicted - s.searchLen; cand <= predicted+s.searchLen; cand++ {
		dot := 0.0
		candEnergy := tiny
		for i, rv := range ref {
			cv := sampleZero(input, cand+i)
			dot += rv * cv
			candEnergy += cv * cv
		}
		score := dot / math.Sqrt(refEnergy*candEnergy)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	return best
}

func resampleHermite(input []float64, outLen int) []float64 {
	if outLen <= 0 || len(input) == 0 {
		return nil
	}

	out := make([]float64, outLen)
	if len(input) == 1 {
		for i := range out {
			out[i] = input[0]
		}
		return out
	}
	if outLen == 1 {
		out[0] = input[0]
		return out
	}

	step := float64(len(input)-1) / float64(outLen-1)
	pos := 0.0
	for i := range out {
		out[i] = interp.AtHermite(input, pos)
		pos += step
	}
	return out
}

func sampleZero(x []float64, idx int) float64 {
	if idx < 0 || idx >= len(x) {
		return 0
	}
	return x[idx]
}
