// Package engine provides the voice transformation engines and the
// degradation ladder that selects between them.
//
// Three engines implement the same Processor contract at decreasing
// fidelity: the native DSP chain, a self-contained spectral
// approximation, and a minimal deterministic transform. The ladder
// probes them in order at startup and sticks with the first one that
// initializes.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-voice/dsp/core"
	"github.com/cwbudde/algo-voice/variant"
)

// Tier identifies which engine the ladder selected.
type Tier int

const (
	TierUnavailable Tier = iota
	TierMinimal
	TierCompatible
	TierNative
)

// String returns the tier name used in logs and readiness acks.
func (t Tier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierCompatible:
		return "compatible"
	case TierMinimal:
		return "minimal"
	default:
		return "unavailable"
	}
}

var (
	// ErrEngineUnavailable reports that no tier could be initialized.
	ErrEngineUnavailable = errors.New("engine: no processing tier available")

	// ErrInvalidInput reports empty or non-finite input samples.
	ErrInvalidInput = errors.New("engine: invalid input buffer")

	// ErrLengthMismatch reports a stage output whose length differs
	// from its input.
	ErrLengthMismatch = errors.New("engine: buffer length mismatch")
)

// Processor transforms one input buffer into one variant output of
// identical length. Implementations are driven by a single worker
// goroutine and need not be safe for concurrent use.
type Processor interface {
	// Tier reports which ladder tier this processor implements.
	Tier() Tier

	// Transform applies the variant's chain to input and returns a
	// freshly allocated buffer of identical length. The input slice
	// is never mutated.
	Transform(spec variant.Spec, input []float64, sampleRate float64) ([]float64, error)

	// Reset drops cached per-variant state so a restarted pipeline
	// starts clean.
	Reset()
}

// ValidateInput rejects buffers the chain must never see: empty input
// and non-finite samples.
func ValidateInput(input []float64, sampleRate float64) error {
	if len(input) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidInput)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate %f", ErrInvalidInput, sampleRate)
	}
	if !core.AllFinite(input) {
		return fmt.Errorf("%w: non-finite sample", ErrInvalidInput)
	}
	return nil
}

const (
	ineffectiveEnergyEps = 1e-6
	ineffectiveDeltaEps  = 1e-9
)

// ChainEffective reports whether out is measurably different from in.
// A chain that returns its input unchanged has silently failed and its
// result must not be presented as a transformed variant.
func ChainEffective(in, out []float64) bool {
	if len(in) != len(out) {
		return true
	}
	energyDelta := math.Abs(core.SumAbs(out) - core.SumAbs(in))
	if energyDelta > ineffectiveEnergyEps*float64(len(in)) {
		return true
	}
	return core.MaxAbsDiff(in, out) > ineffectiveDeltaEps
}
