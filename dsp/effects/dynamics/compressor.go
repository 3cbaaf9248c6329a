// Package dynamics implements dynamic-range processing for voice
// buffers.
package dynamics

import (
	"fmt"
	"math"
)

const (
	minRatio  = 1.0
	maxRatio  = 20.0
	minKneeDB = 0.0
	maxKneeDB = 24.0

	// Speech-tuned envelope times.
	attackMs  = 5.0
	releaseMs = 80.0

	// log2(10) / 20, converts dB to the log2 domain.
	log2Of10Div20 = 0.166096404744
)

// Compressor is a mono soft-knee compressor with log2-domain gain
// computation and automatic makeup gain.
//
// Not safe for concurrent use.
type Compressor struct {
	ratio       float64
	thresholdDB float64
	kneeDB      float64

	sampleRate float64
	peakLevel  float64

	attackCoeff   float64
	releaseCoeff  float64
	thresholdLog2 float64
	kneeLog2      float64
	invKneeLog2   float64
	makeupLin     float64
}

// NewCompressor creates a compressor with the given ratio, threshold
// and knee width. Makeup gain compensating the reduction at threshold
// is applied automatically.
func NewCompressor(sampleRate, ratio, thresholdDB, kneeDB float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}
	if ratio < minRatio || ratio > maxRatio || math.IsNaN(ratio) {
		return nil, fmt.Errorf("compressor ratio must be in [%v, %v]: %f", minRatio, maxRatio, ratio)
	}
	if thresholdDB > 0 || thresholdDB < -60 || math.IsNaN(thresholdDB) {
		return nil, fmt.Errorf("compressor threshold must be in [-60, 0] dB: %f", thresholdDB)
	}
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || math.IsNaN(kneeDB) {
		return nil, fmt.Errorf("compressor knee must be in [%v, %v] dB: %f", minKneeDB, maxKneeDB, kneeDB)
	}

	c := &Compressor{
		ratio:       ratio,
		thresholdDB: thresholdDB,
		kneeDB:      kneeDB,
		sampleRate:  sampleRate,
	}

	c.thresholdLog2 = thresholdDB * log2Of10Div20
	c.kneeLog2 = kneeDB * log2Of10Div20
	if kneeDB > 0 {
		c.invKneeLog2 = 1 / c.kneeLog2
	}

	makeupDB := -thresholdDB * (1 - 1/ratio)
	c.makeupLin = math.Pow(10, makeupDB/20)

	c.attackCoeff = 1 - math.Exp(-math.Ln2/(attackMs*0.001*sampleRate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (releaseMs * 0.001 * sampleRate))

	return c, nil
}

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// ThresholdDB returns the threshold in dB.
func (c *Compressor) ThresholdDB() float64 { return c.thresholdDB }

// KneeDB returns the knee width in dB.
func (c *Compressor) KneeDB() float64 { return c.kneeDB }

// Reset clears the envelope follower.
func (c *Compressor) Reset() {
	c.peakLevel = 0
}

// ProcessSample processes one sample through the compressor.
func (c *Compressor) ProcessSample(input float64) float64 {
	level := math.Abs(input)
	if level > c.peakLevel {
		c.peakLevel += (level - c.peakLevel) * c.attackCoeff
	} else {
		c.peakLevel = level + (c.peakLevel-level)*c.releaseCoeff
	}

	return input * c.gainFor(c.peakLevel) * c.makeupLin
}

// ProcessBlock applies compression to buf in place.
func (c *Compressor) ProcessBlock(buf []float64) {
	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

// StaticGain computes the steady-state output level for a given input
// magnitude, exposing the compression curve.
func (c *Compressor) StaticGain(magnitude float64) float64 {
	magnitude = math.Abs(magnitude)
	return magnitude * c.gainFor(magnitude) * c.makeupLin
}

// gainFor computes the gain multiplier using the log2-domain soft-knee
// transfer curve.
func (c *Compressor) gainFor(peakLevel float64) float64 {
	if peakLevel <= 0 {
		return 1
	}

	overshoot := math.Log2(peakLevel) - c.thresholdLog2

	if c.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1
		}
		return math.Exp2(-overshoot * (1 - 1/c.ratio))
	}

	halfKnee := c.kneeLog2 * 0.5
	var effective float64
	switch {
	case overshoot < -halfKnee:
		return 1
	case overshoot > halfKnee:
		effective = overshoot
	default:
		// Quadratic interpolation across the knee.
		s := overshoot + halfKnee
		effective = s * s * 0.5 * c.invKneeLog2
	}

	return math.Exp2(-effective * (1 - 1/c.ratio))
}
