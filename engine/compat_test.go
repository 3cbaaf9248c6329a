package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-voice/variant"
)

func TestCompatibleSelfTest(t *testing.T) {
	_, err := NewCompatible()
	require.NoError(t, err)
}

func TestCompatibleTransformAllVariants(t *testing.T) {
	c, err := NewCompatible()
	require.NoError(t, err)

	const sampleRate = 44100.0
	input := sine(440, sampleRate, 8192)

	for _, label := range variant.TransformedLabels() {
		spec, ok := variant.Lookup(label)
		require.True(t, ok)

		out, err := c.Transform(spec, input, sampleRate)
		require.NoError(t, err, "variant %s", label)
		require.Len(t, out, len(input), "variant %s", label)
		assert.True(t, ChainEffective(input, out), "variant %s output identical to input", label)
	}
}

func TestShapeSpectrumShelvesAndNotch(t *testing.T) {
	c, err := NewCompatible()
	require.NoError(t, err)

	const sampleRate = 44100.0
	light, _ := variant.Lookup(variant.LabelLight)
	deep, _ := variant.Lookup(variant.LabelDeep)

	// Low third: the light +3 dB low shelf lifts a 100 Hz tone.
	low := sine(100, sampleRate, 8192)
	boosted := make([]float64, len(low))
	copy(boosted, low)
	require.NoError(t, c.shapeSpectrum(boosted, light, sampleRate))
	gain := rms(boosted) / rms(low)
	assert.InDelta(t, math.Pow(10, 3.0/20), gain, 0.1, "low shelf gain")

	// Notch third: the deep 3 kHz notch nearly removes its center tone.
	center := sine(3000, sampleRate, 8192)
	notched := make([]float64, len(center))
	copy(notched, center)
	require.NoError(t, c.shapeSpectrum(notched, deep, sampleRate))
	assert.Less(t, rms(notched)/rms(center), 0.2, "notch rejection")
}

func TestResampleLinearLowersPitch(t *testing.T) {
	in := sine(440, 44100, 8192)
	out := resampleLinear(in, 0.5)

	require.Len(t, out, len(in))

	// Half-rate reading doubles the period; count zero crossings.
	count := func(x []float64) int {
		n := 0
		for i := 1; i < len(x); i++ {
			if (x[i-1] < 0 && x[i] >= 0) || (x[i-1] >= 0 && x[i] < 0) {
				n++
			}
		}
		return n
	}
	ratio := float64(count(out)) / float64(count(in))
	assert.InDelta(t, 0.5, ratio, 0.05)
}

func TestCompressHardKneeStaticCurve(t *testing.T) {
	buf := []float64{0.5}
	compressHardKnee(buf, 2, -20)

	// 0.5 is 14 dB above the -20 dB threshold; 2:1 halves the
	// overshoot and makeup adds 10 dB.
	wantDB := -20 + 14.0/2 + 10
	want := math.Pow(10, wantDB/20)
	assert.InDelta(t, want, buf[0], 1e-2)
}

func TestCompatibleRejectsBadInput(t *testing.T) {
	c, err := NewCompatible()
	require.NoError(t, err)

	spec, _ := variant.Lookup(variant.LabelLight)
	_, err = c.Transform(spec, nil, 44100)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
