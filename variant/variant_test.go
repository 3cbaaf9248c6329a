package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableValidates(t *testing.T) {
	require.NoError(t, Validate())
}

func TestLabelsOrder(t *testing.T) {
	assert.Equal(t, []Label{LabelRaw, LabelLight, LabelMedium, LabelDeep}, Labels())
	assert.Equal(t, []Label{LabelLight, LabelMedium, LabelDeep}, TransformedLabels())
}

func TestLookupRawAndUnknown(t *testing.T) {
	_, ok := Lookup(LabelRaw)
	assert.False(t, ok, "raw carries no transformation spec")

	_, ok = Lookup(Label("ghost"))
	assert.False(t, ok)
}

func TestPublishedConstants(t *testing.T) {
	light, ok := Lookup(LabelLight)
	require.True(t, ok)
	assert.Equal(t, -60.0, light.PitchCents)
	assert.Equal(t, 0.9, light.FormantRatio)
	assert.Equal(t, 300.0, light.HighPassHz)
	assert.Equal(t, 1200.0, light.LowPassHz)
	assert.Equal(t, ShelfBand{FreqHz: 300, GainDB: 3}, light.LowShelf)
	assert.Equal(t, ShelfBand{FreqHz: 1200, GainDB: -3}, light.HighShelf)
	assert.Nil(t, light.Compressor)
	assert.Nil(t, light.Notch)
	assert.Nil(t, light.Tremolo)
	assert.Equal(t, 0.9, light.MinimalIntensity)

	medium, ok := Lookup(LabelMedium)
	require.True(t, ok)
	assert.Equal(t, -120.0, medium.PitchCents)
	assert.Equal(t, 1.0, medium.FormantRatio)
	assert.Equal(t, 250.0, medium.HighPassHz)
	assert.Equal(t, 1300.0, medium.LowPassHz)
	require.NotNil(t, medium.Compressor)
	assert.Equal(t, CompressorParams{Ratio: 2, ThresholdDB: -18, KneeDB: 6}, *medium.Compressor)
	assert.Nil(t, medium.Notch)
	assert.Equal(t, 0.7, medium.MinimalIntensity)

	deep, ok := Lookup(LabelDeep)
	require.True(t, ok)
	assert.Equal(t, -120.0, deep.PitchCents)
	assert.Equal(t, 200.0, deep.HighPassHz)
	assert.Equal(t, 1400.0, deep.LowPassHz)
	require.NotNil(t, deep.Compressor)
	assert.Equal(t, CompressorParams{Ratio: 3, ThresholdDB: -20, KneeDB: 6}, *deep.Compressor)
	require.NotNil(t, deep.Notch)
	assert.Equal(t, NotchParams{FreqHz: 3000, Q: 2}, *deep.Notch)
	require.NotNil(t, deep.Tremolo)
	assert.Equal(t, TremoloParams{FreqHz: 60, GainDB: 6, Q: 1}, *deep.Tremolo)
	assert.Equal(t, 0.5, deep.MinimalIntensity)
}

func TestTableReturnsCopy(t *testing.T) {
	a := Table()
	a[LabelLight] = Spec{}
	b := Table()
	assert.NotEqual(t, Spec{}, b[LabelLight])
}
