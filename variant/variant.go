// Package variant defines the fixed voice transformation variants and
// their processing parameters.
package variant

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Label names one of the four output variants.
type Label string

const (
	LabelRaw    Label = "raw"
	LabelLight  Label = "light"
	LabelMedium Label = "medium"
	LabelDeep   Label = "deep"
)

// Labels lists all variants in pipeline output order.
func Labels() []Label {
	return []Label{LabelRaw, LabelLight, LabelMedium, LabelDeep}
}

// TransformedLabels lists the variants that run the processing chain.
func TransformedLabels() []Label {
	return []Label{LabelLight, LabelMedium, LabelDeep}
}

// ShelfBand describes one band of the shelving EQ.
type ShelfBand struct {
	FreqHz float64 `validate:"gt=0"`
	GainDB float64 `validate:"gte=-24,lte=24"`
}

// CompressorParams describes the optional dynamics stage.
type CompressorParams struct {
	Ratio       float64 `validate:"gte=1,lte=20"`
	ThresholdDB float64 `validate:"gte=-60,lte=0"`
	KneeDB      float64 `validate:"gte=0,lte=24"`
}

// NotchParams describes the optional notch stage.
type NotchParams struct {
	FreqHz float64 `validate:"gt=0"`
	Q      float64 `validate:"gt=0"`
}

// TremoloParams describes the optional tremolo stage.
type TremoloParams struct {
	FreqHz float64 `validate:"gt=0"`
	GainDB float64 `validate:"gte=0,lte=24"`
	Q      float64 `validate:"gt=0"`
}

// Spec is the immutable parameter record for one transformed variant.
// Specs are constructed once at startup and shared read-only across
// all processing requests.
type Spec struct {
	Label        Label   `validate:"required,oneof=light medium deep"`
	PitchCents   float64 `validate:"gte=-1200,lte=1200"`
	FormantRatio float64 `validate:"gt=0,lte=2"`
	HighPassHz   float64 `validate:"gt=0"`
	LowPassHz    float64 `validate:"gt=0,gtfield=HighPassHz"`
	LowShelf     ShelfBand
	HighShelf    ShelfBand

	Compressor *CompressorParams
	Notch      *NotchParams
	Tremolo    *TremoloParams

	// MinimalIntensity keys the minimal-tier fallback transform.
	MinimalIntensity float64 `validate:"gt=0,lte=1"`
}

var table = map[Label]Spec{
	LabelLight: {
		Label:            LabelLight,
		PitchCents:       -60,
		FormantRatio:     0.9,
		HighPassHz:       300,
		LowPassHz:        1200,
		LowShelf:         ShelfBand{FreqHz: 300, GainDB: 3},
		HighShelf:        ShelfBand{FreqHz: 1200, GainDB: -3},
		MinimalIntensity: 0.9,
	},
	LabelMedium: {
		Label:            LabelMedium,
		PitchCents:       -120,
		FormantRatio:     1.0,
		HighPassHz:       250,
		LowPassHz:        1300,
		LowShelf:         ShelfBand{FreqHz: 250, GainDB: 3},
		HighShelf:        ShelfBand{FreqHz: 1300, GainDB: -3},
		Compressor:       &CompressorParams{Ratio: 2, ThresholdDB: -18, KneeDB: 6},
		MinimalIntensity: 0.7,
	},
	LabelDeep: {
		Label:            LabelDeep,
		PitchCents:       -120,
		FormantRatio:     1.0,
		HighPassHz:       200,
		LowPassHz:        1400,
		LowShelf:         ShelfBand{FreqHz: 200, GainDB: 4},
		HighShelf:        ShelfBand{FreqHz: 1400, GainDB: -4},
		Compressor:       &CompressorParams{Ratio: 3, ThresholdDB: -20, KneeDB: 6},
		Notch:            &NotchParams{FreqHz: 3000, Q: 2},
		Tremolo:          &TremoloParams{FreqHz: 60, GainDB: 6, Q: 1},
		MinimalIntensity: 0.5,
	},
}

// Lookup returns the Spec for a transformed label. The second result
// is false for LabelRaw and unknown labels.
func Lookup(label Label) (Spec, bool) {
	s, ok := table[label]
	return s, ok
}

// Table returns a copy of the full transformed-variant table.
func Table() map[Label]Spec {
	out := make(map[Label]Spec, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Validate checks the whole variant table against its struct
// constraints. It is called once at pipeline startup.
func Validate() error {
	v := validator.New()
	for label, spec := range table {
		if err := v.Struct(spec); err != nil {
			return fmt.Errorf("variant %s: %w", label, err)
		}
	}
	return nil
}
