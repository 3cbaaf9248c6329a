package window

import (
	"math"
	"testing"
)

func TestHannSymmetricEndpoints(t *testing.T) {
	w := Generate(TypeHann, 9)
	if len(w) != 9 {
		t.Fatalf("len = %d, want 9", len(w))
	}
	if math.Abs(w[0]) > 1e-12 || math.Abs(w[8]) > 1e-12 {
		t.Fatalf("symmetric Hann endpoints not zero: %g %g", w[0], w[8])
	}
	if math.Abs(w[4]-1) > 1e-12 {
		t.Fatalf("symmetric Hann midpoint = %g, want 1", w[4])
	}
}

func TestHannPeriodicForm(t *testing.T) {
	w := Generate(TypeHann, 8, WithPeriodic())
	// Periodic Hann of length N equals the first N points of a
	// symmetric Hann of length N+1.
	ref := Generate(TypeHann, 9)
	for i := range w {
		if math.Abs(w[i]-ref[i]) > 1e-12 {
			t.Fatalf("bin %d: got %g want %g", i, w[i], ref[i])
		}
	}
}

func TestApplyCoeffs(t *testing.T) {
	buf := []float64{1, 2, 3, 4}
	ApplyCoeffs(buf, []float64{0.5, 1, 0, 2})
	want := []float64{0.5, 2, 0, 8}
	for i, v := range buf {
		if v != want[i] {
			t.Fatalf("sample %d = %g, want %g", i, v, want[i])
		}
	}
}

func TestApplyCoeffsLengthMismatch(t *testing.T) {
	buf := []float64{1, 2, 3}
	ApplyCoeffs(buf, []float64{0.5, 0.5})
	for i, v := range buf {
		if v != float64(i+1) {
			t.Fatalf("sample %d = %g, want untouched %d", i, v, i+1)
		}
	}
}

func TestRectangular(t *testing.T) {
	w := Generate(TypeRectangular, 4)
	for i, v := range w {
		if v != 1 {
			t.Fatalf("bin %d = %g, want 1", i, v)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	if w := Generate(TypeHann, 0); w != nil {
		t.Fatalf("Generate(0) = %v, want nil", w)
	}
}
