package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestIdentityPassThrough(t *testing.T) {
	s := NewSection(Identity())
	for i := 0; i < 64; i++ {
		x := math.Sin(2 * math.Pi * float64(i) / 17)
		if y := s.ProcessSample(x); math.Abs(y-x) > 1e-15 {
			t.Fatalf("sample %d: got %g want %g", i, y, x)
		}
	}
}

func TestProcessBlockMatchesProcessSample(t *testing.T) {
	// A lowpass-like section with feedback.
	c := Coefficients{B0: 0.2, B1: 0.4, B2: 0.2, A1: -0.5, A2: 0.25}
	s1 := NewSection(c)
	s2 := NewSection(c)

	input := make([]float64, 129) // odd length exercises the unroll tail
	for i := range input {
		input[i] = math.Sin(2*math.Pi*float64(i)/23) + 0.25*math.Sin(2*math.Pi*float64(i)/5)
	}

	want := make([]float64, len(input))
	for i, x := range input {
		want[i] = s1.ProcessSample(x)
	}

	got := make([]float64, len(input))
	copy(got, input)
	s2.ProcessBlock(got)

	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got %g want %g", i, got[i], want[i])
		}
	}
}

func TestProcessBlockFlushesTinyState(t *testing.T) {
	// y[n] = x[n] + 0.5*y[n-1]: the state halves every sample, so a
	// long silent block drives it below the flush threshold.
	s := NewSection(Coefficients{B0: 1, A1: -0.5})

	block := make([]float64, 256)
	block[0] = 1
	s.ProcessBlock(block)

	if st := s.State(); st[0] != 0 || st[1] != 0 {
		t.Fatalf("state = %v, want exact zeros", st)
	}
}

func TestResetClearsState(t *testing.T) {
	c := Coefficients{B0: 0.5, B1: 0.5, A1: -0.3}
	s := NewSection(c)

	out1 := make([]float64, 32)
	for i := range out1 {
		out1[i] = s.ProcessSample(1)
	}

	s.Reset()

	for i := range out1 {
		if y := s.ProcessSample(1); math.Abs(y-out1[i]) > 1e-15 {
			t.Fatalf("sample %d after reset: got %g want %g", i, y, out1[i])
		}
	}
}

func TestChainGainAndCascade(t *testing.T) {
	coeffs := []Coefficients{Identity(), Identity()}
	c := NewChain(coeffs, WithGain(0.5))

	buf := []float64{1, -1, 1, -1}
	c.ProcessBlock(buf)
	for i, v := range buf {
		want := 0.5
		if i%2 == 1 {
			want = -0.5
		}
		if math.Abs(v-want) > 1e-15 {
			t.Fatalf("sample %d: got %g want %g", i, v, want)
		}
	}
}

func TestSectionStateRoundTrip(t *testing.T) {
	c := Coefficients{B0: 0.3, B1: 0.3, A1: -0.2}
	s := NewSection(c)
	s.ProcessSample(1)
	s.ProcessSample(-1)

	st := s.State()
	ref := NewSection(c)
	ref.SetState(st)

	for i := 0; i < 16; i++ {
		x := math.Sin(float64(i))
		if a, b := s.ProcessSample(x), ref.ProcessSample(x); math.Abs(a-b) > 1e-15 {
			t.Fatalf("sample %d: states diverge: %g vs %g", i, a, b)
		}
	}
}

func TestResponseIdentityIsUnity(t *testing.T) {
	s := NewSection(Identity())
	for _, f := range []float64{10, 100, 1000, 10000} {
		if mag := cmplx.Abs(s.Response(f, 44100)); math.Abs(mag-1) > 1e-12 {
			t.Fatalf("identity |H(%g)| = %g, want 1", f, mag)
		}
	}
}
