package core

import "math"

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	return n
}

// SumAbs returns the sum of absolute sample values.
// It is the energy measure used to verify that a processing chain
// actually altered a signal.
func SumAbs(buf []float64) float64 {
	sum := 0.0
	for _, v := range buf {
		sum += math.Abs(v)
	}
	return sum
}

// MaxAbs returns the largest absolute sample value, or 0 for an empty slice.
func MaxAbs(buf []float64) float64 {
	max := 0.0
	for _, v := range buf {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max
}

// MaxAbsDiff returns the largest per-sample absolute difference between a and b.
// Slices of unequal length compare over the shorter prefix.
func MaxAbsDiff(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	max := 0.0
	for i := 0; i < n; i++ {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}

// AllFinite reports whether every sample is a finite number.
func AllFinite(buf []float64) bool {
	for _, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
