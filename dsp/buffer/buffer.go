// Package buffer provides reusable sample buffers with explicit
// ownership accounting. Processing stages lease buffers from a Pool
// and must release every lease exactly once, including on error paths.
package buffer

import "github.com/cwbudde/algo-voice/dsp/core"

// Buffer wraps a float64 slice with reuse-friendly semantics.
// DSP functions accept raw []float64; use Samples() to bridge.
type Buffer struct {
	samples []float64
}

// New returns a zero-filled Buffer of the given length.
func New(length int) *Buffer {
	if length < 0 {
		length = 0
	}
	return &Buffer{samples: make([]float64, length)}
}

// Samples returns the underlying slice.
func (b *Buffer) Samples() []float64 {
	return b.samples
}

// SetSamples replaces the underlying slice without copying.
// The Buffer takes over the slice; the caller must not hold on to it.
func (b *Buffer) SetSamples(s []float64) {
	b.samples = s
}

// Len returns the current number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Resize sets the length to n, reusing existing capacity when possible.
// New elements beyond the previous length are zeroed.
func (b *Buffer) Resize(n int) {
	if n < 0 {
		n = 0
	}
	oldLen := len(b.samples)
	if n <= cap(b.samples) {
		b.samples = b.samples[:n]
	} else {
		s := make([]float64, n)
		copy(s, b.samples)
		b.samples = s
	}
	// Zero any newly exposed elements that may have stale data from
	// previous use of the backing array.
	if n > oldLen {
		core.Zero(b.samples[oldLen:])
	}
}

// Zero sets all samples to 0.
func (b *Buffer) Zero() {
	core.Zero(b.samples)
}

// CopyFrom resizes the buffer to match src and copies its contents.
func (b *Buffer) CopyFrom(src []float64) {
	b.Resize(len(src))
	core.CopyInto(b.samples, src)
}

// Detach returns the underlying slice and disconnects it from the
// Buffer, leaving the Buffer empty. Used when ownership of the samples
// passes to a caller while the Buffer itself is returned to a pool.
func (b *Buffer) Detach() []float64 {
	s := b.samples
	b.samples = nil
	return s
}
