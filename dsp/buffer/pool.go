package buffer

import (
	"sync"
	"sync/atomic"
)

// Pool provides sync.Pool-based Buffer reuse with lease accounting.
// Every Get must be paired with exactly one Put. The outstanding-lease
// counter lets a teardown path detect buffers that were never returned,
// which is the primary leak mode when a processing chain errors mid-way.
type Pool struct {
	pool   sync.Pool
	leases atomic.Int64
}

// NewPool returns a Pool ready for use.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Buffer{}
			},
		},
	}
}

// Get leases a Buffer with the requested length. The buffer is zeroed.
// Callers must return it via Put when done.
func (p *Pool) Get(length int) *Buffer {
	b := p.pool.Get().(*Buffer)
	b.Resize(length)
	b.Zero()
	p.leases.Add(1)
	return b
}

// GetCopy leases a Buffer initialized with a copy of src.
func (p *Pool) GetCopy(src []float64) *Buffer {
	b := p.pool.Get().(*Buffer)
	b.CopyFrom(src)
	p.leases.Add(1)
	return b
}

// Put returns a Buffer to the pool for reuse.
// The caller must not use the buffer after calling Put.
// Putting nil is a no-op so error paths can release unconditionally.
func (p *Pool) Put(b *Buffer) {
	if b == nil {
		return
	}
	p.leases.Add(-1)
	p.pool.Put(b)
}

// Outstanding returns the number of leased buffers not yet returned.
func (p *Pool) Outstanding() int {
	return int(p.leases.Load())
}
