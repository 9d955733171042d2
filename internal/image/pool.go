package image

import "sync"

// RowPool recycles scratch row buffers grouped by length. Codecs use it
// for temporary rows (skipped scanlines, transparent-pixel staging).
//
// Thread safety: All methods are safe for concurrent use.
type RowPool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	maxSize int // max buffers per bucket
}

// NewRowPool creates a pool retaining at most maxPerBucket buffers per
// length. Zero means unlimited.
func NewRowPool(maxPerBucket int) *RowPool {
	return &RowPool{
		buckets: make(map[int][][]byte),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed buffer of length n.
func (p *RowPool) Get(n int) []byte {
	p.mu.Lock()
	bucket := p.buckets[n]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[n] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		clear(buf)
		return buf
	}
	p.mu.Unlock()
	return make([]byte, n)
}

// Put returns buf to the pool. Nil and empty buffers are dropped.
func (p *RowPool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}
	n := len(buf)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxSize > 0 && len(p.buckets[n]) >= p.maxSize {
		return
	}
	p.buckets[n] = append(p.buckets[n], buf[:n:n])
}

// Len returns the number of pooled buffers of length n.
func (p *RowPool) Len(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[n])
}

// defaultRowPool is shared by all codecs.
var defaultRowPool = NewRowPool(16)

// GetRow takes a scratch row from the shared pool.
func GetRow(n int) []byte { return defaultRowPool.Get(n) }

// PutRow returns a scratch row to the shared pool.
func PutRow(buf []byte) { defaultRowPool.Put(buf) }
