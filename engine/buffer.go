package engine

import "sync"

// BufferPool recycles the read buffers the buffered strategy carries chunks
// in. Buffers are sized to the chunk ceiling so one Get covers one planned
// range, and concurrent sessions on the buffered path do not churn the GC.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool creates a pool handing out buffers of the given size.
// A size <= 0 selects the chunk ceiling default.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultChunkCeiling
	}
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Size reports the length of the buffers this pool hands out.
func (bp *BufferPool) Size() int { return bp.size }

// Get retrieves a reusable buffer. The caller should defer Put.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns the buffer to the pool. The caller must not touch it after.
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}
