package transcode

import (
	"sync/atomic"

	"github.com/holmberd/go-transcode/internal/slab"
)

// outputBuffer is a growable byte buffer whose backing storage comes from the
// slab allocator once it crosses the smallest chunk class. The logical length
// is tracked separately from the capacity so a buffer can be reset without
// giving up its storage.
type outputBuffer struct {
	data     []byte // len(data) == capacity
	n        int    // logical length
	fromSlab bool
}

func (b *outputBuffer) len() int { return b.n }
func (b *outputBuffer) cap() int { return len(b.data) }

// bytes returns the written portion of the buffer.
func (b *outputBuffer) bytes() []byte { return b.data[:b.n] }

// writable returns the unwritten tail of the buffer.
// Empty when the buffer is full.
func (b *outputBuffer) writable() []byte { return b.data[b.n:] }

// commit advances the logical length by k bytes just written into writable().
func (b *outputBuffer) commit(k int) { b.n += k }

// reset zeroes the logical length. Capacity is retained.
func (b *outputBuffer) reset() { b.n = 0 }

// ensure grows the buffer so its capacity is at least capacity, preserving
// any written bytes. Storage of at least the smallest chunk class is drawn
// from the chunk pool; anything beyond the largest class lives on the heap.
func (b *outputBuffer) ensure(capacity int, chunks *slab.Pool) {
	if capacity <= len(b.data) {
		return
	}
	var (
		next     []byte
		fromSlab bool
	)
	if class, ok := chunks.ClassFor(capacity); ok && capacity >= slab.ChunkSize16K {
		next = chunks.Get(class)
		fromSlab = true
	} else {
		next = make([]byte, capacity)
	}
	copy(next, b.data[:b.n])
	b.release(chunks)
	b.data = next
	b.fromSlab = fromSlab
}

// release returns slab-backed storage to the chunk pool and drops the buffer's
// reference to it. Heap storage is left to the garbage collector.
func (b *outputBuffer) release(chunks *slab.Pool) {
	if b.fromSlab {
		chunks.Put(b.data)
	}
	b.data = nil
	b.fromSlab = false
	b.n = 0
}

type bufferSlot struct {
	inUse atomic.Bool
	buf   outputBuffer
}

// BufferPool is a fixed set of reusable output buffer slots. Acquisition is
// non-blocking: a rotating counter picks a candidate slot and a CAS on the
// slot's in-use flag claims it. When every attempt fails the caller gets a
// private fallback buffer instead, so Acquire never blocks and never fails.
type BufferPool struct {
	slots  []bufferSlot
	next   atomic.Uint64
	chunks *slab.Pool

	hits      atomic.Uint64 // acquisitions served from a pooled slot
	fallbacks atomic.Uint64 // acquisitions served by a private buffer
}

func newBufferPool(size int, chunks *slab.Pool) *BufferPool {
	return &BufferPool{
		slots:  make([]bufferSlot, size),
		chunks: chunks,
	}
}

// Acquire returns a lease over an output buffer with capacity of at least
// capHint bytes. Up to 2×PoolSize slots are probed; a saturated pool yields a
// private fallback buffer rather than blocking.
func (p *BufferPool) Acquire(capHint int) BufferLease {
	maxAttempts := 2 * len(p.slots)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		i := p.next.Add(1) % uint64(len(p.slots))
		slot := &p.slots[i]
		if slot.inUse.CompareAndSwap(false, true) {
			slot.buf.reset()
			slot.buf.ensure(capHint, p.chunks)
			p.hits.Add(1)
			return BufferLease{pool: p, slot: slot, buf: &slot.buf}
		}
	}

	// Pool saturated: private buffer, bypassing the shared slots entirely.
	p.fallbacks.Add(1)
	buf := &outputBuffer{}
	buf.ensure(capHint, p.chunks)
	return BufferLease{pool: p, buf: buf}
}

// active returns the number of slots currently held by callers.
func (p *BufferPool) active() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].inUse.Load() {
			n++
		}
	}
	return n
}

// BufferLease is a scoped, exclusively-owned borrow of an output buffer.
// Release must be called on every exit path; it is idempotent.
type BufferLease struct {
	pool     *BufferPool
	slot     *bufferSlot // nil for fallback leases
	buf      *outputBuffer
	released bool
}

// Buffer returns the leased output buffer.
// Must not be used after Release.
func (l *BufferLease) Buffer() *outputBuffer {
	return l.buf
}

// Release returns the buffer to the pool. Pooled slots keep their storage for
// the next caller; fallback buffers are dropped, returning any slab chunk.
func (l *BufferLease) Release() {
	if l.released {
		return
	}
	l.released = true
	if l.slot != nil {
		l.slot.inUse.Store(false)
		return
	}
	l.buf.release(l.pool.chunks)
}
