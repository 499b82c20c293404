package transcode

import (
	"sync"
	"testing"

	"github.com/holmberd/go-transcode/internal/slab"
)

func newTestBufferPool(size int) *BufferPool {
	return newBufferPool(size, slab.NewPool(slab.DefaultConfig()))
}

func TestBufferPoolAcquireRelease(t *testing.T) {
	pool := newTestBufferPool(4)

	lease := pool.Acquire(128)
	buf := lease.Buffer()
	if buf.cap() < 128 {
		t.Fatalf("expected capacity >= 128, got %d", buf.cap())
	}
	if buf.len() != 0 {
		t.Fatalf("expected fresh buffer to be empty, got length %d", buf.len())
	}
	if active := pool.active(); active != 1 {
		t.Fatalf("expected 1 active slot, got %d", active)
	}

	lease.Release()
	if active := pool.active(); active != 0 {
		t.Fatalf("expected 0 active slots after release, got %d", active)
	}

	// Release is idempotent.
	lease.Release()
	if active := pool.active(); active != 0 {
		t.Fatalf("expected 0 active slots after double release, got %d", active)
	}
}

func TestBufferPoolResetsLengthRetainsCapacity(t *testing.T) {
	pool := newTestBufferPool(1)

	lease := pool.Acquire(64)
	buf := lease.Buffer()
	copy(buf.writable(), []byte("leftover"))
	buf.commit(8)
	capBefore := buf.cap()
	lease.Release()

	lease = pool.Acquire(1)
	buf = lease.Buffer()
	defer lease.Release()
	if buf.len() != 0 {
		t.Errorf("expected logical length reset on acquire, got %d", buf.len())
	}
	if buf.cap() < capBefore {
		t.Errorf("expected capacity %d retained across uses, got %d", capBefore, buf.cap())
	}
}

func TestBufferPoolFallbackOnSaturation(t *testing.T) {
	pool := newTestBufferPool(2)

	// Hold every slot.
	held := []BufferLease{pool.Acquire(16), pool.Acquire(16)}
	if hits := pool.hits.Load(); hits != 2 {
		t.Fatalf("expected 2 pooled acquisitions, got %d", hits)
	}

	// Saturated pool must still serve a usable buffer without blocking.
	fallback := pool.Acquire(16)
	if fallback.slot != nil {
		t.Fatal("expected a fallback lease, got a pooled slot")
	}
	if fallback.Buffer().cap() < 16 {
		t.Fatalf("expected fallback capacity >= 16, got %d", fallback.Buffer().cap())
	}
	if fallbacks := pool.fallbacks.Load(); fallbacks != 1 {
		t.Fatalf("expected 1 fallback acquisition, got %d", fallbacks)
	}

	fallback.Release()
	for _, l := range held {
		l.Release()
	}
}

func TestBufferPoolConcurrentLiveness(t *testing.T) {
	const (
		poolSize   = 4
		goroutines = 32
		rounds     = 100
	)
	pool := newTestBufferPool(poolSize)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				lease := pool.Acquire(256)
				buf := lease.Buffer()
				copy(buf.writable(), []byte("payload"))
				buf.commit(7)
				if buf.len() != 7 {
					t.Errorf("expected exclusive buffer ownership, got length %d", buf.len())
				}
				lease.Release()
			}
		}()
	}
	wg.Wait()

	if active := pool.active(); active != 0 {
		t.Fatalf("expected all slots released, got %d active", active)
	}
	total := pool.hits.Load() + pool.fallbacks.Load()
	if total != goroutines*rounds {
		t.Fatalf("expected %d acquisitions, got %d", goroutines*rounds, total)
	}
}

func TestOutputBufferGrowPreservesContents(t *testing.T) {
	chunks := slab.NewPool(slab.DefaultConfig())
	buf := &outputBuffer{}
	buf.ensure(8, chunks)

	copy(buf.writable(), []byte("12345678"))
	buf.commit(8)

	// Growing across the slab boundary must keep accumulated bytes.
	buf.ensure(slab.ChunkSize16K, chunks)
	if !buf.fromSlab {
		t.Fatal("expected slab-backed storage after growth")
	}
	if got := string(buf.bytes()); got != "12345678" {
		t.Fatalf("expected contents preserved across growth, got %q", got)
	}
	if buf.cap() < slab.ChunkSize16K {
		t.Fatalf("expected capacity >= %d, got %d", slab.ChunkSize16K, buf.cap())
	}

	buf.release(chunks)
	if buf.data != nil || buf.len() != 0 {
		t.Fatal("expected released buffer to drop its storage")
	}
}
