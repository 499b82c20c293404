package slab

import "testing"

var testConfig = Config{
	FreeThresholds: [len(classSizes)]int{4, 4, 4, 4},
}

func TestPoolGetAndPut(t *testing.T) {
	t.Run("Get and Put single chunk for each class", func(t *testing.T) {
		pool := NewPool(testConfig)
		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 0 {
				t.Fatalf("expected new pool for size %d to be empty, got %d chunks", size, numFree)
			}
		}

		for _, size := range pool.Sizes() {
			chunk := pool.Get(size)
			if chunk == nil {
				t.Fatalf("expected to get a valid chunk for size %d, got nil", size)
			}
			if len(chunk) != size || cap(chunk) != size {
				t.Errorf("expected for size %d: len/cap %d, got len=%d, cap=%d", size, size, len(chunk), cap(chunk))
			}
			pool.Put(chunk)
		}

		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 1 {
				t.Fatalf("expected for size %d: 1 free chunk after Put, got %d", size, pool.numFree(size))
			}
		}
	})

	t.Run("Put nil does not panic or add to pool", func(t *testing.T) {
		pool := NewPool(testConfig)
		pool.Put(nil)
		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 0 {
				t.Fatalf("expected new pool for size %d to be empty, got %d chunks", size, numFree)
			}
		}
	})

	t.Run("Put unsupported size is ignored", func(t *testing.T) {
		pool := NewPool(testConfig)
		pool.Put(make([]byte, ChunkSize16K+1))
		for _, size := range pool.Sizes() {
			if numFree := pool.numFree(size); numFree != 0 {
				t.Fatalf("expected new pool for size %d to be empty, got %d chunks", size, numFree)
			}
		}
	})

	t.Run("Get unsupported size panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected Get with unsupported size to panic")
			}
		}()
		pool := NewPool(testConfig)
		pool.Get(ChunkSize16K + 1)
	})

	t.Run("Chunk contents survive a Get after Put", func(t *testing.T) {
		pool := NewPool(testConfig)
		chunk := pool.Get(ChunkSize16K)
		chunk[0] = 0xAB
		pool.Put(chunk)
		again := pool.Get(ChunkSize16K)
		if cap(again) != ChunkSize16K {
			t.Fatalf("expected recycled chunk cap %d, got %d", ChunkSize16K, cap(again))
		}
	})
}

func TestPoolTrimsFreeList(t *testing.T) {
	pool := NewPool(testConfig)
	pool.Allocate(ChunkSize16K, 4)

	chunks := make([][]byte, 5)
	for i := range chunks {
		chunks[i] = pool.Get(ChunkSize16K)
	}
	for _, c := range chunks {
		pool.Put(c)
	}

	// Putting the fifth chunk exceeds the threshold of 4 and releases half.
	if numFree := pool.numFree(ChunkSize16K); numFree != 3 {
		t.Fatalf("expected 3 free chunks after trim, got %d", numFree)
	}
}

func TestPoolAllocatePreWarms(t *testing.T) {
	pool := NewPool(testConfig)
	pool.Allocate(ChunkSize128K, 3)
	if numFree := pool.numFree(ChunkSize128K); numFree != 3 {
		t.Fatalf("expected 3 free chunks after pre-warm, got %d", numFree)
	}

	// Allocating fewer than already free is a no-op.
	pool.Allocate(ChunkSize128K, 2)
	if numFree := pool.numFree(ChunkSize128K); numFree != 3 {
		t.Fatalf("expected pre-warm to be a no-op, got %d free chunks", pool.numFree(ChunkSize128K))
	}
}

func TestClassFor(t *testing.T) {
	pool := NewPool(testConfig)
	testCases := []struct {
		name       string
		n          int
		expected   int
		expectedOk bool
	}{
		{"One byte", 1, ChunkSize16K, true},
		{"Exact smallest class", ChunkSize16K, ChunkSize16K, true},
		{"Just above smallest class", ChunkSize16K + 1, ChunkSize128K, true},
		{"Exact largest class", ChunkSize8M, ChunkSize8M, true},
		{"Above largest class", ChunkSize8M + 1, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			size, ok := pool.ClassFor(tc.n)
			if ok != tc.expectedOk || size != tc.expected {
				t.Errorf("ClassFor(%d) = (%d, %v), expected (%d, %v)", tc.n, size, ok, tc.expected, tc.expectedOk)
			}
		})
	}
}
