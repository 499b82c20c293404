// Package slab implements an off-heap pool of fixed-size memory chunks used
// to back conversion output buffers.
package slab

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	KiB = 1024
	MiB = KiB * KiB

	ChunkSize16K  = 16 * KiB
	ChunkSize128K = 128 * KiB
	ChunkSize1M   = 1 * MiB
	ChunkSize8M   = 8 * MiB
)

// classSizes lists the supported chunk sizes ordered smallest to largest.
//   - The smallest class should be small enough that a typical short
//     conversion does not waste much space.
//   - The largest class should cover output buffers near the engine's growth
//     ceiling so large conversions stay off the Go heap.
var classSizes = [4]int{
	ChunkSize16K,
	ChunkSize128K,
	ChunkSize1M,
	ChunkSize8M,
}

func init() {
	// Runtime assertion.
	if !sort.IntsAreSorted(classSizes[:]) {
		panic(errors.New("chunk class sizes must be sorted in ascending order"))
	}
}

type Config struct {
	// FreeThresholds is the number of free chunks of each class the pool can
	// hold before it starts releasing memory back to the operating system.
	FreeThresholds [len(classSizes)]int

	// Logger receives allocator diagnostics. Nil disables logging.
	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		FreeThresholds: [len(classSizes)]int{
			256, // 4MB
			64,  // 8MB
			16,  // 16MB
			4,   // 32MB
		},
	}
}

// Pool is a thread-safe collection of free lists of off-heap memory chunks,
// one per supported chunk class. Chunks are allocated with mmap so they are
// invisible to the garbage collector.
type Pool struct {
	mu     sync.Mutex
	logger *zap.Logger
	free   [len(classSizes)][][]byte

	// freeThresholds is the number of free chunks of each class the pool
	// can hold before starting to release memory.
	freeThresholds [len(classSizes)]int
}

// NewPool creates a new, empty chunk pool.
func NewPool(config Config) *Pool {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{logger: logger, freeThresholds: config.FreeThresholds}
}

// Sizes returns the supported chunk sizes.
func (p *Pool) Sizes() []int {
	return classSizes[:]
}

// MaxSize returns the largest supported chunk size.
func (p *Pool) MaxSize() int {
	return classSizes[len(classSizes)-1]
}

// ClassFor returns the smallest supported chunk size that fits n bytes.
// The ok result is false when n exceeds the largest class.
func (p *Pool) ClassFor(n int) (size int, ok bool) {
	for _, c := range classSizes {
		if n <= c {
			return c, true
		}
	}
	return 0, false
}

func classIndex(chunkSize int) (int, bool) {
	for i, c := range classSizes {
		if c == chunkSize {
			return i, true
		}
	}
	return 0, false
}

// Get retrieves a chunk of the specified class size.
// It panics if an unsupported size is requested.
func (p *Pool) Get(chunkSize int) []byte {
	i, ok := classIndex(chunkSize)
	if !ok {
		panic(fmt.Sprintf("unsupported chunk size requested: %d", chunkSize))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free[i]) == 0 {
		p.alloc(i, 1)
	}
	n := len(p.free[i]) - 1
	c := p.free[i][n]
	p.free[i] = p.free[i][:n]
	return c
}

// Put returns a chunk to its free list.
// Chunks of unsupported sizes are ignored.
func (p *Pool) Put(c []byte) {
	if c == nil {
		return
	}
	i, ok := classIndex(cap(c))
	if !ok {
		return
	}
	c = c[:cap(c)] // Reset the chunk to its full capacity before returning.

	var toUnmap [][]byte
	p.mu.Lock()
	p.free[i] = append(p.free[i], c)
	p.free[i], toUnmap = trimFreeList(p.free[i], p.freeThresholds[i])
	p.mu.Unlock()

	// Unmap outside of the lock to avoid blocking other operations.
	for _, chunk := range toUnmap {
		p.unmap(chunk)
	}
}

// Allocate ensures at least numChunks free chunks of the given class are
// available, pre-warming the pool. It panics on an unsupported size.
func (p *Pool) Allocate(chunkSize int, numChunks int) {
	if numChunks <= 0 {
		return
	}
	i, ok := classIndex(chunkSize)
	if !ok {
		panic(fmt.Sprintf("unsupported chunk size for pre-allocation: %d", chunkSize))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if n := numChunks - len(p.free[i]); n > 0 {
		p.alloc(i, n)
	}
}

// alloc allocates numChunks free chunks of class i.
// It assumes the caller holds the mutex.
func (p *Pool) alloc(i int, numChunks int) {
	chunkSize := classSizes[i]
	totalAllocSize := chunkSize * numChunks

	// Use unix.Mmap to allocate virtual memory outside the Go heap.
	// This effectively reduces how often the GOGC has to run.
	data, err := unix.Mmap(-1, 0, totalAllocSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		panic(fmt.Errorf("cannot allocate %d bytes via mmap for chunk size %d: %w", totalAllocSize, chunkSize, err))
	}

	for len(data) > 0 {
		p.free[i] = append(p.free[i], data[:chunkSize:chunkSize])
		data = data[chunkSize:]
	}
}

// unmap releases the memory of a chunk back to the operating system.
func (p *Pool) unmap(c []byte) {
	if err := unix.Munmap(c[:cap(c)]); err != nil {
		p.logger.Warn("failed to unmap chunk", zap.Int("size", cap(c)), zap.Error(err))
	}
}

// numFree returns the number of free chunks of a given class.
// It is primarily intended as a helper in tests.
func (p *Pool) numFree(chunkSize int) int {
	i, ok := classIndex(chunkSize)
	if !ok {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[i])
}

// trimFreeList trims the free list if it exceeds the given threshold.
// It returns the updated list and any chunks that were removed and should be unmapped.
func trimFreeList(freeList [][]byte, threshold int) (newList [][]byte, toUnmap [][]byte) {
	if threshold > 0 && len(freeList) > threshold {
		// Release half of the free chunks to prevent thrashing around the threshold.
		n := len(freeList) / 2
		return freeList[n:], freeList[:n]
	}
	return freeList, nil
}
