// Package asynclog provides a non-blocking log sink: writes are queued and
// drained by a background goroutine so logging never stalls a conversion
// call. When the queue is full the oldest pending entry is dropped and
// counted rather than blocking the writer.
package asynclog

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultMaxPending is the default bound on queued log entries.
const DefaultMaxPending = 4096

// Sink is an asynchronous zapcore.WriteSyncer. Write enqueues a copy of the
// entry and returns immediately; a background goroutine performs the actual
// writes in order.
type Sink struct {
	mu         sync.Mutex
	cond       *sync.Cond
	pending    *queue.Queue
	maxPending int
	inFlight   bool // writer goroutine is outside the lock writing an entry
	closed     bool

	out     zapcore.WriteSyncer
	dropped atomic.Uint64
	done    chan struct{}
}

// NewSink wraps out in an asynchronous sink holding at most maxPending
// entries. A maxPending <= 0 selects DefaultMaxPending.
func NewSink(out zapcore.WriteSyncer, maxPending int) *Sink {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	s := &Sink{
		pending:    queue.New(),
		maxPending: maxPending,
		out:        out,
		done:       make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.drain()
	return s
}

// Write queues a copy of p for the background writer. It never blocks: when
// the queue is full the oldest pending entry is dropped and counted.
func (s *Sink) Write(p []byte) (int, error) {
	entry := make([]byte, len(p))
	copy(entry, p)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return len(p), nil
	}
	if s.pending.Length() >= s.maxPending {
		s.pending.Remove()
		s.dropped.Add(1)
	}
	s.pending.Add(entry)
	s.mu.Unlock()
	s.cond.Broadcast()
	return len(p), nil
}

// Sync blocks until every queued entry has been written, then syncs the
// underlying writer.
func (s *Sink) Sync() error {
	s.mu.Lock()
	for s.pending.Length() > 0 || s.inFlight {
		s.cond.Wait()
	}
	s.mu.Unlock()
	return s.out.Sync()
}

// Close flushes queued entries, stops the background writer and syncs the
// underlying writer. The sink discards writes after Close.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	<-s.done
	return s.out.Sync()
}

// Dropped returns the number of entries discarded due to queue overflow.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// drain is the background writer loop. It pops one entry at a time so the
// lock is never held across a write.
func (s *Sink) drain() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.pending.Length() == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.cond.Wait()
		}
		entry := s.pending.Remove().([]byte)
		s.inFlight = true
		s.mu.Unlock()

		s.out.Write(entry) //nolint:errcheck // nowhere to report; entry is dropped

		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		s.cond.Broadcast()
	}
}

// New builds a production-encoded zap logger writing to path through an
// asynchronous sink. The returned close function flushes and stops the sink.
func New(path string, maxPending int) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	sink := NewSink(zapcore.Lock(f), maxPending)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		zap.InfoLevel,
	)
	logger := zap.New(core)
	closeFn := func() error {
		err := sink.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return logger, closeFn, nil
}
