// Package transcode implements a concurrent text-encoding conversion engine.
// It caches conversion descriptors per encoding pair, reuses output buffers
// across calls through a wait-free pool, and wraps the codec primitive in a
// grow-and-retry loop so undersized buffers cost a retry, never data loss.
package transcode

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/text/transform"

	"github.com/holmberd/go-transcode/internal/slab"
)

type convState int

const (
	stateConverting convState = iota // Feeding input through the transformer.
	stateGrowBuffer                  // Output buffer was too small; doubling it.
	stateFlushing                    // Input consumed; draining residual shift state.
	stateDone
	stateFailed
)

func (s convState) String() string {
	switch s {
	case stateConverting:
		return "converting"
	case stateGrowBuffer:
		return "growBuffer"
	case stateFlushing:
		return "flushing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("convState(%d)", int(s))
	}
}

// Engine converts byte buffers between character encodings. It is safe for
// concurrent use; parallelism exists only across calls, each of which runs to
// completion on the calling goroutine.
type Engine struct {
	cfg    Config
	logger *zap.Logger
	cache  *descriptorCache
	pool   *BufferPool
	chunks *slab.Pool

	totalConversions atomic.Uint64
}

// New creates an engine with the default configuration.
func New() *Engine {
	e, err := NewWithConfig(DefaultConfig())
	if err != nil {
		// DefaultConfig always validates; reaching here is a programmer error.
		panic(fmt.Errorf("internal error: %w", err))
	}
	return e
}

// NewWithConfig creates an engine with a custom configuration.
func NewWithConfig(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	chunks := slab.NewPool(slab.Config{
		FreeThresholds: slab.DefaultConfig().FreeThresholds,
		Logger:         logger,
	})
	return &Engine{
		cfg:    cfg,
		logger: logger,
		cache:  newDescriptorCache(registry, cfg.MaxCacheSize, logger),
		pool:   newBufferPool(cfg.PoolSize, chunks),
		chunks: chunks,
	}, nil
}

// Close drops all cached descriptors. Conversions already in flight complete
// normally; the engine remains usable, re-opening descriptors on demand.
func (e *Engine) Close() {
	e.cache.clear()
}

// Convert transcodes input from one encoding to another. The returned result
// carries either the complete converted bytes or an error code; output is
// all-or-nothing, partial conversions are never returned.
func (e *Engine) Convert(input []byte, fromEncoding, toEncoding string) BytesResult {
	return e.convert(input, fromEncoding, toEncoding, 0)
}

// ConvertWithSizeHint is Convert with an explicit initial output buffer size,
// bypassing the per-pair estimation heuristic. The hint is only a hint:
// undersizing costs an extra grow-and-retry round, never data loss.
func (e *Engine) ConvertWithSizeHint(input []byte, fromEncoding, toEncoding string, sizeHint int) BytesResult {
	return e.convert(input, fromEncoding, toEncoding, sizeHint)
}

// ConvertBatch transcodes several inputs sharing one encoding pair, resolving
// the conversion descriptor once. Results are positional; each input succeeds
// or fails independently.
func (e *Engine) ConvertBatch(inputs [][]byte, fromEncoding, toEncoding string) []BytesResult {
	results := make([]BytesResult, 0, len(inputs))
	if fromEncoding == "" || toEncoding == "" {
		for range inputs {
			results = append(results, FailBytes(InvalidParameter))
		}
		return results
	}

	d, err := e.cache.get(fromEncoding, toEncoding)
	if err != nil {
		code := e.classifyOpenError(err)
		for range inputs {
			e.totalConversions.Add(1)
			results = append(results, FailBytes(code))
		}
		return results
	}

	for _, input := range inputs {
		e.totalConversions.Add(1)
		if len(input) == 0 {
			results = append(results, OkBytes([]byte{}))
			continue
		}
		results = append(results, e.run(d, input, e.initialBufferSize(len(input), fromEncoding, toEncoding)))
	}
	return results
}

func (e *Engine) convert(input []byte, fromEncoding, toEncoding string, sizeHint int) BytesResult {
	e.totalConversions.Add(1)

	if fromEncoding == "" || toEncoding == "" {
		return FailBytes(InvalidParameter)
	}
	if len(input) == 0 {
		// No descriptor lookup needed.
		return OkBytes([]byte{})
	}

	d, err := e.cache.get(fromEncoding, toEncoding)
	if err != nil {
		return FailBytes(e.classifyOpenError(err))
	}

	initial := sizeHint
	if initial <= 0 {
		initial = e.initialBufferSize(len(input), fromEncoding, toEncoding)
	}
	if initial > e.cfg.MaxBufferSize {
		initial = e.cfg.MaxBufferSize
	}
	return e.run(d, input, initial)
}

// run drives the chunked transcode loop over a leased output buffer.
func (e *Engine) run(d *descriptor, input []byte, initialSize int) BytesResult {
	lease := e.pool.Acquire(initialSize)
	defer lease.Release()
	buf := lease.Buffer()

	// The transformer retains shift state between calls for some multi-byte
	// encodings; serialize its use and reset leftover state from the
	// previous conversion.
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tr.Reset()

	var (
		src    = input
		state  = stateConverting
		resume = stateConverting
		code   ErrorCode
	)
	for iters := 0; state != stateDone && state != stateFailed; iters++ {
		if iters >= e.cfg.MaxIterations {
			// Defensive bound against a pathological input/codec interaction.
			e.logger.Warn("transcode loop exceeded iteration cap",
				zap.Int("cap", e.cfg.MaxIterations), zap.Stringer("state", state))
			code = InternalError
			state = stateFailed
			break
		}

		switch state {
		case stateConverting:
			nDst, nSrc, terr := d.tr.Transform(buf.writable(), src, true)
			// Keep partial progress before inspecting the status: bytes
			// produced alongside a short-buffer condition must not be lost.
			buf.commit(nDst)
			src = src[nSrc:]
			switch {
			case terr == nil:
				if len(src) == 0 {
					state = stateFlushing
				}
			case errors.Is(terr, transform.ErrShortDst):
				resume = stateConverting
				state = stateGrowBuffer
			case errors.Is(terr, transform.ErrShortSrc):
				code = IncompleteSequence
				state = stateFailed
			default:
				code = InvalidSequence
				state = stateFailed
			}

		case stateGrowBuffer:
			if !e.grow(buf) {
				code = BufferTooSmall
				state = stateFailed
				break
			}
			state = resume

		case stateFlushing:
			// One more call with no input drains residual shift state.
			nDst, _, terr := d.tr.Transform(buf.writable(), nil, true)
			buf.commit(nDst)
			switch {
			case terr == nil:
				state = stateDone
			case errors.Is(terr, transform.ErrShortDst):
				resume = stateFlushing
				state = stateGrowBuffer
			case errors.Is(terr, transform.ErrShortSrc):
				code = IncompleteSequence
				state = stateFailed
			default:
				code = InvalidSequence
				state = stateFailed
			}
		}
	}

	if state == stateFailed {
		// All-or-nothing: accumulated output is discarded with the lease.
		return FailBytes(code)
	}

	out := make([]byte, buf.len())
	copy(out, buf.bytes())
	return OkBytes(out)
}

// grow doubles the buffer capacity, clamped to the configured ceiling.
// Returns false when the ceiling has already been reached.
func (e *Engine) grow(buf *outputBuffer) bool {
	if buf.cap() >= e.cfg.MaxBufferSize {
		return false
	}
	next := min(buf.cap()*2, e.cfg.MaxBufferSize)
	buf.ensure(next, e.chunks)
	return true
}

func (e *Engine) classifyOpenError(err error) ErrorCode {
	var le *LookupError
	if errors.As(err, &le) {
		e.logger.Debug("encoding lookup failed", zap.String("name", le.Name), zap.Bool("target", le.Target))
		if le.Target {
			return InvalidTargetEncoding
		}
		return InvalidSourceEncoding
	}
	e.logger.Debug("descriptor open failed", zap.Error(err))
	return ConversionFailed
}

// initialBufferSize estimates the output capacity for a conversion. Only a
// hint: undersizing costs a grow-and-retry round trip, never correctness.
func (e *Engine) initialBufferSize(inputSize int, fromEncoding, toEncoding string) int {
	estimated := int(float64(inputSize) * sizeMultiplier(fromEncoding, toEncoding))
	n := max(e.cfg.MinBufferSize, estimated)
	return min(n, e.cfg.MaxBufferSize)
}

// sizeMultiplier returns the expected output/input size ratio for a pair.
func sizeMultiplier(fromEncoding, toEncoding string) float64 {
	from := normalizeEncodingName(fromEncoding)
	to := normalizeEncodingName(toEncoding)
	switch {
	case strings.Contains(to, "UTF-32") || strings.Contains(to, "UTF32") || strings.Contains(to, "UCS-4"):
		// Narrow encodings widen up to fourfold.
		return 4
	case strings.Contains(to, "UTF-16") || strings.Contains(to, "UTF16") || strings.Contains(to, "UCS-2"):
		if strings.Contains(from, "UTF-16") || strings.Contains(from, "UTF16") {
			return 1.1
		}
		return 2
	case from == to:
		return 1.1
	case strings.Contains(from, "UTF-16") || strings.Contains(from, "UTF16"):
		// Two-byte units can widen to three-byte UTF-8 sequences.
		return 1.5
	default:
		return 1.8
	}
}
