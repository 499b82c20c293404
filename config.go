package transcode

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	KiB = 1024
	MiB = KiB * KiB

	// DefaultPoolSize is the number of reusable output buffer slots.
	DefaultPoolSize = 32

	// DefaultMaxCacheSize bounds the number of cached conversion descriptors.
	DefaultMaxCacheSize = 128

	// DefaultMinBufferSize is the smallest initial output buffer capacity.
	DefaultMinBufferSize = 4096

	// DefaultMaxBufferSize is the hard ceiling for output buffer growth.
	// A conversion whose output cannot fit fails with BufferTooSmall.
	DefaultMaxBufferSize = 10 * MiB

	// DefaultMaxIterations bounds the number of transcode loop rounds per call.
	// Exceeding it is reported as InternalError.
	DefaultMaxIterations = 100
)

type Config struct {
	// PoolSize is the number of shared output buffer slots. Callers beyond
	// this many concurrent conversions fall back to private buffers.
	PoolSize int

	// MaxCacheSize bounds the descriptor cache. On overflow the
	// oldest-inserted half of the affected shard is evicted in one batch.
	MaxCacheSize int

	// MinBufferSize is the floor for the initial output buffer capacity.
	MinBufferSize int

	// MaxBufferSize is the output buffer growth ceiling.
	MaxBufferSize int

	// MaxIterations bounds transcode loop rounds per conversion.
	MaxIterations int

	// Registry resolves encoding names to codecs. Nil selects the default
	// registry backed by golang.org/x/text.
	Registry Registry

	// Logger receives engine diagnostics. Nil disables logging.
	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		PoolSize:      DefaultPoolSize,
		MaxCacheSize:  DefaultMaxCacheSize,
		MinBufferSize: DefaultMinBufferSize,
		MaxBufferSize: DefaultMaxBufferSize,
		MaxIterations: DefaultMaxIterations,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.PoolSize <= 0 {
		errs = append(errs, errors.New("invalid config: PoolSize must be positive"))
	}
	if c.MaxCacheSize < cacheShardCount {
		errs = append(errs, fmt.Errorf("invalid config: MaxCacheSize must be at least %d", cacheShardCount))
	}
	if c.MinBufferSize <= 0 {
		errs = append(errs, errors.New("invalid config: MinBufferSize must be positive"))
	}
	if c.MaxBufferSize < c.MinBufferSize {
		errs = append(errs, errors.New("invalid config: MaxBufferSize must be >= MinBufferSize"))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, errors.New("invalid config: MaxIterations must be positive"))
	}
	return errors.Join(errs...)
}
