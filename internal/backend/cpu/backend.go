// Package cpu implements the im2col convolution, max-pooling and bilinear
// upsampling kernels on the CPU.
package cpu

import (
	"time"

	"github.com/born-ml/convkit/internal/parallel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CPUBackend owns the scratch state shared by successive kernel calls.
//
// A CPUBackend is not safe for concurrent use: the column buffer is reused
// across Conv2D calls. Give each goroutine its own backend.
type CPUBackend struct {
	strategy Strategy
	par      parallel.Config
	logger   zerolog.Logger
	cols     *ColumnBuffer
}

// Option configures a CPUBackend.
type Option func(*backendOptions)

type backendOptions struct {
	strategy Strategy
	par      parallel.Config
	logger   *zerolog.Logger
}

// WithStrategy selects the gather kernel strategy.
func WithStrategy(s Strategy) Option {
	return func(o *backendOptions) {
		o.strategy = s
	}
}

// WithLogger sets the logger used for buffer and invariant events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *backendOptions) {
		o.logger = &l
	}
}

// WithParallel enables plane-level parallelism in Upsample.
func WithParallel(cfg parallel.Config) Option {
	return func(o *backendOptions) {
		o.par = cfg
	}
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	options := &backendOptions{
		strategy: DefaultStrategy(),
		par:      parallel.Sequential(),
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := log.Logger
	if options.logger != nil {
		logger = *options.logger
	}
	logger = logger.With().Str("component", "cpu").Logger()

	return &CPUBackend{
		strategy: options.strategy,
		par:      options.par,
		logger:   logger,
		cols:     NewColumnBuffer(logger),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Strategy returns the gather strategy in use.
func (cpu *CPUBackend) Strategy() Strategy {
	return cpu.strategy
}

// Columns exposes the backend's column buffer.
func (cpu *CPUBackend) Columns() *ColumnBuffer {
	return cpu.cols
}

// observe records the duration of one driver call.
func (cpu *CPUBackend) observe(op string, start time.Time) {
	OpDuration.WithLabelValues(op, cpu.strategy.String()).Observe(time.Since(start).Seconds())
}
