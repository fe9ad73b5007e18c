// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/convkit/internal/backend/cpu"
	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/tensor"
	"github.com/rs/zerolog"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Strategy selects how the gather kernels walk the marked buffer.
type Strategy = internalcpu.Strategy

// Gather strategies. Both produce bit-identical results.
const (
	StrategyScalar = internalcpu.StrategyScalar
	StrategyBatch  = internalcpu.StrategyBatch
)

// ParallelConfig controls plane-level parallelism in Upsample.
type ParallelConfig = parallel.Config

// Errors returned by the kernels; match with errors.Is.
var (
	ErrShape          = internalcpu.ErrShape
	ErrPrecision      = internalcpu.ErrPrecision
	ErrBufferTooSmall = internalcpu.ErrBufferTooSmall
)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New(cpu.WithStrategy(cpu.StrategyScalar))
//	out, err := backend.Conv2D(img, kernel, [2]int{2, 2})
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithStrategy selects the gather kernel strategy.
func WithStrategy(s Strategy) Option {
	return internalcpu.WithStrategy(s)
}

// WithLogger sets the logger used for buffer and invariant events.
func WithLogger(l zerolog.Logger) Option {
	return internalcpu.WithLogger(l)
}

// WithParallel enables plane-level parallelism in Upsample.
func WithParallel(cfg ParallelConfig) Option {
	return internalcpu.WithParallel(cfg)
}

// DefaultParallelConfig returns a parallel config sized to the CPU count.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// DefaultStrategy returns the gather strategy New uses when none is given.
func DefaultStrategy() Strategy {
	return internalcpu.DefaultStrategy()
}

// ParseStrategy maps "scalar" or "batch" to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	return internalcpu.ParseStrategy(name)
}

// NeighborOffsets returns the linear offsets of every window cell relative
// to its origin in a row-major buffer of the given shape. See the internal
// documentation of Conv2D for how the convolution uses it.
//
// Example:
//
//	offs, _ := cpu.NeighborOffsets(tensor.Shape{1, 5, 5}, tensor.Shape{1, 3, 3}, []int{0, 1, 1})
//	// offs == [-6 -5 -4 -1 0 1 4 5 6]
func NeighborOffsets(shape, window tensor.Shape, scale []int) ([]int, error) {
	return internalcpu.NeighborOffsets(shape, window, scale)
}

// ClearMarks clears the origin mark (bit 0) of every element of a float32
// bit view, as returned by RawTensor.Bits.
func ClearMarks(bits []uint32) {
	internalcpu.ClearMarks(bits)
}

// MarkStrided marks every coordinate start[a] + k*step[a] below limit[a].
func MarkStrided(bits []uint32, shape tensor.Shape, start, step, limit []int) error {
	return internalcpu.MarkStrided(bits, shape, start, step, limit)
}

// IsMarked reports whether a bit pattern carries the origin mark.
func IsMarked(v uint32) bool {
	return internalcpu.IsMarked(v)
}
