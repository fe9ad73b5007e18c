// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go convolution, pooling and upsampling
// kernels.
//
// # Overview
//
// This package implements:
//   - Strided 2D convolution via im2col and a BLAS matrix multiply
//   - Max pooling over disjoint tiles or centred windows
//   - Separable bilinear upsampling by an integer factor
//   - The neighbour-offset and origin-mark primitives these are built on
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convkit/backend/cpu"
//	    "github.com/born-ml/convkit/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    img, _ := tensor.NewRaw(tensor.Shape{1, 3, 64, 64}, tensor.Float32)
//	    kernel, _ := tensor.NewRaw(tensor.Shape{16, 3, 3, 3}, tensor.Float32)
//
//	    features, err := backend.Conv2D(img, kernel, [2]int{1, 1})
//	    pooled, err := backend.MaxPool2D(features, [2]int{2, 2})
//	    large, err := backend.Upsample(pooled, 2, nil)
//	}
//
// # Precision
//
// Gather origins are tagged in bit 0 of each float32's bit pattern inside a
// padded scratch copy of the input. Values flowing through Conv2D and
// MaxPool2D therefore have their lowest mantissa bit cleared, which moves
// them by at most one ULP; values whose lowest bit is already zero
// (integers below 2^23, for example) are exact. Caller tensors are never
// modified.
//
// # Performance
//
// Build with -tags netlib (and cgo) to run the matrix multiply on the
// system BLAS. The gather strategy defaults to DefaultStrategy() and can be
// forced with WithStrategy.
//
// # Thread Safety
//
// A Backend reuses its im2col column buffer across calls and must not be
// used from several goroutines at once. Create one Backend per goroutine.
package cpu
