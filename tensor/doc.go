// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the raw float32 tensors consumed by the convkit
// kernels.
//
// # Overview
//
// A RawTensor is a contiguous, row-major buffer with a Shape and a runtime
// DataType. Images are laid out as [batch, channels, height, width].
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convkit/backend/cpu"
//	    "github.com/born-ml/convkit/tensor"
//	)
//
//	func main() {
//	    img, _ := tensor.FromFloat32(pixels, tensor.Shape{1, 3, 224, 224})
//	    pooled, err := cpu.New().MaxPool2D(img, [2]int{2, 2})
//	}
//
// # Supported Data Types
//
// The kernels operate on Float32 only; Float64, Int32 and Uint32 tensors
// can be created and viewed but are rejected by the drivers.
package tensor
