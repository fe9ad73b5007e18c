// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/convkit/internal/tensor"
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType represents runtime type information for tensors.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Uint32  = tensor.Uint32
)

// RawTensor is the low-level tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType()
//   - Zero-copy typed access via AsFloat32(), AsFloat64(), AsInt32(), AsUint32()
//   - A bit-pattern view of float32 storage via Bits()
//   - Deep copies via Clone() and shape views via Reshape()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32()  // Type-safe access
//	clone := raw.Clone()     // Independent copy
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-filled tensor of the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromFloat32 creates a Float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}
