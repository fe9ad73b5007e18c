package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the low-level tensor representation: a contiguous row-major
// byte buffer with a shape and a runtime element type.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// FromFloat32 creates a Float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint32 interprets the data as []uint32.
// Panics if the tensor's dtype is not Uint32.
func (r *RawTensor) AsUint32() []uint32 {
	if r.dtype != Uint32 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint32", r.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*uint32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Bits returns the IEEE-754 bit patterns of a Float32 tensor as a []uint32
// aliasing the same storage. Writes through either view are visible in the
// other. Panics if the tensor's dtype is not Float32.
func (r *RawTensor) Bits() []uint32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("bit view requires float32, tensor dtype is %s", r.dtype))
	}
	//nolint:gosec // float32 and uint32 share size and alignment
	return unsafe.Slice((*uint32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
	}
}

// Reshape returns a view of the same storage with a different shape.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("reshape: incompatible shapes: %v -> %v (different number of elements)", r.shape, shape)
	}
	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
	}, nil
}
