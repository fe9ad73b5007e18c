package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N)
// Float32 runs on blas32, Float64 on blas64; build with -tags netlib to route
// both through the system BLAS.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, fmt.Errorf("matmul: %w: only 2D tensors supported, got %dD and %dD", ErrShape, len(aShape), len(bShape))
	}
	if a.DType() != b.DType() {
		return nil, fmt.Errorf("matmul: %w: dtype mismatch %s @ %s", ErrShape, a.DType(), b.DType())
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		return nil, fmt.Errorf("matmul: %w: [%d,%d] @ [%d,%d]", ErrShape, m, k, kAlt, n)
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType())
	if err != nil {
		return nil, fmt.Errorf("matmul: %w", err)
	}

	switch a.DType() {
	case tensor.Float32:
		sgemm(blas.NoTrans, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: k, Stride: k, Data: a.AsFloat64()},
			blas64.General{Rows: k, Cols: n, Stride: n, Data: b.AsFloat64()},
			0,
			blas64.General{Rows: m, Cols: n, Stride: n, Data: result.AsFloat64()})
	default:
		return nil, fmt.Errorf("matmul: %w: unsupported dtype %s", ErrPrecision, a.DType())
	}

	return result, nil
}

// sgemm computes c[m,n] = a[m,k] @ op(b), where op(b) is b[k,n] for NoTrans
// and the transpose of a row-major b[n,k] for Trans.
func sgemm(tb blas.Transpose, c, a, b []float32, m, k, n int) {
	bm := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	if tb == blas.Trans {
		bm = blas32.General{Rows: n, Cols: k, Stride: k, Data: b}
	}
	blas32.Gemm(blas.NoTrans, tb, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		bm,
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}
