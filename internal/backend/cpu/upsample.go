package cpu

import (
	"fmt"
	"math"
	"time"

	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/internal/tensor"
)

// Upsample enlarges the two trailing axes by an integer factor with bilinear
// interpolation (align_corners=false). Leading axes are independent planes.
//
// Input shape:  [..., H, W]
// Output shape: [..., H*factor, W*factor]
//
// Output pixel centres map back to source coordinates clamped to the source
// extent, so border pixels replicate the edge value instead of extrapolating.
// The interpolation runs as two separable passes: rows first, at source column
// resolution, then columns.
//
// If out is nil a new tensor is allocated; otherwise out must be a float32
// tensor of the output shape and is overwritten.
func (cpu *CPUBackend) Upsample(input *tensor.RawTensor, factor int, out *tensor.RawTensor) (*tensor.RawTensor, error) {
	if input.DType() != tensor.Float32 {
		return nil, fmt.Errorf("upsample: %w: got %s", ErrPrecision, input.DType())
	}
	if factor <= 0 {
		return nil, fmt.Errorf("upsample: %w: invalid factor %d", ErrShape, factor)
	}
	shape := input.Shape()
	planes, H, W, ok := shape.Spatial()
	if !ok {
		return nil, fmt.Errorf("upsample: %w: input must be at least 2D, got %dD", ErrShape, len(shape))
	}

	HOut, WOut := H*factor, W*factor
	outShape := append(shape[:len(shape)-2].Clone(), HOut, WOut)
	if out == nil {
		var err error
		if out, err = tensor.NewRaw(outShape, tensor.Float32); err != nil {
			return nil, fmt.Errorf("upsample: failed to create output: %w", err)
		}
	} else {
		if out.DType() != tensor.Float32 {
			return nil, fmt.Errorf("upsample: %w: output is %s", ErrPrecision, out.DType())
		}
		if !out.Shape().Equal(outShape) {
			return nil, fmt.Errorf("upsample: %w: output shape %v, want %v", ErrShape, out.Shape(), outShape)
		}
	}

	defer cpu.observe("upsample", time.Now())

	rows := bilinearAxis(H, factor)
	cols := bilinearAxis(W, factor)
	src := input.AsFloat32()
	dst := out.AsFloat32()

	parallel.For(planes, func(p int) {
		resizePlane(src[p*H*W:(p+1)*H*W], dst[p*HOut*WOut:(p+1)*HOut*WOut], W, rows, cols)
	}, cpu.par)

	return out, nil
}

// axisWeights holds, for every output index along one axis, the two source
// indices it blends and the weight of the second one.
type axisWeights struct {
	lo, hi []int
	frac   []float32
}

// bilinearAxis computes the source sampling positions for an axis of extent n
// enlarged by k. Output i samples source coordinate -0.5 + 0.5/k + i/k,
// clamped to [0, n-1]. The lower index is clamped to [0, n-2] so hi = lo+1
// stays in range; for n == 1 both indices are 0.
func bilinearAxis(n, k int) axisWeights {
	w := axisWeights{
		lo:   make([]int, n*k),
		hi:   make([]int, n*k),
		frac: make([]float32, n*k),
	}
	for i := range w.lo {
		// -0.5 + 0.5/k + i/k, computed exactly when it lands on an integer.
		coord := float64(2*i+1-k) / float64(2*k)
		coord = min(max(coord, 0), float64(n-1))
		lo := min(int(math.Floor(coord)), max(n-2, 0))
		w.lo[i] = lo
		w.hi[i] = min(lo+1, n-1)
		w.frac[i] = float32(coord - float64(lo))
	}
	return w
}

// resizePlane interpolates one [H, W] plane into dst [H*k, W*k].
func resizePlane(src, dst []float32, W int, rows, cols axisWeights) {
	WOut := len(cols.lo)

	// Pass 1: blend source rows, keeping source column resolution.
	tmp := make([]float32, len(rows.lo)*W)
	for r := range rows.lo {
		a := src[rows.lo[r]*W : (rows.lo[r]+1)*W]
		b := src[rows.hi[r]*W : (rows.hi[r]+1)*W]
		fb := rows.frac[r]
		fa := 1 - fb
		row := tmp[r*W : (r+1)*W]
		for c := range row {
			row[c] = a[c]*fa + b[c]*fb
		}
	}

	// Pass 2: blend the intermediate columns.
	for r := range rows.lo {
		row := tmp[r*W : (r+1)*W]
		out := dst[r*WOut : (r+1)*WOut]
		for c := range out {
			fb := cols.frac[c]
			out[c] = row[cols.lo[c]]*(1-fb) + row[cols.hi[c]]*fb
		}
	}
}
