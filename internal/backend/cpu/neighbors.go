package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// NeighborOffsets returns the linear-memory displacement of every cell of a
// window relative to its origin, for a row-major buffer of the given shape.
//
// Cells are enumerated in row-major window order, which is the order Conv2D
// relies on to match the kernel's [C_in, K_h, K_w] flattening. scale[i] is 0
// to anchor axis i at the window's first cell, or 1 to centre it at
// window[i]/2. Centring uses floor division, so an even extent reaches one
// cell further toward lower indices: extent 4 spans offsets -2..1.
// A nil scale anchors every axis.
//
// Example, shape [1, 5, 5], window [1, 3, 3], scale [0, 1, 1]:
//
//	[-6 -5 -4 -1 0 1 4 5 6]
func NeighborOffsets(shape, window tensor.Shape, scale []int) ([]int, error) {
	if len(shape) != len(window) {
		return nil, fmt.Errorf("neighbors: %w: shape %v and window %v differ in rank", ErrShape, shape, window)
	}
	if scale == nil {
		scale = make([]int, len(window))
	}
	if len(scale) != len(window) {
		return nil, fmt.Errorf("neighbors: %w: %d scales for %dD window", ErrShape, len(scale), len(window))
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("neighbors: %w: %v", ErrShape, err)
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("neighbors: %w: %v", ErrShape, err)
	}

	strides := shape.ComputeStrides()
	origin := 0
	for axis, s := range scale {
		if s != 0 && s != 1 {
			return nil, fmt.Errorf("neighbors: %w: scale %d on axis %d (must be 0 or 1)", ErrShape, s, axis)
		}
		origin += window[axis] / 2 * s * strides[axis]
	}

	offsets := make([]int, window.NumElements())
	idx := make([]int, len(window))
	lin := 0 // linear offset of idx from the window's first cell
	for i := range offsets {
		offsets[i] = lin - origin

		// Advance the row-major counter, carrying into slower axes.
		for axis := len(window) - 1; axis >= 0; axis-- {
			idx[axis]++
			lin += strides[axis]
			if idx[axis] < window[axis] {
				break
			}
			lin -= idx[axis] * strides[axis]
			idx[axis] = 0
		}
	}
	return offsets, nil
}
