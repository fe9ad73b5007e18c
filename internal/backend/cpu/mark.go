package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// markBit is the low mantissa bit of a float32 bit pattern. A marked buffer
// holds 1 there for every gather origin and 0 everywhere else.
//
// Precision contract: marking moves a value by at most one ULP toward or away
// from zero. Every value the gather kernels emit has the bit cleared again, so
// outputs see clear(x) for each input x, which equals x whenever x's lowest
// mantissa bit is already zero (integers below 2^23, zero, padding).
const markBit = 1

// IsMarked reports whether a bit pattern carries the origin mark.
func IsMarked(v uint32) bool {
	return v&markBit != 0
}

// ClearMarks clears the origin mark of every element.
func ClearMarks(bits []uint32) {
	for i := range bits {
		bits[i] &^= markBit
	}
}

// MarkStrided sets the origin mark at every coordinate start[a] + k*step[a]
// below limit[a] on every axis a of a row-major buffer of the given shape.
// Marks already present are left untouched.
func MarkStrided(bits []uint32, shape tensor.Shape, start, step, limit []int) error {
	n := len(shape)
	if len(start) != n || len(step) != n || len(limit) != n {
		return fmt.Errorf("mark: %w: start/step/limit must have %d axes", ErrShape, n)
	}
	if len(bits) != shape.NumElements() {
		return fmt.Errorf("mark: %w: %d elements for shape %v", ErrShape, len(bits), shape)
	}
	for a := 0; a < n; a++ {
		if step[a] <= 0 || start[a] < 0 || limit[a] > shape[a] {
			return fmt.Errorf("mark: %w: axis %d start=%d step=%d limit=%d extent=%d",
				ErrShape, a, start[a], step[a], limit[a], shape[a])
		}
		if start[a] >= limit[a] {
			return nil // empty grid
		}
	}

	strides := shape.ComputeStrides()
	idx := append([]int(nil), start...)
	lin := 0
	for a := range idx {
		lin += idx[a] * strides[a]
	}

	for {
		bits[lin] |= markBit

		axis := n - 1
		for ; axis >= 0; axis-- {
			idx[axis] += step[axis]
			lin += step[axis] * strides[axis]
			if idx[axis] < limit[axis] {
				break
			}
			lin -= (idx[axis] - start[axis]) * strides[axis]
			idx[axis] = start[axis]
		}
		if axis < 0 {
			return nil
		}
	}
}

// CountMarks returns the number of marked elements.
func CountMarks(bits []uint32) int {
	n := 0
	for _, v := range bits {
		n += int(v & markBit)
	}
	return n
}
