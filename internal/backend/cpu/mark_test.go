package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/convkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClearMarks tests that clearing only touches bit 0.
func TestClearMarks(t *testing.T) {
	bits := []uint32{0, 1, 2, 3, 0xFFFFFFFF, math.Float32bits(1.0)}
	ClearMarks(bits)
	assert.Equal(t, []uint32{0, 0, 2, 2, 0xFFFFFFFE, math.Float32bits(1.0)}, bits)
	assert.Equal(t, 0, CountMarks(bits))
}

// TestClearMarks_Precision tests the one-ULP precision contract.
func TestClearMarks_Precision(t *testing.T) {
	values := []float32{0, 1, -1, 0.1, -0.3, 3.14159, 1e-30, -7e20, 5.0, 255}
	bits := make([]uint32, len(values))
	for i, v := range values {
		bits[i] = math.Float32bits(v)
	}
	ClearMarks(bits)
	for i, v := range values {
		got := math.Float32frombits(bits[i])
		assert.LessOrEqual(t, ulpDistance(v, got), uint32(1), "value %v", v)
		if math.Float32bits(v)&1 == 0 {
			assert.Equal(t, v, got, "value %v with clear low bit must be exact", v)
		}
	}
}

// TestMarkStrided_ConvolutionOrigins tests channel-0-only marking with a
// spatial stride on a padded buffer.
func TestMarkStrided_ConvolutionOrigins(t *testing.T) {
	// [N=2, C=2, H=4+2, W=4+2] padded by one on each side.
	shape := tensor.Shape{2, 2, 6, 6}
	bits := make([]uint32, shape.NumElements())

	err := MarkStrided(bits, shape,
		[]int{0, 0, 1, 1},
		[]int{1, 1, 2, 2},
		[]int{2, 1, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, 2*2*2, CountMarks(bits))

	strides := shape.ComputeStrides()
	for n := 0; n < 2; n++ {
		for _, h := range []int{1, 3} {
			for _, w := range []int{1, 3} {
				idx := n*strides[0] + h*strides[2] + w
				assert.True(t, IsMarked(bits[idx]), "n=%d h=%d w=%d", n, h, w)
			}
		}
	}
	// Channel 1 is never marked.
	for n := 0; n < 2; n++ {
		for i := 0; i < 36; i++ {
			assert.False(t, IsMarked(bits[n*strides[0]+strides[1]+i]))
		}
	}
}

// TestMarkStrided_EveryChannel tests pool-style marking on all channels.
func TestMarkStrided_EveryChannel(t *testing.T) {
	shape := tensor.Shape{1, 3, 4, 4}
	bits := make([]uint32, shape.NumElements())

	err := MarkStrided(bits, shape, []int{0, 0, 0, 0}, []int{1, 1, 2, 2}, []int{1, 3, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, 3*4, CountMarks(bits))
	for c := 0; c < 3; c++ {
		assert.True(t, IsMarked(bits[c*16+0]))
		assert.True(t, IsMarked(bits[c*16+2]))
		assert.True(t, IsMarked(bits[c*16+8]))
		assert.True(t, IsMarked(bits[c*16+10]))
		assert.False(t, IsMarked(bits[c*16+1]))
	}
}

// TestMarkStrided_PreservesValues tests that marking only sets bit 0.
func TestMarkStrided_PreservesValues(t *testing.T) {
	shape := tensor.Shape{2, 3}
	bits := []uint32{
		math.Float32bits(2), math.Float32bits(4), math.Float32bits(6),
		math.Float32bits(8), math.Float32bits(10), math.Float32bits(12),
	}
	require.NoError(t, MarkStrided(bits, shape, []int{0, 0}, []int{1, 2}, []int{2, 3}))

	for i, v := range []float32{2, 4, 6, 8, 10, 12} {
		assert.Equal(t, v, unmark(bits[i]))
	}
	assert.Equal(t, 4, CountMarks(bits))
}

// TestMarkStrided_Errors tests argument validation.
func TestMarkStrided_Errors(t *testing.T) {
	shape := tensor.Shape{4, 4}
	bits := make([]uint32, 16)

	tests := []struct {
		name               string
		bits               []uint32
		start, step, limit []int
	}{
		{"RankMismatch", bits, []int{0}, []int{1, 1}, []int{4, 4}},
		{"ZeroStep", bits, []int{0, 0}, []int{0, 1}, []int{4, 4}},
		{"NegativeStart", bits, []int{-1, 0}, []int{1, 1}, []int{4, 4}},
		{"LimitPastExtent", bits, []int{0, 0}, []int{1, 1}, []int{5, 4}},
		{"ShortBuffer", bits[:15], []int{0, 0}, []int{1, 1}, []int{4, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MarkStrided(tt.bits, shape, tt.start, tt.step, tt.limit)
			require.ErrorIs(t, err, ErrShape)
		})
	}

	// An empty grid is valid and marks nothing.
	require.NoError(t, MarkStrided(bits, shape, []int{2, 0}, []int{1, 1}, []int{2, 4}))
	assert.Equal(t, 0, CountMarks(bits))
}
