package cpu

import (
	"testing"

	"github.com/born-ml/convkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNeighborOffsets tests offset sets against hand-computed layouts.
func TestNeighborOffsets(t *testing.T) {
	tests := []struct {
		name   string
		shape  tensor.Shape
		window tensor.Shape
		scale  []int
		want   []int
	}{
		{
			name:   "SingleCell",
			shape:  tensor.Shape{1, 1, 1},
			window: tensor.Shape{1, 1, 1},
			scale:  []int{0, 1, 1},
			want:   []int{0},
		},
		{
			name:   "Centred3x3",
			shape:  tensor.Shape{1, 5, 5},
			window: tensor.Shape{1, 3, 3},
			scale:  []int{0, 1, 1},
			want:   []int{-6, -5, -4, -1, 0, 1, 4, 5, 6},
		},
		{
			name:   "Anchored3x3",
			shape:  tensor.Shape{1, 5, 5},
			window: tensor.Shape{1, 3, 3},
			scale:  nil,
			want:   []int{0, 1, 2, 5, 6, 7, 10, 11, 12},
		},
		{
			name:   "AnchoredPoolTile",
			shape:  tensor.Shape{3, 4, 6},
			window: tensor.Shape{1, 2, 2},
			scale:  []int{0, 0, 0},
			want:   []int{0, 1, 6, 7},
		},
		{
			// The channel axis is swept from the origin's channel, spatial
			// axes are centred.
			name:   "ChannelSweep",
			shape:  tensor.Shape{2, 4, 4},
			window: tensor.Shape{2, 3, 1},
			scale:  []int{0, 1, 1},
			want:   []int{-4, 0, 4, 12, 16, 20},
		},
		{
			// Floor division: extent 4 centres on index 2.
			name:   "EvenExtent",
			shape:  tensor.Shape{10},
			window: tensor.Shape{4},
			scale:  []int{1},
			want:   []int{-2, -1, 0, 1},
		},
		{
			name:   "EvenExtentTwo",
			shape:  tensor.Shape{10},
			window: tensor.Shape{2},
			scale:  []int{1},
			want:   []int{-1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NeighborOffsets(tt.shape, tt.window, tt.scale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNeighborOffsets_MatchesKernelFlattening tests that the k-th offset
// addresses the cell kernel[c, kh, kw] with k = (c*KH + kh)*KW + kw.
func TestNeighborOffsets_MatchesKernelFlattening(t *testing.T) {
	C, HP, WP := 3, 9, 11
	KH, KW := 5, 3
	offsets, err := NeighborOffsets(tensor.Shape{C, HP, WP}, tensor.Shape{C, KH, KW}, []int{0, 1, 1})
	require.NoError(t, err)
	require.Len(t, offsets, C*KH*KW)

	for c := 0; c < C; c++ {
		for kh := 0; kh < KH; kh++ {
			for kw := 0; kw < KW; kw++ {
				k := (c*KH+kh)*KW + kw
				want := c*HP*WP + (kh-KH/2)*WP + (kw - KW/2)
				assert.Equal(t, want, offsets[k], "c=%d kh=%d kw=%d", c, kh, kw)
			}
		}
	}
}

// TestNeighborOffsets_Errors tests invalid arguments.
func TestNeighborOffsets_Errors(t *testing.T) {
	_, err := NeighborOffsets(tensor.Shape{4, 4}, tensor.Shape{3}, nil)
	require.ErrorIs(t, err, ErrShape)

	_, err = NeighborOffsets(tensor.Shape{4, 4}, tensor.Shape{3, 3}, []int{1})
	require.ErrorIs(t, err, ErrShape)

	_, err = NeighborOffsets(tensor.Shape{4, 4}, tensor.Shape{3, 3}, []int{0, 2})
	require.ErrorIs(t, err, ErrShape)

	_, err = NeighborOffsets(tensor.Shape{4, 4}, tensor.Shape{0, 3}, nil)
	require.ErrorIs(t, err, ErrShape)

	_, err = NeighborOffsets(tensor.Shape{4, -1}, tensor.Shape{1, 3}, nil)
	require.ErrorIs(t, err, ErrShape)
}
