package cpu

import (
	"math/rand"
	"testing"

	"github.com/born-ml/convkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMaxPool2D_BasicForward tests basic max pooling correctness.
func TestMaxPool2D_BasicForward(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			backend := newTestBackend(s)

			// Input: [1, 1, 4, 4] with sequential values 1-16
			input := newImage(t, tensor.Shape{1, 1, 4, 4}, func(i int) float32 { return float32(i + 1) })

			output, err := backend.MaxPool2D(input, [2]int{2, 2})
			require.NoError(t, err)
			require.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())

			// [[1,2,3,4],      -> [[6,8],
			//  [5,6,7,8],         [14,16]]
			//  [9,10,11,12],
			//  [13,14,15,16]]
			assert.Equal(t, []float32{6, 8, 14, 16}, output.AsFloat32())
		})
	}
}

// TestMaxPool2D_SingleTile tests the 2x2 -> 1x1 case.
func TestMaxPool2D_SingleTile(t *testing.T) {
	input, _ := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2})

	output, err := newTestBackend(DefaultStrategy()).MaxPool2D(input, [2]int{2, 2})
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 1, 1, 1}, output.Shape())
	assert.Equal(t, []float32{4}, output.AsFloat32())
}

// TestMaxPool2D_NegativeValues tests that all-negative tiles are not clamped
// to zero by the output buffer's initial contents.
func TestMaxPool2D_NegativeValues(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			input := newImage(t, tensor.Shape{1, 1, 4, 4}, func(i int) float32 { return -float32(i + 1) })

			output, err := newTestBackend(s).MaxPool2D(input, [2]int{2, 2})
			require.NoError(t, err)
			assert.Equal(t, []float32{-1, -3, -9, -11}, output.AsFloat32())
		})
	}
}

// TestMaxPool2D_Identity tests that a 1x1 stride returns the input.
func TestMaxPool2D_Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	input := newImage(t, tensor.Shape{2, 3, 5, 4}, randomInts(rng, 50))

	output, err := newTestBackend(DefaultStrategy()).MaxPool2D(input, [2]int{1, 1})
	require.NoError(t, err)
	assert.Equal(t, input.Shape(), output.Shape())
	assert.Equal(t, input.AsFloat32(), output.AsFloat32())
}

// TestMaxPool2D_DisjointTiles tests output[n,c,i,j] == max of its tile on
// random data, including trailing rows/columns that do not fill a tile.
func TestMaxPool2D_DisjointTiles(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	N, C, H, W := 2, 3, 7, 9
	SH, SW := 2, 3
	input := newImage(t, tensor.Shape{N, C, H, W}, randomInts(rng, 100))
	in := input.AsFloat32()

	for _, s := range strategies {
		output, err := newTestBackend(s).MaxPool2D(input, [2]int{SH, SW})
		require.NoError(t, err)
		HOut, WOut := H/SH, W/SW
		require.Equal(t, tensor.Shape{N, C, HOut, WOut}, output.Shape())

		out := output.AsFloat32()
		for p := 0; p < N*C; p++ {
			for i := 0; i < HOut; i++ {
				for j := 0; j < WOut; j++ {
					want := in[p*H*W+i*SH*W+j*SW]
					for dh := 0; dh < SH; dh++ {
						for dw := 0; dw < SW; dw++ {
							want = max(want, in[p*H*W+(i*SH+dh)*W+j*SW+dw])
						}
					}
					assert.Equal(t, want, out[(p*HOut+i)*WOut+j], "%s plane=%d i=%d j=%d", s, p, i, j)
				}
			}
		}
	}
}

// TestMaxPool2D_MultiChannel tests that channels are pooled independently.
func TestMaxPool2D_MultiChannel(t *testing.T) {
	// Channel c holds 16 copies of c*10, with a spike in one cell.
	input := newImage(t, tensor.Shape{1, 3, 4, 4}, func(i int) float32 { return float32(i/16) * 10 })
	data := input.AsFloat32()
	data[16+5] = 99 // channel 1, row 1, col 1

	output, err := newTestBackend(DefaultStrategy()).MaxPool2D(input, [2]int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{
		0, 0, 0, 0,
		99, 10, 10, 10,
		20, 20, 20, 20,
	}, output.AsFloat32())
}

// TestMaxPool2D_DoesNotMutateInput tests that marks stay on scratch memory.
func TestMaxPool2D_DoesNotMutateInput(t *testing.T) {
	input := newImage(t, tensor.Shape{1, 1, 4, 4}, func(i int) float32 { return float32(i) + 0.1 })
	before := append([]byte(nil), input.Data()...)

	_, err := newTestBackend(DefaultStrategy()).MaxPool2D(input, [2]int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, before, input.Data())
}

// TestMaxPool2DWindow tests centred windows with -Inf padding.
func TestMaxPool2DWindow(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			backend := newTestBackend(s)

			// 1..25 on a 5x5 grid
			input := newImage(t, tensor.Shape{1, 1, 5, 5}, func(i int) float32 { return float32(i + 1) })
			output, err := backend.MaxPool2DWindow(input, [2]int{3, 3}, [2]int{1, 1})
			require.NoError(t, err)
			require.Equal(t, tensor.Shape{1, 1, 5, 5}, output.Shape())

			out := output.AsFloat32()
			assert.Equal(t, float32(7), out[0])   // rows 0-1, cols 0-1
			assert.Equal(t, float32(19), out[12]) // rows 1-3, cols 1-3
			assert.Equal(t, float32(25), out[24])

			// Padding never wins, even over all-negative data.
			neg := newImage(t, tensor.Shape{1, 1, 5, 5}, func(i int) float32 { return -float32(i + 1) })
			output, err = backend.MaxPool2DWindow(neg, [2]int{3, 3}, [2]int{2, 2})
			require.NoError(t, err)
			require.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())
			// Origins (0,0), (0,2), (2,0), (2,2)
			assert.Equal(t, []float32{-1, -2, -6, -7}, output.AsFloat32())
		})
	}
}

// TestMaxPool2D_Errors tests argument validation.
func TestMaxPool2D_Errors(t *testing.T) {
	backend := newTestBackend(DefaultStrategy())
	input := newImage(t, tensor.Shape{1, 1, 4, 4}, sequential)

	_, err := backend.MaxPool2D(input, [2]int{0, 2})
	require.ErrorIs(t, err, ErrShape)

	_, err = backend.MaxPool2D(input, [2]int{5, 1})
	require.ErrorIs(t, err, ErrShape)

	_, err = backend.MaxPool2DWindow(input, [2]int{0, 3}, [2]int{1, 1})
	require.ErrorIs(t, err, ErrShape)

	_, err = backend.MaxPool2DWindow(input, [2]int{5, 3}, [2]int{1, 1})
	require.ErrorIs(t, err, ErrShape)

	flat := newImage(t, tensor.Shape{4, 4}, sequential)
	_, err = backend.MaxPool2D(flat, [2]int{2, 2})
	require.ErrorIs(t, err, ErrShape)

	i32, _ := tensor.NewRaw(tensor.Shape{1, 1, 4, 4}, tensor.Int32)
	_, err = backend.MaxPool2D(i32, [2]int{2, 2})
	require.ErrorIs(t, err, ErrPrecision)
}
