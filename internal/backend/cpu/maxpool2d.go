package cpu

import (
	"fmt"
	"math"
	"time"

	"github.com/born-ml/convkit/internal/tensor"
)

// MaxPool2D performs 2D max pooling over disjoint stride-sized tiles.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, height/stride_h, width/stride_w]
//
// Trailing rows and columns that do not fill a whole tile are ignored.
//
// Example (stride 2x2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, stride [2]int) (*tensor.RawTensor, error) {
	defer cpu.observe("maxpool2d", time.Now())
	return cpu.maxPool("maxpool2d", input, stride, stride, false)
}

// MaxPool2DWindow performs 2D max pooling with a window centred on every
// stride-aligned cell. Cells outside the input never win the maximum.
//
// Output shape: [batch, channels, height/stride_h, width/stride_w]
//
// Example (window 3x3, stride 1x1) keeps the spatial size and replaces each
// cell with the maximum of its 3x3 neighbourhood.
func (cpu *CPUBackend) MaxPool2DWindow(input *tensor.RawTensor, window, stride [2]int) (*tensor.RawTensor, error) {
	defer cpu.observe("maxpool2d_window", time.Now())
	return cpu.maxPool("maxpool2d_window", input, window, stride, true)
}

func (cpu *CPUBackend) maxPool(op string, input *tensor.RawTensor, window, stride [2]int, centred bool) (*tensor.RawTensor, error) {
	if input.DType() != tensor.Float32 {
		return nil, fmt.Errorf("%s: %w: got %s", op, ErrPrecision, input.DType())
	}
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("%s: %w: expected 4D input [N,C,H,W], got %dD", op, ErrShape, len(inputShape))
	}

	N := inputShape[0] // batch size
	C := inputShape[1] // channels
	H := inputShape[2] // height
	W := inputShape[3] // width
	KH, KW := window[0], window[1]
	SH, SW := stride[0], stride[1]

	if KH <= 0 || KW <= 0 {
		return nil, fmt.Errorf("%s: %w: invalid window %v", op, ErrShape, window)
	}
	if SH <= 0 || SW <= 0 {
		return nil, fmt.Errorf("%s: %w: invalid stride %v", op, ErrShape, stride)
	}
	if KH > H || KW > W {
		return nil, fmt.Errorf("%s: %w: window %dx%d too large for input %dx%d", op, ErrShape, KH, KW, H, W)
	}

	HOut := H / SH
	WOut := W / SW
	if HOut <= 0 || WOut <= 0 {
		return nil, fmt.Errorf("%s: %w: invalid output dimensions %dx%d (window=%v, stride=%v, input=%dx%d)",
			op, ErrShape, HOut, WOut, window, stride, H, W)
	}

	// Pooling never mixes channels, so every channel gets its own origins and
	// the window spans a single channel.
	var (
		padded *tensor.RawTensor
		scale  []int
		PH, PW int
		err    error
	)
	if centred {
		PH, PW = KH/2, KW/2
		padded, err = padSpatial(input, PH, PW, float32(math.Inf(-1)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		scale = []int{0, 1, 1}
	} else {
		padded = input.Clone()
	}

	bits := padded.Bits()
	ClearMarks(bits)
	err = MarkStrided(bits, padded.Shape(),
		[]int{0, 0, PH, PW},
		[]int{1, 1, SH, SW},
		[]int{N, C, PH + HOut*SH, PW + WOut*SW})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	offsets, err := NeighborOffsets(padded.Shape()[1:], tensor.Shape{1, KH, KW}, scale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	output, err := tensor.NewRaw(tensor.Shape{N, C, HOut, WOut}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create output: %w", op, err)
	}
	if _, err := fillMax(cpu.strategy, bits, offsets, output.AsFloat32()); err != nil {
		cpu.logger.Error().Err(err).
			Ints("input", inputShape).
			Ints("window", window[:]).
			Ints("stride", stride[:]).
			Msg("pool buffer invariant violated")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return output, nil
}
