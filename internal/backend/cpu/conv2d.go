package cpu

import (
	"fmt"
	"time"

	"github.com/born-ml/convkit/internal/tensor"
	"gonum.org/v1/gonum/blas"
)

// Conv2D performs strided 2D convolution using the im2col algorithm.
//
// Input shape: [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, height/stride_h, width/stride_w]
//
// The input is zero-padded by kernel_h/2 and kernel_w/2, so each output cell
// is centred on input cell (out_h*stride_h, out_w*stride_w). Kernel extents
// are expected to be odd; even extents centre on the lower middle cell.
//
// Algorithm:
//  1. Pad the input into a scratch tensor and mark every stride-aligned
//     cell of channel 0 as an origin
//  2. Gather each origin's [C_in, K_h, K_w] neighbourhood into one row of
//     the backend's column buffer (im2col)
//  3. MatMul: [C_out, C_in*K_h*K_w] @ col^T -> [C_out, N*H_out*W_out]
//  4. Rearrange to [N, C_out, H_out, W_out]
//
// The caller's tensors are not modified. Column values carry the precision
// contract documented on markBit.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride [2]int) (*tensor.RawTensor, error) {
	if input.DType() != tensor.Float32 || kernel.DType() != tensor.Float32 {
		return nil, fmt.Errorf("conv2d: %w: got %s input and %s kernel", ErrPrecision, input.DType(), kernel.DType())
	}

	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("conv2d: %w: input must be 4D [N,C,H,W], got %dD", ErrShape, len(inputShape))
	}
	if len(kernelShape) != 4 {
		return nil, fmt.Errorf("conv2d: %w: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", ErrShape, len(kernelShape))
	}

	N := inputShape[0]     // batch size
	CIn := inputShape[1]   // input channels
	H := inputShape[2]     // input height
	W := inputShape[3]     // input width
	COut := kernelShape[0] // output channels
	CInK := kernelShape[1] // kernel input channels (must match CIn)
	KH := kernelShape[2]   // kernel height
	KW := kernelShape[3]   // kernel width
	SH, SW := stride[0], stride[1]

	if CIn != CInK {
		return nil, fmt.Errorf("conv2d: %w: input channels %d != kernel channels %d", ErrShape, CIn, CInK)
	}
	if SH <= 0 || SW <= 0 {
		return nil, fmt.Errorf("conv2d: %w: invalid stride %v", ErrShape, stride)
	}
	if KH > H || KW > W {
		return nil, fmt.Errorf("conv2d: %w: kernel %dx%d larger than input %dx%d", ErrShape, KH, KW, H, W)
	}

	HOut := H / SH
	WOut := W / SW
	if HOut <= 0 || WOut <= 0 {
		return nil, fmt.Errorf("conv2d: %w: invalid output dimensions: out_h=%d, out_w=%d (check stride)", ErrShape, HOut, WOut)
	}

	defer cpu.observe("conv2d", time.Now())

	// Step 1: pad and mark origins
	PH, PW := KH/2, KW/2
	padded, err := padSpatial(input, PH, PW, 0)
	if err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}
	bits := padded.Bits()
	ClearMarks(bits)
	err = MarkStrided(bits, padded.Shape(),
		[]int{0, 0, PH, PW},
		[]int{1, 1, SH, SW},
		[]int{N, 1, PH + HOut*SH, PW + WOut*SW})
	if err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}

	// Step 2: im2col
	// col: [N * H_out * W_out, C_in * K_h * K_w]
	offsets, err := NeighborOffsets(padded.Shape()[1:], tensor.Shape{CIn, KH, KW}, []int{0, 1, 1})
	if err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}
	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	col := cpu.cols.Reserve(colHeight * colWidth)
	if _, err := fillCol(cpu.strategy, bits, offsets, col); err != nil {
		cpu.logger.Error().Err(err).
			Ints("input", inputShape).
			Ints("kernel", kernelShape).
			Ints("stride", stride[:]).
			Msg("column buffer invariant violated")
		return nil, fmt.Errorf("conv2d: %w", err)
	}

	// Step 3: kernel is already [C_out, C_in * K_h * K_w] in row-major order.
	// result[i, j] = sum_k kernel[i, k] * col[j, k]
	product := make([]float32, COut*colHeight)
	sgemm(blas.Trans, product, kernel.AsFloat32(), col, COut, colWidth, colHeight)

	// Step 4: [C_out, N*H_out*W_out] -> [N, C_out, H_out, W_out]
	output, err := tensor.NewRaw(tensor.Shape{N, COut, HOut, WOut}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("conv2d: failed to create output tensor: %w", err)
	}
	outputData := output.AsFloat32()
	plane := HOut * WOut
	for n := 0; n < N; n++ {
		for c := 0; c < COut; c++ {
			src := product[c*colHeight+n*plane : c*colHeight+(n+1)*plane]
			copy(outputData[(n*COut+c)*plane:], src)
		}
	}

	return output, nil
}
