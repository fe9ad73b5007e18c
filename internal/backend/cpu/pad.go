package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// padSpatial copies a [N, C, H, W] float32 tensor into a fresh
// [N, C, H+2*ph, W+2*pw] tensor whose border cells hold fill.
func padSpatial(input *tensor.RawTensor, ph, pw int, fill float32) (*tensor.RawTensor, error) {
	shape := input.Shape()
	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	HP, WP := H+2*ph, W+2*pw

	padded, err := tensor.NewRaw(tensor.Shape{N, C, HP, WP}, tensor.Float32)
	if err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}

	src := input.AsFloat32()
	dst := padded.AsFloat32()
	if fill != 0 {
		for i := range dst {
			dst[i] = fill
		}
	}

	for plane := 0; plane < N*C; plane++ {
		srcPlane := src[plane*H*W : (plane+1)*H*W]
		dstPlane := dst[plane*HP*WP : (plane+1)*HP*WP]
		for h := 0; h < H; h++ {
			rowStart := (h+ph)*WP + pw
			copy(dstPlane[rowStart:rowStart+W], srcPlane[h*W:(h+1)*W])
		}
	}
	return padded, nil
}
