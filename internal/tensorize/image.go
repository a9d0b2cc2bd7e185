package tensorize

import (
	"fmt"

	"gorgonia.org/tensor"
)

// targetPoolKernel is the square kernel (and stride) that maps the
// full-resolution grid onto the target grid: 1280/10 = 128, 1920/10 = 192.
const targetPoolKernel = 10

// DownsampleImage average-pools a channel-first (C, GridHeight, GridWidth)
// camera tensor down to (C, TargetHeight, TargetWidth). Each output cell
// is the mean of its 10×10 input block. C is normally 3 (RGB) but any
// channel count is accepted.
func DownsampleImage(img *tensor.Dense) (*tensor.Dense, error) {
	if err := requireShape(img, -1, GridHeight, GridWidth); err != nil {
		return nil, fmt.Errorf("image tensor: %w", err)
	}
	src, err := float32sOf(img)
	if err != nil {
		return nil, err
	}

	channels := img.Shape()[0]
	pooled, outH, outW := avgPool2D(src, channels, GridHeight, GridWidth,
		targetPoolKernel, targetPoolKernel)
	return tensor.New(tensor.WithShape(channels, outH, outW), tensor.WithBacking(pooled)), nil
}
