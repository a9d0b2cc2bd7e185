package tensorize

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Lidar pooling geometry. The tall (20,10) kernel with (10,10) stride maps
// 1280×1920 → 127×192; replicate-padding the bottom row restores the
// 128-row target so lidar tensors align with pooled camera tensors.
const (
	lidarPoolKernelHeight = 20
	lidarPoolKernelWidth  = 10
	lidarPoolStride       = 10
)

// DownsampleLidar re-encodes a splatted (1, GridHeight, GridWidth) range
// grid and pools it down to (1, TargetHeight, TargetWidth): range remap
// (EncodeRanges), max-pool, replicate-pad one bottom row, then clamp the
// far band's small negatives to zero. The input grid is not modified.
func DownsampleLidar(grid *tensor.Dense) (*tensor.Dense, error) {
	if err := requireShape(grid, 1, GridHeight, GridWidth); err != nil {
		return nil, fmt.Errorf("lidar grid: %w", err)
	}
	src, err := float32sOf(grid)
	if err != nil {
		return nil, err
	}

	encoded := make([]float32, len(src))
	copy(encoded, src)
	EncodeRanges(encoded)

	pooled, outH, outW := maxPool2D(encoded, 1, GridHeight, GridWidth,
		lidarPoolKernelHeight, lidarPoolKernelWidth, lidarPoolStride, lidarPoolStride)
	padded := replicatePadBottom(pooled, 1, outH, outW)
	clampNonNegative(padded)

	return tensor.New(tensor.WithShape(1, outH+1, outW), tensor.WithBacking(padded)), nil
}
