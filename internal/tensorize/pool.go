package tensorize

// Pooling primitives over flat channel-first float32 grids. Cell (c, y, x)
// lives at index c*height*width + y*width + x; output extents follow the
// usual (in − kernel)/stride + 1 rule with no implicit padding.

// pooledExtent returns the output size for one spatial dimension.
func pooledExtent(in, kernel, stride int) int {
	return (in-kernel)/stride + 1
}

// maxPool2D max-pools each channel with the given kernel and stride.
func maxPool2D(src []float32, channels, height, width, kernelH, kernelW, strideH, strideW int) ([]float32, int, int) {
	outH := pooledExtent(height, kernelH, strideH)
	outW := pooledExtent(width, kernelW, strideW)
	dst := make([]float32, channels*outH*outW)

	for c := 0; c < channels; c++ {
		srcBase := c * height * width
		dstBase := c * outH * outW
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				top := oy * strideH
				left := ox * strideW
				best := src[srcBase+top*width+left]
				for ky := 0; ky < kernelH; ky++ {
					rowBase := srcBase + (top+ky)*width + left
					for kx := 0; kx < kernelW; kx++ {
						if v := src[rowBase+kx]; v > best {
							best = v
						}
					}
				}
				dst[dstBase+oy*outW+ox] = best
			}
		}
	}
	return dst, outH, outW
}

// avgPool2D average-pools each channel with a square kernel equal to the
// stride (the only configuration the pipeline uses).
func avgPool2D(src []float32, channels, height, width, kernel, stride int) ([]float32, int, int) {
	outH := pooledExtent(height, kernel, stride)
	outW := pooledExtent(width, kernel, stride)
	dst := make([]float32, channels*outH*outW)
	norm := float32(kernel * kernel)

	for c := 0; c < channels; c++ {
		srcBase := c * height * width
		dstBase := c * outH * outW
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				top := oy * stride
				left := ox * stride
				var sum float32
				for ky := 0; ky < kernel; ky++ {
					rowBase := srcBase + (top+ky)*width + left
					for kx := 0; kx < kernel; kx++ {
						sum += src[rowBase+kx]
					}
				}
				dst[dstBase+oy*outW+ox] = sum / norm
			}
		}
	}
	return dst, outH, outW
}

// replicatePadBottom appends one row to each channel, copying the last row.
func replicatePadBottom(src []float32, channels, height, width int) []float32 {
	dst := make([]float32, channels*(height+1)*width)
	for c := 0; c < channels; c++ {
		srcBase := c * height * width
		dstBase := c * (height + 1) * width
		copy(dst[dstBase:dstBase+height*width], src[srcBase:srcBase+height*width])
		lastRow := src[srcBase+(height-1)*width : srcBase+height*width]
		copy(dst[dstBase+height*width:dstBase+(height+1)*width], lastRow)
	}
	return dst
}

// clampNonNegative zeroes negative cells in place.
func clampNonNegative(values []float32) {
	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
}
