package tensorize

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Pedestrian body-shape prior. Pedestrian boxes are mostly background at
// the top corners and legs at the bottom, so those regions get reduced
// confidence instead of the flat 1.0 a vehicle or cyclist box gets.
const (
	pedTopCornerWeight    float32 = 0.3
	pedBottomCornerWeight float32 = 0.5
	pedBottomCenterWeight float32 = 0.75
)

// SynthesizeHeatMaps rasterizes bounding-box labels into a zeroed
// (NumClasses, GridHeight, GridWidth) heat map, one channel per class.
// Boxes are written in input order, so where boxes overlap the last one
// wins per pixel. Boxes reaching past the grid edge are clipped; boxes
// with non-positive extent write nothing.
//
// A label whose class has no channel aborts the synthesis with
// ErrUnknownLabelClass.
func SynthesizeHeatMaps(labels []Label) (*tensor.Dense, error) {
	maps := make([]float32, NumClasses*GridHeight*GridWidth)

	for i, label := range labels {
		channel, err := label.Class.Channel()
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		if label.Height <= 0 || label.Width <= 0 {
			continue
		}
		template := classTemplate(label.Class, label.Height, label.Width)
		blitTemplate(maps, channel, label.X, label.Y, template, label.Height, label.Width)
	}

	return tensor.New(tensor.WithShape(NumClasses, GridHeight, GridWidth), tensor.WithBacking(maps)), nil
}

// DownsampleHeatMaps max-pools a full-resolution heat map down to
// (NumClasses, TargetHeight, TargetWidth). Max (not average) pooling keeps
// thin boxes visible after the 10× reduction.
func DownsampleHeatMaps(maps *tensor.Dense) (*tensor.Dense, error) {
	if err := requireShape(maps, NumClasses, GridHeight, GridWidth); err != nil {
		return nil, fmt.Errorf("heat map: %w", err)
	}
	src, err := float32sOf(maps)
	if err != nil {
		return nil, err
	}

	pooled, outH, outW := maxPool2D(src, NumClasses, GridHeight, GridWidth,
		targetPoolKernel, targetPoolKernel, targetPoolKernel, targetPoolKernel)
	return tensor.New(tensor.WithShape(NumClasses, outH, outW), tensor.WithBacking(pooled)), nil
}

// classTemplate builds the height×width confidence patch for one box.
func classTemplate(class LabelClass, height, width int) []float32 {
	if class == ClassPedestrian {
		return pedestrianTemplate(height, width)
	}
	template := make([]float32, height*width)
	for i := range template {
		template[i] = 1
	}
	return template
}

// pedestrianTemplate builds the body-shape prior: with hf = height/5 and
// wf = width/4 (integer division), the top corner rows [0,hf) get 0.3 in
// the outer column bands [0,wf) and [3wf,width); the bottom rows [3hf,height)
// get 0.5 in the outer bands and 0.75 in the center band [wf,3wf); the
// torso keeps 1.0. Small boxes collapse some regions to zero size, which
// is intentional: the divisions are taken as-is with no minimum box size.
func pedestrianTemplate(height, width int) []float32 {
	template := make([]float32, height*width)
	for i := range template {
		template[i] = 1
	}

	hf := height / 5
	wf := width / 4

	for y := 0; y < hf; y++ {
		row := y * width
		for x := 0; x < wf; x++ {
			template[row+x] = pedTopCornerWeight
		}
		for x := 3 * wf; x < width; x++ {
			template[row+x] = pedTopCornerWeight
		}
	}
	for y := 3 * hf; y < height; y++ {
		row := y * width
		for x := 0; x < wf; x++ {
			template[row+x] = pedBottomCornerWeight
		}
		for x := 3 * wf; x < width; x++ {
			template[row+x] = pedBottomCornerWeight
		}
		for x := wf; x < 3*wf; x++ {
			template[row+x] = pedBottomCenterWeight
		}
	}
	return template
}

// blitTemplate copies a height×width template into the given channel at
// offset (x, y), clipping the template to the grid on all four sides.
func blitTemplate(dst []float32, channel, x, y int, template []float32, height, width int) {
	top, srcTop := y, 0
	if top < 0 {
		srcTop = -top
		top = 0
	}
	left, srcLeft := x, 0
	if left < 0 {
		srcLeft = -left
		left = 0
	}

	rows := height - srcTop
	if top+rows > GridHeight {
		rows = GridHeight - top
	}
	cols := width - srcLeft
	if left+cols > GridWidth {
		cols = GridWidth - left
	}
	if rows <= 0 || cols <= 0 {
		return
	}

	channelBase := channel * GridHeight * GridWidth
	for r := 0; r < rows; r++ {
		dstRow := channelBase + (top+r)*GridWidth + left
		srcRow := (srcTop+r)*width + srcLeft
		copy(dst[dstRow:dstRow+cols], template[srcRow:srcRow+cols])
	}
}
