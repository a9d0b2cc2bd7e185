package tensorize

import "gorgonia.org/tensor"

// Point is one lidar return projected into the front-camera plane.
// X and Y are pixel coordinates (column, row); fractional positions are
// truncated toward zero when splatted.
type Point struct {
	X     float32 // column, pixels
	Y     float32 // row, pixels
	Range float32 // distance, meters
}

// SplatPoints scatters projected lidar returns into a dense
// (1, GridHeight, GridWidth) grid. Every cell of a square window of
// kernelSize pixels centered on each point is set to that point's range;
// cells no point touches stay NoReturn.
//
// Windows are clipped to the grid, so corner and edge points are safe.
// Where windows overlap, the last point in input order wins; input order
// is authoritative and callers must not reorder points they expect to
// take precedence.
func SplatPoints(points []Point, kernelSize int) *tensor.Dense {
	if kernelSize <= 0 {
		kernelSize = DefaultSplatKernel
	}
	shift := (kernelSize - 1) / 2

	grid := make([]float32, GridHeight*GridWidth)
	for i := range grid {
		grid[i] = NoReturn
	}

	for _, p := range points {
		row := int(p.Y)
		col := int(p.X)

		top := row - shift
		if top < 0 {
			top = 0
		}
		bottom := row + shift
		if bottom > GridHeight-1 {
			bottom = GridHeight - 1
		}
		left := col - shift
		if left < 0 {
			left = 0
		}
		right := col + shift
		if right > GridWidth-1 {
			right = GridWidth - 1
		}

		for y := top; y <= bottom; y++ {
			base := y * GridWidth
			for x := left; x <= right; x++ {
				grid[base+x] = p.Range
			}
		}
	}

	return tensor.New(tensor.WithShape(1, GridHeight, GridWidth), tensor.WithBacking(grid))
}
