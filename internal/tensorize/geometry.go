package tensorize

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

// Grid geometry for the supported sensor layout. The full-resolution grid
// matches the front camera; the target grid is what the pooling stages
// produce. These are the only two resolutions the pipeline supports.
const (
	// GridHeight is the full-resolution row count (camera pixels).
	GridHeight = 1280

	// GridWidth is the full-resolution column count (camera pixels).
	GridWidth = 1920

	// TargetHeight is the pooled output row count.
	TargetHeight = 128

	// TargetWidth is the pooled output column count.
	TargetWidth = 192

	// NumClasses is the number of heat-map channels (vehicle, pedestrian, cyclist).
	NumClasses = 3

	// DefaultSplatKernel is the default square splat window edge (pixels).
	DefaultSplatKernel = 5
)

// NoReturn marks grid cells that received no lidar return.
const NoReturn float32 = -1.0

// LabelClass identifies the object category of a bounding-box label.
// Values follow the recording label schema (vehicle=1, pedestrian=2,
// cyclist=4); other values are rejected.
type LabelClass int32

const (
	ClassVehicle    LabelClass = 1
	ClassPedestrian LabelClass = 2
	ClassCyclist    LabelClass = 4
)

// ErrUnknownLabelClass reports a label whose class has no heat-map channel.
// Synthesis fails fatally on it rather than silently dropping the label.
var ErrUnknownLabelClass = errors.New("unknown label class")

// String returns a human-readable class name for logs and reports.
func (c LabelClass) String() string {
	switch c {
	case ClassVehicle:
		return "vehicle"
	case ClassPedestrian:
		return "pedestrian"
	case ClassCyclist:
		return "cyclist"
	default:
		return fmt.Sprintf("class(%d)", int32(c))
	}
}

// Channel maps the class to its heat-map channel index.
func (c LabelClass) Channel() (int, error) {
	switch c {
	case ClassVehicle:
		return 0, nil
	case ClassPedestrian:
		return 1, nil
	case ClassCyclist:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownLabelClass, int32(c))
	}
}

// Label is one 2-D bounding box in full-resolution pixel coordinates.
// X,Y is the top-left corner; boxes may extend past the grid edge and are
// clipped during synthesis.
type Label struct {
	Class  LabelClass `json:"class"`
	X      int        `json:"x"`      // left edge, pixels
	Y      int        `json:"y"`      // top edge, pixels
	Width  int        `json:"width"`  // pixels
	Height int        `json:"height"` // pixels
}

// newGrid allocates a zeroed channel-first float32 tensor.
func newGrid(channels, height, width int) *tensor.Dense {
	return tensor.New(tensor.WithShape(channels, height, width), tensor.Of(tensor.Float32))
}

// float32sOf returns the backing slice of a float32 tensor, or an error
// describing the actual element type.
func float32sOf(t *tensor.Dense) ([]float32, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("tensor holds %v, want float32", t.Dtype())
	}
	return data, nil
}

// requireShape checks that t is a float32 tensor of exactly the given
// dimensions. A negative dimension matches any extent.
func requireShape(t *tensor.Dense, dims ...int) error {
	if t == nil {
		return errors.New("nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return fmt.Errorf("tensor holds %v, want float32", t.Dtype())
	}
	shape := t.Shape()
	if len(shape) != len(dims) {
		return fmt.Errorf("tensor has %d dimensions %v, want %d", len(shape), shape, len(dims))
	}
	for i, want := range dims {
		if want >= 0 && shape[i] != want {
			return fmt.Errorf("tensor shape %v, want dimension %d to be %d", shape, i, want)
		}
	}
	return nil
}
