package record

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"time"

	"github.com/banshee-data/tensor.report/internal/tensorize"
)

// SyntheticConfig controls the synthetic recording generator.
type SyntheticConfig struct {
	Name           string // recording name (default "synthetic")
	Seed           int64  // rng seed; the same seed reproduces the same frames
	PointsPerFrame int    // projected lidar returns per frame (default 1500)
	ImageQuality   int    // jpeg quality 1-100 (default 80)
}

// Synthetic generates deterministic drive frames: a handful of labeled
// actors crossing the camera plane, lidar returns clustered on them over a
// sparse road backdrop, and a flat-shaded camera image. It implements the
// same Next contract as Reader, so the extraction pipeline can run
// directly off it.
type Synthetic struct {
	cfg    SyntheticConfig
	rng    *rand.Rand
	index  uint32
	baseNS int64
	actors []actor
}

// actor is one moving labeled object.
type actor struct {
	class       tensorize.LabelClass
	x, y        float64 // top-left corner, pixels
	width       int
	height      int
	vx          float64 // pixels per frame, positive rightward
	rangeMeters float64
}

// NewSynthetic creates a generator. Zero-value config fields get defaults.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.Name == "" {
		cfg.Name = "synthetic"
	}
	if cfg.PointsPerFrame <= 0 {
		cfg.PointsPerFrame = 1500
	}
	if cfg.ImageQuality <= 0 {
		cfg.ImageQuality = 80
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	return &Synthetic{
		cfg:    cfg,
		rng:    rng,
		baseNS: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).UnixNano(),
		actors: []actor{
			{class: tensorize.ClassVehicle, x: 200, y: 620, width: 260, height: 180, vx: 18, rangeMeters: 22},
			{class: tensorize.ClassPedestrian, x: 1500, y: 560, width: 70, height: 170, vx: -4, rangeMeters: 12},
			{class: tensorize.ClassCyclist, x: 900, y: 590, width: 90, height: 150, vx: 9, rangeMeters: 17},
		},
	}
}

// Name returns the configured recording name.
func (s *Synthetic) Name() string { return s.cfg.Name }

// Next produces the next frame. It never returns io.EOF; callers bound the
// stream themselves (frame-count flags, extraction limits).
func (s *Synthetic) Next() (*Frame, error) {
	labels := make([]tensorize.Label, len(s.actors))
	for i, a := range s.actors {
		labels[i] = tensorize.Label{
			Class:  a.class,
			X:      int(a.x),
			Y:      int(a.y),
			Width:  a.width,
			Height: a.height,
		}
	}

	points := s.roadPoints()
	points = append(points, s.actorPoints()...)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.renderImage(labels), &jpeg.Options{Quality: s.cfg.ImageQuality}); err != nil {
		return nil, fmt.Errorf("encode synthetic image: %w", err)
	}

	frame := &Frame{
		Index:          s.index,
		TimestampNanos: s.baseNS + int64(s.index)*int64(100*time.Millisecond),
		ImageJPEG:      buf.Bytes(),
		Points:         points,
		Labels:         labels,
	}

	s.index++
	s.advance()
	return frame, nil
}

// roadPoints scatters far-band returns across the road surface below the
// horizon. Emitted before actor points so the closer actor returns win any
// splat overlap.
func (s *Synthetic) roadPoints() []tensorize.Point {
	count := s.cfg.PointsPerFrame / 3
	points := make([]tensorize.Point, 0, count)
	for i := 0; i < count; i++ {
		points = append(points, tensorize.Point{
			X:     float32(s.rng.Float64() * float64(tensorize.GridWidth-1)),
			Y:     float32(700 + s.rng.Float64()*float64(tensorize.GridHeight-701)),
			Range: float32(35 + s.rng.Float64()*40),
		})
	}
	return points
}

// actorPoints clusters returns on each actor's box.
func (s *Synthetic) actorPoints() []tensorize.Point {
	perActor := (s.cfg.PointsPerFrame - s.cfg.PointsPerFrame/3) / len(s.actors)
	points := make([]tensorize.Point, 0, perActor*len(s.actors))
	for _, a := range s.actors {
		for i := 0; i < perActor; i++ {
			points = append(points, tensorize.Point{
				X:     float32(a.x + s.rng.Float64()*float64(a.width)),
				Y:     float32(a.y + s.rng.Float64()*float64(a.height)),
				Range: float32(a.rangeMeters + s.rng.Float64()*1.5),
			})
		}
	}
	return points
}

// advance moves actors for the next frame, wrapping at the grid edges.
func (s *Synthetic) advance() {
	for i := range s.actors {
		a := &s.actors[i]
		a.x += a.vx
		if a.x > float64(tensorize.GridWidth) {
			a.x = -float64(a.width)
		}
		if a.x < -float64(a.width)-1 {
			a.x = float64(tensorize.GridWidth) - 1
		}
	}
}

// renderImage draws a flat-shaded scene: sky over road with one colored
// rectangle per actor.
func (s *Synthetic) renderImage(labels []tensorize.Label) *image.NRGBA {
	const horizon = 560
	img := image.NewNRGBA(image.Rect(0, 0, tensorize.GridWidth, tensorize.GridHeight))

	skyRow := flatRow(color.NRGBA{R: 178, G: 200, B: 228, A: 255})
	roadRow := flatRow(color.NRGBA{R: 72, G: 72, B: 78, A: 255})
	for y := 0; y < tensorize.GridHeight; y++ {
		row := skyRow
		if y >= horizon {
			row = roadRow
		}
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], row)
	}

	for _, l := range labels {
		fillRect(img, l.X, l.Y, l.Width, l.Height, classColor(l.Class))
	}
	return img
}

// flatRow builds one image row of a constant color.
func flatRow(c color.NRGBA) []byte {
	row := make([]byte, tensorize.GridWidth*4)
	for x := 0; x < tensorize.GridWidth; x++ {
		row[x*4] = c.R
		row[x*4+1] = c.G
		row[x*4+2] = c.B
		row[x*4+3] = c.A
	}
	return row
}

// fillRect paints a clipped solid rectangle.
func fillRect(img *image.NRGBA, x, y, width, height int, c color.NRGBA) {
	x0, y0 := x, y
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	x1, y1 := x+width, y+height
	if x1 > tensorize.GridWidth {
		x1 = tensorize.GridWidth
	}
	if y1 > tensorize.GridHeight {
		y1 = tensorize.GridHeight
	}
	for yy := y0; yy < y1; yy++ {
		off := yy*img.Stride + x0*4
		for xx := x0; xx < x1; xx++ {
			img.Pix[off] = c.R
			img.Pix[off+1] = c.G
			img.Pix[off+2] = c.B
			img.Pix[off+3] = c.A
			off += 4
		}
	}
}

// classColor picks the debug color for an actor class.
func classColor(class tensorize.LabelClass) color.NRGBA {
	switch class {
	case tensorize.ClassVehicle:
		return color.NRGBA{R: 198, G: 44, B: 44, A: 255}
	case tensorize.ClassPedestrian:
		return color.NRGBA{R: 46, G: 158, B: 66, A: 255}
	case tensorize.ClassCyclist:
		return color.NRGBA{R: 228, G: 178, B: 44, A: 255}
	default:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
}
