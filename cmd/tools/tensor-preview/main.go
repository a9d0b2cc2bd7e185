// Command tensor-preview renders a tensor artifact as PNG images.
//
// It loads a .gob.gz artifact written by the conversion pipeline and
// writes one grayscale PNG per channel plus a per-column mean profile
// plot. Camera artifacts (3 channels, 0-255) additionally get a combined
// RGB preview. Grayscale output is scaled to each channel's own min/max,
// so encoded lidar ranges and heat map confidences both come out
// readable.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tensor.report/internal/extract"
	"github.com/banshee-data/tensor.report/internal/fsutil"
)

func main() {
	input := flag.String("in", "", "path to a .gob.gz tensor artifact")
	outDir := flag.String("o", ".", "output directory for the PNGs")
	rgb := flag.Bool("rgb", true, "write a combined RGB preview for 3-channel tensors")
	flag.Parse()

	if *input == "" {
		log.Fatal("-in is required")
	}

	fs := fsutil.OSFileSystem{}
	t, err := extract.LoadTensor(fs, *input)
	if err != nil {
		log.Fatalf("failed to load tensor: %v", err)
	}

	shape := t.Shape()
	if len(shape) != 3 {
		log.Fatalf("expected a (channels, height, width) tensor, got shape %v", shape)
	}
	channels, height, width := shape[0], shape[1], shape[2]
	values, ok := t.Data().([]float32)
	if !ok {
		log.Fatalf("expected a float32 tensor, got %v", t.Dtype())
	}

	if err := fs.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	stem := strings.TrimSuffix(filepath.Base(*input), ".gob.gz")
	for c := 0; c < channels; c++ {
		img := channelImage(values, c, height, width)
		path := filepath.Join(*outDir, fmt.Sprintf("%s_ch%d.png", stem, c))
		if err := imaging.Save(img, path); err != nil {
			log.Fatalf("failed to save channel %d: %v", c, err)
		}
		log.Printf("wrote %s", path)
	}

	if *rgb && channels == 3 {
		path := filepath.Join(*outDir, stem+"_rgb.png")
		if err := imaging.Save(rgbImage(values, height, width), path); err != nil {
			log.Fatalf("failed to save rgb preview: %v", err)
		}
		log.Printf("wrote %s", path)
	}

	profilePath := filepath.Join(*outDir, stem+"_profile.png")
	if err := columnProfile(values, channels, height, width, profilePath); err != nil {
		log.Fatalf("failed to plot column profile: %v", err)
	}
	log.Printf("wrote %s", profilePath)
}

// channelImage renders one channel with the channel's own min and max
// mapped to black and white.
func channelImage(values []float32, channel, height, width int) *image.NRGBA {
	base := channel * height * width
	lo, hi := values[base], values[base]
	for i := base; i < base+height*width; i++ {
		if values[i] < lo {
			lo = values[i]
		}
		if values[i] > hi {
			hi = values[i]
		}
	}
	scale := float32(0)
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((values[base+y*width+x] - lo) * scale)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// rgbImage combines three channels into one color preview, clamping to
// the 0-255 range camera tensors use.
func rgbImage(values []float32, height, width int) *image.NRGBA {
	plane := height * width
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			img.SetNRGBA(x, y, color.NRGBA{
				R: clampByte(values[i]),
				G: clampByte(values[plane+i]),
				B: clampByte(values[2*plane+i]),
				A: 255,
			})
		}
	}
	return img
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// columnProfile plots the per-column mean of every channel, which makes
// splat coverage and heat map mass visible without opening the PNGs.
func columnProfile(values []float32, channels, height, width int, path string) error {
	p := plot.New()
	p.Title.Text = "Column mean"
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Mean value"
	p.Add(plotter.NewGrid())

	for c := 0; c < channels; c++ {
		pts := make(plotter.XYs, width)
		base := c * height * width
		for x := 0; x < width; x++ {
			sum := 0.0
			for y := 0; y < height; y++ {
				sum += float64(values[base+y*width+x])
			}
			pts[x] = plotter.XY{X: float64(x), Y: sum / float64(height)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = channelColor(c)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("ch%d", c), line)
	}

	p.Legend.Top = true
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

func channelColor(c int) color.Color {
	palette := []color.RGBA{
		{R: 200, G: 30, B: 30, A: 255},
		{R: 20, G: 140, B: 60, A: 255},
		{R: 20, G: 80, B: 200, A: 255},
	}
	return palette[c%len(palette)]
}
