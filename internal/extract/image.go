package extract

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"gorgonia.org/tensor"

	"github.com/banshee-data/tensor.report/internal/tensorize"
)

// imageChannels is the number of color channels in a camera frame.
const imageChannels = 3

// ImageTensor decodes a frame's JPEG bytes into a channel-major
// (3, GridHeight, GridWidth) float32 tensor with values in 0-255. Only
// the fixed camera resolution is accepted.
func ImageTensor(jpegBytes []byte) (*tensor.Dense, error) {
	img, err := imaging.Decode(bytes.NewReader(jpegBytes))
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != tensorize.GridWidth || bounds.Dy() != tensorize.GridHeight {
		return nil, fmt.Errorf("unsupported image size %dx%d (want %dx%d)",
			bounds.Dx(), bounds.Dy(), tensorize.GridWidth, tensorize.GridHeight)
	}

	// Clone normalizes any decoded image type to NRGBA with origin bounds,
	// so pixels can be read straight out of Pix.
	nrgba := imaging.Clone(img)

	const height, width = tensorize.GridHeight, tensorize.GridWidth
	buf := make([]float32, imageChannels*height*width)
	for y := 0; y < height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		for x := 0; x < width; x++ {
			buf[0*height*width+y*width+x] = float32(row[x*4])
			buf[1*height*width+y*width+x] = float32(row[x*4+1])
			buf[2*height*width+y*width+x] = float32(row[x*4+2])
		}
	}

	return tensor.New(tensor.WithShape(imageChannels, height, width), tensor.WithBacking(buf)), nil
}
