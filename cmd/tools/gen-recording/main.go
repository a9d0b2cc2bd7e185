// Command gen-recording generates sample .drec recordings for testing
// the conversion pipeline.
package main

import (
	"flag"
	"log"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/record"
)

func main() {
	output := flag.String("o", "sample.drec", "output path")
	name := flag.String("name", "sample", "recording name stored in the container header")
	frames := flag.Int("n", 100, "number of frames")
	points := flag.Int("points", 1500, "lidar returns per frame")
	seed := flag.Int64("seed", 1, "generator seed")
	quality := flag.Int("q", 80, "jpeg quality (1-100)")
	flag.Parse()

	fs := fsutil.OSFileSystem{}
	w, err := record.Create(fs, *output, *name)
	if err != nil {
		log.Fatalf("failed to create recording: %v", err)
	}

	gen := record.NewSynthetic(record.SyntheticConfig{
		Name:           *name,
		Seed:           *seed,
		PointsPerFrame: *points,
		ImageQuality:   *quality,
	})
	for i := 0; i < *frames; i++ {
		frame, err := gen.Next()
		if err != nil {
			log.Fatalf("failed to generate frame %d: %v", i, err)
		}
		if err := w.Append(frame); err != nil {
			log.Fatalf("failed to append frame %d: %v", i, err)
		}
		if (i+1)%10 == 0 {
			log.Printf("%d/%d frames", i+1, *frames)
		}
	}
	if err := w.Close(); err != nil {
		log.Fatalf("failed to close recording: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames)", *output, *frames)
}
