package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gorgonia.org/tensor"

	"github.com/banshee-data/tensor.report/internal/config"
	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/monitoring"
	"github.com/banshee-data/tensor.report/internal/record"
	"github.com/banshee-data/tensor.report/internal/security"
	"github.com/banshee-data/tensor.report/internal/tensorize"
)

// FrameSource yields frames in recording order. Next returns io.EOF after
// the last frame. Both record.Reader and record.Synthetic implement it.
type FrameSource interface {
	Name() string
	Next() (*record.Frame, error)
}

// FrameTensors bundles the training tensors produced from one frame.
type FrameTensors struct {
	Image    *tensor.Dense // (3, TargetHeight, TargetWidth)
	Lidar    *tensor.Dense // (1, TargetHeight, TargetWidth)
	HeatMaps *tensor.Dense // (3, TargetHeight, TargetWidth)
	Labels   []tensorize.Label
}

// ConvertFrame turns one recorded frame into its training tensors.
func ConvertFrame(f *record.Frame, kernelSize int) (*FrameTensors, error) {
	imageFull, err := ImageTensor(f.ImageJPEG)
	if err != nil {
		return nil, err
	}
	image, err := tensorize.DownsampleImage(imageFull)
	if err != nil {
		return nil, err
	}

	grid := tensorize.SplatPoints(f.Points, kernelSize)
	lidar, err := tensorize.DownsampleLidar(grid)
	if err != nil {
		return nil, err
	}

	mapsFull, err := tensorize.SynthesizeHeatMaps(f.Labels)
	if err != nil {
		return nil, err
	}
	maps, err := tensorize.DownsampleHeatMaps(mapsFull)
	if err != nil {
		return nil, err
	}

	return &FrameTensors{
		Image:    image,
		Lidar:    lidar,
		HeatMaps: maps,
		Labels:   f.Labels,
	}, nil
}

// FrameRecord describes one converted frame for the manifest layer.
type FrameRecord struct {
	Recording      string
	FrameIndex     uint32
	TimestampNanos int64
	PointCount     int
	Vehicles       int
	Pedestrians    int
	Cyclists       int
	Paths          ArtifactPaths
}

// Recorder persists conversion progress. The manifest store implements
// it; a nil Recorder disables persistence.
type Recorder interface {
	CreateRun(recording string, shuffleSeed int64, splatKernel int) (string, error)
	InsertFrame(runID string, row FrameRecord) error
	FinishRun(runID string, status string) error
}

// Run statuses written through the Recorder.
const (
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// progressInterval is how many frames pass between progress log lines.
const progressInterval = 100

// Summary reports what one Run produced.
type Summary struct {
	RunID       string
	Recording   string
	Frames      int
	Points      int
	Vehicles    int
	Pedestrians int
	Cyclists    int
	OutputDir   string // dataset root, the parent of the split directories
}

// Extractor converts every frame of a source into artifact bundles on
// disk. All frames land in the train split; Redistribute moves the
// validation and test shares afterwards.
type Extractor struct {
	fs  fsutil.FileSystem
	cfg *config.ConversionConfig
	rec Recorder
}

// New creates an extractor. A nil cfg uses defaults for everything.
func New(fs fsutil.FileSystem, cfg *config.ConversionConfig) *Extractor {
	if cfg == nil {
		cfg = config.EmptyConversionConfig()
	}
	return &Extractor{fs: fs, cfg: cfg}
}

// SetRecorder attaches a manifest recorder to subsequent runs.
func (e *Extractor) SetRecorder(r Recorder) { e.rec = r }

// Run converts frames from src until the source is exhausted, the
// configured max-frames limit is reached, or the context is canceled. In
// debug mode it stops after the first frame so a single bundle can be
// inspected quickly.
func (e *Extractor) Run(ctx context.Context, src FrameSource) (*Summary, error) {
	// Recording names come from container headers and end up in artifact
	// filenames and manifest rows.
	recording := security.SanitizeFilename(src.Name())
	outDir := filepath.Join(e.cfg.GetOutputDir(), SplitTrain)
	if err := e.fs.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var runID string
	if e.rec != nil {
		var err error
		runID, err = e.rec.CreateRun(recording, e.cfg.GetShuffleSeed(), e.cfg.GetSplatKernelSize())
		if err != nil {
			return nil, fmt.Errorf("create manifest run: %w", err)
		}
	}

	summary := &Summary{RunID: runID, Recording: recording, OutputDir: e.cfg.GetOutputDir()}
	kernel := e.cfg.GetSplatKernelSize()
	maxFrames := e.cfg.GetMaxFrames()
	debug := e.cfg.GetDebug()

	for {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(runID, err)
		}
		if maxFrames > 0 && summary.Frames >= maxFrames {
			break
		}

		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, e.fail(runID, fmt.Errorf("read frame: %w", err))
		}

		tensors, err := ConvertFrame(f, kernel)
		if err != nil {
			return nil, e.fail(runID, fmt.Errorf("frame %d: %w", f.Index, err))
		}

		paths, err := WriteFrameArtifacts(e.fs, outDir, recording, f.Index, tensors, e.cfg.GetExportNumpy())
		if err != nil {
			return nil, e.fail(runID, fmt.Errorf("frame %d: %w", f.Index, err))
		}

		vehicles, pedestrians, cyclists := countLabels(f.Labels)
		summary.Frames++
		summary.Points += len(f.Points)
		summary.Vehicles += vehicles
		summary.Pedestrians += pedestrians
		summary.Cyclists += cyclists

		if e.rec != nil {
			row := FrameRecord{
				Recording:      recording,
				FrameIndex:     f.Index,
				TimestampNanos: f.TimestampNanos,
				PointCount:     len(f.Points),
				Vehicles:       vehicles,
				Pedestrians:    pedestrians,
				Cyclists:       cyclists,
				Paths:          paths,
			}
			if err := e.rec.InsertFrame(runID, row); err != nil {
				return nil, e.fail(runID, fmt.Errorf("record frame %d: %w", f.Index, err))
			}
		}

		monitoring.Debugf("extract: frame %d of %s: %d points, %d labels",
			f.Index, recording, len(f.Points), len(f.Labels))
		if summary.Frames%progressInterval == 0 {
			monitoring.Logf("extract: %d frames converted (%d points so far)",
				summary.Frames, summary.Points)
		}

		if debug {
			monitoring.Logf("extract: debug mode, stopping after frame %d", f.Index)
			break
		}
	}

	if e.rec != nil {
		if err := e.rec.FinishRun(runID, RunStatusComplete); err != nil {
			return nil, fmt.Errorf("finish manifest run: %w", err)
		}
	}

	monitoring.Logf("extract: converted %d frames of %s into %s",
		summary.Frames, recording, outDir)
	return summary, nil
}

// fail marks the manifest run failed, keeping the original error.
func (e *Extractor) fail(runID string, err error) error {
	if e.rec != nil && runID != "" {
		if ferr := e.rec.FinishRun(runID, RunStatusFailed); ferr != nil {
			monitoring.Logf("extract: could not mark run %s failed: %v", runID, ferr)
		}
	}
	return err
}

// countLabels tallies labels per class. Unknown classes are counted by
// ConvertFrame's heat map synthesis failing, not here.
func countLabels(labels []tensorize.Label) (vehicles, pedestrians, cyclists int) {
	for _, l := range labels {
		switch l.Class {
		case tensorize.ClassVehicle:
			vehicles++
		case tensorize.ClassPedestrian:
			pedestrians++
		case tensorize.ClassCyclist:
			cyclists++
		}
	}
	return vehicles, pedestrians, cyclists
}
