package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tensor.report/internal/config"
	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/record"
	"github.com/banshee-data/tensor.report/internal/tensorize"
	"github.com/banshee-data/tensor.report/internal/testutil"
)

// encodeJPEG renders a flat gray image of the given size.
func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, gray)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}))
	return buf.Bytes()
}

func TestConvertFrame(t *testing.T) {
	t.Parallel()

	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 5, PointsPerFrame: 200, ImageQuality: 60})
	f, err := gen.Next()
	require.NoError(t, err)

	ft, err := ConvertFrame(f, tensorize.DefaultSplatKernel)
	require.NoError(t, err)

	testutil.AssertTensorShape(t, ft.Image, 3, tensorize.TargetHeight, tensorize.TargetWidth)
	testutil.AssertTensorShape(t, ft.Lidar, 1, tensorize.TargetHeight, tensorize.TargetWidth)
	testutil.AssertTensorShape(t, ft.HeatMaps, tensorize.NumClasses, tensorize.TargetHeight, tensorize.TargetWidth)
	assert.Equal(t, f.Labels, ft.Labels)

	for _, v := range testutil.TensorData(t, ft.Image) {
		if v < 0 || v > 255 {
			t.Fatalf("image value %v out of 0-255", v)
		}
	}

	lidarData := testutil.TensorData(t, ft.Lidar)
	for _, v := range lidarData {
		if v < 0 {
			t.Fatalf("lidar value %v below zero", v)
		}
	}
	assert.Positive(t, testutil.CountNonZero(lidarData), "lidar returns should survive pooling")
	assert.Positive(t, testutil.CountNonZero(testutil.TensorData(t, ft.HeatMaps)),
		"three labeled actors should produce heat map cells")
}

func TestConvertFrameUnknownLabelClass(t *testing.T) {
	t.Parallel()

	f := &record.Frame{
		ImageJPEG: encodeJPEG(t, tensorize.GridWidth, tensorize.GridHeight),
		Points:    []tensorize.Point{{X: 10, Y: 10, Range: 5}},
		Labels:    []tensorize.Label{{Class: 9, X: 1, Y: 1, Width: 10, Height: 10}},
	}

	_, err := ConvertFrame(f, tensorize.DefaultSplatKernel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensorize.ErrUnknownLabelClass), "got %v", err)
}

func TestConvertFrameImageErrors(t *testing.T) {
	t.Parallel()

	t.Run("garbage bytes", func(t *testing.T) {
		t.Parallel()
		f := &record.Frame{ImageJPEG: []byte("not a jpeg")}
		_, err := ConvertFrame(f, tensorize.DefaultSplatKernel)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode frame image")
	})

	t.Run("wrong resolution", func(t *testing.T) {
		t.Parallel()
		f := &record.Frame{ImageJPEG: encodeJPEG(t, 64, 48)}
		_, err := ConvertFrame(f, tensorize.DefaultSplatKernel)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported image size")
	})
}

// fakeRecorder captures Recorder calls for assertions.
type fakeRecorder struct {
	frames     []FrameRecord
	statuses   []string
	failInsert bool
}

func (r *fakeRecorder) CreateRun(recording string, shuffleSeed int64, splatKernel int) (string, error) {
	return "run-1", nil
}

func (r *fakeRecorder) InsertFrame(runID string, row FrameRecord) error {
	if r.failInsert {
		return fmt.Errorf("insert failed")
	}
	r.frames = append(r.frames, row)
	return nil
}

func (r *fakeRecorder) FinishRun(runID string, status string) error {
	r.statuses = append(r.statuses, status)
	return nil
}

func testConfig(maxFrames int) *config.ConversionConfig {
	cfg := config.EmptyConversionConfig()
	if maxFrames > 0 {
		cfg.MaxFrames = &maxFrames
	}
	return cfg
}

func TestExtractorRun(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 2, PointsPerFrame: 150, ImageQuality: 50})

	ex := New(fs, testConfig(3))
	sum, err := ex.Run(context.Background(), gen)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Frames)
	assert.Equal(t, "synthetic", sum.Recording)
	assert.Equal(t, "out", sum.OutputDir)
	assert.Positive(t, sum.Points)
	assert.Equal(t, 3, sum.Vehicles, "one vehicle per frame")
	assert.Equal(t, 3, sum.Pedestrians)
	assert.Equal(t, 3, sum.Cyclists)

	for i := 0; i < 3; i++ {
		for _, kind := range []string{KindImage, KindLidar, KindHeatMap, KindLabels} {
			path := "out/train/" + ArtifactName(kind, "synthetic", uint32(i))
			assert.True(t, fs.Exists(path), "expected %s", path)
		}
	}

	lidar, err := LoadTensor(fs, "out/train/"+ArtifactName(KindLidar, "synthetic", 0))
	require.NoError(t, err)
	testutil.AssertTensorShape(t, lidar, 1, tensorize.TargetHeight, tensorize.TargetWidth)

	labels, err := LoadLabels(fs, "out/train/"+ArtifactName(KindLabels, "synthetic", 0))
	require.NoError(t, err)
	assert.Len(t, labels, 3)
}

func TestExtractorRunDebugStopsAfterFirstFrame(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	cfg := config.EmptyConversionConfig()
	debug := true
	cfg.Debug = &debug

	// The synthetic source never ends; debug mode must still terminate.
	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 2, PointsPerFrame: 90, ImageQuality: 50})
	sum, err := New(fs, cfg).Run(context.Background(), gen)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Frames)
}

func TestExtractorRunRecordsManifest(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	rec := &fakeRecorder{}
	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 4, PointsPerFrame: 90, ImageQuality: 50})

	ex := New(fs, testConfig(2))
	ex.SetRecorder(rec)
	sum, err := ex.Run(context.Background(), gen)
	require.NoError(t, err)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, []string{RunStatusComplete}, rec.statuses)
	require.Len(t, rec.frames, 2)

	first := rec.frames[0]
	assert.Equal(t, "synthetic", first.Recording)
	assert.Equal(t, uint32(0), first.FrameIndex)
	assert.Positive(t, first.PointCount)
	assert.Equal(t, 1, first.Vehicles)
	assert.Equal(t, 1, first.Pedestrians)
	assert.Equal(t, 1, first.Cyclists)
	assert.NotEmpty(t, first.Paths.Image)
	assert.NotEmpty(t, first.Paths.Labels)
}

func TestExtractorRunMarksFailedRuns(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	rec := &fakeRecorder{failInsert: true}
	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 4, PointsPerFrame: 90, ImageQuality: 50})

	ex := New(fs, testConfig(2))
	ex.SetRecorder(rec)
	_, err := ex.Run(context.Background(), gen)
	require.Error(t, err)
	assert.Equal(t, []string{RunStatusFailed}, rec.statuses)
}

func TestExtractorRunCanceledContext(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 4, PointsPerFrame: 90, ImageQuality: 50})
	_, err := New(fs, testConfig(5)).Run(ctx, gen)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestExtractorRunFromRecordingFile(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()

	// Record two synthetic frames into a container, then convert from it.
	gen := record.NewSynthetic(record.SyntheticConfig{Seed: 8, PointsPerFrame: 120, ImageQuality: 50})
	w, err := record.Create(fs, "drive.drec", "drive-08")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		f, err := gen.Next()
		require.NoError(t, err)
		require.NoError(t, w.Append(f))
	}
	require.NoError(t, w.Close())

	r, err := record.Open(fs, "drive.drec")
	require.NoError(t, err)
	defer r.Close()

	sum, err := New(fs, config.EmptyConversionConfig()).Run(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Frames, "reader hits io.EOF after the recorded frames")
	assert.Equal(t, "drive-08", sum.Recording)
	assert.True(t, fs.Exists("out/train/"+ArtifactName(KindImage, "drive-08", 1)))
}

func TestExtractorRunSanitizesRecordingName(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	gen := record.NewSynthetic(record.SyntheticConfig{
		Name:           "../evil/drive 01",
		Seed:           3,
		PointsPerFrame: 120,
		ImageQuality:   50,
	})

	sum, err := New(fs, testConfig(1)).Run(context.Background(), gen)
	require.NoError(t, err)

	assert.Equal(t, "evil_drive_01", sum.Recording)
	assert.True(t, fs.Exists("out/train/"+ArtifactName(KindImage, "evil_drive_01", 0)))
}
