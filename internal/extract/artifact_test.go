package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/tensorize"
	"github.com/banshee-data/tensor.report/internal/testutil"
)

func TestTensorArtifactRoundTrip(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	backing := make([]float32, 24)
	for i := range backing {
		backing[i] = float32(i) * 0.5
	}
	src := tensor.New(tensor.WithShape(1, 4, 6), tensor.WithBacking(backing))

	require.NoError(t, SaveTensor(fs, "out/lidar_rec_000001.gob.gz", src))
	assert.True(t, fs.Exists("out/lidar_rec_000001.gob.gz"))

	loaded, err := LoadTensor(fs, "out/lidar_rec_000001.gob.gz")
	require.NoError(t, err)
	testutil.AssertTensorShape(t, loaded, 1, 4, 6)
	if diff := cmp.Diff(backing, testutil.TensorData(t, loaded)); diff != "" {
		t.Errorf("tensor data mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelsArtifactRoundTrip(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	labels := []tensorize.Label{
		{Class: tensorize.ClassVehicle, X: 100, Y: 200, Width: 50, Height: 40},
		{Class: tensorize.ClassCyclist, X: -5, Y: 0, Width: 30, Height: 60},
	}

	require.NoError(t, SaveLabels(fs, "out/labels_rec_000001.gob.gz", labels))

	loaded, err := LoadLabels(fs, "out/labels_rec_000001.gob.gz")
	require.NoError(t, err)
	if diff := cmp.Diff(labels, loaded); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTensorErrors(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()

	_, err := LoadTensor(fs, "missing.gob.gz")
	require.Error(t, err)

	require.NoError(t, fs.WriteFile("junk.gob.gz", []byte("not gzip data"), 0644))
	_, err = LoadTensor(fs, "junk.gob.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gunzip")
}

func TestSafeArtifactPath(t *testing.T) {
	t.Parallel()

	t.Run("plain name stays under the directory", func(t *testing.T) {
		t.Parallel()
		got, err := safeArtifactPath("out/train", "img_rec_000001.gob.gz")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("out/train", "img_rec_000001.gob.gz"), got)
	})

	t.Run("nested name keeps only the base component", func(t *testing.T) {
		t.Parallel()
		got, err := safeArtifactPath("out/train", "../../etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("out/train", "passwd"), got)
	})

	t.Run("dot names are rejected", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{".", "..", ""} {
			_, err := safeArtifactPath("out/train", name)
			testutil.AssertError(t, err)
		}
	})
}

func TestExportTensorNpy(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	src := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))

	require.NoError(t, ExportTensorNpy(fs, "out/img_rec_000001.npy", src))

	data, err := fs.ReadFile("out/img_rec_000001.npy")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY")), "npy file should start with the numpy magic")
}

func TestWriteFrameArtifacts(t *testing.T) {
	t.Parallel()

	newTensors := func() *FrameTensors {
		return &FrameTensors{
			Image:    tensor.New(tensor.WithShape(3, 2, 2), tensor.Of(tensor.Float32)),
			Lidar:    tensor.New(tensor.WithShape(1, 2, 2), tensor.Of(tensor.Float32)),
			HeatMaps: tensor.New(tensor.WithShape(3, 2, 2), tensor.Of(tensor.Float32)),
			Labels:   []tensorize.Label{{Class: tensorize.ClassVehicle, X: 1, Y: 1, Width: 2, Height: 2}},
		}
	}

	t.Run("writes the four blobs", func(t *testing.T) {
		t.Parallel()
		fs := fsutil.NewMemoryFileSystem()

		paths, err := WriteFrameArtifacts(fs, "out/train", "drive", 7, newTensors(), false)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join("out/train", "img_drive_000007.gob.gz"), paths.Image)
		assert.Equal(t, filepath.Join("out/train", "lidar_drive_000007.gob.gz"), paths.Lidar)
		assert.Equal(t, filepath.Join("out/train", "heat_map_drive_000007.gob.gz"), paths.HeatMap)
		assert.Equal(t, filepath.Join("out/train", "labels_drive_000007.gob.gz"), paths.Labels)
		for _, p := range []string{paths.Image, paths.Lidar, paths.HeatMap, paths.Labels} {
			assert.True(t, fs.Exists(p), "expected %s to exist", p)
		}

		entries, err := fs.ReadDir("out/train")
		require.NoError(t, err)
		assert.Len(t, entries, 4, "no npy mirrors without export_numpy")
	})

	t.Run("mirrors tensors as npy when asked", func(t *testing.T) {
		t.Parallel()
		fs := fsutil.NewMemoryFileSystem()

		_, err := WriteFrameArtifacts(fs, "out/train", "drive", 7, newTensors(), true)
		require.NoError(t, err)

		for _, kind := range []string{KindImage, KindLidar, KindHeatMap} {
			name := filepath.Join("out/train", kind+"_drive_000007"+npyExt)
			assert.True(t, fs.Exists(name), "expected %s to exist", name)
		}
		assert.False(t, fs.Exists(filepath.Join("out/train", "labels_drive_000007"+npyExt)),
			"labels have no tensor form and no npy mirror")
	})
}

func TestArtifactNameParts(t *testing.T) {
	t.Parallel()

	name := ArtifactName(KindHeatMap, "segment-12", 42)
	assert.Equal(t, "heat_map_segment-12_000042.gob.gz", name)
	assert.True(t, strings.HasSuffix(name, artifactExt))
}
