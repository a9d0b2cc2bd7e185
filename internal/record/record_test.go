package record

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/tensorize"
)

func testFrames() []*Frame {
	return []*Frame{
		{
			Index:          0,
			TimestampNanos: 1717243200_000_000_000,
			ImageJPEG:      []byte{0xff, 0xd8, 0x01, 0x02},
			Points: []tensorize.Point{
				{X: 10.5, Y: 20.25, Range: 5},
				{X: 0, Y: 0, Range: 74.5},
			},
			Labels: []tensorize.Label{
				{Class: tensorize.ClassVehicle, X: 100, Y: 200, Width: 50, Height: 40},
			},
		},
		{
			Index:          1,
			TimestampNanos: 1717243200_100_000_000,
			ImageJPEG:      []byte{0xff, 0xd8, 0x03},
			Points: []tensorize.Point{
				{X: 1919, Y: 1279, Range: 33},
			},
			Labels: []tensorize.Label{
				{Class: tensorize.ClassPedestrian, X: -3, Y: 5, Width: 20, Height: 60},
				{Class: tensorize.ClassCyclist, X: 500, Y: 600, Width: 80, Height: 90},
			},
		},
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	w, err := Create(fs, "drive.drec", "segment-0001")
	require.NoError(t, err)

	frames := testFrames()
	for _, f := range frames {
		require.NoError(t, w.Append(f))
	}
	assert.Equal(t, len(frames), w.FrameCount())
	require.NoError(t, w.Close())

	r, err := Open(fs, "drive.drec")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "segment-0001", r.Name())

	for i, want := range frames {
		got, err := r.Next()
		require.NoError(t, err, "frame %d", i)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("frame %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF), "expected io.EOF after last frame, got %v", err)
}

func TestRecordingEmptyFrame(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	w, err := Create(fs, "empty.drec", "empty")
	require.NoError(t, err)
	require.NoError(t, w.Append(&Frame{Index: 7, TimestampNanos: 42}))
	require.NoError(t, w.Close())

	r, err := Open(fs, "empty.drec")
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got.Index)
	assert.Equal(t, int64(42), got.TimestampNanos)
	assert.Empty(t, got.ImageJPEG)
	assert.Empty(t, got.Points)
	assert.Empty(t, got.Labels)
}

func TestReaderRejectsCorruptPayload(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	w, err := Create(fs, "corrupt.drec", "corrupt")
	require.NoError(t, err)
	require.NoError(t, w.Append(testFrames()[0]))
	require.NoError(t, w.Close())

	data, err := fs.ReadFile("corrupt.drec")
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, fs.WriteFile("corrupt.drec", data, 0644))

	r, err := Open(fs, "corrupt.drec")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksum), "got %v", err)
}

func TestReaderRejectsTruncatedFile(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	w, err := Create(fs, "short.drec", "short")
	require.NoError(t, err)
	require.NoError(t, w.Append(testFrames()[0]))
	require.NoError(t, w.Close())

	data, err := fs.ReadFile("short.drec")
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("short.drec", data[:len(data)-5], 0644))

	r, err := Open(fs, "short.drec")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF), "truncation must not read as clean EOF")
}

func TestReaderRejectsForeignFile(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("noise.bin", []byte("XXXXthis is not a recording"), 0644))

	_, err := Open(fs, "noise.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadMagic), "got %v", err)
}

func TestReaderRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	header := append([]byte{}, magic[:]...)
	header = append(header, 99, 0, 0) // future version, empty name
	require.NoError(t, fs.WriteFile("future.drec", header, 0644))

	_, err := Open(fs, "future.drec")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported recording version")
}

func TestSyntheticDeterminism(t *testing.T) {
	t.Parallel()

	a := NewSynthetic(SyntheticConfig{Seed: 7, PointsPerFrame: 90, ImageQuality: 50})
	b := NewSynthetic(SyntheticConfig{Seed: 7, PointsPerFrame: 90, ImageQuality: 50})

	fa, err := a.Next()
	require.NoError(t, err)
	fb, err := b.Next()
	require.NoError(t, err)

	if diff := cmp.Diff(fa, fb); diff != "" {
		t.Errorf("same seed produced different frames (-a +b):\n%s", diff)
	}
}

func TestSyntheticFramesAreWellFormed(t *testing.T) {
	t.Parallel()

	gen := NewSynthetic(SyntheticConfig{Seed: 3, PointsPerFrame: 120, ImageQuality: 50})
	for i := 0; i < 3; i++ {
		f, err := gen.Next()
		require.NoError(t, err)
		assert.Equal(t, uint32(i), f.Index)
		assert.NotEmpty(t, f.ImageJPEG)
		require.Len(t, f.Labels, 3)

		for _, l := range f.Labels {
			_, err := l.Class.Channel()
			assert.NoError(t, err, "synthetic label class must map to a channel")
		}
		for _, p := range f.Points {
			assert.GreaterOrEqual(t, p.X, float32(0))
			assert.Less(t, p.X, float32(tensorize.GridWidth))
			assert.GreaterOrEqual(t, p.Y, float32(0))
			assert.Less(t, p.Y, float32(tensorize.GridHeight))
			assert.Greater(t, p.Range, float32(0))
		}
	}
}
