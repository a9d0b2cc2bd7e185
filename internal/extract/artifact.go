package extract

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorgonia.org/tensor"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/tensorize"
)

// Artifact kind prefixes. A frame bundle is the four files sharing one
// <recording>_<frame> stem.
const (
	KindImage   = "img"
	KindLidar   = "lidar"
	KindHeatMap = "heat_map"
	KindLabels  = "labels"
)

// artifactExt is the extension of the gzipped gob blobs the pipeline
// writes; npyExt marks the optional numpy mirrors.
const (
	artifactExt = ".gob.gz"
	npyExt      = ".npy"
)

// ArtifactStem builds the shared filename stem of one frame's bundle.
func ArtifactStem(recording string, frameIndex uint32) string {
	return fmt.Sprintf("%s_%06d", recording, frameIndex)
}

// ArtifactName builds the filename of one artifact.
func ArtifactName(kind, recording string, frameIndex uint32) string {
	return kind + "_" + ArtifactStem(recording, frameIndex) + artifactExt
}

// safeArtifactPath anchors a user-influenced filename under dir. Only the
// last path component of name is used, and the joined path must still sit
// inside dir after cleaning. Recording names come from container headers,
// so they are treated as untrusted.
func safeArtifactPath(dir, name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == ".." || base == "" {
		return "", fmt.Errorf("invalid artifact filename %q", name)
	}
	dirClean := filepath.Clean(dir)
	joined := filepath.Clean(filepath.Join(dirClean, base))
	if joined != dirClean && !strings.HasPrefix(joined, dirClean+string(os.PathSeparator)) {
		return "", fmt.Errorf("artifact path %q escapes directory %q", name, dir)
	}
	return joined, nil
}

// SaveTensor writes a dense tensor to path as a gzipped gob blob.
func SaveTensor(fs fsutil.FileSystem, path string, t *tensor.Dense) error {
	var b bytes.Buffer
	gw := gzip.NewWriter(&b)
	if err := gob.NewEncoder(gw).Encode(t); err != nil {
		return fmt.Errorf("gob encode tensor: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	if err := fs.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("write tensor artifact: %w", err)
	}
	return nil
}

// LoadTensor reads a gzipped gob tensor blob back.
func LoadTensor(fs fsutil.FileSystem, path string) (*tensor.Dense, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tensor artifact: %w", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip tensor artifact: %w", err)
	}
	defer gz.Close()

	t := new(tensor.Dense)
	if err := gob.NewDecoder(gz).Decode(t); err != nil {
		return nil, fmt.Errorf("gob decode tensor: %w", err)
	}
	return t, nil
}

// SaveLabels writes a frame's labels to path as a gzipped gob blob.
func SaveLabels(fs fsutil.FileSystem, path string, labels []tensorize.Label) error {
	var b bytes.Buffer
	gw := gzip.NewWriter(&b)
	if err := gob.NewEncoder(gw).Encode(labels); err != nil {
		return fmt.Errorf("gob encode labels: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	if err := fs.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("write labels artifact: %w", err)
	}
	return nil
}

// LoadLabels reads a gzipped gob labels blob back.
func LoadLabels(fs fsutil.FileSystem, path string) ([]tensorize.Label, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels artifact: %w", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip labels artifact: %w", err)
	}
	defer gz.Close()

	var labels []tensorize.Label
	if err := gob.NewDecoder(gz).Decode(&labels); err != nil {
		return nil, fmt.Errorf("gob decode labels: %w", err)
	}
	return labels, nil
}

// ExportTensorNpy writes a tensor in numpy .npy format so artifacts can be
// inspected from Python without the Go loader.
func ExportTensorNpy(fs fsutil.FileSystem, path string, t *tensor.Dense) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create npy export: %w", err)
	}
	if err := t.WriteNpy(f); err != nil {
		f.Close()
		return fmt.Errorf("write npy export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close npy export: %w", err)
	}
	return nil
}

// ArtifactPaths lists where one frame's bundle was written.
type ArtifactPaths struct {
	Image   string
	Lidar   string
	HeatMap string
	Labels  string
}

// WriteFrameArtifacts persists one frame's tensors under dir and returns
// the paths written. With exportNpy set, the three tensors are mirrored as
// .npy files next to the blobs.
func WriteFrameArtifacts(fs fsutil.FileSystem, dir, recording string, frameIndex uint32, ft *FrameTensors, exportNpy bool) (ArtifactPaths, error) {
	var paths ArtifactPaths

	writes := []struct {
		kind   string
		tensor *tensor.Dense
		dest   *string
	}{
		{KindImage, ft.Image, &paths.Image},
		{KindLidar, ft.Lidar, &paths.Lidar},
		{KindHeatMap, ft.HeatMaps, &paths.HeatMap},
	}
	for _, w := range writes {
		path, err := safeArtifactPath(dir, ArtifactName(w.kind, recording, frameIndex))
		if err != nil {
			return ArtifactPaths{}, err
		}
		if err := SaveTensor(fs, path, w.tensor); err != nil {
			return ArtifactPaths{}, fmt.Errorf("%s artifact: %w", w.kind, err)
		}
		*w.dest = path
		if exportNpy {
			npyPath := strings.TrimSuffix(path, artifactExt) + npyExt
			if err := ExportTensorNpy(fs, npyPath, w.tensor); err != nil {
				return ArtifactPaths{}, fmt.Errorf("%s npy export: %w", w.kind, err)
			}
		}
	}

	labelsPath, err := safeArtifactPath(dir, ArtifactName(KindLabels, recording, frameIndex))
	if err != nil {
		return ArtifactPaths{}, err
	}
	if err := SaveLabels(fs, labelsPath, ft.Labels); err != nil {
		return ArtifactPaths{}, fmt.Errorf("%s artifact: %w", KindLabels, err)
	}
	paths.Labels = labelsPath

	return paths, nil
}
