package extract

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/tensor.report/internal/fsutil"
	"github.com/banshee-data/tensor.report/internal/monitoring"
)

// Split directory names under the output directory.
const (
	SplitTrain      = "train"
	SplitValidation = "val"
	SplitTest       = "test"
)

// SplitAssignment records where one frame bundle landed after
// redistribution.
type SplitAssignment struct {
	Recording  string
	FrameIndex uint32
	Split      string
}

// Redistribute shuffles the frame bundles under outDir/train with the
// given seed and moves the validation and test shares into their split
// directories. Counts truncate: with 10 bundles and fractions 0.1/0.1,
// one bundle goes to val and one to test. The returned assignments cover
// every bundle, train included. Stems are sorted before the seeded
// shuffle, so the same seed reproduces the same assignment.
func Redistribute(fs fsutil.FileSystem, outDir string, seed int64, valFraction, testFraction float64) ([]SplitAssignment, error) {
	if valFraction < 0 || testFraction < 0 || valFraction+testFraction > 1 {
		return nil, fmt.Errorf("invalid split fractions val=%f test=%f", valFraction, testFraction)
	}

	trainDir := filepath.Join(outDir, SplitTrain)
	stems, err := bundleStems(fs, trainDir)
	if err != nil {
		return nil, err
	}
	if len(stems) == 0 {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(stems), func(i, j int) { stems[i], stems[j] = stems[j], stems[i] })

	valCount := int(float64(len(stems)) * valFraction)
	testCount := int(float64(len(stems)) * testFraction)

	assignments := make([]SplitAssignment, 0, len(stems))
	for i, stem := range stems {
		split := SplitTrain
		switch {
		case i < valCount:
			split = SplitValidation
		case i < valCount+testCount:
			split = SplitTest
		}

		recording, frameIndex, err := parseStem(stem)
		if err != nil {
			return nil, err
		}

		if split != SplitTrain {
			if err := moveBundle(fs, trainDir, filepath.Join(outDir, split), stem); err != nil {
				return nil, err
			}
		}
		assignments = append(assignments, SplitAssignment{
			Recording:  recording,
			FrameIndex: frameIndex,
			Split:      split,
		})
	}

	monitoring.Logf("extract: redistributed %d bundles: %d train, %d val, %d test",
		len(stems), len(stems)-valCount-testCount, valCount, testCount)
	return assignments, nil
}

// bundleStems lists the frame bundle stems in dir, derived from the image
// artifacts, in sorted order.
func bundleStems(fs fsutil.FileSystem, dir string) ([]string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	prefix := KindImage + "_"
	var stems []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(strings.TrimPrefix(name, prefix), artifactExt))
	}
	sort.Strings(stems)
	return stems, nil
}

// parseStem splits "<recording>_<frame>" at the last underscore.
func parseStem(stem string) (string, uint32, error) {
	cut := strings.LastIndex(stem, "_")
	if cut < 0 || cut == len(stem)-1 {
		return "", 0, fmt.Errorf("malformed bundle stem %q", stem)
	}
	frame, err := strconv.ParseUint(stem[cut+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed bundle stem %q: %w", stem, err)
	}
	return stem[:cut], uint32(frame), nil
}

// moveBundle renames every artifact of one stem from srcDir to dstDir,
// npy mirrors included when present.
func moveBundle(fs fsutil.FileSystem, srcDir, dstDir, stem string) error {
	if err := fs.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("create split directory %s: %w", dstDir, err)
	}

	for _, kind := range []string{KindImage, KindLidar, KindHeatMap, KindLabels} {
		name := kind + "_" + stem + artifactExt
		if err := fs.Rename(filepath.Join(srcDir, name), filepath.Join(dstDir, name)); err != nil {
			return fmt.Errorf("move %s: %w", name, err)
		}

		npyName := kind + "_" + stem + npyExt
		if fs.Exists(filepath.Join(srcDir, npyName)) {
			if err := fs.Rename(filepath.Join(srcDir, npyName), filepath.Join(dstDir, npyName)); err != nil {
				return fmt.Errorf("move %s: %w", npyName, err)
			}
		}
	}
	return nil
}
