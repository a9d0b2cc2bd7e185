package tensorize

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// DefaultOverlapThreshold is the binarization cutoff for overlap scoring.
// Heat-map confidences at or above it count as occupied.
const DefaultOverlapThreshold = 0.7

// OverlapScores computes the per-class thresholded IoU of two channel-first
// (classes, height, width) maps. Both maps are binarized with ≥ threshold;
// per channel the score is |intersection| / |union|. A channel where the
// union is empty scores exactly 0, never NaN.
func OverlapScores(estimate, truth *tensor.Dense, threshold float64) ([]float64, error) {
	estData, err := float32sOf(estimate)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	truthData, err := float32sOf(truth)
	if err != nil {
		return nil, fmt.Errorf("truth: %w", err)
	}

	estShape := estimate.Shape()
	if len(estShape) != 3 {
		return nil, fmt.Errorf("estimate shape %v, want (classes, height, width)", estShape)
	}
	if !estShape.Eq(truth.Shape()) {
		return nil, fmt.Errorf("shape mismatch: estimate %v, truth %v", estShape, truth.Shape())
	}

	classes := estShape[0]
	plane := estShape[1] * estShape[2]
	cutoff := float32(threshold)

	scores := make([]float64, classes)
	for c := 0; c < classes; c++ {
		base := c * plane
		scores[c] = overlapRatio(estData[base:base+plane], truthData[base:base+plane], cutoff)
	}
	return scores, nil
}

// BatchOverlapScores computes OverlapScores per batch instance of two
// (batch, classes, height, width) tensors and averages across the batch
// dimension only, returning one score per class.
func BatchOverlapScores(estimates, truths *tensor.Dense, threshold float64) ([]float64, error) {
	estData, err := float32sOf(estimates)
	if err != nil {
		return nil, fmt.Errorf("estimates: %w", err)
	}
	truthData, err := float32sOf(truths)
	if err != nil {
		return nil, fmt.Errorf("truths: %w", err)
	}

	estShape := estimates.Shape()
	if len(estShape) != 4 {
		return nil, fmt.Errorf("estimates shape %v, want (batch, classes, height, width)", estShape)
	}
	if !estShape.Eq(truths.Shape()) {
		return nil, fmt.Errorf("shape mismatch: estimates %v, truths %v", estShape, truths.Shape())
	}
	batch := estShape[0]
	if batch == 0 {
		return nil, errors.New("empty batch")
	}

	classes := estShape[1]
	plane := estShape[2] * estShape[3]
	instance := classes * plane
	cutoff := float32(threshold)

	perClass := make([][]float64, classes)
	for c := range perClass {
		perClass[c] = make([]float64, batch)
	}
	for b := 0; b < batch; b++ {
		for c := 0; c < classes; c++ {
			base := b*instance + c*plane
			perClass[c][b] = overlapRatio(estData[base:base+plane], truthData[base:base+plane], cutoff)
		}
	}

	scores := make([]float64, classes)
	for c := range scores {
		scores[c] = stat.Mean(perClass[c], nil)
	}
	return scores, nil
}

// overlapRatio is the thresholded IoU of two equal-length planes.
func overlapRatio(estimate, truth []float32, cutoff float32) float64 {
	var intersection, union int
	for i := range estimate {
		e := estimate[i] >= cutoff
		t := truth[i] >= cutoff
		if e && t {
			intersection++
		}
		if e || t {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
