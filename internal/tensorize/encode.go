package tensorize

// Range re-encoding constants. Raw ranges arrive in meters, clipped by the
// sensor to [0, MaxRangeMeters] with NoReturn as the no-return sentinel.
// The piecewise-linear remap stretches the near band (≤25m, where most
// distinguishable objects sit) across a wider value range than the far
// band, and parks no-return cells at a value below every real return.
const (
	// MaxRangeMeters is the sensor truncation distance.
	MaxRangeMeters float32 = 75

	// noReturnRange is the value no-return cells are moved to before band
	// mapping, placing them just past the far band's real returns.
	noReturnRange float32 = 76

	nearBandMaxMeters float32 = 25 // near/far band boundary
	farBandMaxMeters  float32 = 76 // includes relocated no-return cells

	nearBandScale  float32 = -6.2
	nearBandOffset float32 = 255
	farBandScale   float32 = -2
	farBandOffset  float32 = 150
)

// EncodeRanges applies the piecewise-linear range remap in place:
//
//	raw > 75      → clipped to 75
//	raw == -1     → 76 (no-return band)
//	raw ≤ 25      → raw × −6.2 + 255   (near band, (100, 255])
//	25 < raw ≤ 76 → raw × −2 + 150    (far band, [−2, 100))
//
// The far band can produce small negatives; the downsampling stage clamps
// them after pooling. The remap is applied exactly once per conversion.
func EncodeRanges(values []float32) {
	for i, v := range values {
		if v > MaxRangeMeters {
			v = MaxRangeMeters
		}
		if v == NoReturn {
			v = noReturnRange
		}
		switch {
		case v <= nearBandMaxMeters:
			v = v*nearBandScale + nearBandOffset
		case v <= farBandMaxMeters:
			v = v*farBandScale + farBandOffset
		}
		values[i] = v
	}
}
