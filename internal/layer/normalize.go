package layer

import "math"

// clampFinite clamps v into [min, max], substituting def when v is NaN or
// infinite. Deserialized input can carry anything; normalization must not
// let a poisoned float propagate into live state.
func clampFinite(v, min, max, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// finiteOr returns v unless it is NaN or infinite, in which case def.
func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// ClampScaleAxis clamps one scale axis to the permitted magnitude range,
// preserving sign. A non-finite axis falls back to the unit scale 1; a
// zero axis clamps to +ScaleMinMagnitude.
func ClampScaleAxis(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	mag := math.Abs(v)
	if mag < ScaleMinMagnitude {
		mag = ScaleMinMagnitude
	} else if mag > ScaleMaxMagnitude {
		mag = ScaleMaxMagnitude
	}
	if v < 0 {
		return -mag
	}
	return mag
}

// Normalize clamps every bounded field of a into range.
func (a Adjustments) Normalize() Adjustments {
	return Adjustments{
		Brightness: clampFinite(a.Brightness, BrightnessMin, BrightnessMax, 0),
		Contrast:   clampFinite(a.Contrast, ContrastMin, ContrastMax, 0),
		Saturation: clampFinite(a.Saturation, SaturationMin, SaturationMax, 0),
		Opacity:    clampFinite(a.Opacity, OpacityMin, OpacityMax, DefaultOpacity),
	}
}

// Normalize returns the record with every bounded field clamped into range
// and every non-finite float replaced by its default.
//
// Normalize is idempotent: Normalize(Normalize(r)) == Normalize(r).
func (r Record) Normalize() Record {
	out := r
	out.Position.X = finiteOr(r.Position.X, 0)
	out.Position.Y = finiteOr(r.Position.Y, 0)
	out.Scale.X = ClampScaleAxis(r.Scale.X)
	out.Scale.Y = ClampScaleAxis(r.Scale.Y)
	out.Rotation = finiteOr(r.Rotation, 0)
	out.Skew.X = finiteOr(r.Skew.X, 0)
	out.Skew.Y = finiteOr(r.Skew.Y, 0)
	out.Adjustments = r.Adjustments.Normalize()
	return out
}

// NormalizeAll normalizes every record in place and resets Order to the
// slice index when the stored ranks do not form a valid permutation.
func NormalizeAll(records []Record) {
	valid := ValidOrderPermutation(records)
	for i := range records {
		records[i] = records[i].Normalize()
		if !valid {
			records[i].Order = i
		}
	}
}
