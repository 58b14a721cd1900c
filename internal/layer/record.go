package layer

// Vec2 is a two-axis value used for position, scale, and skew.
// Axes are independent; non-uniform scale is permitted.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Adjustment value ranges. Every write path re-clamps to these bounds,
// including values arriving from deserialized input.
const (
	BrightnessMin = -1.0
	BrightnessMax = 1.0
	ContrastMin   = -100.0
	ContrastMax   = 100.0
	SaturationMin = -100.0
	SaturationMax = 100.0
	OpacityMin    = 0.0
	OpacityMax    = 100.0

	// ScaleMinMagnitude and ScaleMaxMagnitude bound the absolute value of
	// each scale axis during interactive edits. Sign is preserved.
	ScaleMinMagnitude = 0.1
	ScaleMaxMagnitude = 10.0

	// DefaultOpacity is the only non-zero adjustment default.
	DefaultOpacity = 100.0

	// FilterEpsilon is the near-zero threshold below which a visual filter
	// is detached instead of applied with a no-op parameter.
	FilterEpsilon = 0.001
)

// Adjustments holds the per-layer color adjustment parameters.
// Defaults: brightness 0, contrast 0, saturation 0, opacity 100.
type Adjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Opacity    float64 `json:"opacity"`
}

// DefaultAdjustments returns the documented adjustment defaults.
func DefaultAdjustments() Adjustments {
	return Adjustments{Opacity: DefaultOpacity}
}

// IsDefault reports whether a (already normalized) Adjustments equals the
// defaults. Used to skip filter attachment entirely.
func (a Adjustments) IsDefault() bool {
	return a == DefaultAdjustments()
}

// SourceRef identifies the backing image asset for a layer.
// It is mutable only when the asset itself is replaced, never on
// transform edits.
type SourceRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Record is the authoritative per-layer state.
//
// A record is addressed by its stable slice index (insertion order =
// document order). The render rank lives in Order and is independent of
// that index; the two are never conflated.
type Record struct {
	Position Vec2 `json:"position"`
	Scale    Vec2 `json:"scale"`
	// Rotation is in degrees and unbounded.
	Rotation float64 `json:"rotation"`
	// Skew is reserved for forward compatibility and defaults to zero.
	Skew    Vec2 `json:"skew"`
	Visible bool `json:"visible"`
	Locked  bool `json:"locked"`
	// Order is the desired render rank among layers, used to reconstruct
	// z-order after reload.
	Order       int         `json:"order"`
	Adjustments Adjustments `json:"adjustments"`
	Source      SourceRef   `json:"source"`
}

// DefaultRecord returns the record created when an image is added to a
// document: centered on the canvas, unit scale, no rotation, visible.
func DefaultRecord(order int, canvasW, canvasH float64) Record {
	return Record{
		Position:    Vec2{X: canvasW / 2, Y: canvasH / 2},
		Scale:       Vec2{X: 1, Y: 1},
		Visible:     true,
		Order:       order,
		Adjustments: DefaultAdjustments(),
	}
}

// Clone returns a copy of the record. Record contains no reference types,
// so a value copy is a deep copy; the method exists to make snapshot
// boundaries explicit at call sites.
func (r Record) Clone() Record {
	return r
}

// CloneSlice deep-copies a record slice. Snapshots taken for history and
// persistence mirroring must never alias live store memory.
func CloneSlice(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// ValidOrderPermutation reports whether the Order fields of records form a
// permutation of [0..N-1]. Persisted order values are trusted only when
// this holds; otherwise ranks are reset to slice indexes.
func ValidOrderPermutation(records []Record) bool {
	seen := make([]bool, len(records))
	for _, r := range records {
		if r.Order < 0 || r.Order >= len(records) || seen[r.Order] {
			return false
		}
		seen[r.Order] = true
	}
	return true
}
