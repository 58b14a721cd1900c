package store

import "github.com/strataboard/strata/internal/layer"

// Patch is a partial update merged into a record by Store.Set. Nil fields
// are left untouched; the merged record is always re-normalized, so a
// patch cannot smuggle an out-of-range value into the store.
//
// Source is deliberately absent from the transform fields: asset identity
// changes only when the backing image is replaced, never on a transform
// edit, so it gets its own field that callers must set explicitly.
type Patch struct {
	Position *layer.Vec2
	Scale    *layer.Vec2
	Rotation *float64
	Skew     *layer.Vec2
	Visible  *bool
	Locked   *bool
	Order    *int

	Brightness *float64
	Contrast   *float64
	Saturation *float64
	Opacity    *float64

	Source *layer.SourceRef
}

func (p Patch) apply(r layer.Record) layer.Record {
	if p.Position != nil {
		r.Position = *p.Position
	}
	if p.Scale != nil {
		r.Scale = *p.Scale
	}
	if p.Rotation != nil {
		r.Rotation = *p.Rotation
	}
	if p.Skew != nil {
		r.Skew = *p.Skew
	}
	if p.Visible != nil {
		r.Visible = *p.Visible
	}
	if p.Locked != nil {
		r.Locked = *p.Locked
	}
	if p.Order != nil {
		r.Order = *p.Order
	}
	if p.Brightness != nil {
		r.Adjustments.Brightness = *p.Brightness
	}
	if p.Contrast != nil {
		r.Adjustments.Contrast = *p.Contrast
	}
	if p.Saturation != nil {
		r.Adjustments.Saturation = *p.Saturation
	}
	if p.Opacity != nil {
		r.Adjustments.Opacity = *p.Opacity
	}
	if p.Source != nil {
		r.Source = *p.Source
	}
	return r
}

// Float returns a pointer to v, for concise Patch literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for concise Patch literals.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for concise Patch literals.
func Bool(v bool) *bool { return &v }

// Vec returns a pointer to a Vec2, for concise Patch literals.
func Vec(x, y float64) *layer.Vec2 { return &layer.Vec2{X: x, Y: y} }
