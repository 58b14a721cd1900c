package engine

import "github.com/strataboard/strata/internal/layer"

// FilterKind names a color filter attached to a render node.
type FilterKind string

// Filter kinds the adjustment engine attaches.
const (
	FilterBrightness FilterKind = "brightness"
	FilterContrast   FilterKind = "contrast"
	FilterSaturation FilterKind = "saturation"
)

// Filter is one color filter parameter applied to a render node.
type Filter struct {
	Kind  FilterKind
	Value float64
}

// Node is the opaque handle for one live scene-graph render node. The
// engine never assumes anything about the handle's internal
// representation beyond this surface.
//
// Implementations belong to the host rendering engine; testutil.FakeNode
// provides the in-memory one used by tests and the harness.
type Node interface {
	// Position returns the node's live canvas position.
	Position() layer.Vec2
	// SetPosition moves the node.
	SetPosition(p layer.Vec2)

	// Scale returns the live per-axis scale.
	Scale() layer.Vec2
	// SetScale sets the per-axis scale.
	SetScale(s layer.Vec2)

	// Rotation returns the live rotation in degrees.
	Rotation() float64
	// SetRotation sets the rotation in degrees.
	SetRotation(deg float64)

	// SetVisible toggles node visibility.
	SetVisible(visible bool)

	// SetOpacity sets node opacity in [0, 1].
	SetOpacity(alpha float64)

	// SetZIndex sets the node's rank in the live render stack; higher
	// values draw on top.
	SetZIndex(z int)

	// SetFilters replaces the node's attached filter list. An empty slice
	// detaches all filters.
	SetFilters(filters []Filter)
}

// NodeSet is the ordered collection of live render handles, one slot per
// layer record. A nil slot means the node is not attached yet, which is
// tolerated during async image loading: store operations proceed and the
// visual half is deferred.
type NodeSet []Node

// Get returns the node for layer i, or nil when the slot is out of range
// or unattached.
func (ns NodeSet) Get(i int) Node {
	if i < 0 || i >= len(ns) {
		return nil
	}
	return ns[i]
}
