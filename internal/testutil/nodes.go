// Package testutil provides deterministic fakes for engine tests and the
// scenario harness: an in-memory scene node and node-set builders.
package testutil

import (
	"github.com/strataboard/strata/internal/engine"
	"github.com/strataboard/strata/internal/layer"
)

// FakeNode is an in-memory scene-graph node recording everything the
// engine pushes onto it. It stands in for the host rendering engine's
// live handle.
//
// Thread-safety: none; tests drive the engine from one goroutine.
type FakeNode struct {
	Pos     layer.Vec2
	Scl     layer.Vec2
	Rot     float64
	Visible bool
	Opacity float64
	ZIndex  int
	Filters []engine.Filter

	// SetCalls counts every setter invocation, letting tests assert that
	// a deferred visual half really was deferred.
	SetCalls int
}

// NewFakeNode creates a visible unit-scale node at the origin.
func NewFakeNode() *FakeNode {
	return &FakeNode{Scl: layer.Vec2{X: 1, Y: 1}, Visible: true, Opacity: 1}
}

// Position returns the node's live position.
func (n *FakeNode) Position() layer.Vec2 { return n.Pos }

// SetPosition moves the node.
func (n *FakeNode) SetPosition(p layer.Vec2) { n.Pos = p; n.SetCalls++ }

// Scale returns the live per-axis scale.
func (n *FakeNode) Scale() layer.Vec2 { return n.Scl }

// SetScale sets the per-axis scale.
func (n *FakeNode) SetScale(s layer.Vec2) { n.Scl = s; n.SetCalls++ }

// Rotation returns the live rotation in degrees.
func (n *FakeNode) Rotation() float64 { return n.Rot }

// SetRotation sets the rotation in degrees.
func (n *FakeNode) SetRotation(deg float64) { n.Rot = deg; n.SetCalls++ }

// SetVisible toggles node visibility.
func (n *FakeNode) SetVisible(visible bool) { n.Visible = visible; n.SetCalls++ }

// SetOpacity sets node opacity in [0, 1].
func (n *FakeNode) SetOpacity(alpha float64) { n.Opacity = alpha; n.SetCalls++ }

// SetZIndex sets the node's render stack rank.
func (n *FakeNode) SetZIndex(z int) { n.ZIndex = z; n.SetCalls++ }

// SetFilters replaces the attached filter list.
func (n *FakeNode) SetFilters(filters []engine.Filter) {
	n.Filters = append([]engine.Filter(nil), filters...)
	n.SetCalls++
}

// HasFilter reports whether a filter of the given kind is attached.
func (n *FakeNode) HasFilter(kind engine.FilterKind) bool {
	for _, f := range n.Filters {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// NewFakeNodes creates n fake nodes and the NodeSet over them.
func NewFakeNodes(n int) ([]*FakeNode, engine.NodeSet) {
	fakes := make([]*FakeNode, n)
	set := make(engine.NodeSet, n)
	for i := range fakes {
		fakes[i] = NewFakeNode()
		set[i] = fakes[i]
	}
	return fakes, set
}
