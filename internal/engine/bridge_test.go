package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataboard/strata/internal/history"
	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/store"
)

// stubNode is the minimal in-package Node for collaborator-level tests.
// Document-level tests use testutil.FakeNode from the external package.
type stubNode struct {
	pos     layer.Vec2
	scale   layer.Vec2
	rot     float64
	visible bool
	opacity float64
	zIndex  int
	filters []Filter
}

func newStubNode() *stubNode {
	return &stubNode{scale: layer.Vec2{X: 1, Y: 1}, visible: true, opacity: 1}
}

func (n *stubNode) Position() layer.Vec2     { return n.pos }
func (n *stubNode) SetPosition(p layer.Vec2) { n.pos = p }
func (n *stubNode) Scale() layer.Vec2        { return n.scale }
func (n *stubNode) SetScale(s layer.Vec2)    { n.scale = s }
func (n *stubNode) Rotation() float64        { return n.rot }
func (n *stubNode) SetRotation(deg float64)  { n.rot = deg }
func (n *stubNode) SetVisible(v bool)        { n.visible = v }
func (n *stubNode) SetOpacity(a float64)     { n.opacity = a }
func (n *stubNode) SetZIndex(z int)          { n.zIndex = z }
func (n *stubNode) SetFilters(f []Filter)    { n.filters = append([]Filter(nil), f...) }

func newStubNodes(n int) ([]*stubNode, NodeSet) {
	stubs := make([]*stubNode, n)
	set := make(NodeSet, n)
	for i := range stubs {
		stubs[i] = newStubNode()
		set[i] = stubs[i]
	}
	return stubs, set
}

type commitCall struct {
	kind  history.Kind
	token string
}

// commitRecorder captures the bridge's history callbacks without running
// a real history manager.
type commitRecorder struct {
	now       []commitCall
	debounced []commitCall
	mirrors   int
}

func (r *commitRecorder) commitNow(kind history.Kind, token string) {
	r.now = append(r.now, commitCall{kind, token})
}

func (r *commitRecorder) commitDebounced(kind history.Kind, token string) {
	r.debounced = append(r.debounced, commitCall{kind, token})
}

func (r *commitRecorder) mirror([]layer.Record) { r.mirrors++ }

func newTestBridge(n int) (*TransformSyncBridge, *store.Store, []*stubNode, *commitRecorder) {
	s := store.New(n, 800, 600)
	stubs, set := newStubNodes(n)
	rec := &commitRecorder{}
	b := newTransformSyncBridge(bridgeConfig{
		store:           s,
		nodes:           func() NodeSet { return set },
		tokens:          NewFixedGenerator("t1", "t2", "t3"),
		mirror:          rec.mirror,
		commitNow:       rec.commitNow,
		commitDebounced: rec.commitDebounced,
	})
	// Nodes start where the store says they are.
	for i, st := range stubs {
		r, _ := s.Get(i)
		st.pos = r.Position
		st.scale = r.Scale
		st.rot = r.Rotation
	}
	return b, s, stubs, rec
}

func TestHandleGesture_DragLifecycle(t *testing.T) {
	b, s, stubs, rec := newTestBridge(2)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureDragStart, Index: 0}))
	assert.Equal(t, PhaseInteracting, b.Phase())
	assert.True(t, b.IsInteracting())
	assert.Equal(t, "t1", b.Token())
	require.Len(t, b.TransformStartSnapshot(), 2)

	stubs[0].pos = layer.Vec2{X: 120, Y: 80}
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureDragMove, Index: 0}))
	r, _ := s.Get(0)
	assert.Equal(t, layer.Vec2{X: 120, Y: 80}, r.Position, "store follows the live node on every move")

	stubs[0].pos = layer.Vec2{X: 150, Y: 90}
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureDragEnd, Index: 0}))

	r, _ = s.Get(0)
	assert.Equal(t, layer.Vec2{X: 150, Y: 90}, r.Position)
	assert.Equal(t, PhaseIdle, b.Phase())
	assert.Empty(t, b.Token())
	assert.Nil(t, b.TransformStartSnapshot())

	require.Len(t, rec.now, 1, "drag end commits exactly once")
	assert.Equal(t, commitCall{history.KindTransform, "t1"}, rec.now[0])
	assert.Empty(t, rec.debounced)
}

func TestHandleGesture_TransformLifecycle(t *testing.T) {
	b, s, stubs, rec := newTestBridge(1)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureTransformStart, Index: 0}))
	stubs[0].scale = layer.Vec2{X: 2, Y: 2}
	stubs[0].rot = 45
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureTransformMove, Index: 0}))
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureTransformEnd, Index: 0}))

	r, _ := s.Get(0)
	assert.Equal(t, layer.Vec2{X: 2, Y: 2}, r.Scale)
	assert.Equal(t, 45.0, r.Rotation)
	require.Len(t, rec.now, 1)
	assert.Equal(t, history.KindTransform, rec.now[0].kind)
}

func TestHandleGesture_LockedRejectedBeforePhaseTransition(t *testing.T) {
	b, s, _, rec := newTestBridge(2)
	require.NotNil(t, s.SetLocked(1, true))

	err := b.HandleGesture(GestureEvent{Kind: GestureDragStart, Index: 1})

	require.Error(t, err)
	assert.True(t, IsLockedLayer(err))
	assert.Equal(t, PhaseIdle, b.Phase(), "a rejected gesture never opens")
	assert.Empty(t, b.Token())
	assert.Empty(t, rec.now)
	assert.Empty(t, rec.debounced)
}

func TestHandleGesture_InvalidIndex(t *testing.T) {
	b, _, _, rec := newTestBridge(2)

	err := b.HandleGesture(GestureEvent{Kind: GestureDragStart, Index: 7})

	require.Error(t, err)
	assert.True(t, IsInvalidIndex(err))
	assert.Equal(t, PhaseIdle, b.Phase())
	assert.Empty(t, rec.now)
}

func TestHandleGesture_MoveWithoutStartOpensImplicitly(t *testing.T) {
	b, s, stubs, _ := newTestBridge(1)

	stubs[0].pos = layer.Vec2{X: 10, Y: 20}
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureDragMove, Index: 0}))

	assert.Equal(t, PhaseInteracting, b.Phase())
	assert.Equal(t, "t1", b.Token())
	r, _ := s.Get(0)
	assert.Equal(t, layer.Vec2{X: 10, Y: 20}, r.Position)
}

func TestSyncFromNode_MissingNodeIsNoOp(t *testing.T) {
	s := store.New(1, 800, 600)
	rec := &commitRecorder{}
	b := newTransformSyncBridge(bridgeConfig{
		store:           s,
		nodes:           func() NodeSet { return NodeSet{nil} },
		tokens:          NewFixedGenerator("t1"),
		mirror:          rec.mirror,
		commitNow:       rec.commitNow,
		commitDebounced: rec.commitDebounced,
	})

	err := b.HandleGesture(GestureEvent{Kind: GestureDragMove, Index: 0})

	require.Error(t, err)
	assert.True(t, IsMissingNode(err))
	r, _ := s.Get(0)
	assert.Equal(t, layer.Vec2{X: 400, Y: 300}, r.Position, "store untouched without a node to read")
}

func TestSyncFromNode_ClampPushesBackToNode(t *testing.T) {
	b, s, stubs, _ := newTestBridge(1)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureTransformStart, Index: 0}))
	stubs[0].scale = layer.Vec2{X: 50, Y: -0.001}
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureTransformMove, Index: 0}))

	r, _ := s.Get(0)
	assert.Equal(t, layer.Vec2{X: 10, Y: -0.1}, r.Scale)
	assert.Equal(t, layer.Vec2{X: 10, Y: -0.1}, stubs[0].scale, "the node never renders outside range")
}

func TestHandleWheel_MultiplicativeAndDebounced(t *testing.T) {
	b, s, stubs, rec := newTestBridge(1)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: 1}))
	}

	r, _ := s.Get(0)
	assert.InDelta(t, 1.331, r.Scale.X, 1e-9, "three ticks compound multiplicatively")
	assert.InDelta(t, 1.331, r.Scale.Y, 1e-9)
	assert.InDelta(t, 1.331, stubs[0].scale.X, 1e-9)

	assert.Empty(t, rec.now, "wheel never commits immediately")
	require.Len(t, rec.debounced, 3)
	for _, c := range rec.debounced {
		assert.Equal(t, commitCall{history.KindTransform, "t1"}, c, "one token spans the burst")
	}
}

func TestHandleWheel_ClampsAtBounds(t *testing.T) {
	b, s, _, _ := newTestBridge(1)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: 40}))
	r, _ := s.Get(0)
	assert.Equal(t, 10.0, r.Scale.X)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: -80}))
	r, _ = s.Get(0)
	assert.Equal(t, 0.1, r.Scale.X)
}

func TestHandleWheel_DeferredNodeStillWritesStore(t *testing.T) {
	s := store.New(1, 800, 600)
	rec := &commitRecorder{}
	b := newTransformSyncBridge(bridgeConfig{
		store:           s,
		nodes:           func() NodeSet { return NodeSet{nil} },
		tokens:          NewFixedGenerator("t1"),
		mirror:          rec.mirror,
		commitNow:       rec.commitNow,
		commitDebounced: rec.commitDebounced,
	})

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: 2}))

	r, _ := s.Get(0)
	assert.InDelta(t, 1.21, r.Scale.X, 1e-9, "the store half proceeds; the visual half defers")
	require.Len(t, rec.debounced, 1)
}

func TestFinalizeWheelBurst(t *testing.T) {
	b, _, _, _ := newTestBridge(1)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: 1}))
	require.Equal(t, PhaseInteracting, b.Phase())

	b.FinalizeWheelBurst(b.Token())
	assert.Equal(t, PhaseIdle, b.Phase())
	assert.Empty(t, b.Token())

	// Idle finalize is a no-op.
	b.FinalizeWheelBurst("t1")
	assert.Equal(t, PhaseIdle, b.Phase())
}

func TestFinalizeWheelBurst_StaleTokenKeepsActiveGesture(t *testing.T) {
	b, _, stubs, _ := newTestBridge(2)

	// Burst on layer 0; its commit is still pending when a drag opens on
	// layer 1.
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: 1}))
	burstToken := b.Token()
	stubs[1].pos = layer.Vec2{X: 30, Y: 40}
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureDragStart, Index: 1}))
	dragToken := b.Token()
	require.NotEqual(t, burstToken, dragToken)

	b.FinalizeWheelBurst(burstToken)

	assert.Equal(t, PhaseInteracting, b.Phase(), "the drag survives the late burst finalize")
	assert.Equal(t, dragToken, b.Token())
	assert.NotNil(t, b.TransformStartSnapshot())
}

func TestHandleWheel_NewIndexOpensNewGesture(t *testing.T) {
	b, _, _, _ := newTestBridge(2)

	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 0, WheelTicks: 1}))
	first := b.Token()
	require.NoError(t, b.HandleGesture(GestureEvent{Kind: GestureWheel, Index: 1, WheelTicks: 1}))

	assert.NotEqual(t, first, b.Token(), "switching layers mid burst mints a fresh token")
}

func TestWheelScaleStep_DefaultOnNonPositive(t *testing.T) {
	b := newTransformSyncBridge(bridgeConfig{
		store:          store.New(1, 100, 100),
		nodes:          func() NodeSet { return NodeSet{nil} },
		tokens:         NewFixedGenerator(),
		wheelScaleStep: -1,
	})
	assert.Equal(t, DefaultWheelScaleStep, b.wheelScaleStep)
}
