package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataboard/strata/internal/layer"
)

func TestNew_CenteredDefaults(t *testing.T) {
	s := New(3, 800, 600)

	require.Equal(t, 3, s.Len())
	for i := 0; i < 3; i++ {
		r, ok := s.Get(i)
		require.True(t, ok)
		assert.Equal(t, layer.Vec2{X: 400, Y: 300}, r.Position)
		assert.Equal(t, i, r.Order)
		assert.True(t, r.Visible)
	}
}

func TestGet_OutOfRange(t *testing.T) {
	s := New(2, 100, 100)

	_, ok := s.Get(-1)
	assert.False(t, ok)
	_, ok = s.Get(2)
	assert.False(t, ok)
}

func TestSet_MergesAndClamps(t *testing.T) {
	s := New(1, 100, 100)

	got := s.Set(0, Patch{Scale: Vec(50, -50), Rotation: Float(33)})

	require.NotNil(t, got)
	assert.Equal(t, 10.0, got.Scale.X, "scale magnitude clamps to 10")
	assert.Equal(t, -10.0, got.Scale.Y, "sign is preserved")
	assert.Equal(t, 33.0, got.Rotation)
	assert.Equal(t, layer.Vec2{X: 50, Y: 50}, got.Position, "untouched fields survive the merge")
}

func TestSet_ReclampsAdjustmentsOnEveryWrite(t *testing.T) {
	s := New(1, 100, 100)

	got := s.Set(0, Patch{Brightness: Float(5), Opacity: Float(250)})

	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Adjustments.Brightness)
	assert.Equal(t, 100.0, got.Adjustments.Opacity)
}

func TestSet_OutOfRangeIsNoOp(t *testing.T) {
	s := New(1, 100, 100)

	assert.Nil(t, s.Set(5, Patch{Rotation: Float(90)}))
	assert.Nil(t, s.Set(-1, Patch{Rotation: Float(90)}))

	r, _ := s.Get(0)
	assert.Equal(t, 0.0, r.Rotation, "state unchanged after out-of-range set")
}

func TestSet_ReturnedRecordDetached(t *testing.T) {
	s := New(1, 100, 100)

	got := s.Set(0, Patch{Rotation: Float(10)})
	got.Rotation = 999

	r, _ := s.Get(0)
	assert.Equal(t, 10.0, r.Rotation)
}

func TestReplaceAll_KeepsValidPermutation(t *testing.T) {
	s := New(0, 100, 100)

	in := []layer.Record{
		{Order: 2, Scale: layer.Vec2{X: 1, Y: 1}, Adjustments: layer.DefaultAdjustments()},
		{Order: 0, Scale: layer.Vec2{X: 1, Y: 1}, Adjustments: layer.DefaultAdjustments()},
		{Order: 1, Scale: layer.Vec2{X: 1, Y: 1}, Adjustments: layer.DefaultAdjustments()},
	}
	s.ReplaceAll(in)

	assert.Equal(t, []int{1, 2, 0}, s.IndexesByOrder())
}

func TestReplaceAll_ResetsBrokenOrder(t *testing.T) {
	s := New(0, 100, 100)

	in := []layer.Record{
		{Order: 7, Scale: layer.Vec2{X: 1, Y: 1}},
		{Order: 7, Scale: layer.Vec2{X: 1, Y: 1}},
	}
	s.ReplaceAll(in)

	for i := 0; i < 2; i++ {
		r, _ := s.Get(i)
		assert.Equal(t, i, r.Order)
	}
}

func TestReplaceAll_DetachedFromInput(t *testing.T) {
	s := New(0, 100, 100)
	in := []layer.Record{layer.DefaultRecord(0, 10, 10)}

	s.ReplaceAll(in)
	in[0].Rotation = 360

	r, _ := s.Get(0)
	assert.Equal(t, 0.0, r.Rotation)
}

func TestNormalize_Idempotent(t *testing.T) {
	s := New(0, 100, 100)
	s.ReplaceAll([]layer.Record{
		{Scale: layer.Vec2{X: 99, Y: 0}, Adjustments: layer.Adjustments{Brightness: 9, Opacity: -5}},
	})

	s.Normalize()
	first := s.Records()
	s.Normalize()
	second := s.Records()

	assert.Equal(t, first, second)
}

func TestResize_PadsWithDefaults(t *testing.T) {
	s := New(1, 200, 200)
	s.Set(0, Patch{Rotation: Float(45)})

	s.Resize(3, 200, 200)

	require.Equal(t, 3, s.Len())
	r0, _ := s.Get(0)
	assert.Equal(t, 45.0, r0.Rotation, "existing layers survive a grow")
	r2, _ := s.Get(2)
	assert.Equal(t, 2, r2.Order)
	assert.Equal(t, layer.Vec2{X: 100, Y: 100}, r2.Position)
}

func TestResize_TruncatesAndCompactsRanks(t *testing.T) {
	s := New(3, 100, 100)
	// Put layer 0 on top so truncation leaves a rank gap.
	require.True(t, s.MoveLayer(0, 1))
	require.True(t, s.MoveLayer(0, 1))

	s.Resize(2, 100, 100)

	require.Equal(t, 2, s.Len())
	assert.True(t, layer.ValidOrderPermutation(s.Records()), "ranks compact after truncation")
}

func TestMoveLayer_SwapsAdjacentRanks(t *testing.T) {
	s := New(3, 100, 100)

	require.True(t, s.MoveLayer(1, 1))

	r1, _ := s.Get(1)
	r2, _ := s.Get(2)
	assert.Equal(t, 2, r1.Order)
	assert.Equal(t, 1, r2.Order)
	assert.True(t, layer.ValidOrderPermutation(s.Records()))
}

func TestMoveLayer_RoundTripRestoresPermutation(t *testing.T) {
	s := New(3, 100, 100)
	before := s.Records()

	require.True(t, s.MoveLayer(1, 1))
	require.True(t, s.MoveLayer(1, -1))

	assert.Equal(t, before, s.Records())
}

func TestMoveLayer_BoundaryIsNoOp(t *testing.T) {
	s := New(2, 100, 100)

	assert.False(t, s.MoveLayer(1, 1), "top layer cannot move up")
	assert.False(t, s.MoveLayer(0, -1), "bottom layer cannot move down")
	assert.False(t, s.MoveLayer(5, 1))
	assert.False(t, s.MoveLayer(0, 2), "direction must be a single step")
}

func TestRemove_CompactsRanks(t *testing.T) {
	s := New(3, 100, 100)
	require.True(t, s.MoveLayer(0, 1)) // orders: 1,0,2

	require.True(t, s.Remove(1))

	require.Equal(t, 2, s.Len())
	assert.True(t, layer.ValidOrderPermutation(s.Records()))
}

func TestAppend_NextFreeRank(t *testing.T) {
	s := New(2, 100, 100)

	i := s.Append(layer.Record{Scale: layer.Vec2{X: 1, Y: 1}})

	assert.Equal(t, 2, i)
	r, _ := s.Get(2)
	assert.Equal(t, 2, r.Order)
}

func TestSetVisibleSetLocked(t *testing.T) {
	s := New(1, 100, 100)

	got := s.SetVisible(0, false)
	require.NotNil(t, got)
	assert.False(t, got.Visible)

	got = s.SetLocked(0, true)
	require.NotNil(t, got)
	assert.True(t, got.Locked)
}
