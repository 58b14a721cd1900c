package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataboard/strata/internal/store"
)

func newTestSelection(n int) (*SelectionController, *store.Store, []*stubNode, *[]int) {
	s := store.New(n, 800, 600)
	stubs, set := newStubNodes(n)
	for i := range stubs {
		stubs[i].zIndex = i
	}
	var changes []int
	c := NewSelectionController(s, func() NodeSet { return set }, func(sel int) {
		changes = append(changes, sel)
	})
	return c, s, stubs, &changes
}

func TestSelect_PromotesAboveEveryRank(t *testing.T) {
	c, _, stubs, changes := newTestSelection(3)

	require.NoError(t, c.Select(1))

	assert.Equal(t, 1, c.Selected())
	assert.Equal(t, 3, stubs[1].zIndex, "selected node sits above all captured ranks")
	assert.Equal(t, 0, stubs[0].zIndex)
	assert.Equal(t, 2, stubs[2].zIndex)
	assert.Equal(t, []int{1}, *changes)
}

func TestDeselect_RestoresCapturedOrder(t *testing.T) {
	c, _, stubs, changes := newTestSelection(3)

	require.NoError(t, c.Select(2))
	c.Deselect()

	assert.Equal(t, -1, c.Selected())
	for i, st := range stubs {
		assert.Equal(t, i, st.zIndex, "node %d back at its captured rank", i)
	}
	assert.Equal(t, []int{2, -1}, *changes)
}

func TestDeselect_IdleIsNoOp(t *testing.T) {
	c, _, _, changes := newTestSelection(2)

	c.Deselect()

	assert.Equal(t, -1, c.Selected())
	assert.Empty(t, *changes, "no transition, no notification")
}

func TestSelect_LockedRejectedKeepsCurrent(t *testing.T) {
	c, s, stubs, _ := newTestSelection(3)
	require.NotNil(t, s.SetLocked(2, true))
	require.NoError(t, c.Select(0))

	err := c.Select(2)

	require.Error(t, err)
	assert.True(t, IsLockedLayer(err))
	assert.Equal(t, 0, c.Selected(), "previous selection survives the rejection")
	assert.Equal(t, 3, stubs[0].zIndex)
}

func TestSelect_InvalidIndexRejected(t *testing.T) {
	c, _, _, _ := newTestSelection(2)

	err := c.Select(5)

	require.Error(t, err)
	assert.True(t, IsInvalidIndex(err))
	assert.Equal(t, -1, c.Selected())
}

func TestSelect_SameIndexIsNoOp(t *testing.T) {
	c, _, _, changes := newTestSelection(2)

	require.NoError(t, c.Select(1))
	require.NoError(t, c.Select(1))

	assert.Equal(t, []int{1}, *changes, "re-selecting the selected layer notifies nobody")
}

func TestSelect_SwitchRestoresBeforePromoting(t *testing.T) {
	c, _, stubs, changes := newTestSelection(3)

	require.NoError(t, c.Select(0))
	require.NoError(t, c.Select(2))

	assert.Equal(t, 2, c.Selected())
	assert.Equal(t, 0, stubs[0].zIndex, "previous selection fully restored first")
	assert.Equal(t, 3, stubs[2].zIndex)
	assert.Equal(t, []int{0, -1, 2}, *changes)
}

func TestSelect_MissingNodeStillAdvancesState(t *testing.T) {
	s := store.New(2, 800, 600)
	c := NewSelectionController(s, func() NodeSet { return NodeSet{nil, nil} }, nil)

	require.NoError(t, c.Select(1))

	assert.Equal(t, 1, c.Selected(), "visual promotion defers, selection state does not")
}

func TestReset_DropsStateWithoutTouchingNodes(t *testing.T) {
	c, _, stubs, changes := newTestSelection(3)

	require.NoError(t, c.Select(1))
	c.Reset()

	assert.Equal(t, -1, c.Selected())
	assert.Equal(t, 3, stubs[1].zIndex, "reset never writes z-order")
	assert.Equal(t, []int{1, -1}, *changes)

	// The stale captured order is gone; the next episode recaptures.
	require.NoError(t, c.Select(0))
	c.Deselect()
	assert.Equal(t, 0, stubs[0].zIndex)
}
