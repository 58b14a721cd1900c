package engine

import (
	"log/slog"

	"github.com/strataboard/strata/internal/store"
)

// SelectionController owns single-selection state and the transient
// z-order promotion that puts the selected layer on top of the live
// render stack.
//
// Two states: Idle (no selection) and Selected(i). Selecting a different
// layer while one is selected always deselects first with a full z-order
// restore; there is no state-to-state shortcut, so z-order can never be
// left inconsistent.
//
// Selection never enters history directly; it only affects which node
// draws on top and which one receives interaction handles.
type SelectionController struct {
	store *store.Store
	nodes func() NodeSet

	// onChange is notified with the new selected index (-1 for none)
	// after every transition. UI enable/disable is the host's business.
	onChange func(selected int)

	selected int
	// defaultOrder holds each node's z-index at capture time, indexed by
	// stable layer index. Captured once per selection episode and used as
	// the single authoritative source for restoration on deselect.
	defaultOrder []int
	captured     bool
}

// NewSelectionController creates an Idle controller over the given store.
// nodes supplies the live node set on demand (the set changes during
// loading); onChange may be nil.
func NewSelectionController(s *store.Store, nodes func() NodeSet, onChange func(int)) *SelectionController {
	return &SelectionController{
		store:    s,
		nodes:    nodes,
		onChange: onChange,
		selected: -1,
	}
}

// Selected returns the selected layer index, or -1 when Idle.
func (c *SelectionController) Selected() int {
	return c.selected
}

// Select transitions to Selected(i). Locked layers are never selectable;
// the call is rejected and the previous selection (or Idle) is kept.
// Selecting the already-selected layer is a no-op.
func (c *SelectionController) Select(i int) error {
	rec, ok := c.store.Get(i)
	if !ok {
		err := newInvalidIndexError(i, c.store.Len())
		slog.Warn("select rejected", "error", err)
		return err
	}
	if rec.Locked {
		err := newLockedLayerError(i, "")
		slog.Debug("select rejected: layer locked", "index", i)
		return err
	}
	if c.selected == i {
		return nil
	}
	if c.selected >= 0 {
		c.Deselect()
	}

	if !c.captured {
		c.captureOrder()
	}
	c.promote(i)
	c.selected = i

	slog.Debug("layer selected", "index", i)
	c.notify()
	return nil
}

// Deselect restores every live node's z-order from the captured default
// order and transitions to Idle. This is the only place z-order is
// authoritatively restored.
func (c *SelectionController) Deselect() {
	if c.selected < 0 && !c.captured {
		return
	}

	ns := c.nodes()
	for i, z := range c.defaultOrder {
		if n := ns.Get(i); n != nil {
			n.SetZIndex(z)
		}
	}
	c.selected = -1
	c.captured = false
	c.defaultOrder = nil

	slog.Debug("selection cleared")
	c.notify()
}

// Reset drops selection state without touching nodes. Called when the
// layer set is replaced (reset, reload, count change) and the captured
// order no longer describes valid nodes.
func (c *SelectionController) Reset() {
	c.selected = -1
	c.captured = false
	c.defaultOrder = nil
	c.notify()
}

// captureOrder records each layer's current render rank as the z-order to
// restore on deselect.
func (c *SelectionController) captureOrder() {
	records := c.store.Records()
	c.defaultOrder = make([]int, len(records))
	for i, r := range records {
		c.defaultOrder[i] = r.Order
	}
	c.captured = true
}

// promote raises node i above every captured rank. Store order is not
// touched: promotion is transient render state only.
func (c *SelectionController) promote(i int) {
	n := c.nodes().Get(i)
	if n == nil {
		// Visual promotion deferred; selection state still advances.
		slog.Debug("promote deferred: render node not attached", "index", i)
		return
	}
	n.SetZIndex(c.store.Len())
}

func (c *SelectionController) notify() {
	if c.onChange != nil {
		c.onChange(c.selected)
	}
}
