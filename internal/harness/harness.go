// Package harness provides a scenario-driven conformance framework for
// the document engine. Scenarios are YAML scripts of editing operations
// (drags, wheel bursts, slider moves, undo/redo) executed against a
// fresh in-memory document with deterministic gesture tokens; assertions
// and golden snapshots validate the final state.
//
// Debounce never fires on its own in the harness: the window is set far
// beyond any test's lifetime and scripts flush explicitly with the
// "flush" op. A scenario therefore reads as a complete causal record of
// its history entries.
package harness

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/strataboard/strata/internal/engine"
	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/persist"
	"github.com/strataboard/strata/internal/testutil"
)

// harnessDebounceWindow keeps timers from firing during a scripted run.
const harnessDebounceWindow = time.Hour

// TraceEvent records one executed step and its outcome.
type TraceEvent struct {
	Op      string `json:"op"`
	Index   int    `json:"index"`
	Outcome string `json:"outcome"` // "ok" or "rejected"
	Detail  string `json:"detail,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}, Errors: []string{}}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(op string, index int, outcome, detail string) {
	r.Trace = append(r.Trace, TraceEvent{Op: op, Index: index, Outcome: outcome, Detail: detail})
}

// Harness drives one scenario against a live document.
type Harness struct {
	doc   *engine.Document
	fakes []*testutil.FakeNode
	sink  *persist.MemoryStore
}

// Run executes a scenario and returns the result. Each scenario runs in
// a fresh document with its own in-memory persistence, fake nodes, and
// fixed gesture tokens.
func Run(scenario *Scenario) (*Result, error) {
	result, doc, err := runKeepingDocument(scenario)
	if err != nil {
		return nil, err
	}
	if err := doc.Dispose(context.Background()); err != nil {
		return nil, fmt.Errorf("dispose: %w", err)
	}
	return result, nil
}

// attachNodes rebuilds the fake node set to match the layer count.
// Needed after any op that reshapes the layer set.
func (h *Harness) attachNodes(n int) {
	fakes, nodes := testutil.NewFakeNodes(n)
	h.fakes = fakes
	h.doc.AttachNodes(nodes)
}

// executeStep dispatches one scripted operation. Operations the engine
// rejects (locked layer, invalid index, boundary undo) are traced as
// rejected, not treated as script failures: scenarios assert on the
// rejection's consequences.
func (h *Harness) executeStep(st Step, result *Result) error {
	idx := -1
	if st.Index != nil {
		idx = *st.Index
	}

	switch st.Op {
	case OpSelect:
		if err := h.doc.Select(idx); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpDeselect:
		h.doc.Deselect()
		result.addTrace(st.Op, idx, "ok", "")

	case OpDrag:
		if err := h.doc.HandleGesture(engine.GestureEvent{Kind: engine.GestureDragStart, Index: idx}); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		if n := h.node(idx); n != nil {
			n.Pos = layer.Vec2{X: st.To.X, Y: st.To.Y}
		}
		if err := h.doc.HandleGesture(engine.GestureEvent{Kind: engine.GestureDragMove, Index: idx}); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		if err := h.doc.HandleGesture(engine.GestureEvent{Kind: engine.GestureDragEnd, Index: idx}); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpTransform:
		if err := h.doc.HandleGesture(engine.GestureEvent{Kind: engine.GestureTransformStart, Index: idx}); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		if n := h.node(idx); n != nil {
			if st.Scale != nil {
				n.Scl = layer.Vec2{X: st.Scale.X, Y: st.Scale.Y}
			}
			if st.Rotation != nil {
				n.Rot = *st.Rotation
			}
		}
		if err := h.doc.HandleGesture(engine.GestureEvent{Kind: engine.GestureTransformEnd, Index: idx}); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpWheel:
		// One event per tick, matching how hosts deliver wheel input.
		ticks := st.Ticks
		unit := 1
		if ticks < 0 {
			unit = -1
		}
		for range int(math.Abs(float64(ticks))) {
			if err := h.doc.HandleGesture(engine.GestureEvent{Kind: engine.GestureWheel, Index: idx, WheelTicks: unit}); err != nil {
				result.addTrace(st.Op, idx, "rejected", err.Error())
				return nil
			}
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpAdjust:
		rec, ok := h.doc.Store().Get(idx)
		if !ok {
			result.addTrace(st.Op, idx, "rejected", "invalid index")
			return nil
		}
		adj := rec.Adjustments
		if st.Brightness != nil {
			adj.Brightness = *st.Brightness
		}
		if st.Contrast != nil {
			adj.Contrast = *st.Contrast
		}
		if st.Saturation != nil {
			adj.Saturation = *st.Saturation
		}
		if st.Opacity != nil {
			adj.Opacity = *st.Opacity
		}
		if err := h.doc.SetAdjustments(idx, adj); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpResetAdjustments:
		if err := h.doc.ResetAdjustments(idx); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpMoveLayer:
		dir := 1
		if st.Direction == "down" {
			dir = -1
		}
		if !h.doc.MoveLayer(idx, dir) {
			result.addTrace(st.Op, idx, "rejected", "boundary")
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpSetVisible:
		if err := h.doc.SetVisible(idx, *st.Value); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpSetLocked:
		if err := h.doc.SetLocked(idx, *st.Value); err != nil {
			result.addTrace(st.Op, idx, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, idx, "ok", "")

	case OpResetLayout:
		w, hgt := 800.0, 600.0
		if st.Canvas != nil {
			w, hgt = st.Canvas.Width, st.Canvas.Height
		}
		h.doc.ResetLayout(st.Layers, w, hgt)
		h.attachNodes(st.Layers)
		result.addTrace(st.Op, -1, "ok", "")

	case OpAddLayer:
		i := h.doc.AddLayer(layer.SourceRef{Filename: st.Filename})
		h.attachNodes(h.doc.Store().Len())
		result.addTrace(st.Op, i, "ok", "")

	case OpRemoveLayer:
		if !h.doc.RemoveLayer(idx) {
			result.addTrace(st.Op, idx, "rejected", "invalid index")
			return nil
		}
		h.attachNodes(h.doc.Store().Len())
		result.addTrace(st.Op, idx, "ok", "")

	case OpFlush:
		h.doc.FlushPendingCommit()
		result.addTrace(st.Op, -1, "ok", "")

	case OpUndo:
		if h.doc.Undo() {
			result.addTrace(st.Op, -1, "ok", "")
		} else {
			result.addTrace(st.Op, -1, "rejected", "boundary")
		}

	case OpRedo:
		if h.doc.Redo() {
			result.addTrace(st.Op, -1, "ok", "")
		} else {
			result.addTrace(st.Op, -1, "rejected", "boundary")
		}

	case OpSave:
		if err := h.doc.Save(context.Background()); err != nil {
			result.addTrace(st.Op, -1, "rejected", err.Error())
			return nil
		}
		result.addTrace(st.Op, -1, "ok", "")

	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

// node returns the fake node for index i, nil when out of range.
func (h *Harness) node(i int) *testutil.FakeNode {
	if i < 0 || i >= len(h.fakes) {
		return nil
	}
	return h.fakes[i]
}
