package engine

import (
	"log/slog"
	"math"

	"github.com/strataboard/strata/internal/history"
	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/store"
)

// DefaultWheelScaleStep is the multiplicative scale factor one wheel tick
// applies to both axes.
const DefaultWheelScaleStep = 1.1

// TransformSyncBridge reconciles scene-graph interaction with the layer
// store and schedules history commits.
//
// All events enter through HandleGesture, which runs a small explicit
// state machine (Idle → Interacting → Committing → Idle). Within one
// event the order is fixed: read-live → write-store → mirror-persistence
// → redraw → maybe-commit. The store is written synchronously on every
// event; history is committed once per gesture (immediately on end
// events, debounced for wheel bursts).
type TransformSyncBridge struct {
	store  *store.Store
	nodes  func() NodeSet
	tokens GestureTokenGenerator

	// mirror pushes the current records into the persistence adapter's
	// mutable buffer. Called on every synchronized write.
	mirror func([]layer.Record)
	// redraw asks the host to repaint after a synchronized write. May be
	// nil headless.
	redraw func()
	// commitNow appends a history entry immediately (drag/transform end).
	commitNow func(kind history.Kind, token string)
	// commitDebounced schedules a trailing-debounce history commit
	// (wheel bursts).
	commitDebounced func(kind history.Kind, token string)

	wheelScaleStep float64

	phase Phase
	index int
	token string
	// startSnapshot is the full store state captured at gesture start so
	// a host can implement cancel semantics. Cleared on gesture end and
	// on deselect.
	startSnapshot []layer.Record
}

// bridgeConfig carries the collaborator callbacks from the document.
type bridgeConfig struct {
	store           *store.Store
	nodes           func() NodeSet
	tokens          GestureTokenGenerator
	mirror          func([]layer.Record)
	redraw          func()
	commitNow       func(history.Kind, string)
	commitDebounced func(history.Kind, string)
	wheelScaleStep  float64
}

func newTransformSyncBridge(cfg bridgeConfig) *TransformSyncBridge {
	step := cfg.wheelScaleStep
	if step <= 0 {
		step = DefaultWheelScaleStep
	}
	return &TransformSyncBridge{
		store:           cfg.store,
		nodes:           cfg.nodes,
		tokens:          cfg.tokens,
		mirror:          cfg.mirror,
		redraw:          cfg.redraw,
		commitNow:       cfg.commitNow,
		commitDebounced: cfg.commitDebounced,
		wheelScaleStep:  step,
		phase:           PhaseIdle,
		index:           -1,
	}
}

// Phase returns the current gesture phase.
func (b *TransformSyncBridge) Phase() Phase {
	return b.phase
}

// IsInteracting reports whether a gesture currently holds the bridge.
func (b *TransformSyncBridge) IsInteracting() bool {
	return b.phase == PhaseInteracting
}

// TransformStartSnapshot returns the store state captured at gesture
// start, or nil outside a gesture.
func (b *TransformSyncBridge) TransformStartSnapshot() []layer.Record {
	return layer.CloneSlice(b.startSnapshot)
}

// Token returns the active gesture token, or "" outside a gesture.
func (b *TransformSyncBridge) Token() string {
	return b.token
}

// clearGestureState drops the in-flight snapshot and token. Called on
// gesture end and by the document on deselect.
func (b *TransformSyncBridge) clearGestureState() {
	b.startSnapshot = nil
	b.token = ""
	b.index = -1
	b.phase = PhaseIdle
}

// HandleGesture dispatches one interaction event.
//
// Locked layers are rejected here, before any phase transition — a hard
// precondition, not a soft filter, so a stale locked flag can never be
// bypassed by a fast double-event race. Rejections and invalid indexes
// are logged no-ops; the returned error exists for introspection only.
func (b *TransformSyncBridge) HandleGesture(ev GestureEvent) error {
	rec, ok := b.store.Get(ev.Index)
	if !ok {
		err := newInvalidIndexError(ev.Index, b.store.Len())
		slog.Warn("gesture rejected", "kind", ev.Kind.String(), "error", err)
		return err
	}
	if rec.Locked {
		err := newLockedLayerError(ev.Index, b.token)
		slog.Debug("gesture rejected: layer locked", "kind", ev.Kind.String(), "index", ev.Index)
		return err
	}

	switch {
	case ev.Kind.isStart():
		b.beginGesture(ev.Index, ev.Kind)
		return b.syncFromNode(ev.Index)

	case ev.Kind == GestureDragMove || ev.Kind == GestureTransformMove:
		if b.phase != PhaseInteracting {
			// Tolerated: a host may deliver the first move before the
			// start event during a fast pointer grab.
			slog.Debug("gesture move without start, opening implicitly", "kind", ev.Kind.String(), "index", ev.Index)
			b.beginGesture(ev.Index, ev.Kind)
		}
		return b.syncFromNode(ev.Index)

	case ev.Kind.isEnd():
		return b.endGesture(ev.Index)

	case ev.Kind == GestureWheel:
		return b.handleWheel(ev)

	default:
		slog.Warn("unknown gesture kind", "kind", int(ev.Kind))
		return nil
	}
}

// beginGesture opens a gesture: mints the token, captures the
// transform-start snapshot, and transitions to Interacting. Any pending
// debounced commit from a previous burst is left to fire with its own
// token; the store write order keeps the entries distinct.
func (b *TransformSyncBridge) beginGesture(index int, kind GestureKind) {
	b.phase = PhaseInteracting
	b.index = index
	b.token = b.tokens.Generate()
	b.startSnapshot = b.store.Records()

	slog.Debug("gesture started",
		"kind", kind.String(),
		"index", index,
		"token", b.token,
	)
}

// syncFromNode reads the live node transform and writes it into the
// store, then mirrors and redraws. No history here.
func (b *TransformSyncBridge) syncFromNode(index int) error {
	n := b.nodes().Get(index)
	if n == nil {
		// The node is the source of truth for a drag; without it there is
		// nothing to read back.
		err := newMissingNodeError(index)
		slog.Debug("gesture sync skipped", "error", err)
		return err
	}

	pos := n.Position()
	scale := n.Scale()
	scale.X = layer.ClampScaleAxis(scale.X)
	scale.Y = layer.ClampScaleAxis(scale.Y)
	rot := n.Rotation()

	b.store.Set(index, store.Patch{
		Position: &pos,
		Scale:    &scale,
		Rotation: &rot,
	})
	// Push the clamp back so the node never renders outside range.
	n.SetScale(scale)

	b.afterWrite()
	return nil
}

// endGesture finalizes the write, clears the interaction state, and
// commits history immediately.
func (b *TransformSyncBridge) endGesture(index int) error {
	b.phase = PhaseCommitting
	err := b.syncFromNode(index)

	token := b.token
	b.clearGestureState()
	b.commitNow(history.KindTransform, token)

	slog.Debug("gesture committed", "index", index, "token", token)
	return err
}

// handleWheel applies one burst tick. The store (and node, when attached)
// update synchronously; the history commit trails the burst through the
// debouncer, so one semantic action produces one entry regardless of
// event frequency.
func (b *TransformSyncBridge) handleWheel(ev GestureEvent) error {
	if b.phase != PhaseInteracting || b.index != ev.Index {
		b.beginGesture(ev.Index, ev.Kind)
	}

	rec, _ := b.store.Get(ev.Index)
	factor := math.Pow(b.wheelScaleStep, float64(ev.WheelTicks))
	scale := layer.Vec2{
		X: layer.ClampScaleAxis(rec.Scale.X * factor),
		Y: layer.ClampScaleAxis(rec.Scale.Y * factor),
	}

	b.store.Set(ev.Index, store.Patch{Scale: &scale})

	if n := b.nodes().Get(ev.Index); n != nil {
		n.SetScale(scale)
	} else {
		// Store half done, visual half deferred until the node attaches.
		slog.Debug("wheel visual deferred: render node not attached", "index", ev.Index)
	}

	b.afterWrite()

	b.commitDebounced(history.KindTransform, b.token)
	return nil
}

// FinalizeWheelBurst closes the wheel gesture whose debounced commit just
// fired, identified by its token. A newer gesture may already hold the
// bridge by the time the commit lands; its in-flight state must survive,
// so a stale token is a no-op.
func (b *TransformSyncBridge) FinalizeWheelBurst(token string) {
	if b.phase == PhaseInteracting && b.token == token {
		b.clearGestureState()
	}
}

// afterWrite mirrors the store into the persistence buffer and requests a
// repaint, in that order.
func (b *TransformSyncBridge) afterWrite() {
	if b.mirror != nil {
		b.mirror(b.store.Records())
	}
	if b.redraw != nil {
		b.redraw()
	}
}
