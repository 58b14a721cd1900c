package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/strataboard/strata/internal/history"
	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/store"
)

// Persistence is the document's external store boundary. Mirror updates
// the adapter's mutable buffer and is called on every synchronized write;
// Flush makes the buffer durable and runs once per history commit and on
// dispose. Load restores the persisted record set (ok=false when nothing
// was persisted yet).
type Persistence interface {
	Mirror(records []layer.Record)
	Flush(ctx context.Context) error
	Load(ctx context.Context) (records []layer.Record, ok bool, err error)
}

// Document is the explicit per-document context that owns the layer
// store, history, selection, and synchronization bridge. There are no
// ambient globals: every collaborator receives the context it works on.
//
// Lifecycle: NewDocument → AttachNodes/Load → interactive use → Dispose.
//
// Thread-safety: all exported methods serialize on an internal mutex.
// Debounce timers re-enter through the same mutex, so the single-writer
// guarantee holds even though timers fire on their own goroutine. Hosts
// that stream pointer input from another thread use Enqueue + Run.
type Document struct {
	mu sync.Mutex

	id               string
	canvasW, canvasH float64

	store     *store.Store
	history   *history.Manager
	debouncer *history.Debouncer
	selection *SelectionController
	bridge    *TransformSyncBridge
	adjust    *AdjustmentEngine
	sink      Persistence
	queue     *eventQueue

	// pendingKind and pendingToken describe the edit the debouncer is
	// currently holding; guarded by mu.
	pendingKind  history.Kind
	pendingToken string

	nodes NodeSet

	// Construction knobs, set by options before wiring.
	historyCap       int
	debounceWindow   time.Duration
	wheelScaleStep   float64
	tokens           GestureTokenGenerator
	redraw           func()
	selectionChanged func(int)

	disposed bool
}

// NewDocument creates a document context with n centered layers on the
// given canvas. sink must not be nil; use persist.NewMemoryStore when
// no durable store is wanted.
func NewDocument(id string, n int, canvasW, canvasH float64, sink Persistence, opts ...Option) *Document {
	d := &Document{
		id:      id,
		canvasW: canvasW,
		canvasH: canvasH,
		sink:    sink,
		queue:   newEventQueue(),
		tokens:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.store = store.New(n, canvasW, canvasH)
	d.history = history.NewManager(d.historyCap)
	d.debouncer = history.NewDebouncer(d.debounceWindow)
	d.selection = NewSelectionController(d.store, d.nodeSet, d.selectionChanged)
	d.adjust = newAdjustmentEngine(d.store, d.nodeSet, d.tokens, d.afterWrite, d.scheduleCommit)
	d.bridge = newTransformSyncBridge(bridgeConfig{
		store:           d.store,
		nodes:           d.nodeSet,
		tokens:          d.tokens,
		mirror:          d.mirrorRecords,
		redraw:          d.redraw,
		commitNow:       d.commitLocked,
		commitDebounced: d.scheduleCommit,
		wheelScaleStep:  d.wheelScaleStep,
	})

	// Baseline entry so the first undo target exists. History only: a
	// sink flush here would clobber persisted state before Load reads it.
	d.history.Commit(d.store.Records(), history.KindStructure, "init")
	d.mirrorRecords(d.store.Records())

	slog.Info("document initialized", "doc", id, "layers", n)
	return d
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// nodeSet supplies the live node set to collaborators; the set changes
// during async loading.
func (d *Document) nodeSet() NodeSet { return d.nodes }

// AttachNodes installs the live render handles, one slot per layer (nil
// slots tolerated during async load), and pushes the stored state onto
// them. A count mismatch is tolerated transiently and logged; it must be
// resolved before the next history commit.
func (d *Document) AttachNodes(ns NodeSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(ns) != d.store.Len() {
		slog.Warn("node count does not match layer count",
			"doc", d.id, "nodes", len(ns), "layers", d.store.Len())
	}
	d.nodes = ns
	d.pushAllToNodesLocked()
}

// Store returns the underlying layer store. Single-writer discipline
// applies: mutate it only from the goroutine driving this document.
func (d *Document) Store() *store.Store { return d.store }

// History returns the history manager for introspection.
func (d *Document) History() *history.Manager { return d.history }

// Selection returns the selection controller.
func (d *Document) Selection() *SelectionController { return d.selection }

// Bridge returns the transform sync bridge.
func (d *Document) Bridge() *TransformSyncBridge { return d.bridge }

// Adjustments returns the adjustment engine.
func (d *Document) Adjustments() *AdjustmentEngine { return d.adjust }

// HandleGesture dispatches one interaction event through the bridge.
func (d *Document) HandleGesture(ev GestureEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// An event that opens a new gesture while a debounced commit is
	// pending must not leak its first write into the pending entry; land
	// that commit before the bridge touches the store. A continuing
	// wheel burst keeps the bridge's index and never starts, so it skips
	// this.
	if d.debouncer.Pending() && (ev.Kind.isStart() || ev.Index != d.bridge.index) {
		d.debouncer.Stop()
		d.commitDebouncedLocked(d.pendingKind, d.pendingToken)
	}
	return d.bridge.HandleGesture(ev)
}

// Enqueue submits a gesture event for processing by Run. Thread-safe.
// Returns false once the document is disposed.
func (d *Document) Enqueue(ev GestureEvent) bool {
	return d.queue.Enqueue(ev)
}

// Run processes enqueued gesture events in FIFO order until ctx is
// cancelled or Dispose closes the queue. Must be called from exactly one
// goroutine. Event errors are logged and processing continues; retrying
// UI events would only replay stale input.
func (d *Document) Run(ctx context.Context) error {
	slog.Info("document event loop starting", "doc", d.id)

	for {
		ev, ok := d.queue.TryDequeue()
		if ok {
			if err := d.HandleGesture(ev); err != nil {
				slog.Debug("gesture dropped",
					"doc", d.id,
					"kind", ev.Kind.String(),
					"index", ev.Index,
					"error", err,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("document event loop stopping: context cancelled", "doc", d.id)
			d.queue.Close()
			return ctx.Err()

		case <-d.queue.Wait():
			// The signal buffer coalesces, so a stale token can wake the
			// loop with nothing queued. Only a closed and drained queue
			// ends the loop; otherwise go back to waiting.
			if d.queue.IsClosed() && d.queue.Len() == 0 {
				slog.Info("document event loop stopping: queue closed", "doc", d.id)
				return nil
			}
		}
	}
}

// FlushPendingCommit forces any debounced history commit to land now.
// Hosts call this when focus leaves the canvas mid burst.
func (d *Document) FlushPendingCommit() {
	d.debouncer.Flush()
}

// Select makes layer i the selected layer, promoting its node to the top
// of the render stack. Locked layers are rejected.
func (d *Document) Select(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection.Select(i)
}

// Deselect restores the captured z-order and clears any in-flight
// transform-start snapshot.
func (d *Document) Deselect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection.Deselect()
	d.bridge.clearGestureState()
}

// Undo restores the previous history snapshot. A pending debounced
// commit is flushed first so the entry it represents is not lost. At the
// bottom of the stack Undo is a logged no-op returning false.
func (d *Document) Undo() bool {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	snap, ok := d.history.Undo()
	if !ok {
		slog.Debug("undo ignored at boundary", "doc", d.id)
		return false
	}
	d.restoreLocked(snap)
	return true
}

// Redo restores the next history snapshot; a logged no-op at the top of
// the stack.
func (d *Document) Redo() bool {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	snap, ok := d.history.Redo()
	if !ok {
		slog.Debug("redo ignored at boundary", "doc", d.id)
		return false
	}
	d.restoreLocked(snap)
	return true
}

// ResetLayout recenters every layer on a canvas of the given geometry,
// resizing the layer set to n, clearing selection, and issuing exactly
// one history commit. Adjustments, sources, visibility, and locks
// survive; transforms and ranks reset.
func (d *Document) ResetLayout(n int, canvasW, canvasH float64) {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.canvasW, d.canvasH = canvasW, canvasH

	countChanged := n != d.store.Len()
	d.store.Resize(n, canvasW, canvasH)

	records := d.store.Records()
	for i := range records {
		def := layer.DefaultRecord(i, canvasW, canvasH)
		records[i].Position = def.Position
		records[i].Scale = def.Scale
		records[i].Rotation = 0
		records[i].Skew = layer.Vec2{}
		records[i].Order = i
	}
	d.store.ReplaceAll(records)

	d.selection.Reset()
	d.bridge.clearGestureState()
	if countChanged {
		// Stale snapshots reference a now-invalid shape; reset rather
		// than repair.
		d.history.Reset()
	}

	d.pushAllToNodesLocked()
	d.commitLocked(history.KindTransform, "reset-layout")

	slog.Info("layout reset", "doc", d.id, "layers", n)
}

// MoveLayer moves layer i one render rank in direction dir (+1 up, -1
// down), commits history, and reapplies z-order to the live nodes. An
// active selection is cleared first so the captured default order cannot
// go stale.
func (d *Document) MoveLayer(i, dir int) bool {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.selection.Deselect()
	if !d.store.MoveLayer(i, dir) {
		return false
	}

	d.applyZOrderLocked()
	d.afterWrite()
	d.commitLocked(history.KindStructure, "move-layer")
	return true
}

// SetVisible toggles layer visibility with an immediate history commit.
func (d *Document) SetVisible(i int, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	updated := d.store.SetVisible(i, visible)
	if updated == nil {
		return newInvalidIndexError(i, d.store.Len())
	}
	if n := d.nodes.Get(i); n != nil {
		n.SetVisible(visible)
	}
	d.afterWrite()
	d.commitLocked(history.KindStructure, "set-visible")
	return nil
}

// SetLocked toggles the layer lock with an immediate history commit.
// Locking the selected layer deselects it: locked layers are never
// selectable.
func (d *Document) SetLocked(i int, locked bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if locked && d.selection.Selected() == i {
		d.selection.Deselect()
		d.bridge.clearGestureState()
	}

	updated := d.store.SetLocked(i, locked)
	if updated == nil {
		return newInvalidIndexError(i, d.store.Len())
	}
	d.afterWrite()
	d.commitLocked(history.KindStructure, "set-locked")
	return nil
}

// SetAdjustments writes adjustments for layer i through the adjustment
// engine (debounced history commit).
func (d *Document) SetAdjustments(i int, adj layer.Adjustments) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A pending wheel commit (or an older slider burst) lands before
	// this write so the two edits never share a history entry.
	d.flushPendingForeignLocked(history.KindAdjustment, d.adjust.token)
	return d.adjust.Set(i, adj)
}

// ResetAdjustments restores layer i's adjustments to defaults through the
// same path as a slider drag.
func (d *Document) ResetAdjustments(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.flushPendingForeignLocked(history.KindAdjustment, d.adjust.token)
	return d.adjust.Reset(i)
}

// ApplyStoredAdjustments re-normalizes record i and re-applies its
// filters to the node, without history. Safe when the node is missing.
func (d *Document) ApplyStoredAdjustments(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adjust.ApplyStored(i)
}

// AddLayer appends a layer backed by the given asset, centered on the
// canvas. The layer set changed shape, so history resets to a fresh
// baseline and selection clears.
func (d *Document) AddLayer(src layer.SourceRef) int {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	rec := layer.DefaultRecord(d.store.Len(), d.canvasW, d.canvasH)
	rec.Source = src
	i := d.store.Append(rec)

	d.selection.Reset()
	d.bridge.clearGestureState()
	d.history.Reset()
	d.afterWrite()
	d.commitLocked(history.KindStructure, "add-layer")

	slog.Info("layer added", "doc", d.id, "index", i, "filename", src.Filename)
	return i
}

// RemoveLayer deletes layer i when its backing image leaves the document.
// History resets (documented side effect of shape changes) and selection
// clears. Returns false for an out-of-range index.
func (d *Document) RemoveLayer(i int) bool {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.store.Remove(i) {
		return false
	}

	d.selection.Reset()
	d.bridge.clearGestureState()
	d.history.Reset()
	d.afterWrite()
	d.commitLocked(history.KindStructure, "remove-layer")

	slog.Info("layer removed", "doc", d.id, "index", i)
	return true
}

// Load restores the persisted record set, tolerating a persisted shape
// that differs from the current layer count (the codec truncates or pads
// with defaults). History resets to a baseline of the restored state.
func (d *Document) Load(ctx context.Context) error {
	d.debouncer.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()

	records, ok, err := d.sink.Load(ctx)
	if err != nil {
		slog.Warn("persisted state load failed, keeping current state", "doc", d.id, "error", err)
		return err
	}
	if !ok {
		slog.Debug("no persisted state for document", "doc", d.id)
		return nil
	}

	d.store.ReplaceAll(records)
	d.selection.Reset()
	d.bridge.clearGestureState()
	d.history.Reset()
	d.pushAllToNodesLocked()
	d.commitLocked(history.KindStructure, "load")

	slog.Info("document loaded", "doc", d.id, "layers", d.store.Len())
	return nil
}

// Save mirrors the current state and flushes it durably.
func (d *Document) Save(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mirrorRecords(d.store.Records())
	return d.sink.Flush(ctx)
}

// Dispose flushes pending commits, persists the final state, and closes
// the event queue. The document must not be used afterward.
func (d *Document) Dispose(ctx context.Context) error {
	d.debouncer.Flush()
	d.debouncer.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil
	}
	d.disposed = true
	d.queue.Close()

	d.mirrorRecords(d.store.Records())
	err := d.sink.Flush(ctx)

	slog.Info("document disposed", "doc", d.id)
	return err
}

// commitLocked appends a history entry and makes the persisted buffer
// durable. Callers hold d.mu.
func (d *Document) commitLocked(kind history.Kind, token string) {
	d.mirrorRecords(d.store.Records())
	if d.history.Commit(d.store.Records(), kind, token) {
		if err := d.sink.Flush(context.Background()); err != nil {
			slog.Warn("persistence flush failed after commit", "doc", d.id, "error", err)
		}
	}
}

// scheduleCommit registers a trailing-debounce commit. The fired closure
// re-enters through d.mu, preserving the single-writer guarantee.
//
// Two different edits never merge into one history entry: when the
// incoming kind or gesture token differs from the pending one, the
// pending commit lands first (inline, since callers hold d.mu) and the
// new edit gets its own entry.
func (d *Document) scheduleCommit(kind history.Kind, token string) {
	d.flushPendingForeignLocked(kind, token)
	d.pendingKind, d.pendingToken = kind, token

	d.debouncer.Trigger(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.commitDebouncedLocked(kind, token)
	})
}

// flushPendingForeignLocked lands the pending debounced commit when it
// belongs to a different edit than (kind, token). Callers hold d.mu.
func (d *Document) flushPendingForeignLocked(kind history.Kind, token string) {
	if d.debouncer.Pending() && (kind != d.pendingKind || token != d.pendingToken) {
		d.debouncer.Stop()
		d.commitDebouncedLocked(d.pendingKind, d.pendingToken)
	}
}

// commitDebouncedLocked lands a debounced commit and closes the burst it
// belongs to. Callers hold d.mu.
func (d *Document) commitDebouncedLocked(kind history.Kind, token string) {
	d.commitLocked(kind, token)
	switch kind {
	case history.KindTransform:
		d.bridge.FinalizeWheelBurst(token)
	case history.KindAdjustment:
		d.adjust.clearToken()
	}
}

// restoreLocked applies a history snapshot: full store overwrite, push to
// nodes, mirror, flush. Selection clears because the restored ranks are
// now authoritative.
func (d *Document) restoreLocked(snap history.Snapshot) {
	d.store.ReplaceAll(snap.Records)
	d.selection.Reset()
	d.bridge.clearGestureState()
	d.pushAllToNodesLocked()
	d.mirrorRecords(d.store.Records())
	if err := d.sink.Flush(context.Background()); err != nil {
		slog.Warn("persistence flush failed after restore", "doc", d.id, "error", err)
	}
	if d.redraw != nil {
		d.redraw()
	}

	slog.Debug("history snapshot restored", "doc", d.id, "seq", snap.Seq, "kind", snap.Kind.String())
}

// pushAllToNodesLocked pushes every stored record onto its live node:
// transform, z-order, visibility, opacity, filters. Missing nodes defer
// their visual half.
func (d *Document) pushAllToNodesLocked() {
	records := d.store.Records()
	for i, r := range records {
		n := d.nodes.Get(i)
		if n == nil {
			continue
		}
		n.SetPosition(r.Position)
		n.SetScale(r.Scale)
		n.SetRotation(r.Rotation)
		n.SetZIndex(r.Order)
		d.adjust.applyToNode(i, r.Adjustments, r.Visible)
	}
}

// applyZOrderLocked pushes only the render ranks onto the nodes.
func (d *Document) applyZOrderLocked() {
	for i, r := range d.store.Records() {
		if n := d.nodes.Get(i); n != nil {
			n.SetZIndex(r.Order)
		}
	}
}

// afterWrite mirrors the store into the persistence buffer and requests a
// repaint.
func (d *Document) afterWrite() {
	d.mirrorRecords(d.store.Records())
	if d.redraw != nil {
		d.redraw()
	}
}

// mirrorRecords updates the persistence adapter's mutable buffer.
func (d *Document) mirrorRecords(records []layer.Record) {
	d.sink.Mirror(records)
}
