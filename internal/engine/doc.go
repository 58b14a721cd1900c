// Package engine wires the layer state store, history, selection, and
// scene-graph synchronization into one document-scoped state machine.
//
// ARCHITECTURE:
//
// Single-writer mutation:
// All state mutations for one document are serialized. Hosts either call
// Document methods from their own UI loop, or stream gesture events
// through Enqueue() and let Run() process them in FIFO order. Debounce
// timers are the only other asynchronous primitive; they re-enter through
// the document mutex, so no mutation ever races another.
//
// Event ordering:
// Within one gesture event the order is fixed and always the same:
// read-live → write-store → mirror-persistence → redraw → maybe-commit.
// The store is updated synchronously on every event so rendering never
// lags; history is committed once per semantic action (immediately on
// drag/transform end, debounced for wheel and slider bursts).
//
// Error policy:
// Nothing in this package is fatal. Out-of-range indexes, locked-layer
// events, and missing render nodes degrade to "state unchanged, log
// emitted" because every caller is a UI event handler that must keep
// running.
package engine
