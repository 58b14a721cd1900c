// Package history implements the bounded, deduplicated undo/redo stack
// over layer state snapshots.
//
// Commits are deduplicated by content hash scoped to the commit kind: a
// transform commit compares only transform fields against the entry under
// the cursor, an adjustment commit only adjustment fields. Two different
// kinds of edit are therefore never merged into one entry, and a burst of
// redundant writes (a wheel handler firing without net change) produces no
// history growth.
package history

import (
	"log/slog"

	"github.com/strataboard/strata/internal/layer"
)

// DefaultCap bounds the history stack. Pushing past the cap evicts the
// oldest entry while preserving the currently-visible state.
const DefaultCap = 100

// Kind identifies which subsystem triggered a commit, and thereby which
// field projection the dedup comparison uses.
type Kind int

const (
	// KindTransform covers drags, transforms, wheel bursts, and layout
	// resets: position, scale, rotation, skew, order.
	KindTransform Kind = iota + 1
	// KindAdjustment covers the adjustment sliders and their reset.
	KindAdjustment
	// KindStructure covers visibility, lock, reorder, and layer-set
	// changes; it compares every field.
	KindStructure
)

// String returns a human-readable name for the commit kind.
func (k Kind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindAdjustment:
		return "adjustment"
	case KindStructure:
		return "structure"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable deep copy of the ordered record slice taken at
// one instant.
type Snapshot struct {
	// Seq is the logical clock stamp assigned at commit time.
	Seq int64
	// Kind is the commit reason recorded for diagnostics.
	Kind Kind
	// Token correlates the snapshot with the gesture that produced it.
	Token string
	// Records is the full record slice; restore always overwrites the
	// whole store regardless of Kind.
	Records []layer.Record
}

// clone returns a Snapshot whose records are detached from the original.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Records = layer.CloneSlice(s.Records)
	return out
}

// Manager holds the bounded snapshot stack and cursor.
//
// Invariants once non-empty: 0 <= cursor <= len(entries)-1 and
// len(entries) <= cap. The cursor always points at the entry matching the
// currently-visible state.
//
// Thread-safety: none; the engine serializes access.
type Manager struct {
	entries []Snapshot
	cursor  int
	cap     int
	clock   *Clock
}

// NewManager creates an empty history with the given capacity. A
// non-positive capacity falls back to DefaultCap.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Manager{cursor: -1, cap: capacity, clock: NewClock()}
}

// hashForKind computes the kind-scoped content hash of a record slice.
func hashForKind(records []layer.Record, kind Kind) (string, error) {
	switch kind {
	case KindTransform:
		return layer.TransformHash(records)
	case KindAdjustment:
		return layer.AdjustmentHash(records)
	default:
		return layer.FullHash(records)
	}
}

// Commit captures a snapshot of records. If the snapshot is content-equal
// (under the kind's projection) to the entry at the cursor, the commit is
// a no-op and Commit returns false. Otherwise entries after the cursor are
// truncated, the snapshot is appended, and the oldest entry is evicted
// when the stack exceeds its capacity.
//
// Records must already be normalized; Store.Records() guarantees that.
func (m *Manager) Commit(records []layer.Record, kind Kind, token string) bool {
	if m.cursor >= 0 {
		current, err := hashForKind(m.entries[m.cursor].Records, kind)
		if err == nil {
			incoming, err2 := hashForKind(records, kind)
			if err2 == nil && current == incoming {
				slog.Debug("history commit deduplicated",
					"kind", kind.String(),
					"token", token,
					"cursor", m.cursor,
				)
				return false
			}
			err = err2
		}
		if err != nil {
			// Hashing only fails on an unsupported value type, which a
			// normalized record cannot contain. Committing anyway keeps the
			// edit; the worst case is one redundant entry.
			slog.Warn("history dedup hash failed, committing without dedup", "error", err)
		}
	}

	m.entries = append(m.entries[:m.cursor+1], Snapshot{
		Seq:     m.clock.Next(),
		Kind:    kind,
		Token:   token,
		Records: layer.CloneSlice(records),
	})
	m.cursor = len(m.entries) - 1

	if len(m.entries) > m.cap {
		evicted := len(m.entries) - m.cap
		m.entries = append([]Snapshot(nil), m.entries[evicted:]...)
		m.cursor -= evicted
	}

	slog.Debug("history committed",
		"kind", kind.String(),
		"token", token,
		"seq", m.entries[m.cursor].Seq,
		"entries", len(m.entries),
		"cursor", m.cursor,
	)
	return true
}

// Undo steps the cursor back and returns the snapshot to restore. At the
// bottom of the stack it logs and returns ok=false; the cursor never goes
// below 0.
func (m *Manager) Undo() (Snapshot, bool) {
	if m.cursor <= 0 {
		slog.Debug("undo at history boundary", "cursor", m.cursor)
		return Snapshot{}, false
	}
	m.cursor--
	return m.entries[m.cursor].clone(), true
}

// Redo steps the cursor forward and returns the snapshot to restore. At
// the top of the stack it logs and returns ok=false.
func (m *Manager) Redo() (Snapshot, bool) {
	if m.cursor >= len(m.entries)-1 {
		slog.Debug("redo at history boundary", "cursor", m.cursor, "entries", len(m.entries))
		return Snapshot{}, false
	}
	m.cursor++
	return m.entries[m.cursor].clone(), true
}

// CanUndo reports whether Undo would restore a snapshot.
func (m *Manager) CanUndo() bool {
	return m.cursor > 0
}

// CanRedo reports whether Redo would restore a snapshot.
func (m *Manager) CanRedo() bool {
	return m.cursor < len(m.entries)-1
}

// Len returns the number of stacked snapshots.
func (m *Manager) Len() int {
	return len(m.entries)
}

// Cursor returns the current cursor position (-1 when empty).
func (m *Manager) Cursor() int {
	return m.cursor
}

// Cap returns the configured capacity.
func (m *Manager) Cap() int {
	return m.cap
}

// Entries returns detached copies of the stacked snapshots, oldest first.
// Used by the harness and the CLI inspect surface.
func (m *Manager) Entries() []Snapshot {
	out := make([]Snapshot, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.clone()
	}
	return out
}

// Reset drops every snapshot. Called when the layer set changes shape
// (add, remove, reload): stale snapshots referencing a now-invalid shape
// are discarded wholesale rather than repaired incrementally.
func (m *Manager) Reset() {
	m.entries = nil
	m.cursor = -1
	slog.Debug("history reset")
}
