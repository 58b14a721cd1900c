// Package store holds the in-memory layer state for one document.
//
// The Store is the single source of truth shared by the selection
// controller, the transform sync bridge, the adjustment engine, and the
// persistence adapter. All of them mutate it directly; ordering of calls
// within one event-handler invocation is significant (read-live →
// write-store → mirror-persistence → redraw → maybe-commit).
//
// Out-of-range indexes are never fatal: callers run inside UI event
// handlers that must keep running, so every accessor degrades to a logged
// no-op instead of panicking.
package store

import (
	"log/slog"
	"sort"

	"github.com/strataboard/strata/internal/layer"
)

// Store is an ordered collection of layer records. The slice index is the
// stable layer identity; the render rank lives in each record's Order
// field and is managed by MoveLayer / ReplaceAll.
//
// Thread-safety: none. The engine guarantees single-writer access; see
// engine.Document.
type Store struct {
	records []layer.Record
}

// New creates a store with n centered default layers.
func New(n int, canvasW, canvasH float64) *Store {
	s := &Store{}
	s.Resize(n, canvasW, canvasH)
	return s
}

// Len returns the number of layers.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns a copy of record i. The second return is false for an
// out-of-range index.
func (s *Store) Get(i int) (layer.Record, bool) {
	if i < 0 || i >= len(s.records) {
		return layer.Record{}, false
	}
	return s.records[i].Clone(), true
}

// Records returns a deep copy of all records in index order.
func (s *Store) Records() []layer.Record {
	return layer.CloneSlice(s.records)
}

// Set merges patch into record i, re-clamps every bounded field (even the
// untouched ones), and returns a copy of the resulting record. An
// out-of-range index logs and returns nil; it never panics.
func (s *Store) Set(i int, patch Patch) *layer.Record {
	if i < 0 || i >= len(s.records) {
		slog.Warn("store set: index out of range", "index", i, "len", len(s.records))
		return nil
	}

	r := patch.apply(s.records[i]).Normalize()
	s.records[i] = r
	out := r.Clone()
	return &out
}

// ReplaceAll swaps in a new record set, used on load, reset, undo/redo
// restore, and resize. Incoming Order values are preserved only when they
// form a valid permutation of [0..N-1]; otherwise ranks reset to slice
// index. Every record is normalized.
func (s *Store) ReplaceAll(records []layer.Record) {
	s.records = layer.CloneSlice(records)
	layer.NormalizeAll(s.records)
}

// Normalize re-clamps every record in place. Idempotent.
func (s *Store) Normalize() {
	layer.NormalizeAll(s.records)
}

// Resize truncates or pads the record set to n layers. New layers get
// centered defaults ranked after the existing ones; truncation compacts
// the surviving ranks.
func (s *Store) Resize(n int, canvasW, canvasH float64) {
	if n < 0 {
		slog.Warn("store resize: negative layer count", "n", n)
		return
	}
	switch {
	case n < len(s.records):
		s.records = s.records[:n]
		s.reindexOrders()
	case n > len(s.records):
		for i := len(s.records); i < n; i++ {
			s.records = append(s.records, layer.DefaultRecord(i, canvasW, canvasH))
		}
	}
}

// Append adds one record at the end of the document with the next free
// render rank. The record is normalized on the way in.
func (s *Store) Append(r layer.Record) int {
	r = r.Normalize()
	r.Order = len(s.records)
	s.records = append(s.records, r)
	return len(s.records) - 1
}

// Remove deletes record i and compacts the surviving render ranks so they
// stay gap-free. Returns false for an out-of-range index.
func (s *Store) Remove(i int) bool {
	if i < 0 || i >= len(s.records) {
		slog.Warn("store remove: index out of range", "index", i, "len", len(s.records))
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.reindexOrders()
	return true
}

// MoveLayer moves layer i one render rank in direction dir (+1 toward the
// top, -1 toward the bottom) by swapping ranks with the adjacent layer.
// Ranks stay gap-free and duplicate-free. Returns false and logs when the
// move would leave the rank range or the index is invalid.
func (s *Store) MoveLayer(i, dir int) bool {
	if i < 0 || i >= len(s.records) {
		slog.Warn("store move: index out of range", "index", i, "len", len(s.records))
		return false
	}
	if dir != 1 && dir != -1 {
		slog.Warn("store move: direction must be +1 or -1", "dir", dir)
		return false
	}

	target := s.records[i].Order + dir
	if target < 0 || target >= len(s.records) {
		slog.Debug("store move: already at boundary", "index", i, "order", s.records[i].Order)
		return false
	}

	for j := range s.records {
		if s.records[j].Order == target {
			s.records[j].Order = s.records[i].Order
			s.records[i].Order = target
			return true
		}
	}

	// Unreachable while the permutation invariant holds.
	slog.Warn("store move: rank not found", "target", target)
	return false
}

// SetVisible toggles layer visibility. Returns the updated record, or nil
// for an out-of-range index.
func (s *Store) SetVisible(i int, visible bool) *layer.Record {
	return s.Set(i, Patch{Visible: &visible})
}

// SetLocked toggles the layer lock. Returns the updated record, or nil for
// an out-of-range index.
func (s *Store) SetLocked(i int, locked bool) *layer.Record {
	return s.Set(i, Patch{Locked: &locked})
}

// IndexesByOrder returns the stable indexes sorted by ascending render
// rank, i.e. bottom-most layer first.
func (s *Store) IndexesByOrder() []int {
	idx := make([]int, len(s.records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.records[idx[a]].Order < s.records[idx[b]].Order
	})
	return idx
}

// reindexOrders compacts render ranks to [0..N-1] preserving the current
// relative ordering.
func (s *Store) reindexOrders() {
	for rank, i := range s.IndexesByOrder() {
		s.records[i].Order = rank
	}
}
