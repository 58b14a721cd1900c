package persist

import (
	"context"
	"sync"

	"github.com/strataboard/strata/internal/layer"
)

// MemoryStore is an in-process Persistence implementation. Flush copies
// the mirrored buffer into a stable snapshot; Load returns the last
// flushed snapshot. Useful for tests and for hosts that manage their
// own durability.
type MemoryStore struct {
	mu      sync.Mutex
	buf     []layer.Record
	saved   []layer.Record
	hasSave bool
	flushes int
}

// NewMemoryStore returns an empty store with no saved document.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed installs a saved snapshot as if a previous session had flushed it.
func (m *MemoryStore) Seed(records []layer.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = layer.CloneSlice(records)
	m.hasSave = true
}

func (m *MemoryStore) Mirror(records []layer.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = layer.CloneSlice(records)
}

func (m *MemoryStore) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = layer.CloneSlice(m.buf)
	m.hasSave = true
	m.flushes++
	return nil
}

func (m *MemoryStore) Load(context.Context) ([]layer.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSave {
		return nil, false, nil
	}
	return layer.CloneSlice(m.saved), true, nil
}

// Saved returns a detached copy of the last flushed snapshot.
func (m *MemoryStore) Saved() []layer.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return layer.CloneSlice(m.saved)
}

// Flushes reports how many times Flush has been called.
func (m *MemoryStore) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}
