package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strataboard/strata/internal/layer"
	"github.com/strataboard/strata/internal/schema"
)

// DocumentBuffer is the mutable mirror buffer between the engine and the
// durable store for one document. The engine mirrors the full record set
// into it on every synchronized write; Flush makes the buffer durable
// once per history commit. It satisfies the engine's Persistence
// boundary.
//
// Thread-safety: guarded by an internal mutex because debounce-driven
// flushes can race host-driven mirrors.
type DocumentBuffer struct {
	adapter *Adapter
	docID   string

	// canvasW/H shape the defaults used when a persisted document is
	// shorter than expected.
	canvasW, canvasH float64

	mu       sync.Mutex
	buf      []layer.Record
	dirty    bool
	revision int64
}

// NewDocumentBuffer creates the buffer for docID over the given adapter.
func NewDocumentBuffer(adapter *Adapter, docID string, canvasW, canvasH float64) *DocumentBuffer {
	return &DocumentBuffer{
		adapter: adapter,
		docID:   docID,
		canvasW: canvasW,
		canvasH: canvasH,
	}
}

// Mirror replaces the buffered record set. Called on every synchronized
// write; it must never touch the database.
func (b *DocumentBuffer) Mirror(records []layer.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = layer.CloneSlice(records)
	b.dirty = true
}

// Flush persists the buffered record set with the next revision number.
// A clean buffer is a no-op.
func (b *DocumentBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return nil
	}

	payload, err := EncodeDocument(b.buf)
	if err != nil {
		return fmt.Errorf("flush document %s: %w", b.docID, err)
	}

	b.revision++
	if err := b.adapter.SaveDocument(ctx, b.docID, payload, b.revision); err != nil {
		b.revision--
		return err
	}
	b.dirty = false

	slog.Debug("document flushed", "doc", b.docID, "revision", b.revision, "layers", len(b.buf))
	return nil
}

// Load restores the persisted record set. Schema validation failures are
// advisory on this path: the codec recovers field-locally, so a partly
// malformed blob still yields a usable document.
func (b *DocumentBuffer) Load(ctx context.Context) ([]layer.Record, bool, error) {
	payload, revision, err := b.adapter.LoadDocument(ctx, b.docID)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := schema.ValidateDocument(payload); err != nil {
		slog.Warn("persisted document failed schema validation, recovering field-locally",
			"doc", b.docID, "error", err)
	}

	records, err := DecodeDocument(payload, -1, b.canvasW, b.canvasH)
	if err != nil {
		return nil, false, fmt.Errorf("load document %s: %w", b.docID, err)
	}

	b.mu.Lock()
	b.buf = layer.CloneSlice(records)
	b.dirty = false
	b.revision = revision
	b.mu.Unlock()

	return records, true, nil
}

// Revision returns the last persisted revision number.
func (b *DocumentBuffer) Revision() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revision
}

// Buffered returns a detached copy of the current buffer contents.
func (b *DocumentBuffer) Buffered() []layer.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return layer.CloneSlice(b.buf)
}
