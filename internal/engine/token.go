package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// GestureTokenGenerator mints correlation tokens. One token spans one
// gesture: every log line, store write, and the single history entry the
// gesture produces carry the same token.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type GestureTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 gesture tokens.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for deterministic tests and
// golden scenario comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order and
// falls back to "gesture-N" once the fixed list is exhausted.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.tokens) {
		return g.tokens[g.idx-1]
	}
	return fmt.Sprintf("gesture-%d", g.idx)
}
