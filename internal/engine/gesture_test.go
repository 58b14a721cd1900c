package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGestureKind_String(t *testing.T) {
	tests := map[GestureKind]string{
		GestureDragStart:      "drag-start",
		GestureDragMove:       "drag-move",
		GestureDragEnd:        "drag-end",
		GestureTransformStart: "transform-start",
		GestureTransformMove:  "transform-move",
		GestureTransformEnd:   "transform-end",
		GestureWheel:          "wheel",
		GestureKind(99):       "unknown",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}

func TestGestureKind_StartEnd(t *testing.T) {
	assert.True(t, GestureDragStart.isStart())
	assert.True(t, GestureTransformStart.isStart())
	assert.False(t, GestureWheel.isStart())

	assert.True(t, GestureDragEnd.isEnd())
	assert.True(t, GestureTransformEnd.isEnd())
	assert.False(t, GestureDragMove.isEnd())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "interacting", PhaseInteracting.String())
	assert.Equal(t, "committing", PhaseCommitting.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestFixedGenerator_FallsBackAfterExhaustion(t *testing.T) {
	g := NewFixedGenerator("one")
	assert.Equal(t, "one", g.Generate())
	assert.Equal(t, "gesture-2", g.Generate())
	assert.Equal(t, "gesture-3", g.Generate())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
