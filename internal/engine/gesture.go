package engine

// GestureKind identifies one interaction event from the host canvas.
type GestureKind int

const (
	// GestureDragStart begins a positional drag on a layer.
	GestureDragStart GestureKind = iota + 1
	// GestureDragMove is an intermediate drag event; the live node already
	// carries the new position.
	GestureDragMove
	// GestureDragEnd finalizes a drag and commits history immediately.
	GestureDragEnd
	// GestureTransformStart begins a scale/rotate handle interaction.
	GestureTransformStart
	// GestureTransformMove is an intermediate transform event.
	GestureTransformMove
	// GestureTransformEnd finalizes a transform and commits immediately.
	GestureTransformEnd
	// GestureWheel is one wheel tick; a burst of ticks debounces into a
	// single history entry.
	GestureWheel
)

// String returns a human-readable name for the gesture kind.
func (k GestureKind) String() string {
	switch k {
	case GestureDragStart:
		return "drag-start"
	case GestureDragMove:
		return "drag-move"
	case GestureDragEnd:
		return "drag-end"
	case GestureTransformStart:
		return "transform-start"
	case GestureTransformMove:
		return "transform-move"
	case GestureTransformEnd:
		return "transform-end"
	case GestureWheel:
		return "wheel"
	default:
		return "unknown"
	}
}

// isStart reports whether the kind opens a gesture.
func (k GestureKind) isStart() bool {
	return k == GestureDragStart || k == GestureTransformStart
}

// isEnd reports whether the kind finalizes a gesture with an immediate
// history commit.
func (k GestureKind) isEnd() bool {
	return k == GestureDragEnd || k == GestureTransformEnd
}

// GestureEvent is one host interaction event targeting a layer. For drag
// and transform kinds the live node already holds the new values and the
// bridge reads them back; wheel carries its tick count because wheel input
// never moves the node directly.
type GestureEvent struct {
	Kind  GestureKind
	Index int
	// WheelTicks is the signed tick count for GestureWheel events.
	WheelTicks int
}

// Phase is the bridge's gesture state machine position. Transitions are
// strictly Idle → Interacting → Committing → Idle; re-entrancy is
// structurally excluded because every event passes through the same
// dispatcher.
type Phase int

const (
	// PhaseIdle means no gesture is in progress.
	PhaseIdle Phase = iota
	// PhaseInteracting means a gesture holds the bridge.
	PhaseInteracting
	// PhaseCommitting means the finalizing write and history commit are
	// running.
	PhaseCommitting
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInteracting:
		return "interacting"
	case PhaseCommitting:
		return "committing"
	default:
		return "unknown"
	}
}
