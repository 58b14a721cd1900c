package engine

import (
	"errors"
	"fmt"
)

// StateError represents a recoverable fault detected while mutating
// document state. Every code degrades to a logged no-op at the call site;
// the error value exists for callers that want to inspect what was
// rejected.
type StateError struct {
	// Code identifies the error category.
	Code StateErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the layer index involved, -1 when not applicable.
	Index int

	// Token identifies the gesture during which the fault occurred.
	Token string
}

// StateErrorCode categorizes state errors.
type StateErrorCode string

const (
	// ErrCodeInvalidIndex indicates a layer index outside [0, count).
	ErrCodeInvalidIndex StateErrorCode = "INVALID_INDEX"

	// ErrCodeLockedLayer indicates an interactive event targeted a locked
	// layer. This is expected user-facing behavior, not a fault.
	ErrCodeLockedLayer StateErrorCode = "LOCKED_LAYER"

	// ErrCodeMissingNode indicates a layer whose live render handle is not
	// attached yet. The store half of the operation still proceeds.
	ErrCodeMissingNode StateErrorCode = "MISSING_NODE"

	// ErrCodeMalformedState indicates persisted state that failed to
	// decode; affected fields fall back to defaults.
	ErrCodeMalformedState StateErrorCode = "MALFORMED_STATE"
)

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (layer=%d)", e.Code, e.Message, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidIndex reports whether err is an invalid-index state error.
func IsInvalidIndex(err error) bool {
	return hasCode(err, ErrCodeInvalidIndex)
}

// IsLockedLayer reports whether err is a locked-layer rejection.
func IsLockedLayer(err error) bool {
	return hasCode(err, ErrCodeLockedLayer)
}

// IsMissingNode reports whether err is a missing-render-node error.
func IsMissingNode(err error) bool {
	return hasCode(err, ErrCodeMissingNode)
}

// IsMalformedState reports whether err is a malformed-persisted-state error.
func IsMalformedState(err error) bool {
	return hasCode(err, ErrCodeMalformedState)
}

func hasCode(err error, code StateErrorCode) bool {
	var se *StateError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// newInvalidIndexError creates a StateError for an out-of-range index.
func newInvalidIndexError(index, count int) *StateError {
	return &StateError{
		Code:    ErrCodeInvalidIndex,
		Message: fmt.Sprintf("index outside [0, %d)", count),
		Index:   index,
	}
}

// newLockedLayerError creates a StateError for a locked-layer rejection.
func newLockedLayerError(index int, token string) *StateError {
	return &StateError{
		Code:    ErrCodeLockedLayer,
		Message: "layer is locked",
		Index:   index,
		Token:   token,
	}
}

// newMissingNodeError creates a StateError for an unattached render node.
func newMissingNodeError(index int) *StateError {
	return &StateError{
		Code:    ErrCodeMissingNode,
		Message: "render node not attached",
		Index:   index,
	}
}
