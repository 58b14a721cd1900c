package engine

import "time"

// Option configures a Document at construction.
type Option func(*Document)

// WithHistoryCap bounds the undo/redo stack. Default: history.DefaultCap.
func WithHistoryCap(n int) Option {
	return func(d *Document) {
		d.historyCap = n
	}
}

// WithDebounceWindow sets the quiet window for debounced history commits.
// Default: history.DefaultDebounceWindow. The window is a tuning knob,
// not a correctness deadline; it only affects how many entries a burst
// produces.
func WithDebounceWindow(w time.Duration) Option {
	return func(d *Document) {
		d.debounceWindow = w
	}
}

// WithWheelScaleStep sets the multiplicative scale factor per wheel tick.
// Default: DefaultWheelScaleStep.
func WithWheelScaleStep(step float64) Option {
	return func(d *Document) {
		d.wheelScaleStep = step
	}
}

// WithTokenGenerator overrides the gesture token source. Tests use
// NewFixedGenerator for deterministic golden comparison.
func WithTokenGenerator(g GestureTokenGenerator) Option {
	return func(d *Document) {
		d.tokens = g
	}
}

// WithRedraw registers the host repaint callback invoked after every
// synchronized write.
func WithRedraw(fn func()) Option {
	return func(d *Document) {
		d.redraw = fn
	}
}

// WithSelectionChanged registers the callback notified with the selected
// index (-1 for none) after every selection transition. Enabling and
// disabling UI chrome is the host's business.
func WithSelectionChanged(fn func(selected int)) Option {
	return func(d *Document) {
		d.selectionChanged = fn
	}
}
